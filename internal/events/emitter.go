package events

import (
	"context"
	"log/slog"
	"sync"
)

// FanoutEmitter is a simple implementation of the Emitter interface
// that stores registered handlers in memory and dispatches
// notifications to them.
type FanoutEmitter struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewFanoutEmitter creates a new instance of FanoutEmitter.
func NewFanoutEmitter(logger *slog.Logger) *FanoutEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FanoutEmitter{
		handlers: make([]Handler, 0),
		logger:   logger.With("component", "notification_emitter"),
	}
}

// Ensure FanoutEmitter implements the Emitter interface
var _ Emitter = (*FanoutEmitter)(nil)

// RegisterHandler adds a new handler to receive notifications.
func (e *FanoutEmitter) RegisterHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new notification handler", "handler_count", len(e.handlers))
}

// Emit publishes the notification to all registered handlers.
// If any handler returns an error, the notification is still delivered
// to the remaining handlers and the first error encountered is
// returned for logging at the call site.
func (e *FanoutEmitter) Emit(ctx context.Context, event string, notification *Notification) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	e.logger.Debug("emitting notification",
		"event", event,
		"target_id", notification.TargetID,
		"handler_count", len(handlers))

	if len(handlers) == 0 {
		e.logger.Warn("no handlers registered for notification",
			"event", event,
			"target_id", notification.TargetID)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleNotification(ctx, event, notification); err != nil {
			e.logger.Error("handler failed to process notification",
				"error", err,
				"handler_index", i,
				"event", event,
				"target_id", notification.TargetID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// LogHandler delivers notifications to the structured log. It stands
// in for the admin dashboard push channel, which is owned by a
// separate delivery service.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a handler that writes notifications to the log.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{
		logger: logger.With("component", "notification_log_handler"),
	}
}

// HandleNotification implements the Handler interface.
func (h *LogHandler) HandleNotification(ctx context.Context, event string, notification *Notification) error {
	h.logger.Info("admin notification",
		"event", event,
		"type", notification.Type,
		"target_id", notification.TargetID,
		"title", notification.Title,
		"family_name", notification.FamilyName,
		"author_name", notification.AuthorName)
	return nil
}
