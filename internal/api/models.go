package api

import "time"

// Common request/response structures

// CreateLetterRequest defines the payload for sealing a new letter.
type CreateLetterRequest struct {
	ReceiverID string    `json:"receiver_id" validate:"required,uuid"`
	Content    string    `json:"content"     validate:"required,min=1"`
	UnlockTime time.Time `json:"unlock_time" validate:"required"`
}

// CreateMemoryRequest defines the payload for recording a new memory.
type CreateMemoryRequest struct {
	Type      string   `json:"type"       validate:"required,oneof=text photo voice"`
	Content   string   `json:"content"    validate:"required,min=1"`
	Tags      []string `json:"tags"       validate:"omitempty,dive,min=1"`
	MediaURLs []string `json:"media_urls" validate:"omitempty,dive,url"`
}

// AddParallelViewRequest defines the payload for attaching a parallel
// view to a memory.
type AddParallelViewRequest struct {
	Content string   `json:"content" validate:"required,min=1"`
	Images  []string `json:"images"  validate:"omitempty,dive,url"`
	Tags    []string `json:"tags"    validate:"omitempty,dive,min=1"`
}

// ResonanceRequest defines the payload for toggling or removing a
// resonance. When ParallelViewID is set the resonance targets that
// view; otherwise it targets the memory from the URL path.
type ResonanceRequest struct {
	ParallelViewID string `json:"parallel_view_id,omitempty" validate:"omitempty,uuid"`
}
