// Package api handles incoming HTTP requests: routing, request
// validation, and response formatting. It adapts HTTP concerns to the
// letter, memory, parallel view, and resonance services.
package api
