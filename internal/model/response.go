package model

import "time"

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// FinalizeResult reports what a finalize request did.
type FinalizeResult struct {
	DeliveryID string `json:"delivery_id"`
	Outcome    string `json:"outcome"`
	Warning    string `json:"warning,omitempty"`
}

// Event types pushed to websocket subscribers.
const (
	EventItemAdded     = "item_added"
	EventListFinalized = "list_finalized"
)

// Event is a domain notification sent over the websocket feed.
type Event struct {
	Type      string         `json:"type"`
	Item      *CatalogItem   `json:"item,omitempty"`
	Finalized *FinalizeEvent `json:"finalized,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// FinalizeEvent summarizes a finalized list.
type FinalizeEvent struct {
	Outcome     string `json:"outcome"`
	TotalItems  int    `json:"total_items"`
	UniqueItems int    `json:"unique_items"`
}
