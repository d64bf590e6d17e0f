package models

// Envelope wraps every ledger API response.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Session carries the authenticated hostel context a client acts on behalf of.
type Session struct {
	HostelID int64
	Token    string
}

const (
	// HostelHeader carries the session hostel on every request.
	HostelHeader = "X-Hostel-ID"
	// IdempotencyHeader carries the per-attempt key of a payment submission.
	IdempotencyHeader = "Idempotency-Key"
)
