package handlers

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type CursorParams struct {
	After uint64
	Limit int
}

type CursorPage[T any] struct {
	Items []T `json:"items"`
	// NextAfter is the cursor for the following page; zero when Items is
	// empty.
	NextAfter uint64 `json:"next_after"`
	Limit     int    `json:"limit"`
}

func ParseCursor(r *http.Request, defaultLimit int) CursorParams {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}

	limit := defaultLimit
	var after uint64

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > MaxLimit {
				limit = MaxLimit
			}
		}
	}

	if a := r.URL.Query().Get("after"); a != "" {
		if parsed, err := strconv.ParseUint(a, 10, 64); err == nil {
			after = parsed
		}
	}

	return CursorParams{After: after, Limit: limit}
}
