package handlers

import (
	"net/http"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

// ListEvents returns a page of the event log in commit order.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	cursor := ParseCursor(r, DefaultLimit)

	events, err := h.cfg.Program.Events(r.Context(), cursor.After, cursor.Limit)
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	if events == nil {
		events = []escrow.Event{}
	}

	page := CursorPage[escrow.Event]{Items: events, Limit: cursor.Limit}
	if len(events) > 0 {
		page.NextAfter = events[len(events)-1].Seq
	}
	writeJSON(w, http.StatusOK, page)
}
