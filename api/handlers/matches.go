package handlers

import (
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

type SettleMatchRequest struct {
	TotalAmount uint64 `json:"total_amount"`
	// TotalFee defaults to the configured fee rate for Mode when omitted.
	TotalFee    *uint64          `json:"total_fee,omitempty"`
	Mode        escrow.MatchMode `json:"mode"`
	Winner      solana.PublicKey `json:"winner"`
	Destination solana.PublicKey `json:"destination"`
}

func matchIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	matchID := strings.TrimSpace(chi.URLParam(r, "matchID"))
	if matchID == "" {
		writeError(w, http.StatusBadRequest, "invalid_argument", "match id is required")
		return "", false
	}
	return matchID, true
}

func (h *Handler) SettleMatch(w http.ResponseWriter, r *http.Request) {
	signer, _ := SignerFromContext(r.Context())
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}

	var req SettleMatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Winner.IsZero() || req.Destination.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid_argument", "winner and destination are required")
		return
	}

	var fee uint64
	if req.TotalFee != nil {
		fee = *req.TotalFee
	} else {
		cfg, err := h.cfg.Program.Config(r.Context())
		if err != nil {
			h.writeProgramError(w, r, err)
			return
		}
		if fee, err = cfg.SettlementFee(req.Mode, req.TotalAmount); err != nil {
			h.writeProgramError(w, r, err)
			return
		}
	}

	ev, err := h.cfg.Program.SettleMatch(r.Context(), signer, escrow.SettleParams{
		MatchID:     matchID,
		TotalAmount: req.TotalAmount,
		TotalFee:    fee,
		Mode:        req.Mode,
		Winner:      req.Winner,
		Destination: req.Destination,
	})
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type RefundEntryRequest struct {
	Player      solana.PublicKey `json:"player"`
	Destination solana.PublicKey `json:"destination"`
	Amount      uint64           `json:"amount"`
}

func (h *Handler) RefundEntry(w http.ResponseWriter, r *http.Request) {
	signer, _ := SignerFromContext(r.Context())
	matchID, ok := matchIDParam(w, r)
	if !ok {
		return
	}

	var req RefundEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Player.IsZero() || req.Destination.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid_argument", "player and destination are required")
		return
	}

	ev, err := h.cfg.Program.RefundEntry(r.Context(), signer, escrow.RefundParams{
		MatchID:     matchID,
		Player:      req.Player,
		Destination: req.Destination,
		Amount:      req.Amount,
	})
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
