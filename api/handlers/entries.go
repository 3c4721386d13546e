package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
)

type PayEntryRequest struct {
	Amount uint64 `json:"amount"`
}

// PayEntry moves the entry fee from the signing payer into the treasury.
func (h *Handler) PayEntry(w http.ResponseWriter, r *http.Request) {
	payer, _ := SignerFromContext(r.Context())

	var req PayEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ev, err := h.cfg.Program.PayEntry(r.Context(), payer, req.Amount)
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

type AirdropRequest struct {
	Recipient solana.PublicKey `json:"recipient"`
	Amount    uint64           `json:"amount"`
}

func (h *Handler) AirdropTransfer(w http.ResponseWriter, r *http.Request) {
	signer, _ := SignerFromContext(r.Context())

	var req AirdropRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Recipient.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid_argument", "recipient is required")
		return
	}
	ev, err := h.cfg.Program.AirdropTransfer(r.Context(), signer, req.Recipient, req.Amount)
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}
