package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

type DistributeRewardsRequest struct {
	Winners  []escrow.WinnerInput  `json:"winners"`
	Insiders []escrow.InsiderInput `json:"insiders"`
	// RemainingAccounts lists one destination per winner and then one per
	// insider, in the same order.
	RemainingAccounts []solana.PublicKey `json:"remaining_accounts"`
}

func (h *Handler) DistributeRewards(w http.ResponseWriter, r *http.Request) {
	signer, _ := SignerFromContext(r.Context())

	var req DistributeRewardsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.cfg.Program.DistributeRewards(r.Context(), signer, escrow.DistributeParams{
		Winners:           req.Winners,
		Insiders:          req.Insiders,
		RemainingAccounts: req.RemainingAccounts,
	})
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
