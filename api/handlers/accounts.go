package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
)

type TreasuryResponse struct {
	ProgramID solana.PublicKey `json:"program_id"`
	Address   solana.PublicKey `json:"address"`
	Bump      uint8            `json:"bump"`
	Lamports  uint64           `json:"lamports"`
}

func (h *Handler) GetTreasury(w http.ResponseWriter, r *http.Request) {
	lamports, err := h.cfg.Program.TreasuryBalance(r.Context())
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	treasury := h.cfg.Program.Treasury()
	writeJSON(w, http.StatusOK, TreasuryResponse{
		ProgramID: h.cfg.Program.ProgramID(),
		Address:   treasury.Address,
		Bump:      treasury.Bump,
		Lamports:  lamports,
	})
}

type AccountResponse struct {
	Address  solana.PublicKey `json:"address"`
	Lamports uint64           `json:"lamports"`
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	address, err := solana.PublicKeyFromBase58(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid account address")
		return
	}
	lamports, err := h.cfg.Program.Balance(r.Context(), address)
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{Address: address, Lamports: lamports})
}
