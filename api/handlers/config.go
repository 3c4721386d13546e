package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

type ConfigResponse struct {
	Address solana.PublicKey `json:"address"`
	escrow.Config
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.cfg.Program.Config(r.Context())
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	addr, _ := h.cfg.Program.ConfigAddress()
	writeJSON(w, http.StatusOK, ConfigResponse{Address: addr, Config: cfg})
}

// InitializeConfig makes the signer the config authority.
func (h *Handler) InitializeConfig(w http.ResponseWriter, r *http.Request) {
	signer, _ := SignerFromContext(r.Context())

	var req escrow.InitializeParams
	if !decodeBody(w, r, &req) {
		return
	}
	ev, err := h.cfg.Program.InitializeConfig(r.Context(), signer, req)
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	signer, _ := SignerFromContext(r.Context())

	var req escrow.ConfigUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	ev, err := h.cfg.Program.UpdateConfig(r.Context(), signer, req)
	if err != nil {
		h.writeProgramError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
