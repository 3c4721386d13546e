package admin

import (
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

// ShowPDAs prints the treasury and config addresses derived from programID.
func ShowPDAs(w io.Writer, programID solana.PublicKey) error {
	treasury, err := escrow.DeriveTreasury(programID)
	if err != nil {
		return err
	}
	configAddr, configBump, err := escrow.DeriveConfigAddress(programID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Program ID:   %s\nTreasury PDA: %s (bump %d)\nConfig PDA:   %s (bump %d)\n",
		programID, treasury.Address, treasury.Bump, configAddr, configBump)
	return err
}
