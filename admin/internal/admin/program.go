package admin

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

// Program is the escrow surface the admin commands drive.
type Program interface {
	ProgramID() solana.PublicKey
	Treasury() escrow.Treasury
	TreasuryBalance(ctx context.Context) (uint64, error)
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	InitializeConfig(ctx context.Context, caller solana.PublicKey, params escrow.InitializeParams) (escrow.Event, error)
	UpdateConfig(ctx context.Context, caller solana.PublicKey, update escrow.ConfigUpdate) (escrow.Event, error)
	CreditAccount(ctx context.Context, wallet solana.PublicKey, amount uint64) (escrow.Event, error)
	AirdropTransfer(ctx context.Context, caller, recipient solana.PublicKey, amount uint64) (escrow.Event, error)
}

var _ Program = (*escrow.Program)(nil)
