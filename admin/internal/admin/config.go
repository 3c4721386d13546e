package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

// InitConfig creates the program config with authority as its admin.
func InitConfig(ctx context.Context, log *slog.Logger, program Program, authority solana.PublicKey, params escrow.InitializeParams) error {
	ev, err := program.InitializeConfig(ctx, authority, params)
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	log.Info("config initialized", "authority", authority, "event", ev.ID, "seq", ev.Seq)
	return nil
}

// UpdateConfig applies a partial config change signed by authority.
func UpdateConfig(ctx context.Context, log *slog.Logger, program Program, authority solana.PublicKey, update escrow.ConfigUpdate) error {
	ev, err := program.UpdateConfig(ctx, authority, update)
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	log.Info("config updated", "authority", authority, "event", ev.ID, "seq", ev.Seq)
	return nil
}

// FundWallet credits a wallet on a development deployment.
func FundWallet(ctx context.Context, log *slog.Logger, program Program, wallet solana.PublicKey, lamports uint64) error {
	ev, err := program.CreditAccount(ctx, wallet, lamports)
	if err != nil {
		return fmt.Errorf("failed to fund wallet %s: %w", wallet, err)
	}
	bal, err := program.Balance(ctx, wallet)
	if err != nil {
		return err
	}
	log.Info("wallet funded", "wallet", wallet, "lamports", lamports, "balance", bal, "event", ev.ID)
	return nil
}
