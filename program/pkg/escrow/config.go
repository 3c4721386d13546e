package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
)

// InitializeConfig stores the program config for the first time. The caller
// becomes the authority for all privileged operations.
func (p *Program) InitializeConfig(ctx context.Context, caller solana.PublicKey, params InitializeParams) (Event, error) {
	return p.execute(ctx, "initialize_config", func(tx Tx, now time.Time) (Event, uint64, error) {
		_, err := tx.Config(ctx)
		switch {
		case err == nil:
			return Event{}, 0, ErrConfigAlreadyInitialized
		case !errors.Is(err, ErrConfigNotInitialized):
			return Event{}, 0, err
		}

		cfg := Config{
			Authority:               caller,
			CasualBetLamports:       params.CasualBetLamports,
			CasualFeeBps:            params.CasualFeeBps,
			BettingFeeBps:           params.BettingFeeBps,
			WinnersModeIsPercentage: params.WinnersModeIsPercentage,
			WinnersValue:            params.WinnersValue,
			RewardPercentageBps:     params.RewardPercentageBps,
			Bump:                    p.configBump,
		}
		if err := cfg.Validate(); err != nil {
			return Event{}, 0, err
		}
		if err := tx.PutConfig(ctx, cfg); err != nil {
			return Event{}, 0, err
		}
		ev, err := newEvent(EventKindConfigInitialized, now, ConfigEvent{Config: cfg, Timestamp: now.Unix()})
		return ev, 0, err
	})
}

// UpdateConfig applies the fields present in update. Only the authority may
// call it.
func (p *Program) UpdateConfig(ctx context.Context, caller solana.PublicKey, update ConfigUpdate) (Event, error) {
	return p.execute(ctx, "update_config", func(tx Tx, now time.Time) (Event, uint64, error) {
		cfg, err := authorize(ctx, tx, caller)
		if err != nil {
			return Event{}, 0, err
		}
		cfg = update.apply(cfg)
		if err := cfg.Validate(); err != nil {
			return Event{}, 0, err
		}
		if err := tx.PutConfig(ctx, cfg); err != nil {
			return Event{}, 0, err
		}
		ev, err := newEvent(EventKindConfigUpdated, now, ConfigEvent{Config: cfg, Timestamp: now.Unix()})
		return ev, 0, err
	})
}
