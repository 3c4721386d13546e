package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	"github.com/embeddedgames/escrow/program/pkg/metrics"
)

type ProgramConfig struct {
	Logger    *slog.Logger
	Clock     clockwork.Clock
	Store     Store
	ProgramID solana.PublicKey
}

func (cfg *ProgramConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = DefaultProgramID
	}
	return nil
}

// Program executes escrow operations against a Store. Each exported
// operation is one unit of work: it commits all of its balance changes and
// its event, or none of them.
type Program struct {
	log        *slog.Logger
	cfg        ProgramConfig
	treasury   Treasury
	configAddr solana.PublicKey
	configBump uint8
}

func NewProgram(cfg ProgramConfig) (*Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	treasury, err := DeriveTreasury(cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	configAddr, configBump, err := DeriveConfigAddress(cfg.ProgramID)
	if err != nil {
		return nil, err
	}
	return &Program{
		log:        cfg.Logger,
		cfg:        cfg,
		treasury:   treasury,
		configAddr: configAddr,
		configBump: configBump,
	}, nil
}

func (p *Program) ProgramID() solana.PublicKey { return p.cfg.ProgramID }

func (p *Program) Treasury() Treasury { return p.treasury }

func (p *Program) ConfigAddress() (solana.PublicKey, uint8) { return p.configAddr, p.configBump }

// opFunc performs the body of an operation inside tx. It returns the event to
// append and the number of lamports it moved.
type opFunc func(tx Tx, now time.Time) (Event, uint64, error)

func (p *Program) execute(ctx context.Context, op string, fn opFunc) (Event, error) {
	start := p.cfg.Clock.Now()

	var (
		committed Event
		moved     uint64
		treasury  uint64
	)
	err := p.cfg.Store.Update(ctx, func(tx Tx) error {
		ev, lamports, err := fn(tx, p.cfg.Clock.Now())
		if err != nil {
			return err
		}
		seq, err := tx.AppendEvent(ctx, ev)
		if err != nil {
			return fmt.Errorf("failed to append %s event: %w", ev.Kind, err)
		}
		ev.Seq = seq
		bal, err := p.treasury.Balance(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to read treasury balance: %w", err)
		}
		committed, moved, treasury = ev, lamports, bal
		return nil
	})
	duration := p.cfg.Clock.Since(start).Seconds()

	switch {
	case err == nil:
		metrics.RecordOperation(op, "success", duration)
		metrics.LamportsMovedTotal.WithLabelValues(op).Add(float64(moved))
		metrics.TreasuryLamports.Set(float64(treasury))
		p.log.Info("escrow/program: committed", "operation", op, "event", committed.ID, "seq", committed.Seq, "lamports", moved, "treasury", treasury)
		return committed, nil
	case IsRejection(err):
		metrics.RecordOperation(op, "rejected", duration)
		p.log.Info("escrow/program: rejected", "operation", op, "code", Code(err), "error", err)
		return Event{}, err
	default:
		metrics.RecordOperation(op, "error", duration)
		p.log.Error("escrow/program: failed", "operation", op, "error", err)
		return Event{}, fmt.Errorf("failed to execute %s: %w", op, err)
	}
}

// authorize loads the config and rejects any caller other than its authority.
func authorize(ctx context.Context, tx ReadTx, caller solana.PublicKey) (Config, error) {
	cfg, err := tx.Config(ctx)
	if err != nil {
		return Config{}, err
	}
	if !cfg.Authority.Equals(caller) {
		return Config{}, fmt.Errorf("%w: %s is not the config authority", ErrUnauthorized, caller)
	}
	return cfg, nil
}

// Config returns the stored program config.
func (p *Program) Config(ctx context.Context) (Config, error) {
	var cfg Config
	err := p.cfg.Store.View(ctx, func(tx ReadTx) error {
		var err error
		cfg, err = tx.Config(ctx)
		return err
	})
	return cfg, err
}

// Balance returns the balance of an account. The treasury address is a
// valid argument.
func (p *Program) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var bal uint64
	err := p.cfg.Store.View(ctx, func(tx ReadTx) error {
		var err error
		bal, err = tx.Balance(ctx, account)
		return err
	})
	return bal, err
}

func (p *Program) TreasuryBalance(ctx context.Context) (uint64, error) {
	return p.Balance(ctx, p.treasury.Address)
}

func (p *Program) Events(ctx context.Context, after uint64, limit int) ([]Event, error) {
	return p.cfg.Store.Events(ctx, after, limit)
}

func (p *Program) Ping(ctx context.Context) error {
	return p.cfg.Store.Ping(ctx)
}
