package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
	"github.com/embeddedgames/escrow/program/pkg/metrics"
	"github.com/embeddedgames/escrow/utils/pkg/retry"
)

// DB is the subset of pgxpool.Pool used by the store.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

type StoreConfig struct {
	Logger *slog.Logger
	DB     DB
	Retry  retry.Config
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DB == nil {
		return errors.New("db is required")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// Store keeps program state in Postgres. Each unit of work is a
// serializable transaction that locks the rows it reads; transactions that
// lose a serialization race are re-run from the start.
type Store struct {
	log *slog.Logger
	cfg StoreConfig
}

var _ escrow.Store = (*Store)(nil)

func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		log: cfg.Logger,
		cfg: cfg,
	}
	onRetry := cfg.Retry.OnRetry
	s.cfg.Retry.OnRetry = func(attempt int, err error) {
		metrics.StoreRetriesTotal.WithLabelValues("postgres").Inc()
		s.log.Debug("store/postgres: retrying unit of work", "attempt", attempt, "error", err)
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}
	return s, nil
}

func (s *Store) Update(ctx context.Context, fn func(tx escrow.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return retry.Do(ctx, s.cfg.Retry, func() error {
		return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadWrite}, func(t *tx) error {
			return fn(t)
		})
	})
}

func (s *Store) View(ctx context.Context, fn func(tx escrow.ReadTx) error) error {
	return retry.Do(ctx, s.cfg.Retry, func() error {
		return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(t *tx) error {
			return fn(t)
		})
	})
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, fn func(t *tx) error) error {
	pgTx, err := s.cfg.DB.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after Commit is a no-op.
		_ = pgTx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(&tx{q: pgTx, lock: opts.AccessMode == pgx.ReadWrite}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Events(ctx context.Context, after uint64, limit int) ([]escrow.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.cfg.DB.Query(ctx, `
		SELECT seq, id::text, kind, payload::text, created_at
		FROM escrow_events
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`, int64(after), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("failed to scan events: %w", err)
	}
	return events, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.cfg.DB.Ping(ctx)
}

func scanEvent(row pgx.CollectableRow) (escrow.Event, error) {
	var (
		seq       int64
		id        string
		kind      string
		payload   string
		createdAt time.Time
	)
	if err := row.Scan(&seq, &id, &kind, &payload, &createdAt); err != nil {
		return escrow.Event{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return escrow.Event{}, fmt.Errorf("invalid event id %q: %w", id, err)
	}
	return escrow.Event{
		Seq:       uint64(seq),
		ID:        parsed,
		Kind:      escrow.EventKind(kind),
		Payload:   []byte(payload),
		Timestamp: createdAt.UTC(),
	}, nil
}

type tx struct {
	q    pgx.Tx
	lock bool
}

func (t *tx) forUpdate() string {
	if t.lock {
		return " FOR UPDATE"
	}
	return ""
}

func (t *tx) Config(ctx context.Context) (escrow.Config, error) {
	var (
		authority           string
		casualBet           string
		casualFeeBps        int32
		bettingFeeBps       int32
		winnersModeIsPct    bool
		winnersValue        int32
		rewardPercentageBps int32
		bump                int16
	)
	err := t.q.QueryRow(ctx, `
		SELECT authority, casual_bet_lamports::text, casual_fee_bps, betting_fee_bps,
		       winners_mode_is_percentage, winners_value, reward_percentage_bps, bump
		FROM escrow_config
		WHERE id = 1`+t.forUpdate(),
	).Scan(&authority, &casualBet, &casualFeeBps, &bettingFeeBps, &winnersModeIsPct, &winnersValue, &rewardPercentageBps, &bump)
	if errors.Is(err, pgx.ErrNoRows) {
		return escrow.Config{}, escrow.ErrConfigNotInitialized
	}
	if err != nil {
		return escrow.Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	authorityKey, err := solana.PublicKeyFromBase58(authority)
	if err != nil {
		return escrow.Config{}, fmt.Errorf("invalid stored authority %q: %w", authority, err)
	}
	casualBetLamports, err := strconv.ParseUint(casualBet, 10, 64)
	if err != nil {
		return escrow.Config{}, fmt.Errorf("invalid stored casual bet %q: %w", casualBet, err)
	}
	return escrow.Config{
		Authority:               authorityKey,
		CasualBetLamports:       casualBetLamports,
		CasualFeeBps:            uint16(casualFeeBps),
		BettingFeeBps:           uint16(bettingFeeBps),
		WinnersModeIsPercentage: winnersModeIsPct,
		WinnersValue:            uint16(winnersValue),
		RewardPercentageBps:     uint16(rewardPercentageBps),
		Bump:                    uint8(bump),
	}, nil
}

func (t *tx) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var lamports string
	err := t.q.QueryRow(ctx, `
		SELECT lamports::text FROM escrow_accounts WHERE address = $1`+t.forUpdate(),
		account.String(),
	).Scan(&lamports)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	bal, err := strconv.ParseUint(lamports, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stored balance %q for %s: %w", lamports, account, err)
	}
	return bal, nil
}

func (t *tx) PutConfig(ctx context.Context, cfg escrow.Config) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO escrow_config (
			id, authority, casual_bet_lamports, casual_fee_bps, betting_fee_bps,
			winners_mode_is_percentage, winners_value, reward_percentage_bps, bump, updated_at
		) VALUES (1, $1, $2::numeric, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			authority = EXCLUDED.authority,
			casual_bet_lamports = EXCLUDED.casual_bet_lamports,
			casual_fee_bps = EXCLUDED.casual_fee_bps,
			betting_fee_bps = EXCLUDED.betting_fee_bps,
			winners_mode_is_percentage = EXCLUDED.winners_mode_is_percentage,
			winners_value = EXCLUDED.winners_value,
			reward_percentage_bps = EXCLUDED.reward_percentage_bps,
			bump = EXCLUDED.bump,
			updated_at = EXCLUDED.updated_at
	`,
		cfg.Authority.String(),
		strconv.FormatUint(cfg.CasualBetLamports, 10),
		int32(cfg.CasualFeeBps),
		int32(cfg.BettingFeeBps),
		cfg.WinnersModeIsPercentage,
		int32(cfg.WinnersValue),
		int32(cfg.RewardPercentageBps),
		int16(cfg.Bump),
	)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (t *tx) SetBalance(ctx context.Context, account solana.PublicKey, lamports uint64) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO escrow_accounts (address, lamports, updated_at)
		VALUES ($1, $2::numeric, now())
		ON CONFLICT (address) DO UPDATE SET
			lamports = EXCLUDED.lamports,
			updated_at = EXCLUDED.updated_at
	`, account.String(), strconv.FormatUint(lamports, 10))
	if err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}
	return nil
}

func (t *tx) AppendEvent(ctx context.Context, ev escrow.Event) (uint64, error) {
	var seq int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO escrow_events (id, kind, payload, created_at)
		VALUES ($1::uuid, $2, $3::jsonb, $4)
		RETURNING seq
	`, ev.ID.String(), string(ev.Kind), string(ev.Payload), ev.Timestamp).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to append event: %w", err)
	}
	return uint64(seq), nil
}
