package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

type StoreConfig struct {
	Logger *slog.Logger
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Store keeps program state in process memory. Units of work run one at a
// time under a single lock and write into an overlay that is merged only
// when the unit of work succeeds.
type Store struct {
	log *slog.Logger
	cfg StoreConfig

	mu       sync.RWMutex
	config   *escrow.Config
	balances map[solana.PublicKey]uint64
	events   []escrow.Event
}

var _ escrow.Store = (*Store)(nil)

func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		log:      cfg.Logger,
		cfg:      cfg,
		balances: make(map[solana.PublicKey]uint64),
	}, nil
}

func (s *Store) Update(ctx context.Context, fn func(tx escrow.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{
		store:    s,
		balances: make(map[solana.PublicKey]uint64),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if tx.config != nil {
		cfg := *tx.config
		s.config = &cfg
	}
	for account, lamports := range tx.balances {
		s.balances[account] = lamports
	}
	s.events = append(s.events, tx.events...)
	s.log.Debug("store/memory: committed", "balances", len(tx.balances), "events", len(tx.events))
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx escrow.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&tx{store: s})
}

func (s *Store) Events(ctx context.Context, after uint64, limit int) ([]escrow.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Seq starts at 1 and is dense, so event n lives at index n-1.
	if after >= uint64(len(s.events)) {
		return []escrow.Event{}, nil
	}
	page := s.events[after:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	out := make([]escrow.Event, len(page))
	copy(out, page)
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// tx reads through its own pending writes to the committed state. A tx
// created by View has nil maps and is never written to.
type tx struct {
	store    *Store
	config   *escrow.Config
	balances map[solana.PublicKey]uint64
	events   []escrow.Event
}

func (t *tx) Config(ctx context.Context) (escrow.Config, error) {
	if t.config != nil {
		return *t.config, nil
	}
	if t.store.config == nil {
		return escrow.Config{}, escrow.ErrConfigNotInitialized
	}
	return *t.store.config, nil
}

func (t *tx) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	if lamports, ok := t.balances[account]; ok {
		return lamports, nil
	}
	return t.store.balances[account], nil
}

func (t *tx) PutConfig(ctx context.Context, cfg escrow.Config) error {
	t.config = &cfg
	return nil
}

func (t *tx) SetBalance(ctx context.Context, account solana.PublicKey, lamports uint64) error {
	t.balances[account] = lamports
	return nil
}

func (t *tx) AppendEvent(ctx context.Context, ev escrow.Event) (uint64, error) {
	ev.Seq = uint64(len(t.store.events) + len(t.events) + 1)
	t.events = append(t.events, ev)
	return ev.Seq, nil
}
