package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

// Program is the escrow surface served over HTTP.
type Program interface {
	ProgramID() solana.PublicKey
	Treasury() escrow.Treasury
	ConfigAddress() (solana.PublicKey, uint8)
	Config(ctx context.Context) (escrow.Config, error)
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	TreasuryBalance(ctx context.Context) (uint64, error)
	Events(ctx context.Context, after uint64, limit int) ([]escrow.Event, error)
	Ping(ctx context.Context) error
	InitializeConfig(ctx context.Context, caller solana.PublicKey, params escrow.InitializeParams) (escrow.Event, error)
	UpdateConfig(ctx context.Context, caller solana.PublicKey, update escrow.ConfigUpdate) (escrow.Event, error)
	PayEntry(ctx context.Context, payer solana.PublicKey, amount uint64) (escrow.Event, error)
	SettleMatch(ctx context.Context, caller solana.PublicKey, params escrow.SettleParams) (escrow.Event, error)
	DistributeRewards(ctx context.Context, caller solana.PublicKey, params escrow.DistributeParams) (escrow.DistributionResult, error)
	RefundEntry(ctx context.Context, caller solana.PublicKey, params escrow.RefundParams) (escrow.Event, error)
	AirdropTransfer(ctx context.Context, caller, recipient solana.PublicKey, amount uint64) (escrow.Event, error)
}

const (
	defaultSignatureMaxSkew = 30 * time.Second
	maxBodyBytes            = 1 << 20
)

type Config struct {
	Logger  *slog.Logger
	Clock   clockwork.Clock
	Program Program

	// ClientSecret, when set, requires every mutating request to carry an
	// HMAC of its body made with this secret.
	ClientSecret     string
	SignatureMaxSkew time.Duration
	RateLimiter      *RateLimiter
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Program == nil {
		return errors.New("program is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.SignatureMaxSkew <= 0 {
		cfg.SignatureMaxSkew = defaultSignatureMaxSkew
	}
	if cfg.RateLimiter == nil {
		// 60 mutations per minute per client with a burst of 20.
		cfg.RateLimiter = NewRateLimiter(cfg.Clock, rate.Every(time.Second), 20)
	}
	return nil
}

type Handler struct {
	log    *slog.Logger
	cfg    Config
	replay *replayGuard
}

func New(cfg Config) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{
		log:    cfg.Logger,
		cfg:    cfg,
		replay: newReplayGuard(cfg.Clock, cfg.SignatureMaxSkew),
	}, nil
}

// Routes returns the API router, to be mounted under /api/v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/treasury", h.GetTreasury)
	r.Get("/accounts/{address}", h.GetAccount)
	r.Get("/config", h.GetConfig)
	r.Get("/events", h.ListEvents)

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(h.cfg.RateLimiter))
		r.Use(h.bufferBody)
		if h.cfg.ClientSecret != "" {
			r.Use(h.requireClientSignature)
		}
		r.Use(h.requireSigner)

		r.Post("/config", h.InitializeConfig)
		r.Patch("/config", h.UpdateConfig)
		r.Post("/entries", h.PayEntry)
		r.Post("/matches/{matchID}/settle", h.SettleMatch)
		r.Post("/matches/{matchID}/refund", h.RefundEntry)
		r.Post("/rewards/distribute", h.DistributeRewards)
		r.Post("/airdrops", h.AirdropTransfer)
	})

	return r
}
