package escrow

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// MatchMode tags a settlement and selects which fee rate applies to it.
type MatchMode uint8

const (
	MatchModeCasual MatchMode = iota
	MatchModeBetting
)

func (m MatchMode) String() string {
	switch m {
	case MatchModeCasual:
		return "casual"
	case MatchModeBetting:
		return "betting"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "casual", "":
		return MatchModeCasual, nil
	case "betting":
		return MatchModeBetting, nil
	default:
		return 0, fmt.Errorf("%w: unknown match mode %q", ErrInvalidArgument, s)
	}
}

func (m MatchMode) MarshalText() ([]byte, error) {
	if m > MatchModeBetting {
		return nil, fmt.Errorf("%w: unknown match mode %d", ErrInvalidArgument, uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *MatchMode) UnmarshalText(b []byte) error {
	mode, err := ParseMatchMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// WinnerInput is one weighted recipient of the reward pool.
type WinnerInput struct {
	Wallet solana.PublicKey `json:"wallet"`
	Points uint64           `json:"points"`
}

// InsiderInput is one recipient of the post-winner remainder, weighted in
// basis points.
type InsiderInput struct {
	Wallet   solana.PublicKey `json:"wallet"`
	ShareBps uint16           `json:"share_bps"`
}

// Config is the admin-controlled program configuration.
type Config struct {
	Authority               solana.PublicKey `json:"authority"`
	CasualBetLamports       uint64           `json:"casual_bet_lamports"`
	CasualFeeBps            uint16           `json:"casual_fee_bps"`
	BettingFeeBps           uint16           `json:"betting_fee_bps"`
	WinnersModeIsPercentage bool             `json:"winners_mode_is_percentage"`
	WinnersValue            uint16           `json:"winners_value"`
	RewardPercentageBps     uint16           `json:"reward_percentage_bps"`
	Bump                    uint8            `json:"bump"`
}

func (c Config) Validate() error {
	if c.Authority.IsZero() {
		return fmt.Errorf("%w: authority is required", ErrInvalidConfig)
	}
	for name, bps := range map[string]uint16{
		"casual_fee_bps":        c.CasualFeeBps,
		"betting_fee_bps":       c.BettingFeeBps,
		"reward_percentage_bps": c.RewardPercentageBps,
	} {
		if bps > BpsDenominator {
			return fmt.Errorf("%w: %s %d exceeds %d", ErrInvalidConfig, name, bps, BpsDenominator)
		}
	}
	if c.WinnersModeIsPercentage && c.WinnersValue > 100 {
		return fmt.Errorf("%w: winners_value %d exceeds 100 percent", ErrInvalidConfig, c.WinnersValue)
	}
	return nil
}

// FeeBps returns the fee rate for a match mode.
func (c Config) FeeBps(mode MatchMode) uint16 {
	if mode == MatchModeBetting {
		return c.BettingFeeBps
	}
	return c.CasualFeeBps
}

// SettlementFee returns floor(total * fee_bps(mode) / 10000).
func (c Config) SettlementFee(mode MatchMode, total uint64) (uint64, error) {
	return bpsOf(total, c.FeeBps(mode))
}

// ConfigUpdate carries a partial config change. Nil fields are left as is.
type ConfigUpdate struct {
	CasualFeeBps            *uint16 `json:"casual_fee_bps,omitempty"`
	BettingFeeBps           *uint16 `json:"betting_fee_bps,omitempty"`
	WinnersModeIsPercentage *bool   `json:"winners_mode_is_percentage,omitempty"`
	WinnersValue            *uint16 `json:"winners_value,omitempty"`
	RewardPercentageBps     *uint16 `json:"reward_percentage_bps,omitempty"`
}

func (u ConfigUpdate) apply(c Config) Config {
	if u.CasualFeeBps != nil {
		c.CasualFeeBps = *u.CasualFeeBps
	}
	if u.BettingFeeBps != nil {
		c.BettingFeeBps = *u.BettingFeeBps
	}
	if u.WinnersModeIsPercentage != nil {
		c.WinnersModeIsPercentage = *u.WinnersModeIsPercentage
	}
	if u.WinnersValue != nil {
		c.WinnersValue = *u.WinnersValue
	}
	if u.RewardPercentageBps != nil {
		c.RewardPercentageBps = *u.RewardPercentageBps
	}
	return c
}

// InitializeParams are the initial config values. The caller becomes the
// authority.
type InitializeParams struct {
	CasualBetLamports       uint64 `json:"casual_bet_lamports"`
	CasualFeeBps            uint16 `json:"casual_fee_bps"`
	BettingFeeBps           uint16 `json:"betting_fee_bps"`
	WinnersModeIsPercentage bool   `json:"winners_mode_is_percentage"`
	WinnersValue            uint16 `json:"winners_value"`
	RewardPercentageBps     uint16 `json:"reward_percentage_bps"`
}

type SettleParams struct {
	MatchID     string
	TotalAmount uint64
	TotalFee    uint64
	Mode        MatchMode
	Winner      solana.PublicKey
	// Destination is the account the winner amount is credited to. It must
	// be the winner.
	Destination solana.PublicKey
}

type DistributeParams struct {
	Winners  []WinnerInput
	Insiders []InsiderInput
	// RemainingAccounts are the destination accounts, ordered winners first
	// and then insiders.
	RemainingAccounts []solana.PublicKey
}

type RefundParams struct {
	MatchID     string
	Player      solana.PublicKey
	Destination solana.PublicKey
	Amount      uint64
}
