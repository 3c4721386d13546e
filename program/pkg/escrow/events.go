package escrow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

type EventKind string

const (
	EventKindDeposit            EventKind = "deposit"
	EventKindSettle             EventKind = "settle"
	EventKindDistributedRewards EventKind = "distributed_rewards"
	EventKindRefund             EventKind = "refund"
	EventKindAirdrop            EventKind = "airdrop"
	EventKindCredit             EventKind = "credit"
	EventKindConfigInitialized  EventKind = "config_initialized"
	EventKindConfigUpdated      EventKind = "config_updated"
)

// Event is an entry in the append-only event log. Seq is assigned by the
// store when the unit of work that appended the event commits.
type Event struct {
	Seq       uint64          `json:"seq"`
	ID        uuid.UUID       `json:"id"`
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type DepositEvent struct {
	Payer     solana.PublicKey `json:"payer"`
	Amount    uint64           `json:"amount"`
	Timestamp int64            `json:"ts"`
}

type SettleEvent struct {
	MatchID     string           `json:"match_id"`
	TotalAmount uint64           `json:"total_amount"`
	TotalFee    uint64           `json:"total_fee"`
	Mode        MatchMode        `json:"mode"`
	Winner      solana.PublicKey `json:"winner"`
	Timestamp   int64            `json:"ts"`
}

// DistributedRewardsEvent records the total paid to winners. Insider
// payouts are not part of the record.
type DistributedRewardsEvent struct {
	DistributedRewardPool uint64 `json:"distributed_reward_pool"`
	Timestamp             int64  `json:"ts"`
}

type RefundEvent struct {
	MatchID   string           `json:"match_id"`
	Player    solana.PublicKey `json:"player"`
	Amount    uint64           `json:"amount"`
	Timestamp int64            `json:"ts"`
}

type AirdropEvent struct {
	Recipient solana.PublicKey `json:"recipient"`
	Amount    uint64           `json:"amount"`
	Timestamp int64            `json:"ts"`
}

type CreditEvent struct {
	Wallet    solana.PublicKey `json:"wallet"`
	Amount    uint64           `json:"amount"`
	Timestamp int64            `json:"ts"`
}

type ConfigEvent struct {
	Config    Config `json:"config"`
	Timestamp int64  `json:"ts"`
}

func newEvent(kind EventKind, now time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   raw,
		Timestamp: now.UTC(),
	}, nil
}

// Decode unmarshals the payload of e into the typed event for its kind.
func (e Event) Decode() (any, error) {
	var v any
	switch e.Kind {
	case EventKindDeposit:
		v = &DepositEvent{}
	case EventKindSettle:
		v = &SettleEvent{}
	case EventKindDistributedRewards:
		v = &DistributedRewardsEvent{}
	case EventKindRefund:
		v = &RefundEvent{}
	case EventKindAirdrop:
		v = &AirdropEvent{}
	case EventKindCredit:
		v = &CreditEvent{}
	case EventKindConfigInitialized, EventKindConfigUpdated:
		v = &ConfigEvent{}
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", e.Kind, err)
	}
	return v, nil
}
