package escrow

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

// SettleMatch pays total_amount minus total_fee from the treasury to the
// winner. The fee stays in the treasury.
func (p *Program) SettleMatch(ctx context.Context, caller solana.PublicKey, params SettleParams) (Event, error) {
	return p.execute(ctx, "settle_match", func(tx Tx, now time.Time) (Event, uint64, error) {
		if _, err := authorize(ctx, tx, caller); err != nil {
			return Event{}, 0, err
		}
		if _, err := p.treasury.ensure(ctx, tx, params.TotalAmount); err != nil {
			return Event{}, 0, err
		}
		to, err := p.treasury.bind(params.Winner, params.Destination)
		if err != nil {
			return Event{}, 0, err
		}
		winnerAmount, err := checkedSub(params.TotalAmount, params.TotalFee)
		if err != nil {
			return Event{}, 0, err
		}
		if err := p.treasury.pay(ctx, tx, to, winnerAmount); err != nil {
			return Event{}, 0, err
		}
		ev, err := newEvent(EventKindSettle, now, SettleEvent{
			MatchID:     params.MatchID,
			TotalAmount: params.TotalAmount,
			TotalFee:    params.TotalFee,
			Mode:        params.Mode,
			Winner:      params.Winner,
			Timestamp:   now.Unix(),
		})
		return ev, winnerAmount, err
	})
}
