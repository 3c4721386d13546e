package escrow

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

// RefundEntry returns amount from the treasury to player.
func (p *Program) RefundEntry(ctx context.Context, caller solana.PublicKey, params RefundParams) (Event, error) {
	return p.execute(ctx, "refund_entry", func(tx Tx, now time.Time) (Event, uint64, error) {
		if _, err := authorize(ctx, tx, caller); err != nil {
			return Event{}, 0, err
		}
		to, err := p.treasury.bind(params.Player, params.Destination)
		if err != nil {
			return Event{}, 0, err
		}
		if _, err := p.treasury.ensure(ctx, tx, params.Amount); err != nil {
			return Event{}, 0, err
		}
		if err := p.treasury.pay(ctx, tx, to, params.Amount); err != nil {
			return Event{}, 0, err
		}
		ev, err := newEvent(EventKindRefund, now, RefundEvent{
			MatchID:   params.MatchID,
			Player:    params.Player,
			Amount:    params.Amount,
			Timestamp: now.Unix(),
		})
		return ev, params.Amount, err
	})
}
