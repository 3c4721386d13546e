package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// PayEntry moves amount from payer into the treasury. The payer must already
// be authenticated by the caller of this method.
func (p *Program) PayEntry(ctx context.Context, payer solana.PublicKey, amount uint64) (Event, error) {
	if payer.IsZero() || payer.Equals(p.treasury.Address) {
		return Event{}, fmt.Errorf("%w: invalid payer %s", ErrInvalidArgument, payer)
	}
	return p.execute(ctx, "pay_entry", func(tx Tx, now time.Time) (Event, uint64, error) {
		if err := transfer(ctx, tx, payer, p.treasury.Address, amount); err != nil {
			return Event{}, 0, err
		}
		ev, err := newEvent(EventKindDeposit, now, DepositEvent{
			Payer:     payer,
			Amount:    amount,
			Timestamp: now.Unix(),
		})
		return ev, amount, err
	})
}
