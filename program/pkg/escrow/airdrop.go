package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// AirdropTransfer pays amount from the treasury to recipient outside of any
// match. Only the authority may call it.
func (p *Program) AirdropTransfer(ctx context.Context, caller, recipient solana.PublicKey, amount uint64) (Event, error) {
	if recipient.IsZero() {
		return Event{}, fmt.Errorf("%w: recipient is required", ErrInvalidArgument)
	}
	return p.execute(ctx, "airdrop_transfer", func(tx Tx, now time.Time) (Event, uint64, error) {
		if _, err := authorize(ctx, tx, caller); err != nil {
			return Event{}, 0, err
		}
		to, err := p.treasury.bind(recipient, recipient)
		if err != nil {
			return Event{}, 0, err
		}
		if _, err := p.treasury.ensure(ctx, tx, amount); err != nil {
			return Event{}, 0, err
		}
		if err := p.treasury.pay(ctx, tx, to, amount); err != nil {
			return Event{}, 0, err
		}
		ev, err := newEvent(EventKindAirdrop, now, AirdropEvent{
			Recipient: recipient,
			Amount:    amount,
			Timestamp: now.Unix(),
		})
		return ev, amount, err
	})
}

// CreditAccount mints amount into an external wallet. It exists to fund
// payers on development deployments and is never exposed over the API.
func (p *Program) CreditAccount(ctx context.Context, wallet solana.PublicKey, amount uint64) (Event, error) {
	if wallet.IsZero() || wallet.Equals(p.treasury.Address) {
		return Event{}, fmt.Errorf("%w: invalid wallet %s", ErrInvalidArgument, wallet)
	}
	return p.execute(ctx, "credit_account", func(tx Tx, now time.Time) (Event, uint64, error) {
		bal, err := tx.Balance(ctx, wallet)
		if err != nil {
			return Event{}, 0, err
		}
		next, err := checkedAdd(bal, amount)
		if err != nil {
			return Event{}, 0, err
		}
		if err := tx.SetBalance(ctx, wallet, next); err != nil {
			return Event{}, 0, err
		}
		ev, err := newEvent(EventKindCredit, now, CreditEvent{
			Wallet:    wallet,
			Amount:    amount,
			Timestamp: now.Unix(),
		})
		return ev, amount, err
	})
}
