package escrow

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Recipient is a destination account that has been checked against the
// identity it is meant to pay. Treasury.bind is the only constructor.
type Recipient struct {
	Identity solana.PublicKey
	Account  solana.PublicKey
}

// bind checks that account is the identity's own account and not the
// escrow itself.
func (t Treasury) bind(identity, account solana.PublicKey) (Recipient, error) {
	if !identity.Equals(account) {
		return Recipient{}, fmt.Errorf("%w: destination %s does not match %s", ErrUnauthorized, account, identity)
	}
	if account.Equals(t.Address) {
		return Recipient{}, fmt.Errorf("%w: destination %s is the treasury", ErrInvalidArgument, account)
	}
	return Recipient{Identity: identity, Account: account}, nil
}

// payout is a planned escrow transfer to a bound recipient.
type payout struct {
	to     Recipient
	amount uint64
}
