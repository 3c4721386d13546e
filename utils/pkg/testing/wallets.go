package escrowtesting

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// NewKeypair returns a fresh random signing key.
func NewKeypair(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

// NewWallet returns the public key of a fresh random keypair.
func NewWallet(t *testing.T) solana.PublicKey {
	t.Helper()
	return NewKeypair(t).PublicKey()
}
