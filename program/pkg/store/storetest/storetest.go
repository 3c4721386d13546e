// Package storetest holds behavior shared by every escrow.Store
// implementation, run from each implementation's tests.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
)

// Factory returns an empty store owned by the test.
type Factory func(t *testing.T) escrow.Store

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

func balance(t *testing.T, s escrow.Store, account solana.PublicKey) uint64 {
	t.Helper()
	var bal uint64
	require.NoError(t, s.View(t.Context(), func(tx escrow.ReadTx) error {
		var err error
		bal, err = tx.Balance(t.Context(), account)
		return err
	}))
	return bal
}

func testEvent(kind escrow.EventKind, payload string) escrow.Event {
	return escrow.Event{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   json.RawMessage(payload),
		Timestamp: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

// Run exercises the Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("config is not initialized on an empty store", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		err := s.View(t.Context(), func(tx escrow.ReadTx) error {
			_, err := tx.Config(t.Context())
			return err
		})
		require.ErrorIs(t, err, escrow.ErrConfigNotInitialized)
	})

	t.Run("config round trips", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		want := escrow.Config{
			Authority:               newKey(t),
			CasualBetLamports:       math.MaxUint64,
			CasualFeeBps:            500,
			BettingFeeBps:           10_000,
			WinnersModeIsPercentage: true,
			WinnersValue:            65_535,
			RewardPercentageBps:     2_500,
			Bump:                    254,
		}
		require.NoError(t, s.Update(t.Context(), func(tx escrow.Tx) error {
			return tx.PutConfig(t.Context(), want)
		}))

		var got escrow.Config
		require.NoError(t, s.View(t.Context(), func(tx escrow.ReadTx) error {
			var err error
			got, err = tx.Config(t.Context())
			return err
		}))
		require.Equal(t, want, got)
	})

	t.Run("balances default to zero and hold the full range", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		a, b := newKey(t), newKey(t)
		require.Equal(t, uint64(0), balance(t, s, a))

		require.NoError(t, s.Update(t.Context(), func(tx escrow.Tx) error {
			if err := tx.SetBalance(t.Context(), a, math.MaxUint64); err != nil {
				return err
			}
			return tx.SetBalance(t.Context(), b, 42)
		}))
		require.Equal(t, uint64(math.MaxUint64), balance(t, s, a))
		require.Equal(t, uint64(42), balance(t, s, b))
	})

	t.Run("unit of work reads its own writes", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		a := newKey(t)
		require.NoError(t, s.Update(t.Context(), func(tx escrow.Tx) error {
			if err := tx.SetBalance(t.Context(), a, 7); err != nil {
				return err
			}
			bal, err := tx.Balance(t.Context(), a)
			if err != nil {
				return err
			}
			require.Equal(t, uint64(7), bal)
			return nil
		}))
	})

	t.Run("failed unit of work discards every write", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		a := newKey(t)
		boom := errors.New("boom")

		err := s.Update(t.Context(), func(tx escrow.Tx) error {
			if err := tx.SetBalance(t.Context(), a, 100); err != nil {
				return err
			}
			if err := tx.PutConfig(t.Context(), escrow.Config{Authority: a}); err != nil {
				return err
			}
			if _, err := tx.AppendEvent(t.Context(), testEvent(escrow.EventKindDeposit, `{"amount":100}`)); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		require.Equal(t, uint64(0), balance(t, s, a))
		events, err := s.Events(t.Context(), 0, 10)
		require.NoError(t, err)
		require.Empty(t, events)
		err = s.View(t.Context(), func(tx escrow.ReadTx) error {
			_, err := tx.Config(t.Context())
			return err
		})
		require.ErrorIs(t, err, escrow.ErrConfigNotInitialized)
	})

	t.Run("events are listed in sequence order", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		var appended []escrow.Event
		for i, kind := range []escrow.EventKind{escrow.EventKindDeposit, escrow.EventKindSettle, escrow.EventKindRefund} {
			ev := testEvent(kind, fmt.Sprintf(`{"n":%d}`, i))
			require.NoError(t, s.Update(t.Context(), func(tx escrow.Tx) error {
				seq, err := tx.AppendEvent(t.Context(), ev)
				ev.Seq = seq
				return err
			}))
			appended = append(appended, ev)
		}

		events, err := s.Events(t.Context(), 0, 10)
		require.NoError(t, err)
		require.Len(t, events, 3)
		for i, ev := range events {
			require.Equal(t, appended[i].Seq, ev.Seq)
			require.Equal(t, appended[i].ID, ev.ID)
			require.Equal(t, appended[i].Kind, ev.Kind)
			require.JSONEq(t, string(appended[i].Payload), string(ev.Payload))
			require.True(t, appended[i].Timestamp.Equal(ev.Timestamp))
			if i > 0 {
				require.Greater(t, ev.Seq, events[i-1].Seq)
			}
		}

		page, err := s.Events(t.Context(), events[0].Seq, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, events[1].ID, page[0].ID)

		rest, err := s.Events(t.Context(), events[2].Seq, 10)
		require.NoError(t, err)
		require.Empty(t, rest)
	})

	t.Run("concurrent read-modify-write units of work are serialized", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		a := newKey(t)
		require.NoError(t, s.Update(t.Context(), func(tx escrow.Tx) error {
			return tx.SetBalance(t.Context(), a, 0)
		}))

		const workers, increments = 4, 5
		var wg sync.WaitGroup
		errs := make(chan error, workers*increments)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range increments {
					errs <- s.Update(t.Context(), func(tx escrow.Tx) error {
						bal, err := tx.Balance(t.Context(), a)
						if err != nil {
							return err
						}
						return tx.SetBalance(t.Context(), a, bal+1)
					})
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		require.Equal(t, uint64(workers*increments), balance(t, s, a))
	})

	t.Run("canceled context is rejected", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		err := s.Update(ctx, func(tx escrow.Tx) error { return nil })
		require.ErrorIs(t, err, context.Canceled)
	})
}
