package escrow_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/embeddedgames/escrow/program/pkg/escrow"
	"github.com/embeddedgames/escrow/program/pkg/store/memory"
	escrowtesting "github.com/embeddedgames/escrow/utils/pkg/testing"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func defaultParams() escrow.InitializeParams {
	return escrow.InitializeParams{
		CasualBetLamports:       10_000_000,
		CasualFeeBps:            500,
		BettingFeeBps:           1_000,
		WinnersModeIsPercentage: true,
		WinnersValue:            10,
		RewardPercentageBps:     5_000,
	}
}

type fixture struct {
	program *escrow.Program
	store   *memory.Store
	clock   *clockwork.FakeClock
	admin   solana.PublicKey
}

func newUninitializedFixture(t *testing.T) *fixture {
	t.Helper()
	log := escrowtesting.NewLogger()
	store, err := memory.NewStore(memory.StoreConfig{Logger: log})
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(testNow)
	program, err := escrow.NewProgram(escrow.ProgramConfig{
		Logger: log,
		Clock:  clock,
		Store:  store,
	})
	require.NoError(t, err)
	return &fixture{
		program: program,
		store:   store,
		clock:   clock,
		admin:   escrowtesting.NewWallet(t),
	}
}

func newFixture(t *testing.T, params escrow.InitializeParams) *fixture {
	t.Helper()
	f := newUninitializedFixture(t)
	_, err := f.program.InitializeConfig(t.Context(), f.admin, params)
	require.NoError(t, err)
	return f
}

// fundTreasury deposits amount into the treasury from a fresh payer.
func (f *fixture) fundTreasury(t *testing.T, amount uint64) {
	t.Helper()
	payer := f.fundedWallet(t, amount)
	_, err := f.program.PayEntry(t.Context(), payer, amount)
	require.NoError(t, err)
}

func (f *fixture) fundedWallet(t *testing.T, amount uint64) solana.PublicKey {
	t.Helper()
	wallet := escrowtesting.NewWallet(t)
	_, err := f.program.CreditAccount(t.Context(), wallet, amount)
	require.NoError(t, err)
	return wallet
}

func (f *fixture) balance(t *testing.T, account solana.PublicKey) uint64 {
	t.Helper()
	bal, err := f.program.Balance(t.Context(), account)
	require.NoError(t, err)
	return bal
}

func (f *fixture) treasury(t *testing.T) uint64 {
	t.Helper()
	return f.balance(t, f.program.Treasury().Address)
}

func (f *fixture) eventCount(t *testing.T) int {
	t.Helper()
	events, err := f.program.Events(t.Context(), 0, 0)
	require.NoError(t, err)
	return len(events)
}

func TestEscrow_Program_NewProgram(t *testing.T) {
	t.Parallel()

	t.Run("requires logger", func(t *testing.T) {
		t.Parallel()
		store, err := memory.NewStore(memory.StoreConfig{Logger: escrowtesting.NewLogger()})
		require.NoError(t, err)
		_, err = escrow.NewProgram(escrow.ProgramConfig{Store: store})
		require.Error(t, err)
		require.Contains(t, err.Error(), "logger is required")
	})

	t.Run("requires store", func(t *testing.T) {
		t.Parallel()
		_, err := escrow.NewProgram(escrow.ProgramConfig{Logger: escrowtesting.NewLogger()})
		require.Error(t, err)
		require.Contains(t, err.Error(), "store is required")
	})

	t.Run("derives treasury from the default program", func(t *testing.T) {
		t.Parallel()
		f := newUninitializedFixture(t)
		require.Equal(t, escrow.DefaultProgramID, f.program.ProgramID())

		want, err := escrow.DeriveTreasury(escrow.DefaultProgramID)
		require.NoError(t, err)
		require.Equal(t, want, f.program.Treasury())

		addr, bump := f.program.ConfigAddress()
		wantAddr, wantBump, err := escrow.DeriveConfigAddress(escrow.DefaultProgramID)
		require.NoError(t, err)
		require.Equal(t, wantAddr, addr)
		require.Equal(t, wantBump, bump)
		require.False(t, addr.Equals(f.program.Treasury().Address))
	})
}

func TestEscrow_Program_Config(t *testing.T) {
	t.Parallel()

	t.Run("initialize stores config with caller as authority", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())

		cfg, err := f.program.Config(t.Context())
		require.NoError(t, err)
		require.Equal(t, f.admin, cfg.Authority)
		require.Equal(t, uint64(10_000_000), cfg.CasualBetLamports)
		require.Equal(t, uint16(500), cfg.CasualFeeBps)
		require.Equal(t, uint16(1_000), cfg.BettingFeeBps)
		require.True(t, cfg.WinnersModeIsPercentage)
		require.Equal(t, uint16(10), cfg.WinnersValue)
		require.Equal(t, uint16(5_000), cfg.RewardPercentageBps)
		_, bump := f.program.ConfigAddress()
		require.Equal(t, bump, cfg.Bump)
	})

	t.Run("initialize twice is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		_, err := f.program.InitializeConfig(t.Context(), escrowtesting.NewWallet(t), defaultParams())
		require.ErrorIs(t, err, escrow.ErrConfigAlreadyInitialized)

		cfg, err := f.program.Config(t.Context())
		require.NoError(t, err)
		require.Equal(t, f.admin, cfg.Authority)
	})

	t.Run("initialize validates basis points", func(t *testing.T) {
		t.Parallel()
		f := newUninitializedFixture(t)
		params := defaultParams()
		params.RewardPercentageBps = 10_001
		_, err := f.program.InitializeConfig(t.Context(), f.admin, params)
		require.ErrorIs(t, err, escrow.ErrInvalidConfig)

		_, err = f.program.Config(t.Context())
		require.ErrorIs(t, err, escrow.ErrConfigNotInitialized)
	})

	t.Run("initialize validates percentage winners value", func(t *testing.T) {
		t.Parallel()
		f := newUninitializedFixture(t)
		params := defaultParams()
		params.WinnersValue = 101
		_, err := f.program.InitializeConfig(t.Context(), f.admin, params)
		require.ErrorIs(t, err, escrow.ErrInvalidConfig)

		params.WinnersModeIsPercentage = false
		_, err = f.program.InitializeConfig(t.Context(), f.admin, params)
		require.NoError(t, err)
	})

	t.Run("update applies only present fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		bettingFee := uint16(2_000)
		pctMode := false
		ev, err := f.program.UpdateConfig(t.Context(), f.admin, escrow.ConfigUpdate{
			BettingFeeBps:           &bettingFee,
			WinnersModeIsPercentage: &pctMode,
		})
		require.NoError(t, err)
		require.Equal(t, escrow.EventKindConfigUpdated, ev.Kind)

		cfg, err := f.program.Config(t.Context())
		require.NoError(t, err)
		require.Equal(t, uint16(2_000), cfg.BettingFeeBps)
		require.False(t, cfg.WinnersModeIsPercentage)
		require.Equal(t, uint16(500), cfg.CasualFeeBps)
		require.Equal(t, uint16(5_000), cfg.RewardPercentageBps)
	})

	t.Run("update by non-authority is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		fee := uint16(0)
		_, err := f.program.UpdateConfig(t.Context(), escrowtesting.NewWallet(t), escrow.ConfigUpdate{CasualFeeBps: &fee})
		require.ErrorIs(t, err, escrow.ErrUnauthorized)

		cfg, err := f.program.Config(t.Context())
		require.NoError(t, err)
		require.Equal(t, uint16(500), cfg.CasualFeeBps)
	})

	t.Run("invalid update leaves config unchanged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		fee := uint16(20_000)
		_, err := f.program.UpdateConfig(t.Context(), f.admin, escrow.ConfigUpdate{CasualFeeBps: &fee})
		require.ErrorIs(t, err, escrow.ErrInvalidConfig)

		cfg, err := f.program.Config(t.Context())
		require.NoError(t, err)
		require.Equal(t, uint16(500), cfg.CasualFeeBps)
	})

	t.Run("settlement fee follows match mode", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		cfg, err := f.program.Config(t.Context())
		require.NoError(t, err)

		fee, err := cfg.SettlementFee(escrow.MatchModeCasual, 20_000_000)
		require.NoError(t, err)
		require.Equal(t, uint64(1_000_000), fee)

		fee, err = cfg.SettlementFee(escrow.MatchModeBetting, 20_000_000)
		require.NoError(t, err)
		require.Equal(t, uint64(2_000_000), fee)
	})

	t.Run("privileged operations require config", func(t *testing.T) {
		t.Parallel()
		f := newUninitializedFixture(t)
		winner := escrowtesting.NewWallet(t)
		_, err := f.program.SettleMatch(t.Context(), f.admin, escrow.SettleParams{
			MatchID: "m", TotalAmount: 1, Winner: winner, Destination: winner,
		})
		require.ErrorIs(t, err, escrow.ErrConfigNotInitialized)
	})
}

func TestEscrow_Program_PayEntry(t *testing.T) {
	t.Parallel()

	t.Run("moves amount into treasury and records deposit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		payer := f.fundedWallet(t, 1_000)

		ev, err := f.program.PayEntry(t.Context(), payer, 400)
		require.NoError(t, err)
		require.Equal(t, uint64(600), f.balance(t, payer))
		require.Equal(t, uint64(400), f.treasury(t))

		require.Equal(t, escrow.EventKindDeposit, ev.Kind)
		require.NotZero(t, ev.Seq)
		decoded, err := ev.Decode()
		require.NoError(t, err)
		require.Equal(t, &escrow.DepositEvent{Payer: payer, Amount: 400, Timestamp: testNow.Unix()}, decoded)
	})

	t.Run("works before config is initialized", func(t *testing.T) {
		t.Parallel()
		f := newUninitializedFixture(t)
		payer := f.fundedWallet(t, 10)
		_, err := f.program.PayEntry(t.Context(), payer, 10)
		require.NoError(t, err)
		require.Equal(t, uint64(10), f.treasury(t))
	})

	t.Run("insufficient payer balance", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		payer := f.fundedWallet(t, 100)
		before := f.eventCount(t)

		_, err := f.program.PayEntry(t.Context(), payer, 101)
		require.ErrorIs(t, err, escrow.ErrInsufficientFunds)
		require.NotContains(t, err.Error(), "treasury")
		require.Equal(t, uint64(100), f.balance(t, payer))
		require.Equal(t, uint64(0), f.treasury(t))
		require.Equal(t, before, f.eventCount(t))
	})

	t.Run("treasury cannot pay itself", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		_, err := f.program.PayEntry(t.Context(), f.program.Treasury().Address, 1)
		require.ErrorIs(t, err, escrow.ErrInvalidArgument)
	})

	t.Run("concurrent deposits are serialized", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		const payers = 32
		wallets := make([]solana.PublicKey, payers)
		for i := range wallets {
			wallets[i] = f.fundedWallet(t, 1_000)
		}

		g, ctx := errgroup.WithContext(t.Context())
		for _, w := range wallets {
			g.Go(func() error {
				for range 10 {
					if _, err := f.program.PayEntry(ctx, w, 100); err != nil {
						return err
					}
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		require.Equal(t, uint64(payers*1_000), f.treasury(t))
		for _, w := range wallets {
			require.Equal(t, uint64(0), f.balance(t, w))
		}
	})
}

func TestEscrow_Program_SettleMatch(t *testing.T) {
	t.Parallel()

	t.Run("pays winner net of fee and keeps fee in treasury", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 2_000)
		winner := escrowtesting.NewWallet(t)

		ev, err := f.program.SettleMatch(t.Context(), f.admin, escrow.SettleParams{
			MatchID:     "match-1",
			TotalAmount: 1_500,
			TotalFee:    150,
			Mode:        escrow.MatchModeBetting,
			Winner:      winner,
			Destination: winner,
		})
		require.NoError(t, err)

		winnerAmount := f.balance(t, winner)
		require.Equal(t, uint64(1_350), winnerAmount)
		require.Equal(t, uint64(1_500), winnerAmount+150)
		require.Equal(t, uint64(2_000-1_350), f.treasury(t))

		decoded, err := ev.Decode()
		require.NoError(t, err)
		require.Equal(t, &escrow.SettleEvent{
			MatchID:     "match-1",
			TotalAmount: 1_500,
			TotalFee:    150,
			Mode:        escrow.MatchModeBetting,
			Winner:      winner,
			Timestamp:   testNow.Unix(),
		}, decoded)
		require.Contains(t, string(ev.Payload), `"mode":"betting"`)
	})

	t.Run("fee above total is a math overflow and leaves treasury unchanged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		winner := escrowtesting.NewWallet(t)
		before := f.eventCount(t)

		_, err := f.program.SettleMatch(t.Context(), f.admin, escrow.SettleParams{
			MatchID: "m", TotalAmount: 500, TotalFee: 600, Winner: winner, Destination: winner,
		})
		require.ErrorIs(t, err, escrow.ErrMathOverflow)
		require.Equal(t, uint64(1_000), f.treasury(t))
		require.Equal(t, uint64(0), f.balance(t, winner))
		require.Equal(t, before, f.eventCount(t))
	})

	t.Run("non-authority caller is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		winner := escrowtesting.NewWallet(t)

		_, err := f.program.SettleMatch(t.Context(), winner, escrow.SettleParams{
			MatchID: "m", TotalAmount: 1_000, Winner: winner, Destination: winner,
		})
		require.ErrorIs(t, err, escrow.ErrUnauthorized)
		require.Equal(t, uint64(1_000), f.treasury(t))
	})

	t.Run("total above treasury balance", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		winner := escrowtesting.NewWallet(t)

		_, err := f.program.SettleMatch(t.Context(), f.admin, escrow.SettleParams{
			MatchID: "m", TotalAmount: 1_001, TotalFee: 1, Winner: winner, Destination: winner,
		})
		require.ErrorIs(t, err, escrow.ErrInsufficientFunds)
		require.Equal(t, uint64(1_000), f.treasury(t))
	})

	t.Run("destination must be the winner", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		winner, other := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)

		_, err := f.program.SettleMatch(t.Context(), f.admin, escrow.SettleParams{
			MatchID: "m", TotalAmount: 1_000, Winner: winner, Destination: other,
		})
		require.ErrorIs(t, err, escrow.ErrUnauthorized)
		require.Equal(t, uint64(0), f.balance(t, other))
		require.Equal(t, uint64(1_000), f.treasury(t))
	})

	t.Run("treasury cannot be the winner", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		treasury := f.program.Treasury().Address
		before := f.eventCount(t)

		_, err := f.program.SettleMatch(t.Context(), f.admin, escrow.SettleParams{
			MatchID: "m", TotalAmount: 500, TotalFee: 50, Winner: treasury, Destination: treasury,
		})
		require.ErrorIs(t, err, escrow.ErrInvalidArgument)
		require.Equal(t, uint64(1_000), f.treasury(t))
		require.Equal(t, before, f.eventCount(t))
	})

	t.Run("destination balance overflow fails without partial mutation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		winner := f.fundedWallet(t, math.MaxUint64)

		_, err := f.program.SettleMatch(t.Context(), f.admin, escrow.SettleParams{
			MatchID: "m", TotalAmount: 1_000, Winner: winner, Destination: winner,
		})
		require.ErrorIs(t, err, escrow.ErrMathOverflow)
		require.Equal(t, uint64(1_000), f.treasury(t))
		require.Equal(t, uint64(math.MaxUint64), f.balance(t, winner))
	})
}

func TestEscrow_Program_DistributeRewards(t *testing.T) {
	t.Parallel()

	t.Run("pool of 100 split 1:3 leaves nothing for insiders", func(t *testing.T) {
		t.Parallel()
		params := defaultParams()
		params.RewardPercentageBps = 10_000
		f := newFixture(t, params)
		f.fundTreasury(t, 100)
		a, b, ins := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)

		res, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: a, Points: 1}, {Wallet: b, Points: 3}},
			Insiders:          []escrow.InsiderInput{{Wallet: ins, ShareBps: 5_000}},
			RemainingAccounts: []solana.PublicKey{a, b, ins},
		})
		require.NoError(t, err)
		require.Equal(t, uint64(100), res.RewardPool)
		require.Equal(t, uint64(100), res.Distributed)
		require.Equal(t, uint64(0), res.RemainingAfterWinners)
		require.Equal(t, uint64(25), f.balance(t, a))
		require.Equal(t, uint64(75), f.balance(t, b))
		require.Equal(t, uint64(0), f.balance(t, ins))
		require.Equal(t, uint64(0), f.treasury(t))
	})

	t.Run("conserves balance across winners insiders and dust", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		a, b := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)
		i1, i2 := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)

		res, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: a, Points: 1}, {Wallet: b, Points: 2}},
			Insiders:          []escrow.InsiderInput{{Wallet: i1, ShareBps: 5_000}, {Wallet: i2, ShareBps: 2_500}},
			RemainingAccounts: []solana.PublicKey{a, b, i1, i2},
		})
		require.NoError(t, err)

		winners := f.balance(t, a) + f.balance(t, b)
		insiders := f.balance(t, i1) + f.balance(t, i2)
		require.Equal(t, uint64(499), winners)
		require.Equal(t, uint64(375), insiders)
		require.Equal(t, uint64(1_000), f.treasury(t)+winners+insiders)
		require.Equal(t, uint64(126), f.treasury(t))
		require.Len(t, res.Payouts, 4)

		decoded, err := res.Event.Decode()
		require.NoError(t, err)
		require.Equal(t, &escrow.DistributedRewardsEvent{DistributedRewardPool: 499, Timestamp: testNow.Unix()}, decoded)
	})

	t.Run("all zero points", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		w, ins := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)

		_, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: w, Points: 0}},
			Insiders:          []escrow.InsiderInput{{Wallet: ins, ShareBps: 10_001}},
			RemainingAccounts: []solana.PublicKey{w, ins},
		})
		require.ErrorIs(t, err, escrow.ErrNoPoints)
	})

	t.Run("insider shares above 100 percent", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		w, i1, i2 := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)

		_, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: w, Points: 7}},
			Insiders:          []escrow.InsiderInput{{Wallet: i1, ShareBps: 5_000}, {Wallet: i2, ShareBps: 5_001}},
			RemainingAccounts: []solana.PublicKey{w, i1, i2},
		})
		require.ErrorIs(t, err, escrow.ErrInvalidInsiderShares)
		require.Equal(t, uint64(1_000), f.treasury(t))
		require.Equal(t, uint64(0), f.balance(t, w))
	})

	t.Run("insider shares are not checked once winners take the whole balance", func(t *testing.T) {
		t.Parallel()
		params := defaultParams()
		params.RewardPercentageBps = 10_000
		f := newFixture(t, params)
		f.fundTreasury(t, 100)
		a, b, ins := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)

		res, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: a, Points: 1}, {Wallet: b, Points: 3}},
			Insiders:          []escrow.InsiderInput{{Wallet: ins, ShareBps: 10_001}},
			RemainingAccounts: []solana.PublicKey{a, b, ins},
		})
		require.NoError(t, err)
		require.Equal(t, uint64(100), res.Distributed)
		require.Equal(t, uint64(0), res.AllocatedInsiders)
		require.Len(t, res.Payouts, 2)
		require.Equal(t, uint64(25), f.balance(t, a))
		require.Equal(t, uint64(75), f.balance(t, b))
		require.Equal(t, uint64(0), f.balance(t, ins))
		require.Equal(t, uint64(0), f.treasury(t))
	})

	t.Run("treasury cannot be paid as a winner", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		treasury := f.program.Treasury().Address
		before := f.eventCount(t)

		_, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: treasury, Points: 1}},
			RemainingAccounts: []solana.PublicKey{treasury},
		})
		require.ErrorIs(t, err, escrow.ErrInvalidArgument)
		require.Equal(t, uint64(1_000), f.treasury(t))
		require.Equal(t, before, f.eventCount(t))
	})

	t.Run("treasury cannot be paid as an insider", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		a := escrowtesting.NewWallet(t)
		treasury := f.program.Treasury().Address

		_, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: a, Points: 1}},
			Insiders:          []escrow.InsiderInput{{Wallet: treasury, ShareBps: 5_000}},
			RemainingAccounts: []solana.PublicKey{a, treasury},
		})
		require.ErrorIs(t, err, escrow.ErrInvalidArgument)
		require.Equal(t, uint64(1_000), f.treasury(t))
		require.Equal(t, uint64(0), f.balance(t, a))
	})

	t.Run("too few remaining accounts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		w, ins := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)

		_, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: w, Points: 1}},
			Insiders:          []escrow.InsiderInput{{Wallet: ins, ShareBps: 100}},
			RemainingAccounts: []solana.PublicKey{w},
		})
		require.ErrorIs(t, err, escrow.ErrMissingRemainingAccounts)
	})

	t.Run("mismatch at position 0 rejects before any transfer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		a, b, stranger := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)
		before := f.eventCount(t)

		_, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: a, Points: 1}, {Wallet: b, Points: 1}},
			RemainingAccounts: []solana.PublicKey{stranger, b},
		})
		require.ErrorIs(t, err, escrow.ErrUnauthorized)
		require.Equal(t, uint64(1_000), f.treasury(t))
		require.Equal(t, uint64(0), f.balance(t, stranger))
		require.Equal(t, uint64(0), f.balance(t, b))
		require.Equal(t, before, f.eventCount(t))
	})

	t.Run("insider mismatch undoes winner transfers", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		a, ins, stranger := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)

		_, err := f.program.DistributeRewards(t.Context(), f.admin, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: a, Points: 1}},
			Insiders:          []escrow.InsiderInput{{Wallet: ins, ShareBps: 1_000}},
			RemainingAccounts: []solana.PublicKey{a, stranger},
		})
		require.ErrorIs(t, err, escrow.ErrUnauthorized)
		require.Equal(t, uint64(0), f.balance(t, a))
		require.Equal(t, uint64(1_000), f.treasury(t))
	})

	t.Run("non-authority caller is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 1_000)
		a := escrowtesting.NewWallet(t)

		_, err := f.program.DistributeRewards(t.Context(), a, escrow.DistributeParams{
			Winners:           []escrow.WinnerInput{{Wallet: a, Points: 1}},
			RemainingAccounts: []solana.PublicKey{a},
		})
		require.ErrorIs(t, err, escrow.ErrUnauthorized)
	})
}

func TestEscrow_Program_RefundEntry(t *testing.T) {
	t.Parallel()

	t.Run("returns amount to player", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		player := f.fundedWallet(t, 500)
		_, err := f.program.PayEntry(t.Context(), player, 500)
		require.NoError(t, err)

		ev, err := f.program.RefundEntry(t.Context(), f.admin, escrow.RefundParams{
			MatchID: "match-7", Player: player, Destination: player, Amount: 500,
		})
		require.NoError(t, err)
		require.Equal(t, uint64(500), f.balance(t, player))
		require.Equal(t, uint64(0), f.treasury(t))

		decoded, err := ev.Decode()
		require.NoError(t, err)
		require.Equal(t, &escrow.RefundEvent{MatchID: "match-7", Player: player, Amount: 500, Timestamp: testNow.Unix()}, decoded)
	})

	t.Run("amount above treasury balance", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 300)
		player := f.fundedWallet(t, 7)

		_, err := f.program.RefundEntry(t.Context(), f.admin, escrow.RefundParams{
			MatchID: "m", Player: player, Destination: player, Amount: 301,
		})
		require.ErrorIs(t, err, escrow.ErrInsufficientFunds)
		require.Equal(t, uint64(300), f.treasury(t))
		require.Equal(t, uint64(7), f.balance(t, player))
	})

	t.Run("destination must be the player", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 300)
		player, other := escrowtesting.NewWallet(t), escrowtesting.NewWallet(t)

		_, err := f.program.RefundEntry(t.Context(), f.admin, escrow.RefundParams{
			MatchID: "m", Player: player, Destination: other, Amount: 100,
		})
		require.ErrorIs(t, err, escrow.ErrUnauthorized)
		require.Equal(t, uint64(300), f.treasury(t))
	})

	t.Run("treasury cannot be the player", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 300)
		treasury := f.program.Treasury().Address

		_, err := f.program.RefundEntry(t.Context(), f.admin, escrow.RefundParams{
			MatchID: "m", Player: treasury, Destination: treasury, Amount: 100,
		})
		require.ErrorIs(t, err, escrow.ErrInvalidArgument)
		require.Equal(t, uint64(300), f.treasury(t))
	})

	t.Run("non-authority caller is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, defaultParams())
		f.fundTreasury(t, 300)
		player := escrowtesting.NewWallet(t)

		_, err := f.program.RefundEntry(t.Context(), player, escrow.RefundParams{
			MatchID: "m", Player: player, Destination: player, Amount: 100,
		})
		require.ErrorIs(t, err, escrow.ErrUnauthorized)
	})
}

func TestEscrow_Program_AirdropTransfer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultParams())
	f.fundTreasury(t, 1_000)
	recipient := escrowtesting.NewWallet(t)

	_, err := f.program.AirdropTransfer(t.Context(), recipient, recipient, 10)
	require.ErrorIs(t, err, escrow.ErrUnauthorized)

	_, err = f.program.AirdropTransfer(t.Context(), f.admin, recipient, 1_001)
	require.ErrorIs(t, err, escrow.ErrInsufficientFunds)

	_, err = f.program.AirdropTransfer(t.Context(), f.admin, f.program.Treasury().Address, 10)
	require.ErrorIs(t, err, escrow.ErrInvalidArgument)
	require.Equal(t, uint64(1_000), f.treasury(t))

	ev, err := f.program.AirdropTransfer(t.Context(), f.admin, recipient, 250)
	require.NoError(t, err)
	require.Equal(t, escrow.EventKindAirdrop, ev.Kind)
	require.Equal(t, uint64(250), f.balance(t, recipient))
	require.Equal(t, uint64(750), f.treasury(t))
}

func TestEscrow_Program_CreditAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultParams())
	wallet := f.fundedWallet(t, math.MaxUint64)

	_, err := f.program.CreditAccount(t.Context(), wallet, 1)
	require.ErrorIs(t, err, escrow.ErrMathOverflow)
	require.Equal(t, uint64(math.MaxUint64), f.balance(t, wallet))

	_, err = f.program.CreditAccount(t.Context(), f.program.Treasury().Address, 1)
	require.ErrorIs(t, err, escrow.ErrInvalidArgument)
}

func TestEscrow_Program_Events(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultParams())
	payer := f.fundedWallet(t, 100)
	for range 5 {
		f.clock.Advance(time.Second)
		_, err := f.program.PayEntry(t.Context(), payer, 10)
		require.NoError(t, err)
	}

	all, err := f.program.Events(t.Context(), 0, 0)
	require.NoError(t, err)
	// config init, credit, five deposits
	require.Len(t, all, 7)
	require.Equal(t, escrow.EventKindConfigInitialized, all[0].Kind)
	require.Equal(t, escrow.EventKindCredit, all[1].Kind)
	for i, ev := range all {
		require.Equal(t, uint64(i+1), ev.Seq)
	}

	page, err := f.program.Events(t.Context(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, uint64(3), page[0].Seq)
	require.Equal(t, testNow.Add(time.Second), page[0].Timestamp)

	empty, err := f.program.Events(t.Context(), 7, 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestEscrow_Program_CanceledContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t, defaultParams())
	payer := f.fundedWallet(t, 100)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := f.program.PayEntry(ctx, payer, 10)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, uint64(100), f.balance(t, payer))
}
