package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

type PayoutRole string

const (
	PayoutRoleWinner  PayoutRole = "winner"
	PayoutRoleInsider PayoutRole = "insider"
)

type Payout struct {
	Role   PayoutRole       `json:"role"`
	Wallet solana.PublicKey `json:"wallet"`
	Amount uint64           `json:"amount"`
}

// DistributionResult describes a committed reward distribution.
type DistributionResult struct {
	Event                 Event    `json:"event"`
	BalanceSnapshot       uint64   `json:"balance_snapshot"`
	RewardPool            uint64   `json:"reward_pool"`
	Distributed           uint64   `json:"distributed"`
	RemainingAfterWinners uint64   `json:"remaining_after_winners"`
	AllocatedInsiders     uint64   `json:"allocated_insiders"`
	Payouts               []Payout `json:"payouts"`
}

type distributionPlan struct {
	snapshot              uint64
	pool                  uint64
	distributed           uint64
	remainingAfterWinners uint64
	allocatedInsiders     uint64
	winners               []payout
	insiders              []payout
}

// planDistribution computes every payout of a distribution from a balance
// snapshot without touching state. All identity checks happen here, so a
// plan that is returned can be applied without further validation.
func (t Treasury) planDistribution(snapshot uint64, rewardBps uint16, params DistributeParams) (distributionPlan, error) {
	plan := distributionPlan{snapshot: snapshot}

	pool, err := bpsOf(snapshot, rewardBps)
	if err != nil {
		return plan, err
	}
	plan.pool = pool

	var totalPoints uint128
	for _, w := range params.Winners {
		if totalPoints, err = totalPoints.add64(w.Points); err != nil {
			return plan, err
		}
	}
	if totalPoints.isZero() {
		return plan, ErrNoPoints
	}

	need := len(params.Winners) + len(params.Insiders)
	if len(params.RemainingAccounts) < need {
		return plan, fmt.Errorf("%w: got %d, need %d", ErrMissingRemainingAccounts, len(params.RemainingAccounts), need)
	}

	for i, w := range params.Winners {
		share, err := mulDivWide(pool, w.Points, totalPoints)
		if err != nil {
			return plan, err
		}
		if share == 0 {
			continue
		}
		to, err := t.bind(w.Wallet, params.RemainingAccounts[i])
		if err != nil {
			return plan, fmt.Errorf("winner %d: %w", i, err)
		}
		plan.winners = append(plan.winners, payout{to: to, amount: share})
		if plan.distributed, err = checkedAdd(plan.distributed, share); err != nil {
			return plan, err
		}
	}

	if plan.remainingAfterWinners, err = checkedSub(snapshot, plan.distributed); err != nil {
		return plan, err
	}
	if plan.remainingAfterWinners == 0 || len(params.Insiders) == 0 {
		return plan, nil
	}

	var totalBps uint64
	for _, ins := range params.Insiders {
		totalBps += uint64(ins.ShareBps)
	}
	if totalBps > BpsDenominator {
		return plan, fmt.Errorf("%w: got %d bps", ErrInvalidInsiderShares, totalBps)
	}

	offset := len(params.Winners)
	for j, ins := range params.Insiders {
		amount, err := bpsOf(plan.remainingAfterWinners, ins.ShareBps)
		if err != nil {
			return plan, err
		}
		if amount == 0 {
			continue
		}
		to, err := t.bind(ins.Wallet, params.RemainingAccounts[offset+j])
		if err != nil {
			return plan, fmt.Errorf("insider %d: %w", j, err)
		}
		plan.insiders = append(plan.insiders, payout{to: to, amount: amount})
		if plan.allocatedInsiders, err = checkedAdd(plan.allocatedInsiders, amount); err != nil {
			return plan, err
		}
	}
	return plan, nil
}

// DistributeRewards pays the reward pool to winners in proportion to their
// points, then pays insiders their basis-point shares of what is left in the
// treasury. Rounding dust stays in the treasury.
func (p *Program) DistributeRewards(ctx context.Context, caller solana.PublicKey, params DistributeParams) (DistributionResult, error) {
	var plan distributionPlan
	ev, err := p.execute(ctx, "distribute_rewards", func(tx Tx, now time.Time) (Event, uint64, error) {
		cfg, err := authorize(ctx, tx, caller)
		if err != nil {
			return Event{}, 0, err
		}
		snapshot, err := p.treasury.Balance(ctx, tx)
		if err != nil {
			return Event{}, 0, err
		}
		plan, err = p.treasury.planDistribution(snapshot, cfg.RewardPercentageBps, params)
		if err != nil {
			return Event{}, 0, err
		}
		for _, po := range plan.winners {
			if err := p.treasury.pay(ctx, tx, po.to, po.amount); err != nil {
				return Event{}, 0, err
			}
		}
		for _, po := range plan.insiders {
			if err := p.treasury.pay(ctx, tx, po.to, po.amount); err != nil {
				return Event{}, 0, err
			}
		}
		ev, err := newEvent(EventKindDistributedRewards, now, DistributedRewardsEvent{
			DistributedRewardPool: plan.distributed,
			Timestamp:             now.Unix(),
		})
		moved := plan.distributed + plan.allocatedInsiders
		return ev, moved, err
	})
	if err != nil {
		return DistributionResult{}, err
	}
	return plan.result(ev), nil
}

func (plan distributionPlan) result(ev Event) DistributionResult {
	res := DistributionResult{
		Event:                 ev,
		BalanceSnapshot:       plan.snapshot,
		RewardPool:            plan.pool,
		Distributed:           plan.distributed,
		RemainingAfterWinners: plan.remainingAfterWinners,
		AllocatedInsiders:     plan.allocatedInsiders,
		Payouts:               make([]Payout, 0, len(plan.winners)+len(plan.insiders)),
	}
	for _, po := range plan.winners {
		res.Payouts = append(res.Payouts, Payout{Role: PayoutRoleWinner, Wallet: po.to.Identity, Amount: po.amount})
	}
	for _, po := range plan.insiders {
		res.Payouts = append(res.Payouts, Payout{Role: PayoutRoleInsider, Wallet: po.to.Identity, Amount: po.amount})
	}
	return res
}
