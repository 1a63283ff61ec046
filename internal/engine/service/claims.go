package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
	"github.com/radieske/parimutuel-engine/pkg/contracts/events"
)

// claimSplit decides who may claim a won bet right now and how the payout
// divides. Inside the exclusive window only the bettor may claim, for 100%.
// Afterwards any caller may claim a payout above the bounty minimum, taking
// the bounty cut while the bettor keeps the remainder.
func (e *Engine) claimSplit(bet domain.Bet, round domain.Round, caller string, minPayout int64, now time.Time) (domain.ClaimSplit, error) {
	switch bet.Status {
	case domain.BetWon:
	case domain.BetClaimed:
		return domain.ClaimSplit{}, domain.ErrAlreadyProcessed
	default:
		return domain.ClaimSplit{}, domain.ErrBetNotWon
	}

	split := domain.ClaimSplit{
		BetID:       bet.ID,
		RoundID:     bet.RoundID,
		Bettor:      bet.Bettor,
		Caller:      caller,
		PayoutCents: bet.PotentialPayoutCents,
	}

	exclusiveUntil := round.EndTime.Add(e.params.ClaimWindow)
	if caller != bet.Bettor {
		if now.Before(exclusiveUntil) {
			return domain.ClaimSplit{}, domain.ErrBountyTooEarly
		}
		if bet.PotentialPayoutCents < e.params.MinBountyPayoutCents {
			return domain.ClaimSplit{}, domain.ErrBountyTooSmall
		}
		split.BountyCents = bet.PotentialPayoutCents * e.params.BountyBps / 10000
	}

	if split.PayoutCents < minPayout {
		return domain.ClaimSplit{}, domain.ErrSlippage
	}
	return split, nil
}

// ClaimWinnings pays out a won bet. The status flips to CLAIMED and the
// escrow counter moves before any outbound transfer runs; a second claim
// fails on the status guard, which is the sole double-claim protection.
func (e *Engine) ClaimWinnings(ctx context.Context, betID, caller string, minPayout int64) (domain.ClaimSplit, error) {
	bet, err := e.store.GetBet(ctx, betID)
	if err != nil {
		return domain.ClaimSplit{}, err
	}
	round, err := e.store.GetRound(ctx, bet.RoundID)
	if err != nil {
		return domain.ClaimSplit{}, err
	}

	split, err := e.claimSplit(bet, round, caller, minPayout, e.now())
	if err != nil {
		return domain.ClaimSplit{}, err
	}

	if err := e.store.ApplyClaim(ctx, split); err != nil {
		return domain.ClaimSplit{}, err
	}

	e.payClaim(ctx, split)
	return split, nil
}

// payClaim runs the outbound transfers and bookkeeping for one committed
// claim. State is already final: a reentrant call sees CLAIMED.
func (e *Engine) payClaim(ctx context.Context, split domain.ClaimSplit) {
	if err := e.wallet.Credit(ctx, split.Bettor, split.WinnerCents(), "claim:"+split.BetID); err != nil {
		e.log.Error("winner payout transfer", zap.String("betId", split.BetID), zap.Error(err))
	}
	if split.BountyCents > 0 && split.Caller != split.Bettor {
		if err := e.wallet.Credit(ctx, split.Caller, split.BountyCents, "bounty:"+split.BetID); err != nil {
			e.log.Error("bounty payout transfer", zap.String("betId", split.BetID), zap.Error(err))
		}
	}

	window := "exclusive"
	if split.BountyCents > 0 {
		window = "bounty"
	}
	claimsPaid.WithLabelValues(window).Inc()

	e.log.Info("winnings claimed",
		zap.String("betId", split.BetID),
		zap.Int64("payoutCents", split.PayoutCents),
		zap.Int64("bountyCents", split.BountyCents),
	)
	if e.publ != nil {
		if err := e.publ.PublishWinningsClaimed(ctx, events.WinningsClaimed{
			BetID:       split.BetID,
			RoundID:     split.RoundID,
			Bettor:      split.Bettor,
			Caller:      split.Caller,
			PayoutCents: split.PayoutCents,
			BountyCents: split.BountyCents,
			TsUnixMs:    e.now().UnixMilli(),
		}); err != nil {
			e.log.Warn("publish winnings_claimed", zap.Error(err))
		}
	}
}

// BatchClaimResult summarizes a batch claim: ineligible ids are skipped,
// never failed, and the caller's bounty cuts accumulate into one transfer.
type BatchClaimResult struct {
	Claimed          []domain.ClaimSplit
	Skipped          []string
	CallerTotalCents int64
}

// BatchClaim applies the claim logic per id, skipping ids that are not
// currently eligible. minPayout applies per bet.
func (e *Engine) BatchClaim(ctx context.Context, betIDs []string, caller string, minPayout int64) (BatchClaimResult, error) {
	var res BatchClaimResult
	now := e.now()

	for _, betID := range betIDs {
		bet, err := e.store.GetBet(ctx, betID)
		if err != nil {
			res.Skipped = append(res.Skipped, betID)
			continue
		}
		round, err := e.store.GetRound(ctx, bet.RoundID)
		if err != nil {
			res.Skipped = append(res.Skipped, betID)
			continue
		}
		split, err := e.claimSplit(bet, round, caller, minPayout, now)
		if err != nil {
			res.Skipped = append(res.Skipped, betID)
			continue
		}
		if err := e.store.ApplyClaim(ctx, split); err != nil {
			res.Skipped = append(res.Skipped, betID)
			continue
		}

		// Winner transfers run per bet; the caller's cuts accumulate.
		if err := e.wallet.Credit(ctx, split.Bettor, split.WinnerCents(), "claim:"+split.BetID); err != nil {
			e.log.Error("winner payout transfer", zap.String("betId", split.BetID), zap.Error(err))
		}
		res.CallerTotalCents += split.BountyCents
		res.Claimed = append(res.Claimed, split)

		window := "exclusive"
		if split.BountyCents > 0 {
			window = "bounty"
		}
		claimsPaid.WithLabelValues(window).Inc()
	}

	if res.CallerTotalCents > 0 {
		if err := e.wallet.Credit(ctx, caller, res.CallerTotalCents, "bounty-batch"); err != nil {
			e.log.Error("batch bounty transfer", zap.String("caller", caller), zap.Error(err))
		}
	}

	e.log.Info("batch claim",
		zap.Int("claimed", len(res.Claimed)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int64("callerTotalCents", res.CallerTotalCents),
	)
	return res, nil
}

// BountyStatus answers CanClaimWithBounty for the read surface.
type BountyStatus struct {
	Eligible          bool
	TimeUntilEligible time.Duration
	BountyCents       int64
	WinnerCents       int64
}

// CanClaimWithBounty reports whether a third party could claim the bet right
// now, and for how much.
func (e *Engine) CanClaimWithBounty(ctx context.Context, betID string) (BountyStatus, error) {
	bet, err := e.store.GetBet(ctx, betID)
	if err != nil {
		return BountyStatus{}, err
	}
	round, err := e.store.GetRound(ctx, bet.RoundID)
	if err != nil {
		return BountyStatus{}, err
	}

	var st BountyStatus
	if bet.Status != domain.BetWon || bet.PotentialPayoutCents < e.params.MinBountyPayoutCents {
		return st, nil
	}
	if rp, err := e.store.GetRoundPool(ctx, bet.RoundID); err == nil && rp.Swept {
		return st, nil
	}

	st.BountyCents = bet.PotentialPayoutCents * e.params.BountyBps / 10000
	st.WinnerCents = bet.PotentialPayoutCents - st.BountyCents

	exclusiveUntil := round.EndTime.Add(e.params.ClaimWindow)
	if now := e.now(); now.Before(exclusiveUntil) {
		st.TimeUntilEligible = exclusiveUntil.Sub(now)
	} else {
		st.Eligible = true
	}
	return st, nil
}

// SweepRoundPool returns unclaimed settled winnings to the reserve once the
// sweep deadline passes, routing the configured season share first.
func (e *Engine) SweepRoundPool(ctx context.Context, roundID string) (domain.SweepResult, error) {
	res, err := e.store.SweepRoundPool(ctx, roundID, e.params.SeasonShareBps, e.now())
	if err != nil {
		return domain.SweepResult{}, err
	}

	e.log.Info("round pool swept",
		zap.String("roundId", roundID),
		zap.Int64("unclaimedCents", res.UnclaimedCents),
		zap.Int64("seasonCents", res.SeasonCents),
	)
	poolsSwept.Inc()

	if e.publ != nil {
		if err := e.publ.PublishRoundSwept(ctx, events.RoundSwept{
			RoundID:        roundID,
			UnclaimedCents: res.UnclaimedCents,
			SeasonCents:    res.SeasonCents,
			ReserveCents:   res.ReserveCents,
			TsUnixMs:       e.now().UnixMilli(),
		}); err != nil {
			e.log.Warn("publish round_swept", zap.Error(err))
		}
	}
	return res, nil
}
