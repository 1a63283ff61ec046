package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
	"github.com/radieske/parimutuel-engine/internal/engine/odds"
	"github.com/radieske/parimutuel-engine/pkg/contracts/events"
)

// LegRequest is one predicted outcome in a placement request.
type LegRequest struct {
	MatchIndex int
	Outcome    domain.Outcome
}

// PlaceBet validates the request, debits the bettor, locks the multiplier
// from the round's locked odds and commits the placement atomically. The
// multiplier never changes after this call.
func (e *Engine) PlaceBet(ctx context.Context, roundID, bettor string, stakeCents int64, legs []LegRequest) (domain.Bet, error) {
	if len(legs) < 1 || len(legs) > e.params.MatchesPerRound {
		return domain.Bet{}, domain.ErrInvalidLegCount
	}
	if stakeCents < e.params.MinBetCents || stakeCents > e.params.MaxBetCents {
		return domain.Bet{}, domain.ErrStakeOutOfRange
	}
	seen := make(map[int]bool, len(legs))
	for _, leg := range legs {
		if !domain.ValidOutcome(leg.Outcome) {
			return domain.Bet{}, domain.ErrInvalidOutcome
		}
		if leg.MatchIndex < 0 || leg.MatchIndex >= e.params.MatchesPerRound {
			return domain.Bet{}, domain.ErrInvalidMatch
		}
		if seen[leg.MatchIndex] {
			return domain.Bet{}, domain.ErrDuplicateLeg
		}
		seen[leg.MatchIndex] = true
	}

	// Settlement odds were locked at seeding; the multiplier is their
	// product times the parlay bonus, floored in the protocol's favor.
	lockedByMatch, err := e.store.GetRoundLockedOdds(ctx, roundID)
	if err != nil {
		return domain.Bet{}, err
	}
	legOdds := make([]decimal.Decimal, len(legs))
	for i, leg := range legs {
		matchOdds, ok := lockedByMatch[leg.MatchIndex]
		if !ok {
			return domain.Bet{}, domain.ErrInvalidMatch
		}
		legOdds[i] = matchOdds[leg.Outcome]
	}

	multiplier := e.calc.CombinedMultiplier(legOdds)
	payout := odds.PotentialPayout(stakeCents, multiplier)
	shares := odds.SplitStake(stakeCents, len(legs))

	bet := domain.Bet{
		ID:                   uuid.NewString(),
		Bettor:               bettor,
		RoundID:              roundID,
		StakeCents:           stakeCents,
		Legs:                 make([]domain.Leg, len(legs)),
		LockedMultiplier:     multiplier,
		PotentialPayoutCents: payout,
		Status:               domain.BetActive,
		CreatedAt:            e.now(),
		UpdatedAt:            e.now(),
	}
	for i, leg := range legs {
		bet.Legs[i] = domain.Leg{MatchIndex: leg.MatchIndex, Outcome: leg.Outcome, ShareCents: shares[i]}
	}

	// Debit first: the stake must exist before the engine takes on the
	// payout liability. A failed commit refunds it.
	if err := e.wallet.Debit(ctx, bettor, stakeCents, "bet:"+bet.ID); err != nil {
		e.log.Warn("stake debit failed", zap.String("bettor", bettor), zap.Error(err))
		return domain.Bet{}, domain.ErrTransferFailed
	}

	if err := e.store.ApplyPlacement(ctx, bet, e.now()); err != nil {
		if rerr := e.wallet.Credit(ctx, bettor, stakeCents, "bet-unwind:"+bet.ID); rerr != nil {
			e.log.Error("stake refund after failed placement",
				zap.String("betId", bet.ID), zap.Error(rerr))
		}
		return domain.Bet{}, err
	}

	e.log.Info("bet placed",
		zap.String("betId", bet.ID),
		zap.String("roundId", roundID),
		zap.Int64("stakeCents", stakeCents),
		zap.Int("legs", len(legs)),
		zap.String("multiplier", multiplier.String()),
	)
	betsPlaced.Inc()
	stakeVolume.Add(float64(stakeCents) / 100)

	if e.publ != nil {
		if err := e.publ.PublishBetPlaced(ctx, events.BetPlaced{
			BetID:            bet.ID,
			Bettor:           bettor,
			RoundID:          roundID,
			StakeCents:       stakeCents,
			Legs:             len(legs),
			LockedMultiplier: multiplier.String(),
			PotentialPayout:  payout,
			TsUnixMs:         e.now().UnixMilli(),
		}); err != nil {
			e.log.Warn("publish bet_placed", zap.Error(err))
		}
	}
	e.refreshLiveOdds(ctx, roundID)

	return bet, nil
}

// CancelBet refunds the stake minus the cancellation fee, releases the
// payout lock and reverses the placement-time pool contributions. Only the
// bettor may cancel, and only before settlement.
func (e *Engine) CancelBet(ctx context.Context, betID, caller string) (domain.CancelResult, error) {
	res, err := e.store.ApplyCancellation(ctx, betID, caller, e.params.CancelFeeBps)
	if err != nil {
		return domain.CancelResult{}, err
	}

	// State is committed; the refund transfer runs last.
	if err := e.wallet.Credit(ctx, res.Bet.Bettor, res.RefundCents, "cancel:"+betID); err != nil {
		e.log.Error("cancellation refund transfer",
			zap.String("betId", betID), zap.Error(err))
	}

	e.log.Info("bet cancelled",
		zap.String("betId", betID),
		zap.Int64("refundCents", res.RefundCents),
		zap.Int64("feeCents", res.FeeCents),
	)
	betsCancelled.Inc()

	if e.publ != nil {
		if err := e.publ.PublishBetCancelled(ctx, events.BetCancelled{
			BetID:       betID,
			Bettor:      res.Bet.Bettor,
			RoundID:     res.Bet.RoundID,
			RefundCents: res.RefundCents,
			FeeCents:    res.FeeCents,
			TsUnixMs:    e.now().UnixMilli(),
		}); err != nil {
			e.log.Warn("publish bet_cancelled", zap.Error(err))
		}
	}
	e.refreshLiveOdds(ctx, res.Bet.RoundID)

	return res, nil
}

// ListBets returns the bets indexed under a bettor.
func (e *Engine) ListBets(ctx context.Context, bettor string) ([]domain.Bet, error) {
	return e.store.ListBetsByBettor(ctx, bettor)
}
