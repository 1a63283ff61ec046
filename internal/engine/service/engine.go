// Package service orchestrates the settlement engine: it validates and
// computes outside the store, then commits each operation through a single
// atomic store call, and only after the commit performs outbound transfers
// and event publishing.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
	"github.com/radieske/parimutuel-engine/internal/engine/odds"
	"github.com/radieske/parimutuel-engine/internal/engine/outcome"
	"github.com/radieske/parimutuel-engine/internal/engine/store"
	"github.com/radieske/parimutuel-engine/internal/shared/config"
	"github.com/radieske/parimutuel-engine/pkg/contracts/events"
)

// Wallet is the value-transfer collaborator. Credits run strictly after the
// engine's own state has committed.
type Wallet interface {
	Debit(ctx context.Context, account string, amountCents int64, ref string) error
	Credit(ctx context.Context, account string, amountCents int64, ref string) error
}

// Publisher emits engine events after the corresponding operation commits.
type Publisher interface {
	PublishRandomnessRequested(ctx context.Context, e events.RandomnessRequested) error
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetCancelled(ctx context.Context, e events.BetCancelled) error
	PublishRoundSettled(ctx context.Context, e events.RoundSettled) error
	PublishWinningsClaimed(ctx context.Context, e events.WinningsClaimed) error
	PublishRoundSwept(ctx context.Context, e events.RoundSwept) error
}

// MatchOddsView is one match's display odds, as decimal strings.
type MatchOddsView struct {
	Index int    `json:"index"`
	Home  string `json:"home"`
	Away  string `json:"away"`
	Draw  string `json:"draw"`
}

// OddsSnapshot is the live display odds of a round. Display odds move with
// the pools; they never touch an already-placed bet's locked multiplier.
type OddsSnapshot struct {
	RoundID string          `json:"round_id"`
	Matches []MatchOddsView `json:"matches"`
}

// LiveOdds caches and broadcasts display odds. GetOdds returns false on a
// cache miss.
type LiveOdds interface {
	Publish(ctx context.Context, snap OddsSnapshot) error
	GetOdds(ctx context.Context, roundID string) (OddsSnapshot, bool, error)
}

// Engine wires the store, the collaborators and the economics together.
type Engine struct {
	log    *zap.Logger
	store  store.Store
	calc   *odds.Calculator
	wallet Wallet
	publ   Publisher
	live   LiveOdds
	params config.EngineParams
	now    func() time.Time
}

func New(log *zap.Logger, st store.Store, calc *odds.Calculator, wallet Wallet, publ Publisher, live LiveOdds, params config.EngineParams) *Engine {
	return &Engine{
		log:    log,
		store:  st,
		calc:   calc,
		wallet: wallet,
		publ:   publ,
		live:   live,
		params: params,
		now:    time.Now,
	}
}

// CreateRound registers a round in CREATED; no funds move until seeding.
func (e *Engine) CreateRound(ctx context.Context, seasonID string, startTime, endTime time.Time) (domain.Round, error) {
	if !endTime.After(startTime) {
		return domain.Round{}, domain.ErrInvalidWindow
	}

	r := domain.Round{
		ID:        uuid.NewString(),
		SeasonID:  seasonID,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    domain.RoundCreated,
		CreatedAt: e.now(),
		UpdatedAt: e.now(),
	}
	if err := e.store.CreateRound(ctx, r); err != nil {
		return domain.Round{}, err
	}

	e.log.Info("round created",
		zap.String("roundId", r.ID),
		zap.String("seasonId", seasonID),
		zap.Time("startTime", startTime),
	)
	return r, nil
}

// SeedRound funds every match's outcome pools from the reserve and locks the
// settlement odds from the seeded distribution. Pool growth after this point
// moves display odds only.
func (e *Engine) SeedRound(ctx context.Context, roundID string) error {
	entries := make([]store.SeedEntry, e.params.MatchesPerRound)
	for i := range entries {
		home, away, draw := odds.SeedAllocation(i, e.params.SeedPerMatchCents)
		entry := store.SeedEntry{
			MatchIndex: i,
			HomeCents:  home,
			AwayCents:  away,
			DrawCents:  draw,
		}
		entry.Odds = e.calc.MatchOdds(domain.MatchPool{
			Index:     i,
			HomeCents: home,
			AwayCents: away,
			DrawCents: draw,
		})
		entries[i] = entry
	}

	if err := e.store.SeedRound(ctx, roundID, entries); err != nil {
		return err
	}

	e.log.Info("round seeded",
		zap.String("roundId", roundID),
		zap.Int64("seedPerMatchCents", e.params.SeedPerMatchCents),
	)
	e.refreshLiveOdds(ctx, roundID)
	return nil
}

// LockRound closes the betting window once the round's start time passes.
func (e *Engine) LockRound(ctx context.Context, roundID string) error {
	r, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return err
	}
	if e.now().Before(r.StartTime) {
		return domain.ErrRoundTooEarly
	}
	if err := e.store.LockRound(ctx, roundID); err != nil {
		return err
	}
	e.log.Info("round locked", zap.String("roundId", roundID))
	return nil
}

// RequestResults asks the oracle collaborator for the round's randomness.
// The request resolves later through FulfillRandomness; the engine never
// blocks on the oracle.
func (e *Engine) RequestResults(ctx context.Context, roundID string) (string, error) {
	r, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return "", err
	}
	if e.now().Before(r.EndTime) {
		return "", domain.ErrRoundTooEarly
	}

	req := domain.RandomnessRequest{
		ID:        uuid.NewString(),
		RoundID:   roundID,
		Status:    domain.RequestPending,
		CreatedAt: e.now(),
	}
	if err := e.store.MarkResultsPending(ctx, roundID, req); err != nil {
		return "", err
	}

	e.log.Info("randomness requested",
		zap.String("roundId", roundID),
		zap.String("requestId", req.ID),
	)
	if e.publ != nil {
		if err := e.publ.PublishRandomnessRequested(ctx, events.RandomnessRequested{
			RequestID: req.ID,
			RoundID:   roundID,
			Ts:        e.now(),
		}); err != nil {
			e.log.Warn("publish randomness_requested", zap.Error(err))
		}
	}
	return req.ID, nil
}

// FulfillRandomness resolves an oracle request at most once and settles the
// round from the derived outcomes in the same atomic operation.
func (e *Engine) FulfillRandomness(ctx context.Context, requestID, value string) (domain.SettlementResult, error) {
	req, err := e.store.GetRandomnessRequest(ctx, requestID)
	if err != nil {
		return domain.SettlementResult{}, err
	}
	return e.settle(ctx, req.RoundID, requestID, value)
}

// EmergencySettleRound is the administrator-triggered fallback for a stalled
// oracle request. It is never invoked automatically.
func (e *Engine) EmergencySettleRound(ctx context.Context, roundID, fallbackSeed string) (domain.SettlementResult, error) {
	e.log.Warn("emergency settlement requested", zap.String("roundId", roundID))
	return e.settle(ctx, roundID, "", fallbackSeed)
}

func (e *Engine) settle(ctx context.Context, roundID, requestID, seed string) (domain.SettlementResult, error) {
	r, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return domain.SettlementResult{}, err
	}

	outcomes := outcome.Derive(seed, e.params.MatchesPerRound)
	sweepDeadline := r.EndTime.Add(e.params.ClaimWindow + e.params.GracePeriod)

	res, err := e.store.SettleRound(ctx, roundID, requestID, seed, outcomes, sweepDeadline, e.now())
	if err != nil {
		return domain.SettlementResult{}, err
	}

	e.log.Info("round settled",
		zap.String("roundId", roundID),
		zap.Int("wonBets", res.WonBets),
		zap.Int("lostBets", res.LostBets),
		zap.Int64("escrowCents", res.EscrowCents),
		zap.Int64("surplusCents", res.SurplusCents),
	)
	roundsSettled.Inc()
	escrowFunded.Add(float64(res.EscrowCents) / 100)

	if e.publ != nil {
		names := make([]string, len(res.Outcomes))
		for i, o := range res.Outcomes {
			names[i] = string(o)
		}
		if err := e.publ.PublishRoundSettled(ctx, events.RoundSettled{
			RoundID:       roundID,
			RequestID:     requestID,
			Outcomes:      names,
			WonBets:       res.WonBets,
			LostBets:      res.LostBets,
			EscrowCents:   res.EscrowCents,
			SweepDeadline: res.SweepDeadline,
			Ts:            e.now(),
		}); err != nil {
			e.log.Warn("publish round_settled", zap.Error(err))
		}
	}
	return res, nil
}

// IsRoundSettled is a scheduler predicate.
func (e *Engine) IsRoundSettled(ctx context.Context, roundID string) (bool, error) {
	r, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return false, err
	}
	return r.Status == domain.RoundSettled || r.Status == domain.RoundFinalized, nil
}

// CanRequestResults is a scheduler predicate: true once the round is locked
// and its duration has elapsed.
func (e *Engine) CanRequestResults(ctx context.Context, roundID string) (bool, error) {
	r, err := e.store.GetRound(ctx, roundID)
	if err != nil {
		return false, err
	}
	return r.Status == domain.RoundLocked && !e.now().Before(r.EndTime), nil
}

func (e *Engine) GetRound(ctx context.Context, roundID string) (domain.Round, error) {
	return e.store.GetRound(ctx, roundID)
}

func (e *Engine) GetBet(ctx context.Context, betID string) (domain.Bet, error) {
	return e.store.GetBet(ctx, betID)
}

func (e *Engine) GetRoundPool(ctx context.Context, roundID string) (domain.RoundPool, error) {
	return e.store.GetRoundPool(ctx, roundID)
}

func (e *Engine) GetMatchPools(ctx context.Context, roundID string) ([]domain.MatchPool, error) {
	return e.store.GetMatchPools(ctx, roundID)
}

func (e *Engine) GetLockedOdds(ctx context.Context, roundID string, matchIndex int) (map[domain.Outcome]string, error) {
	locked, err := e.store.GetLockedOdds(ctx, roundID, matchIndex)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Outcome]string, len(locked))
	for o, d := range locked {
		out[o] = d.String()
	}
	return out, nil
}

// GetLiveOdds serves display odds from the cache when present and recomputes
// from the current pools otherwise. A cache read failure degrades to the
// recompute path.
func (e *Engine) GetLiveOdds(ctx context.Context, roundID string) (OddsSnapshot, error) {
	if e.live != nil {
		snap, ok, err := e.live.GetOdds(ctx, roundID)
		if err != nil {
			e.log.Warn("live odds cache read", zap.String("roundId", roundID), zap.Error(err))
		} else if ok {
			return snap, nil
		}
	}

	pools, err := e.store.GetMatchPools(ctx, roundID)
	if err != nil {
		return OddsSnapshot{}, err
	}
	return e.snapshot(roundID, pools), nil
}

func (e *Engine) snapshot(roundID string, pools []domain.MatchPool) OddsSnapshot {
	snap := OddsSnapshot{RoundID: roundID, Matches: make([]MatchOddsView, len(pools))}
	for i, p := range pools {
		m := e.calc.MatchOdds(p)
		snap.Matches[i] = MatchOddsView{
			Index: p.Index,
			Home:  m[domain.OutcomeHome].String(),
			Away:  m[domain.OutcomeAway].String(),
			Draw:  m[domain.OutcomeDraw].String(),
		}
	}
	return snap
}

// refreshLiveOdds pushes the current display odds to the live cache.
// Best effort: display odds are advisory, the locked odds are authoritative.
func (e *Engine) refreshLiveOdds(ctx context.Context, roundID string) {
	if e.live == nil {
		return
	}
	pools, err := e.store.GetMatchPools(ctx, roundID)
	if err != nil {
		e.log.Warn("live odds refresh read", zap.String("roundId", roundID), zap.Error(err))
		return
	}
	if err := e.live.Publish(ctx, e.snapshot(roundID, pools)); err != nil {
		e.log.Warn("live odds publish", zap.String("roundId", roundID), zap.Error(err))
	}
}
