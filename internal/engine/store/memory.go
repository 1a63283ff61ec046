package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
)

// Memory keeps everything under one mutex so each method is a single atomic
// operation, mirroring the transaction-per-operation postgres adapter.
type Memory struct {
	mu sync.Mutex

	rounds     map[string]*domain.Round
	pools      map[string][]*domain.MatchPool // roundID -> per-match pools
	lockedOdds map[string]map[int]map[domain.Outcome]decimal.Decimal
	outcomes   map[string][]domain.Outcome
	bets       map[string]*domain.Bet
	byBettor   map[string][]string
	roundBets  map[string][]string
	roundPools map[string]*domain.RoundPool
	requests   map[string]*domain.RandomnessRequest
	seasons    map[string]int64
	reserve    domain.Reserve
}

func NewMemory() *Memory {
	return &Memory{
		rounds:     make(map[string]*domain.Round),
		pools:      make(map[string][]*domain.MatchPool),
		lockedOdds: make(map[string]map[int]map[domain.Outcome]decimal.Decimal),
		outcomes:   make(map[string][]domain.Outcome),
		bets:       make(map[string]*domain.Bet),
		byBettor:   make(map[string][]string),
		roundBets:  make(map[string][]string),
		roundPools: make(map[string]*domain.RoundPool),
		requests:   make(map[string]*domain.RandomnessRequest),
		seasons:    make(map[string]int64),
	}
}

func (m *Memory) CreateRound(_ context.Context, r domain.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := r
	m.rounds[r.ID] = &cp
	return nil
}

func (m *Memory) GetRound(_ context.Context, roundID string) (domain.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[roundID]
	if !ok {
		return domain.Round{}, domain.ErrNotFound
	}
	return *r, nil
}

func (m *Memory) SeedRound(_ context.Context, roundID string, entries []SeedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[roundID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.Status != domain.RoundCreated {
		return domain.ErrRoundNotSeedable
	}

	var total int64
	for _, e := range entries {
		total += e.Total()
	}
	if m.reserve.AvailableCents < total {
		return domain.ErrInsufficientReserve
	}

	m.reserve.AvailableCents -= total

	pools := make([]*domain.MatchPool, len(entries))
	locked := make(map[int]map[domain.Outcome]decimal.Decimal, len(entries))
	for i, e := range entries {
		pools[i] = &domain.MatchPool{
			RoundID:   roundID,
			Index:     e.MatchIndex,
			HomeCents: e.HomeCents,
			AwayCents: e.AwayCents,
			DrawCents: e.DrawCents,
		}
		odds := make(map[domain.Outcome]decimal.Decimal, len(e.Odds))
		for o, d := range e.Odds {
			odds[o] = d
		}
		locked[e.MatchIndex] = odds
	}
	m.pools[roundID] = pools
	m.lockedOdds[roundID] = locked

	r.Status = domain.RoundSeeded
	return nil
}

func (m *Memory) LockRound(_ context.Context, roundID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[roundID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.Status != domain.RoundSeeded {
		return domain.ErrRoundNotLockable
	}
	r.Status = domain.RoundLocked
	return nil
}

func (m *Memory) MarkResultsPending(_ context.Context, roundID string, req domain.RandomnessRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[roundID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.Status != domain.RoundLocked {
		return domain.ErrRoundNotPending
	}

	cp := req
	m.requests[req.ID] = &cp
	r.Status = domain.RoundResultsPending
	return nil
}

func (m *Memory) GetRandomnessRequest(_ context.Context, requestID string) (domain.RandomnessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[requestID]
	if !ok {
		return domain.RandomnessRequest{}, domain.ErrUnknownRequest
	}
	return *req, nil
}

func (m *Memory) ApplyPlacement(_ context.Context, bet domain.Bet, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[bet.RoundID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.Status != domain.RoundSeeded || !now.Before(r.StartTime) {
		return domain.ErrRoundNotOpen
	}

	lock := bet.ReserveLockCents()
	if m.reserve.AvailableCents < lock {
		return domain.ErrInsufficientReserve
	}

	pools := m.pools[bet.RoundID]
	for _, leg := range bet.Legs {
		if leg.MatchIndex < 0 || leg.MatchIndex >= len(pools) {
			return domain.ErrInvalidMatch
		}
	}

	m.reserve.AvailableCents -= lock
	m.reserve.LockedCents += lock
	for _, leg := range bet.Legs {
		pools[leg.MatchIndex].Add(leg.Outcome, leg.ShareCents)
	}

	cp := bet
	cp.Legs = append([]domain.Leg(nil), bet.Legs...)
	m.bets[bet.ID] = &cp
	m.byBettor[bet.Bettor] = append(m.byBettor[bet.Bettor], bet.ID)
	m.roundBets[bet.RoundID] = append(m.roundBets[bet.RoundID], bet.ID)
	return nil
}

func (m *Memory) ApplyCancellation(_ context.Context, betID, caller string, feeBps int64) (domain.CancelResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bets[betID]
	if !ok {
		return domain.CancelResult{}, domain.ErrNotFound
	}
	if b.Bettor != caller {
		return domain.CancelResult{}, domain.ErrNotBettor
	}
	if b.Status != domain.BetActive {
		return domain.CancelResult{}, domain.ErrAlreadyProcessed
	}

	r := m.rounds[b.RoundID]
	if r.Status == domain.RoundSettled || r.Status == domain.RoundFinalized {
		return domain.CancelResult{}, domain.ErrAlreadySettled
	}

	fee := b.StakeCents * feeBps / 10000
	refund := b.StakeCents - fee
	lock := b.ReserveLockCents()

	// Reverse exactly the placement-time pool contributions.
	pools := m.pools[b.RoundID]
	for _, leg := range b.Legs {
		pools[leg.MatchIndex].Add(leg.Outcome, -leg.ShareCents)
	}

	// Release the payout lock; the cancellation fee stays with the reserve.
	m.reserve.LockedCents -= lock
	m.reserve.AvailableCents += lock + fee

	b.Status = domain.BetCancelled
	return domain.CancelResult{Bet: *b, RefundCents: refund, FeeCents: fee, ReleasedLock: lock}, nil
}

func (m *Memory) GetBet(_ context.Context, betID string) (domain.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bets[betID]
	if !ok {
		return domain.Bet{}, domain.ErrNotFound
	}
	cp := *b
	cp.Legs = append([]domain.Leg(nil), b.Legs...)
	return cp, nil
}

func (m *Memory) ListBetsByBettor(_ context.Context, bettor string) ([]domain.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.byBettor[bettor]
	out := make([]domain.Bet, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.bets[id])
	}
	return out, nil
}

func (m *Memory) SettleRound(_ context.Context, roundID, requestID, value string, outcomes []domain.Outcome, sweepDeadline, now time.Time) (domain.SettlementResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[roundID]
	if !ok {
		return domain.SettlementResult{}, domain.ErrNotFound
	}
	if r.Status == domain.RoundSettled || r.Status == domain.RoundFinalized {
		return domain.SettlementResult{}, domain.ErrAlreadySettled
	}
	if r.Status != domain.RoundResultsPending {
		return domain.SettlementResult{}, domain.ErrRoundNotPending
	}
	if now.Before(r.EndTime) {
		return domain.SettlementResult{}, domain.ErrRoundTooEarly
	}

	if requestID != "" {
		req, ok := m.requests[requestID]
		if !ok || req.RoundID != roundID {
			return domain.SettlementResult{}, domain.ErrUnknownRequest
		}
		if req.Status != domain.RequestPending {
			return domain.SettlementResult{}, domain.ErrRequestConsumed
		}
		req.Status = domain.RequestFulfilled
		req.Value = value
	} else {
		// Emergency settlement expires any stalled request for the round.
		for _, req := range m.requests {
			if req.RoundID == roundID && req.Status == domain.RequestPending {
				req.Status = domain.RequestExpired
			}
		}
	}

	m.outcomes[roundID] = append([]domain.Outcome(nil), outcomes...)

	res := domain.SettlementResult{RoundID: roundID, Outcomes: outcomes, SweepDeadline: sweepDeadline}
	var releasedLocks int64
	for _, id := range m.roundBets[roundID] {
		b := m.bets[id]
		if b.Status != domain.BetActive {
			continue
		}
		releasedLocks += b.ReserveLockCents()
		if b.Wins(outcomes) {
			b.Status = domain.BetWon
			res.WonBets++
			res.EscrowCents += b.PotentialPayoutCents
		} else {
			b.Status = domain.BetLost
			res.LostBets++
		}
	}

	// Drain the match pools; fund the escrow; the surplus returns to the
	// reserve. Surplus = pools + released locks - escrow, never negative
	// because each won payout's excess over its stake was locked.
	var poolTotal int64
	for _, p := range m.pools[roundID] {
		poolTotal += p.Total()
		p.HomeCents, p.AwayCents, p.DrawCents = 0, 0, 0
	}
	res.SurplusCents = poolTotal + releasedLocks - res.EscrowCents

	m.reserve.LockedCents -= releasedLocks
	m.reserve.AvailableCents += res.SurplusCents

	m.roundPools[roundID] = &domain.RoundPool{
		RoundID:          roundID,
		TotalLockedCents: res.EscrowCents,
		SweepDeadline:    sweepDeadline,
	}
	r.Status = domain.RoundSettled
	return res, nil
}

func (m *Memory) ApplyClaim(_ context.Context, split domain.ClaimSplit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bets[split.BetID]
	if !ok {
		return domain.ErrNotFound
	}
	switch b.Status {
	case domain.BetWon:
	case domain.BetClaimed:
		return domain.ErrAlreadyProcessed
	default:
		return domain.ErrBetNotWon
	}

	rp, ok := m.roundPools[b.RoundID]
	if !ok || rp.Swept {
		return domain.ErrAlreadySwept
	}

	b.Status = domain.BetClaimed
	rp.TotalClaimedCents += split.PayoutCents
	return nil
}

func (m *Memory) SweepRoundPool(_ context.Context, roundID string, seasonShareBps int64, now time.Time) (domain.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[roundID]
	if !ok {
		return domain.SweepResult{}, domain.ErrNotFound
	}
	rp, ok := m.roundPools[roundID]
	if !ok {
		return domain.SweepResult{}, domain.ErrRoundNotSettled
	}
	if rp.Swept {
		return domain.SweepResult{}, domain.ErrAlreadySwept
	}
	if now.Before(rp.SweepDeadline) {
		return domain.SweepResult{}, domain.ErrSweepTooEarly
	}

	unclaimed := rp.TotalLockedCents - rp.TotalClaimedCents
	season := unclaimed * seasonShareBps / 10000

	m.seasons[r.SeasonID] += season
	m.reserve.AvailableCents += unclaimed - season
	rp.Swept = true
	r.Status = domain.RoundFinalized

	return domain.SweepResult{
		RoundID:        roundID,
		SeasonID:       r.SeasonID,
		UnclaimedCents: unclaimed,
		SeasonCents:    season,
		ReserveCents:   unclaimed - season,
	}, nil
}

func (m *Memory) GetMatchPools(_ context.Context, roundID string) ([]domain.MatchPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pools, ok := m.pools[roundID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.MatchPool, len(pools))
	for i, p := range pools {
		out[i] = *p
	}
	return out, nil
}

func (m *Memory) GetLockedOdds(_ context.Context, roundID string, matchIndex int) (map[domain.Outcome]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byMatch, ok := m.lockedOdds[roundID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	odds, ok := byMatch[matchIndex]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make(map[domain.Outcome]decimal.Decimal, len(odds))
	for o, d := range odds {
		out[o] = d
	}
	return out, nil
}

func (m *Memory) GetRoundLockedOdds(_ context.Context, roundID string) (map[int]map[domain.Outcome]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byMatch, ok := m.lockedOdds[roundID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make(map[int]map[domain.Outcome]decimal.Decimal, len(byMatch))
	for idx, odds := range byMatch {
		cp := make(map[domain.Outcome]decimal.Decimal, len(odds))
		for o, d := range odds {
			cp[o] = d
		}
		out[idx] = cp
	}
	return out, nil
}

func (m *Memory) GetRoundPool(_ context.Context, roundID string) (domain.RoundPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rp, ok := m.roundPools[roundID]
	if !ok {
		return domain.RoundPool{}, domain.ErrNotFound
	}
	return *rp, nil
}

func (m *Memory) DepositReserves(_ context.Context, amountCents int64) (domain.Reserve, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reserve.AvailableCents += amountCents
	return m.reserve, nil
}

func (m *Memory) WithdrawReserves(_ context.Context, amountCents int64) (domain.Reserve, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amountCents > m.reserve.AvailableCents {
		return m.reserve, domain.ErrInsufficientReserve
	}
	m.reserve.AvailableCents -= amountCents
	return m.reserve, nil
}

func (m *Memory) GetReserve(_ context.Context) (domain.Reserve, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reserve, nil
}

func (m *Memory) GetSeasonPool(_ context.Context, seasonID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seasons[seasonID], nil
}
