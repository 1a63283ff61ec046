package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
)

// Postgres implements Store with one transaction per operation and pessimistic
// row locks on the reserve and round rows, so concurrent callers racing on the
// same ledgers serialize in the database.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (p *Postgres) CreateRound(ctx context.Context, r domain.Round) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rounds (id, season_id, start_time, end_time, status)
		VALUES ($1,$2,$3,$4,$5)`,
		r.ID, r.SeasonID, r.StartTime, r.EndTime, r.Status,
	)
	return err
}

func (p *Postgres) GetRound(ctx context.Context, roundID string) (domain.Round, error) {
	return scanRound(p.db.QueryRowContext(ctx, `
		SELECT id, season_id, start_time, end_time, status, created_at, updated_at
		FROM rounds WHERE id=$1`, roundID))
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRound(row rowScanner) (domain.Round, error) {
	var r domain.Round
	err := row.Scan(&r.ID, &r.SeasonID, &r.StartTime, &r.EndTime, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.Round{}, notFound(err)
	}
	return r, nil
}

// lockRoundRow reads a round under FOR UPDATE inside tx.
func lockRoundRow(ctx context.Context, tx *sql.Tx, roundID string) (domain.Round, error) {
	return scanRound(tx.QueryRowContext(ctx, `
		SELECT id, season_id, start_time, end_time, status, created_at, updated_at
		FROM rounds WHERE id=$1 FOR UPDATE`, roundID))
}

func setRoundStatus(ctx context.Context, tx *sql.Tx, roundID string, status domain.RoundStatus) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE rounds SET status=$1, updated_at=NOW() WHERE id=$2`, status, roundID)
	return err
}

func (p *Postgres) SeedRound(ctx context.Context, roundID string, entries []SeedEntry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r, err := lockRoundRow(ctx, tx, roundID)
	if err != nil {
		return err
	}
	if r.Status != domain.RoundCreated {
		return domain.ErrRoundNotSeedable
	}

	var total int64
	for _, e := range entries {
		total += e.Total()
	}

	// Seeding is a real funds movement: the whole seed is debited from the
	// reserve before any pool is credited.
	var available int64
	if err = tx.QueryRowContext(ctx,
		`SELECT available_cents FROM reserve WHERE id=1 FOR UPDATE`).Scan(&available); err != nil {
		return err
	}
	if available < total {
		return domain.ErrInsufficientReserve
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE reserve SET available_cents = available_cents - $1 WHERE id=1`, total); err != nil {
		return err
	}

	for _, e := range entries {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO match_pools (round_id, idx, home_cents, away_cents, draw_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			roundID, e.MatchIndex, e.HomeCents, e.AwayCents, e.DrawCents); err != nil {
			return err
		}
		for outcome, odds := range e.Odds {
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO locked_odds (round_id, idx, outcome, odds)
				VALUES ($1,$2,$3,$4)`,
				roundID, e.MatchIndex, outcome, odds.String()); err != nil {
				return err
			}
		}
	}

	if err = setRoundStatus(ctx, tx, roundID, domain.RoundSeeded); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) LockRound(ctx context.Context, roundID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r, err := lockRoundRow(ctx, tx, roundID)
	if err != nil {
		return err
	}
	if r.Status != domain.RoundSeeded {
		return domain.ErrRoundNotLockable
	}
	if err = setRoundStatus(ctx, tx, roundID, domain.RoundLocked); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) MarkResultsPending(ctx context.Context, roundID string, req domain.RandomnessRequest) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r, err := lockRoundRow(ctx, tx, roundID)
	if err != nil {
		return err
	}
	if r.Status != domain.RoundLocked {
		return domain.ErrRoundNotPending
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO randomness_requests (id, round_id, status, created_at)
		VALUES ($1,$2,$3,$4)`,
		req.ID, req.RoundID, req.Status, req.CreatedAt); err != nil {
		return err
	}
	if err = setRoundStatus(ctx, tx, roundID, domain.RoundResultsPending); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) GetRandomnessRequest(ctx context.Context, requestID string) (domain.RandomnessRequest, error) {
	var req domain.RandomnessRequest
	err := p.db.QueryRowContext(ctx, `
		SELECT id, round_id, status, value, created_at
		FROM randomness_requests WHERE id=$1`, requestID).
		Scan(&req.ID, &req.RoundID, &req.Status, &req.Value, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RandomnessRequest{}, domain.ErrUnknownRequest
	}
	if err != nil {
		return domain.RandomnessRequest{}, err
	}
	return req, nil
}

func (p *Postgres) ApplyPlacement(ctx context.Context, bet domain.Bet, now time.Time) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r, err := lockRoundRow(ctx, tx, bet.RoundID)
	if err != nil {
		return err
	}
	if r.Status != domain.RoundSeeded || !now.Before(r.StartTime) {
		return domain.ErrRoundNotOpen
	}

	// Solvency: the payout excess over the stake must be covered before the
	// bet exists. The stake itself goes into the match pools below.
	lock := bet.ReserveLockCents()
	var available int64
	if err = tx.QueryRowContext(ctx,
		`SELECT available_cents FROM reserve WHERE id=1 FOR UPDATE`).Scan(&available); err != nil {
		return err
	}
	if available < lock {
		return domain.ErrInsufficientReserve
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE reserve SET available_cents = available_cents - $1,
		                   locked_cents    = locked_cents + $1
		WHERE id=1`, lock); err != nil {
		return err
	}

	for _, leg := range bet.Legs {
		res, perr := tx.ExecContext(ctx, poolAddStmt(leg.Outcome),
			leg.ShareCents, bet.RoundID, leg.MatchIndex)
		if perr != nil {
			return perr
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return domain.ErrInvalidMatch
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, bettor, round_id, stake_cents, locked_multiplier,
		                  potential_payout_cents, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`,
		bet.ID, bet.Bettor, bet.RoundID, bet.StakeCents, bet.LockedMultiplier.String(),
		bet.PotentialPayoutCents, bet.Status, now); err != nil {
		return err
	}
	for _, leg := range bet.Legs {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO bet_legs (bet_id, match_idx, outcome, share_cents)
			VALUES ($1,$2,$3,$4)`,
			bet.ID, leg.MatchIndex, leg.Outcome, leg.ShareCents); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// poolAddStmt returns the update statement crediting one outcome pool.
func poolAddStmt(o domain.Outcome) string {
	switch o {
	case domain.OutcomeHome:
		return `UPDATE match_pools SET home_cents = home_cents + $1 WHERE round_id=$2 AND idx=$3`
	case domain.OutcomeAway:
		return `UPDATE match_pools SET away_cents = away_cents + $1 WHERE round_id=$2 AND idx=$3`
	default:
		return `UPDATE match_pools SET draw_cents = draw_cents + $1 WHERE round_id=$2 AND idx=$3`
	}
}

func (p *Postgres) ApplyCancellation(ctx context.Context, betID, caller string, feeBps int64) (domain.CancelResult, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CancelResult{}, err
	}
	defer tx.Rollback()

	bet, err := lockBetRow(ctx, tx, betID)
	if err != nil {
		return domain.CancelResult{}, err
	}
	if bet.Bettor != caller {
		return domain.CancelResult{}, domain.ErrNotBettor
	}
	if bet.Status != domain.BetActive {
		return domain.CancelResult{}, domain.ErrAlreadyProcessed
	}

	r, err := lockRoundRow(ctx, tx, bet.RoundID)
	if err != nil {
		return domain.CancelResult{}, err
	}
	if r.Status == domain.RoundSettled || r.Status == domain.RoundFinalized {
		return domain.CancelResult{}, domain.ErrAlreadySettled
	}

	fee := bet.StakeCents * feeBps / 10000
	refund := bet.StakeCents - fee
	lock := bet.ReserveLockCents()

	for _, leg := range bet.Legs {
		if _, err = tx.ExecContext(ctx, poolAddStmt(leg.Outcome),
			-leg.ShareCents, bet.RoundID, leg.MatchIndex); err != nil {
			return domain.CancelResult{}, err
		}
	}

	// The payout lock returns in full; the cancellation fee stays with the
	// reserve since the full stake left the pools but only the refund leaves
	// the protocol.
	if _, err = tx.ExecContext(ctx, `
		UPDATE reserve SET locked_cents    = locked_cents - $1,
		                   available_cents = available_cents + $1 + $2
		WHERE id=1`, lock, fee); err != nil {
		return domain.CancelResult{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE bets SET status=$1, updated_at=NOW() WHERE id=$2`,
		domain.BetCancelled, betID); err != nil {
		return domain.CancelResult{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.CancelResult{}, err
	}
	bet.Status = domain.BetCancelled
	return domain.CancelResult{Bet: bet, RefundCents: refund, FeeCents: fee, ReleasedLock: lock}, nil
}

func scanBet(row rowScanner) (domain.Bet, error) {
	var b domain.Bet
	var mult string
	err := row.Scan(&b.ID, &b.Bettor, &b.RoundID, &b.StakeCents, &mult,
		&b.PotentialPayoutCents, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return domain.Bet{}, notFound(err)
	}
	b.LockedMultiplier, err = decimal.NewFromString(mult)
	if err != nil {
		return domain.Bet{}, err
	}
	return b, nil
}

const betColumns = `id, bettor, round_id, stake_cents, locked_multiplier,
	potential_payout_cents, status, created_at, updated_at`

func lockBetRow(ctx context.Context, tx *sql.Tx, betID string) (domain.Bet, error) {
	b, err := scanBet(tx.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE id=$1 FOR UPDATE`, betID))
	if err != nil {
		return domain.Bet{}, err
	}
	b.Legs, err = queryLegs(ctx, tx, betID)
	return b, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryLegs(ctx context.Context, q querier, betID string) ([]domain.Leg, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT match_idx, outcome, share_cents FROM bet_legs
		WHERE bet_id=$1 ORDER BY match_idx`, betID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var legs []domain.Leg
	for rows.Next() {
		var leg domain.Leg
		if err := rows.Scan(&leg.MatchIndex, &leg.Outcome, &leg.ShareCents); err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}
	return legs, rows.Err()
}

func (p *Postgres) GetBet(ctx context.Context, betID string) (domain.Bet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE id=$1`, betID))
	if err != nil {
		return domain.Bet{}, err
	}
	b.Legs, err = queryLegs(ctx, p.db, betID)
	return b, err
}

func (p *Postgres) ListBetsByBettor(ctx context.Context, bettor string) ([]domain.Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE bettor=$1 ORDER BY created_at`, bettor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

func (p *Postgres) SettleRound(ctx context.Context, roundID, requestID, value string, outcomes []domain.Outcome, sweepDeadline, now time.Time) (domain.SettlementResult, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.SettlementResult{}, err
	}
	defer tx.Rollback()

	r, err := lockRoundRow(ctx, tx, roundID)
	if err != nil {
		return domain.SettlementResult{}, err
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
		var reqRound string
		var reqStatus domain.RandomnessRequestStatus
		err = tx.QueryRowContext(ctx, `
			SELECT round_id, status FROM randomness_requests
			WHERE id=$1 FOR UPDATE`, requestID).Scan(&reqRound, &reqStatus)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && reqRound != roundID) {
			return domain.SettlementResult{}, domain.ErrUnknownRequest
		}
		if err != nil {
			return domain.SettlementResult{}, err
		}
		if reqStatus != domain.RequestPending {
			return domain.SettlementResult{}, domain.ErrRequestConsumed
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE randomness_requests SET status=$1, value=$2 WHERE id=$3`,
			domain.RequestFulfilled, value, requestID); err != nil {
			return domain.SettlementResult{}, err
		}
	} else {
		// Emergency settlement expires any stalled request for the round.
		if _, err = tx.ExecContext(ctx, `
			UPDATE randomness_requests SET status=$1
			WHERE round_id=$2 AND status=$3`,
			domain.RequestExpired, roundID, domain.RequestPending); err != nil {
			return domain.SettlementResult{}, err
		}
	}

	for idx, o := range outcomes {
		if _, err = tx.ExecContext(ctx, `
			UPDATE match_pools SET final_outcome=$1 WHERE round_id=$2 AND idx=$3`,
			o, roundID, idx); err != nil {
			return domain.SettlementResult{}, err
		}
	}

	// Resolve every active bet against the revealed outcomes.
	active, err := p.activeBetsForUpdate(ctx, tx, roundID)
	if err != nil {
		return domain.SettlementResult{}, err
	}

	res := domain.SettlementResult{RoundID: roundID, Outcomes: outcomes, SweepDeadline: sweepDeadline}
	var releasedLocks int64
	for i := range active {
		b := &active[i]
		releasedLocks += b.ReserveLockCents()
		status := domain.BetLost
		if b.Wins(outcomes) {
			status = domain.BetWon
			res.WonBets++
			res.EscrowCents += b.PotentialPayoutCents
		} else {
			res.LostBets++
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE bets SET status=$1, updated_at=NOW() WHERE id=$2`, status, b.ID); err != nil {
			return domain.SettlementResult{}, err
		}
	}

	// Drain the match pools into escrow + reserve surplus. The surplus is
	// pools + released locks - escrow, non-negative because each won
	// payout's excess over its stake was locked at placement.
	var poolTotal int64
	if err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(home_cents + away_cents + draw_cents), 0)
		FROM match_pools WHERE round_id=$1`, roundID).Scan(&poolTotal); err != nil {
		return domain.SettlementResult{}, err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE match_pools SET home_cents=0, away_cents=0, draw_cents=0
		WHERE round_id=$1`, roundID); err != nil {
		return domain.SettlementResult{}, err
	}
	res.SurplusCents = poolTotal + releasedLocks - res.EscrowCents

	if _, err = tx.ExecContext(ctx, `
		UPDATE reserve SET locked_cents    = locked_cents - $1,
		                   available_cents = available_cents + $2
		WHERE id=1`, releasedLocks, res.SurplusCents); err != nil {
		return domain.SettlementResult{}, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO round_pools (round_id, total_locked_cents, sweep_deadline)
		VALUES ($1,$2,$3)`, roundID, res.EscrowCents, sweepDeadline); err != nil {
		return domain.SettlementResult{}, err
	}
	if err = setRoundStatus(ctx, tx, roundID, domain.RoundSettled); err != nil {
		return domain.SettlementResult{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.SettlementResult{}, err
	}
	return res, nil
}

// activeBetsForUpdate loads all active bets of a round with their legs,
// locked for the settlement transaction.
func (p *Postgres) activeBetsForUpdate(ctx context.Context, tx *sql.Tx, roundID string) ([]domain.Bet, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE round_id=$1 AND status=$2 FOR UPDATE`,
		roundID, domain.BetActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bets {
		if bets[i].Legs, err = queryLegs(ctx, tx, bets[i].ID); err != nil {
			return nil, err
		}
	}
	return bets, nil
}

func (p *Postgres) ApplyClaim(ctx context.Context, split domain.ClaimSplit) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status domain.BetStatus
	var roundID string
	err = tx.QueryRowContext(ctx,
		`SELECT status, round_id FROM bets WHERE id=$1 FOR UPDATE`, split.BetID).
		Scan(&status, &roundID)
	if err != nil {
		return notFound(err)
	}
	switch status {
	case domain.BetWon:
	case domain.BetClaimed:
		return domain.ErrAlreadyProcessed
	default:
		return domain.ErrBetNotWon
	}

	var swept bool
	err = tx.QueryRowContext(ctx,
		`SELECT swept FROM round_pools WHERE round_id=$1 FOR UPDATE`, roundID).Scan(&swept)
	if err != nil {
		return notFound(err)
	}
	if swept {
		return domain.ErrAlreadySwept
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE bets SET status=$1, updated_at=NOW() WHERE id=$2`,
		domain.BetClaimed, split.BetID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE round_pools SET total_claimed_cents = total_claimed_cents + $1
		WHERE round_id=$2`, split.PayoutCents, roundID); err != nil {
		return err
	}

	return tx.Commit()
}

func (p *Postgres) SweepRoundPool(ctx context.Context, roundID string, seasonShareBps int64, now time.Time) (domain.SweepResult, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.SweepResult{}, err
	}
	defer tx.Rollback()

	r, err := lockRoundRow(ctx, tx, roundID)
	if err != nil {
		return domain.SweepResult{}, err
	}

	var rp domain.RoundPool
	err = tx.QueryRowContext(ctx, `
		SELECT total_locked_cents, total_claimed_cents, sweep_deadline, swept
		FROM round_pools WHERE round_id=$1 FOR UPDATE`, roundID).
		Scan(&rp.TotalLockedCents, &rp.TotalClaimedCents, &rp.SweepDeadline, &rp.Swept)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SweepResult{}, domain.ErrRoundNotSettled
	}
	if err != nil {
		return domain.SweepResult{}, err
	}
	if rp.Swept {
		return domain.SweepResult{}, domain.ErrAlreadySwept
	}
	if now.Before(rp.SweepDeadline) {
		return domain.SweepResult{}, domain.ErrSweepTooEarly
	}

	unclaimed := rp.TotalLockedCents - rp.TotalClaimedCents
	season := unclaimed * seasonShareBps / 10000

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO season_pools (season_id, balance_cents) VALUES ($1,$2)
		ON CONFLICT (season_id) DO UPDATE
		SET balance_cents = season_pools.balance_cents + EXCLUDED.balance_cents`,
		r.SeasonID, season); err != nil {
		return domain.SweepResult{}, err
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE reserve SET available_cents = available_cents + $1 WHERE id=1`,
		unclaimed-season); err != nil {
		return domain.SweepResult{}, err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE round_pools SET swept=TRUE WHERE round_id=$1`, roundID); err != nil {
		return domain.SweepResult{}, err
	}
	if err = setRoundStatus(ctx, tx, roundID, domain.RoundFinalized); err != nil {
		return domain.SweepResult{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.SweepResult{}, err
	}
	return domain.SweepResult{
		RoundID:        roundID,
		SeasonID:       r.SeasonID,
		UnclaimedCents: unclaimed,
		SeasonCents:    season,
		ReserveCents:   unclaimed - season,
	}, nil
}

func (p *Postgres) GetMatchPools(ctx context.Context, roundID string) ([]domain.MatchPool, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT round_id, idx, home_cents, away_cents, draw_cents
		FROM match_pools WHERE round_id=$1 ORDER BY idx`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []domain.MatchPool
	for rows.Next() {
		var mp domain.MatchPool
		if err := rows.Scan(&mp.RoundID, &mp.Index, &mp.HomeCents, &mp.AwayCents, &mp.DrawCents); err != nil {
			return nil, err
		}
		pools = append(pools, mp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return nil, domain.ErrNotFound
	}
	return pools, nil
}

func (p *Postgres) GetLockedOdds(ctx context.Context, roundID string, matchIndex int) (map[domain.Outcome]decimal.Decimal, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT outcome, odds FROM locked_odds
		WHERE round_id=$1 AND idx=$2`, roundID, matchIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Outcome]decimal.Decimal)
	for rows.Next() {
		var o domain.Outcome
		var s string
		if err := rows.Scan(&o, &s); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, err
		}
		out[o] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (p *Postgres) GetRoundLockedOdds(ctx context.Context, roundID string) (map[int]map[domain.Outcome]decimal.Decimal, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT idx, outcome, odds FROM locked_odds WHERE round_id=$1`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]map[domain.Outcome]decimal.Decimal)
	for rows.Next() {
		var idx int
		var o domain.Outcome
		var s string
		if err := rows.Scan(&idx, &o, &s); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, err
		}
		if out[idx] == nil {
			out[idx] = make(map[domain.Outcome]decimal.Decimal)
		}
		out[idx][o] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (p *Postgres) GetRoundPool(ctx context.Context, roundID string) (domain.RoundPool, error) {
	var rp domain.RoundPool
	rp.RoundID = roundID
	err := p.db.QueryRowContext(ctx, `
		SELECT total_locked_cents, total_claimed_cents, sweep_deadline, swept
		FROM round_pools WHERE round_id=$1`, roundID).
		Scan(&rp.TotalLockedCents, &rp.TotalClaimedCents, &rp.SweepDeadline, &rp.Swept)
	if err != nil {
		return domain.RoundPool{}, notFound(err)
	}
	return rp, nil
}

func (p *Postgres) DepositReserves(ctx context.Context, amountCents int64) (domain.Reserve, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reserve{}, err
	}
	defer tx.Rollback()

	var res domain.Reserve
	if err = tx.QueryRowContext(ctx, `
		UPDATE reserve SET available_cents = available_cents + $1 WHERE id=1
		RETURNING available_cents, locked_cents`, amountCents).
		Scan(&res.AvailableCents, &res.LockedCents); err != nil {
		return domain.Reserve{}, err
	}
	return res, tx.Commit()
}

func (p *Postgres) WithdrawReserves(ctx context.Context, amountCents int64) (domain.Reserve, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reserve{}, err
	}
	defer tx.Rollback()

	var res domain.Reserve
	if err = tx.QueryRowContext(ctx,
		`SELECT available_cents, locked_cents FROM reserve WHERE id=1 FOR UPDATE`).
		Scan(&res.AvailableCents, &res.LockedCents); err != nil {
		return domain.Reserve{}, err
	}
	if amountCents > res.AvailableCents {
		return res, domain.ErrInsufficientReserve
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE reserve SET available_cents = available_cents - $1 WHERE id=1`, amountCents); err != nil {
		return domain.Reserve{}, err
	}
	res.AvailableCents -= amountCents
	return res, tx.Commit()
}

func (p *Postgres) GetReserve(ctx context.Context) (domain.Reserve, error) {
	var res domain.Reserve
	err := p.db.QueryRowContext(ctx,
		`SELECT available_cents, locked_cents FROM reserve WHERE id=1`).
		Scan(&res.AvailableCents, &res.LockedCents)
	if err != nil {
		return domain.Reserve{}, err
	}
	return res, nil
}

func (p *Postgres) GetSeasonPool(ctx context.Context, seasonID string) (int64, error) {
	var balance int64
	err := p.db.QueryRowContext(ctx,
		`SELECT balance_cents FROM season_pools WHERE season_id=$1`, seasonID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}
