// Package http exposes the engine over REST. Writes go through the service
// layer; round lifecycle and reserve endpoints additionally require the
// admin token.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
	"github.com/radieske/parimutuel-engine/internal/engine/dto"
	"github.com/radieske/parimutuel-engine/internal/engine/service"
)

type Server struct {
	log        *zap.Logger
	engine     *service.Engine
	adminToken string
}

func NewServer(log *zap.Logger, eng *service.Engine, adminToken string) *Server {
	return &Server{log: log, engine: eng, adminToken: adminToken}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /rounds", s.admin(s.createRound))
	mux.HandleFunc("GET /rounds/{id}", s.getRound)
	mux.HandleFunc("POST /rounds/{id}/seed", s.admin(s.seedRound))
	mux.HandleFunc("POST /rounds/{id}/lock", s.admin(s.lockRound))
	mux.HandleFunc("POST /rounds/{id}/request-results", s.admin(s.requestResults))
	mux.HandleFunc("POST /rounds/{id}/emergency-settle", s.admin(s.emergencySettle))
	mux.HandleFunc("POST /rounds/{id}/sweep", s.sweepRound)
	mux.HandleFunc("GET /rounds/{id}/pools", s.getPools)
	mux.HandleFunc("GET /rounds/{id}/odds", s.getLiveOdds)
	mux.HandleFunc("GET /rounds/{id}/matches/{idx}/locked-odds", s.getLockedOdds)
	mux.HandleFunc("GET /rounds/{id}/settled", s.roundSettled)
	mux.HandleFunc("GET /rounds/{id}/can-request-results", s.canRequestResults)

	mux.HandleFunc("POST /bets", s.placeBet)
	mux.HandleFunc("GET /bets", s.listBets)
	mux.HandleFunc("GET /bets/{id}", s.getBet)
	mux.HandleFunc("POST /bets/{id}/cancel", s.cancelBet)
	mux.HandleFunc("POST /bets/{id}/claim", s.claim)
	mux.HandleFunc("GET /bets/{id}/bounty", s.bountyStatus)
	mux.HandleFunc("POST /claims/batch", s.batchClaim)

	mux.HandleFunc("GET /reserves", s.getReserves)
	mux.HandleFunc("POST /reserves/deposit", s.admin(s.depositReserves))
	mux.HandleFunc("POST /reserves/withdraw", s.admin(s.withdrawReserves))
	mux.HandleFunc("GET /seasons/{id}/pool", s.getSeasonPool)

	return mux
}

// admin gates an administrative handler on the X-Admin-Token header.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" || r.Header.Get("X-Admin-Token") != s.adminToken {
			writeError(w, domain.ErrAdminOnly)
			return
		}
		next(w, r)
	}
}

func (s *Server) createRound(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	round, err := s.engine.CreateRound(r.Context(), req.SeasonID, req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, roundResponse(round))
}

func (s *Server) getRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.engine.GetRound(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, roundResponse(round))
}

func (s *Server) seedRound(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.SeedRound(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": string(domain.RoundSeeded)})
}

func (s *Server) lockRound(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.LockRound(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": string(domain.RoundLocked)})
}

func (s *Server) requestResults(w http.ResponseWriter, r *http.Request) {
	roundID := r.PathValue("id")
	requestID, err := s.engine.RequestResults(r.Context(), roundID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto.RequestResultsResponse{RoundID: roundID, RequestID: requestID})
}

func (s *Server) emergencySettle(w http.ResponseWriter, r *http.Request) {
	var req dto.EmergencySettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	res, err := s.engine.EmergencySettleRound(r.Context(), r.PathValue("id"), req.FallbackSeed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, settlementResponse(res))
}

func (s *Server) sweepRound(w http.ResponseWriter, r *http.Request) {
	roundID := r.PathValue("id")
	res, err := s.engine.SweepRoundPool(r.Context(), roundID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto.SweepResponse{
		RoundID:        roundID,
		UnclaimedCents: res.UnclaimedCents,
		SeasonCents:    res.SeasonCents,
		ReserveCents:   res.ReserveCents,
	})
}

func (s *Server) getPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.engine.GetMatchPools(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.MatchPoolResponse, len(pools))
	for i, p := range pools {
		out[i] = dto.MatchPoolResponse{Index: p.Index, HomeCents: p.HomeCents, AwayCents: p.AwayCents, DrawCents: p.DrawCents}
	}
	writeJSON(w, out)
}

func (s *Server) getLiveOdds(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.GetLiveOdds(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) getLockedOdds(w http.ResponseWriter, r *http.Request) {
	matchIndex, err := strconv.Atoi(r.PathValue("idx"))
	if err != nil {
		http.Error(w, "bad match index", http.StatusBadRequest)
		return
	}
	roundID := r.PathValue("id")
	locked, err := s.engine.GetLockedOdds(r.Context(), roundID, matchIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	out := dto.LockedOddsResponse{
		RoundID:    roundID,
		MatchIndex: matchIndex,
		Odds:       make(map[string]string, len(locked)),
	}
	for o, d := range locked {
		out.Odds[string(o)] = d
	}
	writeJSON(w, out)
}

// roundSettled and canRequestResults back the scheduler collaborator's polls.
func (s *Server) roundSettled(w http.ResponseWriter, r *http.Request) {
	settled, err := s.engine.IsRoundSettled(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"settled": settled})
}

func (s *Server) canRequestResults(w http.ResponseWriter, r *http.Request) {
	ready, err := s.engine.CanRequestResults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"canRequestResults": ready})
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.RoundID == "" || req.Bettor == "" {
		http.Error(w, "roundId and bettor required", http.StatusBadRequest)
		return
	}
	legs := make([]service.LegRequest, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = service.LegRequest{MatchIndex: l.MatchIndex, Outcome: domain.Outcome(l.Outcome)}
	}
	bet, err := s.engine.PlaceBet(r.Context(), req.RoundID, req.Bettor, req.StakeCents, legs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, betResponse(bet))
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	bettor := r.URL.Query().Get("bettor")
	if bettor == "" {
		http.Error(w, "bettor required", http.StatusBadRequest)
		return
	}
	bets, err := s.engine.ListBets(r.Context(), bettor)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]dto.BetResponse, len(bets))
	for i, b := range bets {
		out[i] = betResponse(b)
	}
	writeJSON(w, out)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	bet, err := s.engine.GetBet(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, betResponse(bet))
}

func (s *Server) cancelBet(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	res, err := s.engine.CancelBet(r.Context(), r.PathValue("id"), req.Caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]int64{
		"refund_cents": res.RefundCents,
		"fee_cents":    res.FeeCents,
	})
}

func (s *Server) claim(w http.ResponseWriter, r *http.Request) {
	var req dto.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	split, err := s.engine.ClaimWinnings(r.Context(), r.PathValue("id"), req.Caller, req.MinPayoutCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, claimResponse(split))
}

func (s *Server) batchClaim(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	res, err := s.engine.BatchClaim(r.Context(), req.BetIDs, req.Caller, req.MinPayoutCents)
	if err != nil {
		writeError(w, err)
		return
	}
	out := dto.BatchClaimResponse{
		Skipped:          res.Skipped,
		CallerTotalCents: res.CallerTotalCents,
		Claimed:          make([]dto.ClaimResponse, len(res.Claimed)),
	}
	for i, c := range res.Claimed {
		out.Claimed[i] = claimResponse(c)
	}
	writeJSON(w, out)
}

func (s *Server) bountyStatus(w http.ResponseWriter, r *http.Request) {
	betID := r.PathValue("id")
	st, err := s.engine.CanClaimWithBounty(r.Context(), betID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto.BountyStatusResponse{
		BetID:              betID,
		Eligible:           st.Eligible,
		SecondsUntilWindow: int64(st.TimeUntilEligible.Seconds()),
		BountyCents:        st.BountyCents,
		WinnerCents:        st.WinnerCents,
	})
}

func (s *Server) getReserves(w http.ResponseWriter, r *http.Request) {
	available, locked, total, err := s.engine.GetAvailableReserves(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto.ReserveResponse{AvailableCents: available, LockedCents: locked, TotalCents: total})
}

func (s *Server) depositReserves(w http.ResponseWriter, r *http.Request) {
	var req dto.ReserveDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	res, err := s.engine.DepositReserves(r.Context(), req.AmountCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto.ReserveResponse{AvailableCents: res.AvailableCents, LockedCents: res.LockedCents, TotalCents: res.Total()})
}

func (s *Server) withdrawReserves(w http.ResponseWriter, r *http.Request) {
	var req dto.ReserveWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	res, err := s.engine.WithdrawReserves(r.Context(), req.AmountCents, req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto.ReserveResponse{AvailableCents: res.AvailableCents, LockedCents: res.LockedCents, TotalCents: res.Total()})
}

func (s *Server) getSeasonPool(w http.ResponseWriter, r *http.Request) {
	seasonID := r.PathValue("id")
	cents, err := s.engine.GetSeasonPool(r.Context(), seasonID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, dto.SeasonPoolResponse{SeasonID: seasonID, Cents: cents})
}

func roundResponse(r domain.Round) dto.RoundResponse {
	return dto.RoundResponse{
		RoundID:   r.ID,
		SeasonID:  r.SeasonID,
		Status:    string(r.Status),
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

func betResponse(b domain.Bet) dto.BetResponse {
	out := dto.BetResponse{
		BetID:            b.ID,
		Bettor:           b.Bettor,
		RoundID:          b.RoundID,
		Status:           string(b.Status),
		StakeCents:       b.StakeCents,
		LockedMultiplier: b.LockedMultiplier.String(),
		PotentialPayout:  b.PotentialPayoutCents,
		Legs:             make([]dto.LegResponse, len(b.Legs)),
	}
	for i, l := range b.Legs {
		out.Legs[i] = dto.LegResponse{MatchIndex: l.MatchIndex, Outcome: string(l.Outcome), ShareCents: l.ShareCents}
	}
	return out
}

func claimResponse(c domain.ClaimSplit) dto.ClaimResponse {
	return dto.ClaimResponse{
		BetID:       c.BetID,
		RoundID:     c.RoundID,
		Bettor:      c.Bettor,
		Caller:      c.Caller,
		PayoutCents: c.PayoutCents,
		BountyCents: c.BountyCents,
		WinnerCents: c.WinnerCents(),
	}
}

func settlementResponse(r domain.SettlementResult) dto.SettlementResponse {
	names := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		names[i] = string(o)
	}
	return dto.SettlementResponse{
		RoundID:       r.RoundID,
		Outcomes:      names,
		WonBets:       r.WonBets,
		LostBets:      r.LostBets,
		EscrowCents:   r.EscrowCents,
		SurplusCents:  r.SurplusCents,
		SweepDeadline: r.SweepDeadline,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch de.Class {
	case domain.ClassValidation:
		status = http.StatusBadRequest
	case domain.ClassState:
		status = http.StatusConflict
		if de.Code == "NOT_FOUND" {
			status = http.StatusNotFound
		}
	case domain.ClassSolvency:
		status = http.StatusConflict
	case domain.ClassAuthorization:
		status = http.StatusForbidden
	case domain.ClassExternal:
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
		Class:   string(de.Class),
		Code:    de.Code,
		Message: de.Message,
	})
}
