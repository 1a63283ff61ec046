package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/engine/dto"
	"github.com/radieske/parimutuel-engine/internal/engine/odds"
	"github.com/radieske/parimutuel-engine/internal/engine/service"
	"github.com/radieske/parimutuel-engine/internal/engine/store"
	"github.com/radieske/parimutuel-engine/internal/shared/config"
)

// newTestHandler builds the router over an engine backed by the memory store,
// with a funded reserve and one seeded round whose betting window opens an
// hour from now.
func newTestHandler(t *testing.T) (http.Handler, string) {
	t.Helper()

	params := config.EngineParams{
		MatchesPerRound:       3,
		WinnerShareBps:        5500,
		SeasonShareBps:        200,
		VirtualLiquidityCents: 50_000,
		SeedPerMatchCents:     30_000,
		MinBetCents:           100,
		MaxBetCents:           1_000_000,
		CancelFeeBps:          1000,
		BountyBps:             500,
		MinBountyPayoutCents:  1000,
		ClaimWindow:           24 * time.Hour,
		GracePeriod:           6 * time.Hour,
		ParlayBonusSchedule:   []string{"1.0", "1.15", "1.194"},
	}
	calc, err := odds.NewCalculator(params.WinnerShareBps, params.VirtualLiquidityCents, params.ParlayBonusSchedule)
	require.NoError(t, err)

	eng := service.New(zap.NewNop(), store.NewMemory(), calc, nil, nil, nil, params)

	ctx := context.Background()
	_, err = eng.DepositReserves(ctx, 1_000_000)
	require.NoError(t, err)
	round, err := eng.CreateRound(ctx, "season-1", time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, eng.SeedRound(ctx, round.ID))

	return NewServer(zap.NewNop(), eng, "secret").Router(), round.ID
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLockedOddsEndpoint(t *testing.T) {
	h, roundID := newTestHandler(t)

	rec := get(t, h, "/rounds/"+roundID+"/matches/1/locked-odds")
	require.Equal(t, http.StatusOK, rec.Code)

	var out dto.LockedOddsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, roundID, out.RoundID)
	assert.Equal(t, 1, out.MatchIndex)
	require.Len(t, out.Odds, 3)
	for _, name := range []string{"HOME", "AWAY", "DRAW"} {
		assert.NotEmpty(t, out.Odds[name])
	}
}

func TestLockedOddsEndpointRejectsBadIndex(t *testing.T) {
	h, roundID := newTestHandler(t)

	rec := get(t, h, "/rounds/"+roundID+"/matches/nope/locked-odds")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLockedOddsEndpointUnknownRound(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := get(t, h, "/rounds/no-such-round/matches/0/locked-odds")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedulerPredicateEndpoints(t *testing.T) {
	h, roundID := newTestHandler(t)

	rec := get(t, h, "/rounds/"+roundID+"/settled")
	require.Equal(t, http.StatusOK, rec.Code)
	var settled map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settled))
	assert.False(t, settled["settled"])

	rec = get(t, h, "/rounds/"+roundID+"/can-request-results")
	require.Equal(t, http.StatusOK, rec.Code)
	var ready map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.False(t, ready["canRequestResults"])

	rec = get(t, h, "/rounds/no-such-round/settled")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
