package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/parimutuel-engine/internal/engine/domain"
)

// DepositReserves credits the protocol reserve. Administrative only; the
// HTTP layer enforces the admin token.
func (e *Engine) DepositReserves(ctx context.Context, amountCents int64) (domain.Reserve, error) {
	if amountCents <= 0 {
		return domain.Reserve{}, domain.ErrInvalidAmount
	}
	res, err := e.store.DepositReserves(ctx, amountCents)
	if err != nil {
		return domain.Reserve{}, err
	}

	e.log.Info("reserves deposited", zap.Int64("amountCents", amountCents))
	e.observeReserve(res)
	return res, nil
}

// WithdrawReserves debits the available reserve and transfers it out. The
// withdrawal commits before the outbound transfer runs.
func (e *Engine) WithdrawReserves(ctx context.Context, amountCents int64, to string) (domain.Reserve, error) {
	if amountCents <= 0 {
		return domain.Reserve{}, domain.ErrInvalidAmount
	}
	res, err := e.store.WithdrawReserves(ctx, amountCents)
	if err != nil {
		return domain.Reserve{}, err
	}

	if err := e.wallet.Credit(ctx, to, amountCents, "reserve-withdraw"); err != nil {
		e.log.Error("reserve withdrawal transfer", zap.String("to", to), zap.Error(err))
	}

	e.log.Info("reserves withdrawn", zap.Int64("amountCents", amountCents), zap.String("to", to))
	e.observeReserve(res)
	return res, nil
}

// GetAvailableReserves returns (available, locked, total).
func (e *Engine) GetAvailableReserves(ctx context.Context) (int64, int64, int64, error) {
	res, err := e.store.GetReserve(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	e.observeReserve(res)
	return res.AvailableCents, res.LockedCents, res.Total(), nil
}

func (e *Engine) GetSeasonPool(ctx context.Context, seasonID string) (int64, error) {
	return e.store.GetSeasonPool(ctx, seasonID)
}

func (e *Engine) observeReserve(res domain.Reserve) {
	reserveAvailable.Set(float64(res.AvailableCents) / 100)
	reserveLocked.Set(float64(res.LockedCents) / 100)
}
