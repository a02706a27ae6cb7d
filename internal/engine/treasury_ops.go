package engine

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/siglab/settlement/internal/metrics"
	"github.com/siglab/settlement/internal/types"
)

// InitializeTreasury sets the minimum reserve ratio, once. Admin only.
func (e *Engine) InitializeTreasury(caller string, minRatioBps uint16) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.ledger.Initialize(minRatioBps); err != nil {
		return err
	}
	e.log.Info().Uint16("min_ratio_bps", minRatioBps).Msg("treasury initialized")
	return nil
}

// Deposit moves funds from the caller into the pool.
func (e *Engine) Deposit(caller string, asset types.AssetClass, amount uint64) error {
	if err := e.requireRunning(); err != nil {
		return err
	}

	if err := e.funds.Collect(asset, amount, caller); err != nil {
		return errorsmod.Wrap(types.ErrTransferFailed, err.Error())
	}
	if err := e.ledger.Deposit(asset, amount); err != nil {
		return err
	}

	e.observeTreasury()
	e.audit.Emit(types.TreasuryDepositedEvent{Depositor: caller, Amount: amount, Asset: asset, Timestamp: e.clock.Now()})
	return nil
}

// Withdraw moves surplus liquidity out of the pool to the caller. Funds
// backing the reserve requirement cannot be withdrawn. Admin only.
func (e *Engine) Withdraw(caller string, asset types.AssetClass, amount uint64, reason string) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}

	if err := e.ledger.Withdraw(asset, amount, func() error {
		return e.funds.Disburse(asset, amount, caller)
	}); err != nil {
		return err
	}

	e.observeTreasury()
	e.log.Info().
		Str("admin", caller).
		Uint64("amount", amount).
		Str("reason", reason).
		Msg("treasury withdrawal")
	e.audit.Emit(types.TreasuryWithdrawnEvent{Admin: caller, Amount: amount, Asset: asset, Reason: reason, Timestamp: e.clock.Now()})
	return nil
}

// UpdateMinimumReserveRatio changes the reserve floor. Admin only.
func (e *Engine) UpdateMinimumReserveRatio(caller string, minRatioBps uint16) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}
	if err := e.ledger.UpdateMinimumRatio(minRatioBps); err != nil {
		return err
	}
	e.log.Info().Uint16("min_ratio_bps", minRatioBps).Msg("minimum reserve ratio updated")
	return nil
}

// FinancialReport snapshots the treasury.
func (e *Engine) FinancialReport() types.FinancialReport {
	report := e.ledger.Report(e.clock.Now())
	metrics.ReserveRatio.Set(float64(report.ReserveRatioBps))
	return report
}

// observeTreasury refreshes the per-asset balance gauges.
func (e *Engine) observeTreasury() {
	for _, asset := range []types.AssetClass{types.AssetStable, types.AssetNative} {
		if balance, err := e.ledger.Balance(asset); err == nil {
			metrics.TreasuryBalance.WithLabelValues(asset.String()).Set(float64(balance))
		}
	}
	metrics.ReserveRatio.Set(float64(e.ledger.ReserveRatioBps()))
}
