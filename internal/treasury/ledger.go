// Package treasury tracks the funds backing issued coverage and enforces
// the reserve ratio that keeps the pool solvent. Balances are kept per
// asset class; premiums, payouts, and coverage exposure are booked against
// the asset of the policy they belong to.
package treasury

import (
	"sync"

	errorsmod "cosmossdk.io/errors"

	"github.com/siglab/settlement/internal/types"
)

// book is the per-asset accounting state.
type book struct {
	balance  uint64
	premiums uint64
	payouts  uint64
	exposure uint64
}

// Ledger is the treasury state. All operations run under one lock: the
// solvency checks read every book, so per-book locking would buy nothing.
type Ledger struct {
	mu          sync.Mutex
	books       map[types.AssetClass]*book
	minRatioBps uint16
	initialized bool

	depositCount    uint64
	withdrawalCount uint64
	txCount         uint64
}

// NewLedger builds an uninitialized ledger. Initialize must be called with
// a minimum reserve ratio before any funds move.
func NewLedger() *Ledger {
	return &Ledger{
		books: map[types.AssetClass]*book{
			types.AssetStable: {},
			types.AssetNative: {},
		},
	}
}

// Initialize sets the minimum reserve ratio, in basis points. The ratio must
// fall within the configured floor and ceiling and can only be set once.
func (l *Ledger) Initialize(minRatioBps uint16) error {
	if minRatioBps < types.MinReserveRatioFloorBps || minRatioBps > types.MinReserveRatioCeilBps {
		return errorsmod.Wrapf(types.ErrInvalidReserveRatio, "%d outside [%d, %d]",
			minRatioBps, types.MinReserveRatioFloorBps, types.MinReserveRatioCeilBps)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return errorsmod.Wrap(types.ErrInvalidState, "treasury already initialized")
	}
	l.minRatioBps = minRatioBps
	l.initialized = true
	return nil
}

func (l *Ledger) bookFor(asset types.AssetClass) (*book, error) {
	if !l.initialized {
		return nil, errorsmod.Wrap(types.ErrNotInitialized, "treasury")
	}
	b, ok := l.books[asset]
	if !ok {
		return nil, errorsmod.Wrapf(types.ErrInvalidInput, "asset class %d not enumerated", asset)
	}
	return b, nil
}

// requiredReserve is the balance the book must hold for its exposure at the
// given ratio.
func requiredReserve(exposure uint64, ratioBps uint16) (uint64, error) {
	scaled, err := types.SafeMul(exposure, uint64(ratioBps))
	if err != nil {
		return 0, err
	}
	return scaled / 10_000, nil
}

// reserveRatioBps scores balance against exposure in basis points, capped at
// 10000. A book with no exposure is fully reserved.
func reserveRatioBps(balance, exposure uint64) uint16 {
	if exposure == 0 {
		return 10_000
	}
	scaled, err := types.SafeMul(balance, 10_000)
	if err != nil {
		// Balance dwarfs any realistic exposure here.
		return 10_000
	}
	ratio := scaled / exposure
	if ratio > 10_000 {
		ratio = 10_000
	}
	return uint16(ratio)
}

// availableLiquidity is the balance above the reserve requirement, the most
// an admin withdrawal may take.
func availableLiquidity(b *book, ratioBps uint16) (uint64, error) {
	required, err := requiredReserve(b.exposure, ratioBps)
	if err != nil {
		return 0, err
	}
	return types.SaturatingSub(b.balance, required), nil
}

// Deposit credits the book for the asset.
func (l *Ledger) Deposit(asset types.AssetClass, amount uint64) error {
	if amount == 0 {
		return errorsmod.Wrap(types.ErrInvalidInput, "deposit amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookFor(asset)
	if err != nil {
		return err
	}
	balance, err := types.SafeAdd(b.balance, amount)
	if err != nil {
		return err
	}
	b.balance = balance
	l.depositCount++
	l.txCount++
	return nil
}

// Withdraw debits the book for an admin withdrawal. The amount must leave
// the reserve requirement intact; funds locked behind exposure cannot be
// taken out this way. The transfer callback runs under the ledger lock and
// a non-nil error from it rolls the withdrawal back.
func (l *Ledger) Withdraw(asset types.AssetClass, amount uint64, transfer func() error) error {
	if amount == 0 {
		return errorsmod.Wrap(types.ErrInvalidInput, "withdrawal amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookFor(asset)
	if err != nil {
		return err
	}
	if b.balance < amount {
		return errorsmod.Wrapf(types.ErrInsufficientTreasury, "balance %d, requested %d", b.balance, amount)
	}
	liquid, err := availableLiquidity(b, l.minRatioBps)
	if err != nil {
		return err
	}
	if amount > liquid {
		return errorsmod.Wrapf(types.ErrReserveRatioViolation,
			"withdrawal %d exceeds available liquidity %d", amount, liquid)
	}

	if err := transfer(); err != nil {
		return errorsmod.Wrap(types.ErrTransferFailed, err.Error())
	}

	b.balance -= amount
	l.withdrawalCount++
	l.txCount++
	return nil
}

// RecordPremium books a collected premium: the funds enter the balance and
// the premium counter that sizes the payout approval threshold.
func (l *Ledger) RecordPremium(asset types.AssetClass, amount uint64) error {
	if amount == 0 {
		return errorsmod.Wrap(types.ErrInvalidInput, "premium amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookFor(asset)
	if err != nil {
		return err
	}
	balance, err := types.SafeAdd(b.balance, amount)
	if err != nil {
		return err
	}
	premiums, err := types.SafeAdd(b.premiums, amount)
	if err != nil {
		return err
	}
	b.balance = balance
	b.premiums = premiums
	l.txCount++
	return nil
}

// CanCover checks whether taking on additional coverage keeps the book
// solvent: the balance must meet the reserve requirement for the enlarged
// exposure. This is the issuance gate; it does not mutate state.
func (l *Ledger) CanCover(asset types.AssetClass, coverage uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookFor(asset)
	if err != nil {
		return err
	}
	exposure, err := types.SafeAdd(b.exposure, coverage)
	if err != nil {
		return err
	}
	required, err := requiredReserve(exposure, l.minRatioBps)
	if err != nil {
		return err
	}
	if b.balance < required {
		return errorsmod.Wrapf(types.ErrSolvencyCheckFailed,
			"balance %d below required reserve %d for exposure %d", b.balance, required, exposure)
	}
	return nil
}

// AddExposure books newly issued coverage against the asset.
func (l *Ledger) AddExposure(asset types.AssetClass, coverage uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookFor(asset)
	if err != nil {
		return err
	}
	exposure, err := types.SafeAdd(b.exposure, coverage)
	if err != nil {
		return err
	}
	b.exposure = exposure
	return nil
}

// ReleaseExposure removes coverage that no longer binds the pool, when a
// policy pays out, is cancelled, or expires. Saturates at zero.
func (l *Ledger) ReleaseExposure(asset types.AssetClass, coverage uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookFor(asset)
	if err != nil {
		return err
	}
	b.exposure = types.SaturatingSub(b.exposure, coverage)
	return nil
}

// SettlePayout debits a claim under the ledger lock. The transfer callback
// performs the external fund movement; a non-nil error from it rolls the
// settlement back entirely, so no partial state is ever observable.
// Payout settlement may dip into reserves; only the balance bounds it.
func (l *Ledger) SettlePayout(asset types.AssetClass, amount uint64, transfer func() error) error {
	if amount == 0 {
		return errorsmod.Wrap(types.ErrZeroPayout, "settlement amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookFor(asset)
	if err != nil {
		return err
	}
	if b.balance < amount {
		return errorsmod.Wrapf(types.ErrInsufficientTreasury, "balance %d, payout %d", b.balance, amount)
	}
	payouts, err := types.SafeAdd(b.payouts, amount)
	if err != nil {
		return err
	}

	if err := transfer(); err != nil {
		return errorsmod.Wrap(types.ErrTransferFailed, err.Error())
	}

	b.balance -= amount
	b.payouts = payouts
	l.txCount++
	return nil
}

// UpdateMinimumRatio tightens or loosens the reserve requirement. The new
// ratio must stay within the configured bounds and every book must already
// hold enough balance to satisfy it.
func (l *Ledger) UpdateMinimumRatio(minRatioBps uint16) error {
	if minRatioBps < types.MinReserveRatioFloorBps || minRatioBps > types.MinReserveRatioCeilBps {
		return errorsmod.Wrapf(types.ErrInvalidReserveRatio, "%d outside [%d, %d]",
			minRatioBps, types.MinReserveRatioFloorBps, types.MinReserveRatioCeilBps)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return errorsmod.Wrap(types.ErrNotInitialized, "treasury")
	}
	for asset, b := range l.books {
		required, err := requiredReserve(b.exposure, minRatioBps)
		if err != nil {
			return err
		}
		if b.balance < required {
			return errorsmod.Wrapf(types.ErrReserveRatioViolation,
				"%s balance %d below required reserve %d at %d bps", asset, b.balance, required, minRatioBps)
		}
	}
	l.minRatioBps = minRatioBps
	return nil
}

// PremiumsCollected reports total premiums booked across all assets.
func (l *Ledger) PremiumsCollected() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total uint64
	for _, b := range l.books {
		total += b.premiums
	}
	return total
}

// Balance reports the current balance of one book.
func (l *Ledger) Balance(asset types.AssetClass) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookFor(asset)
	if err != nil {
		return 0, err
	}
	return b.balance, nil
}

// AvailableLiquidity reports how much an admin withdrawal could take from
// one book without breaching the reserve requirement.
func (l *Ledger) AvailableLiquidity(asset types.AssetClass) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookFor(asset)
	if err != nil {
		return 0, err
	}
	return availableLiquidity(b, l.minRatioBps)
}

// ReserveRatioBps reports the pool-wide reserve ratio: total balance against
// total exposure, in basis points, capped at 10000.
func (l *Ledger) ReserveRatioBps() uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var balance, exposure uint64
	for _, b := range l.books {
		balance += b.balance
		exposure += b.exposure
	}
	return reserveRatioBps(balance, exposure)
}

// MinimumRatioBps reports the configured reserve floor.
func (l *Ledger) MinimumRatioBps() uint16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minRatioBps
}

// Report snapshots the treasury across all books.
func (l *Ledger) Report(now int64) types.FinancialReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	var balance, premiums, payouts, exposure, liquidity uint64
	for _, b := range l.books {
		balance += b.balance
		premiums += b.premiums
		payouts += b.payouts
		exposure += b.exposure
		if liquid, err := availableLiquidity(b, l.minRatioBps); err == nil {
			liquidity += liquid
		}
	}
	return types.FinancialReport{
		TotalBalance:       balance,
		ReserveRatioBps:    reserveRatioBps(balance, exposure),
		TotalPremiums:      premiums,
		TotalPayouts:       payouts,
		NetResult:          int64(premiums) - int64(payouts),
		CoverageExposure:   exposure,
		AvailableLiquidity: liquidity,
		TransactionCount:   l.txCount,
		DepositCount:       l.depositCount,
		WithdrawalCount:    l.withdrawalCount,
		Timestamp:          now,
	}
}
