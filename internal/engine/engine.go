// Package engine is the settlement engine facade. It owns the oracle
// registry, the policy store, the payout queue, and the treasury ledger,
// and drives every operation across them.
//
// Lock ordering: queue entry, then policy record, then treasury ledger.
// Every multi-entity operation acquires in that order, never the reverse.
package engine

import (
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/rs/zerolog"

	"github.com/siglab/settlement/internal/audit"
	"github.com/siglab/settlement/internal/oracle"
	"github.com/siglab/settlement/internal/payout"
	"github.com/siglab/settlement/internal/policy"
	"github.com/siglab/settlement/internal/treasury"
	"github.com/siglab/settlement/internal/types"
)

// Authorizer resolves which callers hold the admin authority.
type Authorizer interface {
	IsAdmin(caller string) bool
}

// Clock supplies the engine's notion of now, in unix seconds.
type Clock interface {
	Now() int64
}

// FundMover performs the actual asset transfers backing ledger entries.
// Collect pulls funds from a payer into the pool; Disburse pays out of it.
type FundMover interface {
	Collect(asset types.AssetClass, amount uint64, from string) error
	Disburse(asset types.AssetClass, amount uint64, to string) error
}

// Engine wires the components together behind one operation surface.
type Engine struct {
	params    types.Params
	log       zerolog.Logger
	registry  *oracle.Registry
	consensus *oracle.Engine
	policies  *policy.Store
	queue     *payout.Queue
	ledger    *treasury.Ledger
	audit     audit.Sink
	auth      Authorizer
	clock     Clock
	funds     FundMover

	pauseMu  sync.Mutex
	paused   bool
	pausedBy string
}

// New builds an engine from validated params and its collaborators.
func New(params types.Params, log zerolog.Logger, auth Authorizer, clock Clock, funds FundMover, sink audit.Sink) *Engine {
	return &Engine{
		params:    params,
		log:       log.With().Str("component", "engine").Logger(),
		registry:  oracle.NewRegistry(params),
		consensus: oracle.NewEngine(params),
		policies:  policy.NewStore(params),
		queue:     payout.NewQueue(params),
		ledger:    treasury.NewLedger(),
		audit:     sink,
		auth:      auth,
		clock:     clock,
		funds:     funds,
	}
}

func (e *Engine) requireAdmin(caller string) error {
	if !e.auth.IsAdmin(caller) {
		return errorsmod.Wrapf(types.ErrUnauthorized, "%s lacks admin authority", caller)
	}
	return nil
}

func (e *Engine) requireRunning() error {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()
	if e.paused {
		return errorsmod.Wrapf(types.ErrPaused, "paused by %s", e.pausedBy)
	}
	return nil
}

// Pause blocks every mutating operation until Resume. Admin only.
func (e *Engine) Pause(caller string) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()
	if e.paused {
		return errorsmod.Wrap(types.ErrInvalidState, "already paused")
	}
	e.paused = true
	e.pausedBy = caller
	now := e.clock.Now()
	e.log.Warn().Str("admin", caller).Msg("engine paused")
	e.audit.Emit(types.ContractPausedEvent{Admin: caller, Timestamp: now})
	return nil
}

// Resume lifts a pause. Admin only.
func (e *Engine) Resume(caller string) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}

	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()
	if !e.paused {
		return errorsmod.Wrap(types.ErrInvalidState, "not paused")
	}
	e.paused = false
	e.pausedBy = ""
	e.log.Info().Str("admin", caller).Msg("engine resumed")
	e.audit.Emit(types.ContractResumedEvent{Admin: caller, Timestamp: e.clock.Now()})
	return nil
}

// Paused reports the pause state.
func (e *Engine) Paused() bool {
	e.pauseMu.Lock()
	defer e.pauseMu.Unlock()
	return e.paused
}
