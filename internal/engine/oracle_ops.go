package engine

import (
	"crypto/ed25519"

	errorsmod "cosmossdk.io/errors"

	"github.com/siglab/settlement/internal/metrics"
	"github.com/siglab/settlement/internal/types"
)

// RegisterOracle admits a data source into the registry. Admin only.
func (e *Engine) RegisterOracle(caller, id, authority string, typ types.OracleType, feedAddress string, pub ed25519.PublicKey) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}

	now := e.clock.Now()
	if err := e.registry.Register(id, authority, typ, feedAddress, pub, now); err != nil {
		return err
	}
	e.log.Info().Str("oracle", id).Str("authority", authority).Msg("oracle registered")
	e.audit.Emit(types.OracleRegisteredEvent{OracleID: id, Authority: authority, Type: typ, Timestamp: now})
	return nil
}

// UnregisterOracle removes a data source. Admin only.
func (e *Engine) UnregisterOracle(caller, id string) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}
	return e.registry.Unregister(id)
}

// SetOracleActive toggles whether an oracle participates in consensus.
// Admin only.
func (e *Engine) SetOracleActive(caller, id string, active bool) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}
	return e.registry.SetActive(id, active)
}

// ResetCircuitBreaker clears an oracle's breaker and failure count.
// Admin only.
func (e *Engine) ResetCircuitBreaker(caller, id string) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}
	e.log.Info().Str("oracle", id).Str("admin", caller).Msg("circuit breaker reset")
	return e.registry.ResetCircuitBreaker(id)
}

// SubmitReading validates and stores a signed reading. The caller must be
// the oracle's registered authority.
func (e *Engine) SubmitReading(caller, id string, reading types.Reading) error {
	if err := e.requireRunning(); err != nil {
		return err
	}

	o, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if o.Authority != caller {
		return errorsmod.Wrapf(types.ErrUnauthorized, "%s is not the authority for oracle %s", caller, id)
	}

	now := e.clock.Now()
	if err := e.registry.SubmitReading(id, reading, now); err != nil {
		metrics.ReadingsRejected.WithLabelValues(string(types.ClassOf(err))).Inc()
		return err
	}

	metrics.ReadingsAccepted.Inc()
	e.audit.Emit(types.OracleDataUpdatedEvent{OracleID: id, Value: reading.Value, Timestamp: now})
	return nil
}

// EmergencyOverride force-writes a reading past the validation chain,
// clearing the oracle's breaker state. Admin only.
func (e *Engine) EmergencyOverride(caller, id string, reading types.Reading, reason string) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}

	now := e.clock.Now()
	if err := e.registry.EmergencyOverride(id, reading, now); err != nil {
		return err
	}
	e.log.Warn().
		Str("oracle", id).
		Str("admin", caller).
		Str("reason", reason).
		Uint64("value", reading.Value).
		Msg("emergency oracle override")
	e.audit.Emit(types.EmergencyOverrideEvent{OracleID: id, Admin: caller, Value: reading.Value, Reason: reason, Timestamp: now})
	return nil
}

// GetOracle returns one oracle's state.
func (e *Engine) GetOracle(id string) (types.Oracle, error) {
	return e.registry.Get(id)
}

// Oracles returns the state of every registered oracle.
func (e *Engine) Oracles() []types.Oracle {
	return e.registry.Snapshot()
}

// Consensus computes the aggregated value over the current registry using
// the default threshold.
func (e *Engine) Consensus() (*types.ConsensusResult, error) {
	return e.consensus.Compute(e.registry.Snapshot(), 0, e.clock.Now())
}
