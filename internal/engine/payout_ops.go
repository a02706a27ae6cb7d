package engine

import (
	"errors"

	errorsmod "cosmossdk.io/errors"

	"github.com/siglab/settlement/internal/metrics"
	"github.com/siglab/settlement/internal/policy"
	"github.com/siglab/settlement/internal/types"
)

// TriggerPayout evaluates a policy's trigger against fresh oracle consensus
// and, when it fires, admits a claim to the payout queue. Permissionless:
// the trusted value comes from consensus, not from the caller.
//
// Evaluation, admission, and the Active -> PendingPayout transition run as
// one critical section under the policy lock, so concurrent triggers on the
// same policy admit at most one claim.
func (e *Engine) TriggerPayout(caller, policyID string) (types.PendingPayout, error) {
	if err := e.requireRunning(); err != nil {
		return types.PendingPayout{}, err
	}

	now := e.clock.Now()
	p, err := e.policies.Get(policyID)
	if err != nil {
		return types.PendingPayout{}, err
	}
	if _, err = e.expireIfEnded(p); err != nil {
		return types.PendingPayout{}, err
	}

	var admitted types.PendingPayout
	var res *types.ConsensusResult
	if _, err := e.policies.Update(policyID, now, func(pol *types.Policy) error {
		if pol.Status == types.PolicyExpired {
			return errorsmod.Wrap(types.ErrPolicyExpired, policyID)
		}
		if pol.Status != types.PolicyActive {
			return errorsmod.Wrapf(types.ErrPolicyNotActive, "policy %s is %s", policyID, pol.Status)
		}
		if !policy.WaitingPeriodElapsed(pol, now) {
			return errorsmod.Wrapf(types.ErrWaitingPeriod,
				"policy %s waiting period of %d hours not elapsed", policyID, pol.WaitingPeriodHours)
		}

		var cerr error
		res, cerr = e.consensus.Compute(e.registry.Snapshot(), int(pol.Oracle.RequiredConfirmations), now)
		if cerr != nil {
			return cerr
		}
		if !policy.TriggerMet(pol.Trigger, res.Value) {
			return errorsmod.Wrapf(types.ErrTriggerNotMet,
				"consensus value %d does not satisfy the trigger", res.Value)
		}

		severity := policy.Severity(pol.Trigger, res.Value)
		amount, aerr := policy.PayoutAmount(pol.CoverageAmount, pol.Deductible, severity, pol.MaxPayoutPerIncident)
		if aerr != nil {
			return aerr
		}
		if amount == 0 {
			return errorsmod.Wrap(types.ErrZeroPayout,
				"computed payout does not clear the deductible")
		}

		admitted, cerr = e.queue.Admit(types.PendingPayout{
			PolicyID:      policyID,
			Amount:        amount,
			Priority:      policy.Priority(pol.Type, severity),
			Beneficiary:   pol.Owner,
			OracleValue:   res.Value,
			SeverityScore: severity,
		}, e.ledger.PremiumsCollected(), now)
		if cerr != nil {
			return cerr
		}
		pol.Status = types.PolicyPendingPayout
		return nil
	}); err != nil {
		return types.PendingPayout{}, err
	}

	metrics.PayoutsTriggered.Inc()
	e.log.Info().
		Str("policy", policyID).
		Str("payout", admitted.ID).
		Uint64("amount", admitted.Amount).
		Uint64("consensus_value", res.Value).
		Uint8("severity", admitted.SeverityScore).
		Msg("payout triggered")
	e.audit.Emit(types.PayoutTriggeredEvent{
		PolicyID:    policyID,
		PayoutID:    admitted.ID,
		Beneficiary: admitted.Beneficiary,
		Amount:      admitted.Amount,
		OracleValue: res.Value,
		Timestamp:   now,
	})
	return admitted, nil
}

// ApprovePayout releases a held claim for execution. Admin only.
func (e *Engine) ApprovePayout(caller, payoutID string) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}

	now := e.clock.Now()
	approved, err := e.queue.Approve(payoutID, caller, now)
	if err != nil {
		e.releaseLapsedClaim(payoutID, err)
		return err
	}
	e.audit.Emit(types.PayoutApprovedEvent{
		PolicyID:  approved.PolicyID,
		PayoutID:  payoutID,
		Admin:     caller,
		Amount:    approved.Amount,
		Timestamp: now,
	})
	return nil
}

// RejectPayout declines a held claim and returns its policy to Active so a
// later trigger can claim again. Admin only.
func (e *Engine) RejectPayout(caller, payoutID, reason string) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if err := e.requireRunning(); err != nil {
		return err
	}

	now := e.clock.Now()
	rejected, err := e.queue.Reject(payoutID, caller, reason, now)
	if err != nil {
		e.releaseLapsedClaim(payoutID, err)
		return err
	}
	if err := e.reactivatePolicy(rejected.PolicyID, now); err != nil {
		return err
	}
	e.audit.Emit(types.PayoutRejectedEvent{
		PolicyID:  rejected.PolicyID,
		PayoutID:  payoutID,
		Admin:     caller,
		Reason:    reason,
		Timestamp: now,
	})
	return nil
}

// ExecutePayout settles a ready claim: the treasury is debited, funds move
// to the beneficiary, and the policy closes as paid out. The settlement runs
// under the queue entry lock and the policy lock together; a failure at any
// stage leaves queue, policy, and treasury untouched. The policy must still
// be in PendingPayout, so a claim whose policy has since closed cannot
// settle a second payment.
func (e *Engine) ExecutePayout(caller, payoutID string) (types.PendingPayout, error) {
	if err := e.requireRunning(); err != nil {
		return types.PendingPayout{}, err
	}

	now := e.clock.Now()
	executed, err := e.queue.Execute(payoutID, now, func(pp *types.PendingPayout) error {
		settled, err := e.policies.Update(pp.PolicyID, now, func(pol *types.Policy) error {
			if pol.Status != types.PolicyPendingPayout {
				return errorsmod.Wrapf(types.ErrInvalidState,
					"policy %s is %s, not awaiting settlement", pp.PolicyID, pol.Status)
			}
			if err := e.ledger.SettlePayout(pol.Asset, pp.Amount, func() error {
				return e.funds.Disburse(pol.Asset, pp.Amount, pp.Beneficiary)
			}); err != nil {
				return err
			}
			pol.Status = types.PolicyPaidOut
			pol.PayoutHistory = append(pol.PayoutHistory, types.PayoutRecord{
				Amount:      pp.Amount,
				Timestamp:   now,
				OracleValue: pp.OracleValue,
			})
			return nil
		})
		if err != nil {
			return err
		}
		return e.ledger.ReleaseExposure(settled.Asset, settled.CoverageAmount)
	})
	if err != nil {
		e.releaseLapsedClaim(payoutID, err)
		return types.PendingPayout{}, err
	}

	metrics.PayoutsExecuted.Inc()
	metrics.PayoutAmountSettled.Add(float64(executed.Amount))
	e.log.Info().
		Str("policy", executed.PolicyID).
		Str("payout", payoutID).
		Uint64("amount", executed.Amount).
		Str("beneficiary", executed.Beneficiary).
		Msg("payout executed")
	e.audit.Emit(types.PayoutExecutedEvent{
		PolicyID:    executed.PolicyID,
		PayoutID:    payoutID,
		Beneficiary: executed.Beneficiary,
		Amount:      executed.Amount,
		Timestamp:   now,
	})
	return executed, nil
}

// GetPayout returns one queue entry. Observing a lapsed entry releases its
// policy back to Active.
func (e *Engine) GetPayout(payoutID string) (types.PendingPayout, error) {
	pp, err := e.queue.Get(payoutID, e.clock.Now())
	if err != nil {
		return types.PendingPayout{}, err
	}
	if pp.Status == types.PayoutExpired {
		e.releaseLapsedClaim(payoutID, types.ErrPayoutExpired)
	}
	return pp, nil
}

// releaseLapsedClaim returns the policy behind an expired queue entry to
// Active. Expiry is detected lazily, so whichever operation first observes
// the lapse performs the release; without it the policy would stay parked in
// PendingPayout with its exposure held forever.
func (e *Engine) releaseLapsedClaim(payoutID string, cause error) {
	if !errors.Is(cause, types.ErrPayoutExpired) {
		return
	}
	now := e.clock.Now()
	pp, err := e.queue.Get(payoutID, now)
	if err != nil || pp.Status != types.PayoutExpired {
		return
	}
	if err := e.reactivatePolicy(pp.PolicyID, now); err != nil {
		e.log.Warn().Err(err).
			Str("policy", pp.PolicyID).
			Str("payout", payoutID).
			Msg("could not reactivate policy for lapsed claim")
		return
	}
	e.log.Info().Str("policy", pp.PolicyID).Str("payout", payoutID).Msg("claim lapsed, policy released")
}

// reactivatePolicy returns a PendingPayout policy to Active; any other
// status is left alone.
func (e *Engine) reactivatePolicy(policyID string, now int64) error {
	_, err := e.policies.Update(policyID, now, func(pol *types.Policy) error {
		if pol.Status == types.PolicyPendingPayout {
			pol.Status = types.PolicyActive
		}
		return nil
	})
	return err
}

// ReadyBatch returns claims ready for settlement, highest priority first.
func (e *Engine) ReadyBatch(limit int) []types.PendingPayout {
	return e.queue.ReadyBatch(e.clock.Now(), limit)
}

// QueueStats summarizes the payout queue.
func (e *Engine) QueueStats() types.QueueStats {
	stats := e.queue.Stats(e.clock.Now())
	pending := stats.Size
	for _, status := range []types.PayoutStatus{types.PayoutExecuted, types.PayoutRejected, types.PayoutExpired} {
		pending -= stats.CountByStatus[status.String()]
	}
	metrics.QueueDepth.Set(float64(pending))
	return stats
}
