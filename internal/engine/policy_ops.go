package engine

import (
	errorsmod "cosmossdk.io/errors"

	"github.com/siglab/settlement/internal/metrics"
	"github.com/siglab/settlement/internal/types"
)

// CreatePolicy issues a new policy owned by the caller. The coverage must
// pass the treasury solvency gate and the first premium is collected as
// part of issuance.
func (e *Engine) CreatePolicy(caller string, p types.Policy) (types.Policy, error) {
	if err := e.requireRunning(); err != nil {
		return types.Policy{}, err
	}

	p.Owner = caller
	if err := e.ledger.CanCover(p.Asset, p.CoverageAmount); err != nil {
		return types.Policy{}, err
	}

	now := e.clock.Now()
	if err := e.policies.Create(p, now); err != nil {
		return types.Policy{}, err
	}

	// Past this point any failure voids the policy rather than leaving it
	// active with issuance half done.
	void := func() {
		_, _ = e.policies.Update(p.ID, now, func(pol *types.Policy) error {
			pol.Status = types.PolicyCancelled
			return nil
		})
	}

	if err := e.funds.Collect(p.Asset, p.PremiumAmount, caller); err != nil {
		void()
		return types.Policy{}, errorsmod.Wrap(types.ErrTransferFailed, err.Error())
	}
	if err := e.ledger.RecordPremium(p.Asset, p.PremiumAmount); err != nil {
		void()
		return types.Policy{}, err
	}
	if err := e.ledger.AddExposure(p.Asset, p.CoverageAmount); err != nil {
		void()
		return types.Policy{}, err
	}

	created, err := e.policies.Update(p.ID, now, func(pol *types.Policy) error {
		pol.LastPremiumPaid = now
		return nil
	})
	if err != nil {
		return types.Policy{}, err
	}

	metrics.ActivePolicies.Set(float64(e.policies.Len()))
	e.log.Info().
		Str("policy", created.ID).
		Str("owner", caller).
		Uint64("coverage", created.CoverageAmount).
		Msg("policy created")
	e.audit.Emit(types.PolicyCreatedEvent{
		PolicyID: created.ID,
		Owner:    caller,
		Type:     created.Type,
		Coverage: created.CoverageAmount,
		Premium:  created.PremiumAmount,
		Expiry:   created.EndDate,
	})
	e.audit.Emit(types.PremiumPaidEvent{PolicyID: created.ID, Payer: caller, Amount: created.PremiumAmount, Timestamp: now})
	return created, nil
}

// PayPremium collects a renewal premium on an active policy from its owner.
func (e *Engine) PayPremium(caller, policyID string) error {
	if err := e.requireRunning(); err != nil {
		return err
	}

	p, err := e.policies.Get(policyID)
	if err != nil {
		return err
	}
	if p.Owner != caller {
		return errorsmod.Wrapf(types.ErrUnauthorized, "%s does not own policy %s", caller, policyID)
	}
	if p.Status != types.PolicyActive {
		return errorsmod.Wrapf(types.ErrPolicyNotActive, "policy %s is %s", policyID, p.Status)
	}

	now := e.clock.Now()
	if err := e.funds.Collect(p.Asset, p.PremiumAmount, caller); err != nil {
		return errorsmod.Wrap(types.ErrTransferFailed, err.Error())
	}
	if err := e.ledger.RecordPremium(p.Asset, p.PremiumAmount); err != nil {
		return err
	}
	if _, err := e.policies.Update(policyID, now, func(pol *types.Policy) error {
		pol.LastPremiumPaid = now
		return nil
	}); err != nil {
		return err
	}

	e.audit.Emit(types.PremiumPaidEvent{PolicyID: policyID, Payer: caller, Amount: p.PremiumAmount, Timestamp: now})
	return nil
}

// CancelPolicy terminates an active policy and releases its coverage from
// the pool's exposure. Owner or admin.
func (e *Engine) CancelPolicy(caller, policyID string) error {
	if err := e.requireRunning(); err != nil {
		return err
	}

	now := e.clock.Now()
	cancelled, err := e.policies.Update(policyID, now, func(pol *types.Policy) error {
		if pol.Owner != caller && !e.auth.IsAdmin(caller) {
			return errorsmod.Wrapf(types.ErrUnauthorized, "%s may not cancel policy %s", caller, policyID)
		}
		if pol.Status != types.PolicyActive {
			return errorsmod.Wrapf(types.ErrPolicyNotActive, "policy %s is %s", policyID, pol.Status)
		}
		pol.Status = types.PolicyCancelled
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.ledger.ReleaseExposure(cancelled.Asset, cancelled.CoverageAmount); err != nil {
		return err
	}
	e.log.Info().Str("policy", policyID).Str("caller", caller).Msg("policy cancelled")
	e.audit.Emit(types.PolicyCancelledEvent{PolicyID: policyID, Caller: caller, Timestamp: now})
	return nil
}

// GetPolicy returns one policy, lazily marking it expired when its term has
// ended. Expiry releases the policy's exposure.
func (e *Engine) GetPolicy(policyID string) (types.Policy, error) {
	p, err := e.policies.Get(policyID)
	if err != nil {
		return types.Policy{}, err
	}
	return e.expireIfEnded(p)
}

// expireIfEnded applies lazy expiry to an active policy past its end date.
func (e *Engine) expireIfEnded(p types.Policy) (types.Policy, error) {
	now := e.clock.Now()
	if p.Status != types.PolicyActive || now <= p.EndDate {
		return p, nil
	}
	transitioned := false
	expired, err := e.policies.Update(p.ID, now, func(pol *types.Policy) error {
		if pol.Status != types.PolicyActive {
			return nil
		}
		pol.Status = types.PolicyExpired
		transitioned = true
		return nil
	})
	if err != nil {
		return types.Policy{}, err
	}
	if transitioned {
		if err := e.ledger.ReleaseExposure(expired.Asset, expired.CoverageAmount); err != nil {
			return types.Policy{}, err
		}
	}
	return expired, nil
}
