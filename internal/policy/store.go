// Package policy holds issued policies and the trigger/payout arithmetic
// that decides whether and how much a claim pays.
package policy

import (
	"sync"

	errorsmod "cosmossdk.io/errors"

	"github.com/siglab/settlement/internal/types"
)

// record pairs a policy with its own lock so operations on distinct policies
// run in parallel.
type record struct {
	mu     sync.Mutex
	policy types.Policy
}

// Store is a capacity-checked keyed store of policies.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	params  types.Params
}

// NewStore builds an empty store bounded by params.MaxPolicies.
func NewStore(params types.Params) *Store {
	return &Store{
		records: make(map[string]*record),
		params:  params,
	}
}

// Create validates and admits a new policy in Active status.
func (s *Store) Create(p types.Policy, now int64) error {
	if p.ID == "" || p.Owner == "" {
		return errorsmod.Wrap(types.ErrInvalidInput, "policy id and owner are required")
	}
	if !p.Type.Valid() {
		return errorsmod.Wrapf(types.ErrInvalidInput, "insurance type %d not enumerated", p.Type)
	}
	if !p.Asset.Valid() {
		return errorsmod.Wrapf(types.ErrInvalidInput, "asset class %d not enumerated", p.Asset)
	}
	if !p.Trigger.Operator.Valid() {
		return errorsmod.Wrapf(types.ErrInvalidInput, "comparator %d not enumerated", p.Trigger.Operator)
	}
	if p.EndDate <= p.StartDate {
		return errorsmod.Wrap(types.ErrInvalidInput, "end date must follow start date")
	}
	if p.PremiumAmount < s.params.MinPremiumAmount {
		return errorsmod.Wrapf(types.ErrPremiumTooLow, "%d below minimum %d", p.PremiumAmount, s.params.MinPremiumAmount)
	}
	if p.CoverageAmount == 0 || p.CoverageAmount > s.params.MaxCoverageAmount {
		return errorsmod.Wrapf(types.ErrCoverageExceedsMax, "%d outside (0, %d]", p.CoverageAmount, s.params.MaxCoverageAmount)
	}
	if p.MaxPayoutPerIncident == 0 {
		p.MaxPayoutPerIncident = p.CoverageAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[p.ID]; ok {
		return errorsmod.Wrapf(types.ErrInvalidState, "policy %s already exists", p.ID)
	}
	if len(s.records) >= s.params.MaxPolicies {
		return errorsmod.Wrapf(types.ErrPolicyStoreFull, "capacity %d", s.params.MaxPolicies)
	}

	p.Status = types.PolicyActive
	p.CreatedAt = now
	p.UpdatedAt = now
	s.records[p.ID] = &record{policy: p}
	return nil
}

func (s *Store) lookup(id string) (*record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errorsmod.Wrap(types.ErrPolicyNotFound, id)
	}
	return rec, nil
}

// Get returns a copy of the policy.
func (s *Store) Get(id string) (types.Policy, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return types.Policy{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return clonePolicy(&rec.policy), nil
}

// Update applies fn to the policy under its lock. A non-nil error from fn
// discards the mutation, leaving the stored policy unchanged.
func (s *Store) Update(id string, now int64, fn func(p *types.Policy) error) (types.Policy, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return types.Policy{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	working := clonePolicy(&rec.policy)
	if err := fn(&working); err != nil {
		return types.Policy{}, err
	}
	working.UpdatedAt = now
	rec.policy = working
	return clonePolicy(&working), nil
}

// Len reports the number of stored policies.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func clonePolicy(p *types.Policy) types.Policy {
	c := *p
	if p.PayoutHistory != nil {
		c.PayoutHistory = append([]types.PayoutRecord(nil), p.PayoutHistory...)
	}
	return c
}
