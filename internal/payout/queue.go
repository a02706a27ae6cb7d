// Package payout is the lifecycle state machine for claims awaiting
// settlement. Entries progress Pending -> {PendingApproval, Ready} ->
// {Executed, Rejected, Expired}; terminal states are final.
package payout

import (
	"sort"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"

	"github.com/siglab/settlement/internal/types"
)

type entry struct {
	mu     sync.Mutex
	payout types.PendingPayout
}

// Queue is a capacity-checked keyed store of pending payouts.
type Queue struct {
	mu      sync.RWMutex
	entries map[string]*entry
	params  types.Params
}

// NewQueue builds an empty queue bounded by params.MaxQueueSize.
func NewQueue(params types.Params) *Queue {
	return &Queue{
		entries: make(map[string]*entry),
		params:  params,
	}
}

// Admit creates a queue entry for a fired trigger. Claims larger than a
// tenth of collected premiums start in PendingApproval; the rest start
// Ready. The amount must be positive.
func (q *Queue) Admit(p types.PendingPayout, premiumsCollected uint64, now int64) (types.PendingPayout, error) {
	if p.Amount == 0 {
		return types.PendingPayout{}, errorsmod.Wrap(types.ErrInvalidInput, "payout amount must be positive")
	}
	if p.PolicyID == "" || p.Beneficiary == "" {
		return types.PendingPayout{}, errorsmod.Wrap(types.ErrInvalidInput, "policy id and beneficiary are required")
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = now
	p.ExpiresAt = now + q.params.PayoutTTL
	if p.Amount > premiumsCollected/uint64(q.params.ApprovalDivisor) {
		p.Status = types.PayoutPendingApproval
	} else {
		p.Status = types.PayoutReady
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[p.ID]; ok {
		return types.PendingPayout{}, errorsmod.Wrapf(types.ErrInvalidState, "payout %s already queued", p.ID)
	}
	if len(q.entries) >= q.params.MaxQueueSize {
		return types.PendingPayout{}, errorsmod.Wrapf(types.ErrQueueFull, "capacity %d", q.params.MaxQueueSize)
	}

	q.entries[p.ID] = &entry{payout: p}
	return p, nil
}

func (q *Queue) lookup(id string) (*entry, error) {
	q.mu.RLock()
	e, ok := q.entries[id]
	q.mu.RUnlock()
	if !ok {
		return nil, errorsmod.Wrap(types.ErrPayoutNotFound, id)
	}
	return e, nil
}

// expireLocked lazily transitions a non-terminal entry past its settlement
// window to Expired. Caller holds the entry lock.
func expireLocked(p *types.PendingPayout, now int64) {
	if !p.Status.Terminal() && p.Expired(now) {
		p.Status = types.PayoutExpired
	}
}

// Get returns a copy of the entry, applying lazy expiry first.
func (q *Queue) Get(id string, now int64) (types.PendingPayout, error) {
	e, err := q.lookup(id)
	if err != nil {
		return types.PendingPayout{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	expireLocked(&e.payout, now)
	return e.payout, nil
}

// Approve moves a PendingApproval entry to Ready, recording the approver.
func (q *Queue) Approve(id, approver string, now int64) (types.PendingPayout, error) {
	e, err := q.lookup(id)
	if err != nil {
		return types.PendingPayout{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	expireLocked(&e.payout, now)
	if e.payout.Status == types.PayoutExpired {
		return types.PendingPayout{}, errorsmod.Wrap(types.ErrPayoutExpired, id)
	}
	if e.payout.Status != types.PayoutPendingApproval {
		return types.PendingPayout{}, errorsmod.Wrapf(types.ErrInvalidState,
			"cannot approve payout in status %s", e.payout.Status)
	}

	e.payout.Status = types.PayoutReady
	e.payout.ApprovedBy = approver
	e.payout.ApprovedAt = now
	return e.payout, nil
}

// Reject moves a PendingApproval entry to Rejected with the given reason.
func (q *Queue) Reject(id, approver, reason string, now int64) (types.PendingPayout, error) {
	e, err := q.lookup(id)
	if err != nil {
		return types.PendingPayout{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	expireLocked(&e.payout, now)
	if e.payout.Status == types.PayoutExpired {
		return types.PendingPayout{}, errorsmod.Wrap(types.ErrPayoutExpired, id)
	}
	if e.payout.Status != types.PayoutPendingApproval {
		return types.PendingPayout{}, errorsmod.Wrapf(types.ErrInvalidState,
			"cannot reject payout in status %s", e.payout.Status)
	}

	e.payout.Status = types.PayoutRejected
	e.payout.ApprovedBy = approver
	e.payout.RejectionReason = reason
	return e.payout, nil
}

// Execute settles a Ready, unexpired entry. The settle callback runs under
// the entry lock and performs the fund movement and ledger/policy updates;
// a non-nil error from it leaves the entry untouched. On success the entry
// becomes Executed and is closed to further mutation, so a second execution
// of the same entry always fails.
func (q *Queue) Execute(id string, now int64, settle func(p *types.PendingPayout) error) (types.PendingPayout, error) {
	e, err := q.lookup(id)
	if err != nil {
		return types.PendingPayout{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	expireLocked(&e.payout, now)
	if e.payout.Status == types.PayoutExpired {
		return types.PendingPayout{}, errorsmod.Wrap(types.ErrPayoutExpired, id)
	}
	if e.payout.Status != types.PayoutReady {
		return types.PendingPayout{}, errorsmod.Wrapf(types.ErrInvalidState,
			"cannot execute payout in status %s", e.payout.Status)
	}

	if err := settle(&e.payout); err != nil {
		return types.PendingPayout{}, err
	}

	e.payout.Status = types.PayoutExecuted
	return e.payout, nil
}

// ReadyBatch returns up to limit ready, unexpired entries ordered by
// priority descending, then creation time ascending. This ordering is the
// queue's only externally visible guarantee. A non-positive limit returns
// all ready entries.
func (q *Queue) ReadyBatch(now int64, limit int) []types.PendingPayout {
	q.mu.RLock()
	all := make([]*entry, 0, len(q.entries))
	for _, e := range q.entries {
		all = append(all, e)
	}
	q.mu.RUnlock()

	ready := make([]types.PendingPayout, 0, len(all))
	for _, e := range all {
		e.mu.Lock()
		expireLocked(&e.payout, now)
		if e.payout.Status == types.PayoutReady {
			ready = append(ready, e.payout)
		}
		e.mu.Unlock()
	}

	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return ready[i].CreatedAt < ready[j].CreatedAt
	})

	if limit > 0 && len(ready) > limit {
		ready = ready[:limit]
	}
	return ready
}

// Stats aggregates queue state for backpressure decisions: counts by status,
// the total amount still owed on non-terminal entries, and the oldest
// non-terminal creation time.
func (q *Queue) Stats(now int64) types.QueueStats {
	q.mu.RLock()
	all := make([]*entry, 0, len(q.entries))
	for _, e := range q.entries {
		all = append(all, e)
	}
	q.mu.RUnlock()

	stats := types.QueueStats{
		CountByStatus: make(map[string]int),
		Size:          len(all),
	}
	for _, e := range all {
		e.mu.Lock()
		expireLocked(&e.payout, now)
		p := e.payout
		e.mu.Unlock()

		stats.CountByStatus[p.Status.String()]++
		if !p.Status.Terminal() {
			stats.TotalPendingAmount += p.Amount
			if stats.OldestCreatedAt == 0 || p.CreatedAt < stats.OldestCreatedAt {
				stats.OldestCreatedAt = p.CreatedAt
			}
		}
	}
	return stats
}

// Len reports the number of queued entries, terminal included.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}
