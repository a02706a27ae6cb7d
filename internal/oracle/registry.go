// Package oracle holds the data-feed registry and the consensus engine that
// turns multiple untrusted readings into one trusted value.
package oracle

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	errorsmod "cosmossdk.io/errors"

	"github.com/siglab/settlement/internal/types"
)

const rollingWindow = 86400 // seconds

// record pairs an oracle with its own lock so submissions for distinct
// oracles never serialize against each other.
type record struct {
	mu          sync.Mutex
	oracle      types.Oracle
	windowStart int64
}

// Registry is a capacity-checked keyed store of oracles.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record
	params  types.Params
}

// NewRegistry builds an empty registry bounded by params.MaxOracles.
func NewRegistry(params types.Params) *Registry {
	return &Registry{
		records: make(map[string]*record),
		params:  params,
	}
}

// ReadingDigest is the canonical signing payload for a reading. Oracles sign
// this digest with their registered Ed25519 key.
func ReadingDigest(oracleID string, value uint64, timestamp int64, nonce uint64) []byte {
	buf := make([]byte, 0, len(oracleID)+24)
	buf = append(buf, oracleID...)
	buf = binary.BigEndian.AppendUint64(buf, value)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp))
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	digest := sha256.Sum256(buf)
	return digest[:]
}

// Register adds a new oracle. Fails when the id is taken, the registry is at
// capacity, or the type is not the registry's supported type.
func (r *Registry) Register(id, authority string, typ types.OracleType, feedAddress string, pub ed25519.PublicKey, now int64) error {
	if id == "" || authority == "" {
		return errorsmod.Wrap(types.ErrInvalidInput, "oracle id and authority are required")
	}
	if len(pub) != ed25519.PublicKeySize {
		return errorsmod.Wrapf(types.ErrInvalidInput, "public key must be %d bytes", ed25519.PublicKeySize)
	}
	if typ != r.params.SupportedOracleType {
		return errorsmod.Wrapf(types.ErrUnsupportedType, "registry accepts %s, got %s",
			r.params.SupportedOracleType, typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; ok {
		return errorsmod.Wrap(types.ErrOracleExists, id)
	}
	if len(r.records) >= r.params.MaxOracles {
		return errorsmod.Wrapf(types.ErrRegistryFull, "capacity %d", r.params.MaxOracles)
	}

	r.records[id] = &record{
		oracle: types.Oracle{
			ID:              id,
			Authority:       authority,
			Type:            typ,
			FeedAddress:     feedAddress,
			PublicKey:       append(ed25519.PublicKey(nil), pub...),
			Active:          true,
			ReputationScore: 100,
			Health: types.HealthMetrics{
				AccuracyScore: 100,
			},
			RegisteredAt: now,
		},
		windowStart: now,
	}
	return nil
}

// Unregister removes an oracle from the registry.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return errorsmod.Wrap(types.ErrOracleNotFound, id)
	}
	delete(r.records, id)
	return nil
}

func (r *Registry) lookup(id string) (*record, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errorsmod.Wrap(types.ErrOracleNotFound, id)
	}
	return rec, nil
}

// Get returns a copy of the oracle's current state.
func (r *Registry) Get(id string) (types.Oracle, error) {
	rec, err := r.lookup(id)
	if err != nil {
		return types.Oracle{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return cloneOracle(&rec.oracle), nil
}

// SetActive toggles whether the oracle contributes to consensus.
func (r *Registry) SetActive(id string, active bool) error {
	rec, err := r.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.oracle.Active = active
	return nil
}

// ResetCircuitBreaker clears the breaker and the failure counter.
func (r *Registry) ResetCircuitBreaker(id string) error {
	rec, err := r.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.oracle.Health.CircuitBreakerActive = false
	rec.oracle.Health.FailedValidations = 0
	return nil
}

// EmergencyOverride replaces the latest reading with a governance-corrected
// value and clears the breaker state. The reading bypasses the validation
// chain; callers must gate this on admin authority and log the reason.
func (r *Registry) EmergencyOverride(id string, reading types.Reading, now int64) error {
	rec, err := r.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	corrected := reading
	if corrected.Timestamp == 0 {
		corrected.Timestamp = now
	}
	rec.oracle.LatestReading = &corrected
	rec.oracle.Health.CircuitBreakerActive = false
	rec.oracle.Health.FailedValidations = 0
	return nil
}

// SubmitReading runs the validation chain and stores the reading on success.
// Every distinct failure degrades the oracle's reputation and accuracy and
// counts toward tripping the circuit breaker.
func (r *Registry) SubmitReading(id string, reading types.Reading, now int64) error {
	rec, err := r.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	o := &rec.oracle

	if o.Health.CircuitBreakerActive {
		if o.Health.AccuracyScore > r.params.BreakerRecoveryScore {
			// Sustained good health clears the breaker without operator action.
			o.Health.CircuitBreakerActive = false
			o.Health.FailedValidations = 0
		} else {
			r.recordFailure(o)
			return errorsmod.Wrap(types.ErrCircuitBreakerActive, id)
		}
	}

	if prev := o.LatestReading; prev != nil {
		change := deviationPercent(prev.Value, reading.Value)
		if change > r.params.MaxDeviationPercent {
			r.recordFailure(o)
			return errorsmod.Wrapf(types.ErrDeviationTooLarge, "%d%% change exceeds %d%% cap",
				change, r.params.MaxDeviationPercent)
		}
	}

	if reading.Confidence == 0 {
		r.recordFailure(o)
		return errorsmod.Wrap(types.ErrInvalidConfidence, id)
	}

	digest := ReadingDigest(id, reading.Value, reading.Timestamp, reading.Nonce)
	if len(reading.Signature) != ed25519.SignatureSize || !ed25519.Verify(o.PublicKey, digest, reading.Signature) {
		r.recordFailure(o)
		return errorsmod.Wrap(types.ErrBadSignature, id)
	}

	if now-reading.Timestamp > r.params.MaxReadingAge {
		r.recordFailure(o)
		return errorsmod.Wrapf(types.ErrStaleReading, "reading is %ds old, max %ds",
			now-reading.Timestamp, r.params.MaxReadingAge)
	}

	if reading.Nonce == 0 || (o.LatestReading != nil && reading.Nonce <= o.LatestReading.Nonce) {
		r.recordFailure(o)
		return errorsmod.Wrapf(types.ErrNonceReplay, "nonce %d", reading.Nonce)
	}

	stored := reading
	o.LatestReading = &stored
	o.UpdateCount++
	if o.Health.AccuracyScore <= 100-r.params.AccuracyReward {
		o.Health.AccuracyScore += r.params.AccuracyReward
	} else {
		o.Health.AccuracyScore = 100
	}
	if now-rec.windowStart >= rollingWindow {
		rec.windowStart = now
		o.Health.Updates24h = 0
	}
	o.Health.Updates24h++
	return nil
}

// recordFailure applies the degradation path for a rejected submission.
// Caller holds the record lock.
func (r *Registry) recordFailure(o *types.Oracle) {
	o.Health.FailedValidations++
	if o.ReputationScore > r.params.ReputationPenalty {
		o.ReputationScore -= r.params.ReputationPenalty
	} else {
		o.ReputationScore = 0
	}
	if o.Health.AccuracyScore > r.params.AccuracyPenalty {
		o.Health.AccuracyScore -= r.params.AccuracyPenalty
	} else {
		o.Health.AccuracyScore = 0
	}
	if o.Health.FailedValidations >= r.params.BreakerThreshold {
		o.Health.CircuitBreakerActive = true
	}
}

// Snapshot returns copies of every oracle for consensus evaluation.
func (r *Registry) Snapshot() []types.Oracle {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	out := make([]types.Oracle, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, cloneOracle(&rec.oracle))
		rec.mu.Unlock()
	}
	return out
}

// Len reports the number of registered oracles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// deviationPercent returns the integer percentage change between consecutive
// values; a previous value of zero counts as a 100% change.
func deviationPercent(old, new uint64) uint64 {
	if old == 0 {
		return 100
	}
	diff := types.AbsDiff(old, new)
	pct, err := types.SafeMul(diff, 100)
	if err != nil {
		// Magnitudes this far apart always exceed any sane cap.
		return 100
	}
	return pct / old
}

func cloneOracle(o *types.Oracle) types.Oracle {
	c := *o
	c.PublicKey = append(ed25519.PublicKey(nil), o.PublicKey...)
	if o.LatestReading != nil {
		rd := *o.LatestReading
		rd.Signature = append([]byte(nil), o.LatestReading.Signature...)
		c.LatestReading = &rd
	}
	return c
}
