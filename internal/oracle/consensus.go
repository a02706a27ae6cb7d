package oracle

import (
	"sort"

	errorsmod "cosmossdk.io/errors"

	"github.com/siglab/settlement/internal/types"
)

// Engine aggregates oracle readings into a single trusted value. A naive mean
// is trivially skewed by one compromised feed; the two-sigma filter combined
// with per-oracle reputation and circuit-breaker gating tolerates ordinary
// sensor noise while bounding the influence of any single oracle.
type Engine struct {
	params types.Params
}

// NewEngine builds a consensus engine with the given thresholds.
func NewEngine(params types.Params) *Engine {
	return &Engine{params: params}
}

// Compute derives a ConsensusResult from the given oracle snapshot, or fails
// when fewer than minThreshold valid readings survive selection, the
// staleness cut, and outlier filtering. A non-positive minThreshold falls
// back to the configured minimum.
func (e *Engine) Compute(oracles []types.Oracle, minThreshold int, now int64) (*types.ConsensusResult, error) {
	if minThreshold <= 0 {
		minThreshold = e.params.MinOraclesForConsensus
	}

	values := make([]uint64, 0, len(oracles))
	for _, o := range oracles {
		if o.Active && o.LatestReading != nil {
			values = append(values, o.LatestReading.Value)
		}
	}
	if len(values) < minThreshold {
		return nil, errorsmod.Wrapf(types.ErrInsufficientOracles,
			"%d active oracles with readings, need %d", len(values), minThreshold)
	}

	fresh := make([]uint64, 0, len(values))
	for _, o := range oracles {
		if o.Active && o.LatestReading != nil && now-o.LatestReading.Timestamp <= e.params.MaxConsensusAge {
			fresh = append(fresh, o.LatestReading.Value)
		}
	}
	if len(fresh) < minThreshold {
		return nil, errorsmod.Wrapf(types.ErrInsufficientOracles,
			"%d fresh readings within %ds, need %d", len(fresh), e.params.MaxConsensusAge, minThreshold)
	}

	mean, stddev, err := meanStdDev(fresh)
	if err != nil {
		return nil, err
	}

	// Integer stddev truncates to zero for clusters within a unit of the
	// mean; a zero-width band would then discard everything but the mean
	// itself. Such a cluster is already in agreement, so keep it whole.
	filtered := fresh
	if stddev > 0 {
		filtered = make([]uint64, 0, len(fresh))
		for _, v := range fresh {
			if types.AbsDiff(v, mean) <= 2*stddev {
				filtered = append(filtered, v)
			}
		}
	}
	if len(filtered) < minThreshold {
		return nil, errorsmod.Wrapf(types.ErrInsufficientOracles,
			"%d readings after outlier filtering, need %d", len(filtered), minThreshold)
	}

	mean, stddev, err = meanStdDev(filtered)
	if err != nil {
		return nil, err
	}

	return &types.ConsensusResult{
		Value:       mean,
		Median:      median(filtered),
		StdDev:      stddev,
		Confidence:  confidence(mean, stddev),
		OracleCount: len(filtered),
		Timestamp:   now,
	}, nil
}

// meanStdDev computes the integer mean and population standard deviation.
func meanStdDev(values []uint64) (uint64, uint64, error) {
	var sum uint64
	var err error
	for _, v := range values {
		if sum, err = types.SafeAdd(sum, v); err != nil {
			return 0, 0, errorsmod.Wrap(err, "summing readings")
		}
	}
	mean := sum / uint64(len(values))

	var varSum uint64
	for _, v := range values {
		d := types.AbsDiff(v, mean)
		sq, err := types.SafeMul(d, d)
		if err != nil {
			return 0, 0, errorsmod.Wrap(err, "squaring deviation")
		}
		if varSum, err = types.SafeAdd(varSum, sq); err != nil {
			return 0, 0, errorsmod.Wrap(err, "summing squared deviations")
		}
	}
	variance := varSum / uint64(len(values))
	return mean, types.Isqrt(variance), nil
}

// median returns the middle element, or the average of the two middle
// elements for even counts.
func median(values []uint64) uint64 {
	sorted := make([]uint64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	lo, hi := sorted[n/2-1], sorted[n/2]
	return lo/2 + hi/2 + (lo%2+hi%2)/2
}

// confidence scores dispersion relative to the mean: tight clusters approach
// 100, spreads wider than the mean itself floor at 0.
func confidence(mean, stddev uint64) uint8 {
	if mean == 0 {
		return 0
	}
	spread, err := types.SafeMul(stddev, 100)
	if err != nil {
		return 0
	}
	rel := spread / mean
	if rel > 100 {
		rel = 100
	}
	return uint8(100 - rel)
}
