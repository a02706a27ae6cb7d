package policy

import (
	"math"

	"github.com/siglab/settlement/internal/types"
)

// equalityTolerance is the absolute tolerance for Equals/NotEquals triggers.
const equalityTolerance = 0.01

// TriggerMet reports whether the consensus value satisfies the condition.
func TriggerMet(cond types.TriggerConditions, value uint64) bool {
	v := float64(value)
	switch cond.Operator {
	case types.GreaterThan:
		return v > cond.ThresholdValue
	case types.LessThan:
		return v < cond.ThresholdValue
	case types.Equals:
		return math.Abs(v-cond.ThresholdValue) <= equalityTolerance
	case types.NotEquals:
		return math.Abs(v-cond.ThresholdValue) > equalityTolerance
	default:
		return false
	}
}

// Severity scores how far the value exceeds the threshold, as a truncated
// integer percentage capped at 100. A zero threshold with any nonzero value
// scores maximal severity.
func Severity(cond types.TriggerConditions, value uint64) uint8 {
	v := float64(value)
	if cond.ThresholdValue == 0 {
		if v == 0 {
			return 0
		}
		return 100
	}
	pct := math.Abs(v-cond.ThresholdValue) / math.Abs(cond.ThresholdValue) * 100
	if pct > 100 {
		return 100
	}
	return uint8(pct)
}

// Priority orders claims for settlement: the category base nudged upward by
// severity, capped at 100.
func Priority(typ types.InsuranceType, severity uint8) uint8 {
	p := uint16(typ.BasePriority()) + uint16(severity/4)
	if p > 100 {
		return 100
	}
	return uint8(p)
}

// PayoutAmount derives the owed amount: coverage scaled by severity, less the
// deductible, capped at the per-incident maximum. Claims that do not clear
// the deductible pay nothing.
func PayoutAmount(coverage, deductible uint64, severity uint8, maxPayout uint64) (uint64, error) {
	scaled, err := types.SafeMul(coverage, uint64(severity))
	if err != nil {
		return 0, err
	}
	p := scaled / 100
	if p <= deductible {
		return 0, nil
	}
	p -= deductible
	if p > maxPayout {
		p = maxPayout
	}
	return p, nil
}

// WaitingPeriodElapsed reports whether enough time has passed since policy
// start for claims to be admitted.
func WaitingPeriodElapsed(p *types.Policy, now int64) bool {
	return now-p.StartDate >= int64(p.WaitingPeriodHours)*3600
}
