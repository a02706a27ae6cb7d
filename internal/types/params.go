package types

import "fmt"

// Default engine parameters.
const (
	DefaultMaxOracles             = 10
	DefaultMinOraclesForConsensus = 3
	DefaultMaxDeviationPercent    = 50
	DefaultMaxReadingAge          = 300  // 5 minutes, seconds
	DefaultMaxConsensusAge        = 600  // 10 minutes, seconds
	DefaultBreakerThreshold       = 5
	DefaultBreakerRecoveryScore   = 80
	DefaultReputationPenalty      = 3
	DefaultAccuracyPenalty        = 5
	DefaultAccuracyReward         = 1
	DefaultPayoutTTL              = 86400 // 24 hours, seconds
	DefaultApprovalDivisor        = 10
	DefaultMaxPolicies            = 4096
	DefaultMaxQueueSize           = 512
	DefaultMinPremiumAmount       = 1_000_000
	DefaultMaxCoverageAmount      = 1_000_000_000_000
	MinReserveRatioFloorBps       = 1000
	MinReserveRatioCeilBps        = 5000
)

// Params are the tunable limits and thresholds of the engine.
type Params struct {
	// Oracle registry
	MaxOracles             int        `yaml:"max_oracles"`
	SupportedOracleType    OracleType `yaml:"-"`
	MinOraclesForConsensus int        `yaml:"min_oracles_for_consensus"`
	MaxDeviationPercent    uint64     `yaml:"max_deviation_percent"`
	MaxReadingAge          int64      `yaml:"max_reading_age"`
	MaxConsensusAge        int64      `yaml:"max_consensus_age"`
	BreakerThreshold       uint32     `yaml:"breaker_threshold"`
	BreakerRecoveryScore   uint8      `yaml:"breaker_recovery_score"`
	ReputationPenalty      uint8      `yaml:"reputation_penalty"`
	AccuracyPenalty        uint8      `yaml:"accuracy_penalty"`
	AccuracyReward         uint8      `yaml:"accuracy_reward"`

	// Payout queue
	PayoutTTL       int64 `yaml:"payout_ttl"`
	ApprovalDivisor int   `yaml:"approval_divisor"`
	MaxQueueSize    int   `yaml:"max_queue_size"`

	// Policies
	MaxPolicies      int    `yaml:"max_policies"`
	MinPremiumAmount uint64 `yaml:"min_premium_amount"`
	MaxCoverageAmount uint64 `yaml:"max_coverage_amount"`
}

// DefaultParams returns the engine defaults.
func DefaultParams() Params {
	return Params{
		MaxOracles:             DefaultMaxOracles,
		SupportedOracleType:    OracleWeather,
		MinOraclesForConsensus: DefaultMinOraclesForConsensus,
		MaxDeviationPercent:    DefaultMaxDeviationPercent,
		MaxReadingAge:          DefaultMaxReadingAge,
		MaxConsensusAge:        DefaultMaxConsensusAge,
		BreakerThreshold:       DefaultBreakerThreshold,
		BreakerRecoveryScore:   DefaultBreakerRecoveryScore,
		ReputationPenalty:      DefaultReputationPenalty,
		AccuracyPenalty:        DefaultAccuracyPenalty,
		AccuracyReward:         DefaultAccuracyReward,
		PayoutTTL:              DefaultPayoutTTL,
		ApprovalDivisor:        DefaultApprovalDivisor,
		MaxQueueSize:           DefaultMaxQueueSize,
		MaxPolicies:            DefaultMaxPolicies,
		MinPremiumAmount:       DefaultMinPremiumAmount,
		MaxCoverageAmount:      DefaultMaxCoverageAmount,
	}
}

// Validate checks parameter sanity and applies defaults for zero values.
func (p *Params) Validate() error {
	if p.MaxOracles <= 0 {
		p.MaxOracles = DefaultMaxOracles
	}
	if p.MinOraclesForConsensus <= 0 {
		p.MinOraclesForConsensus = DefaultMinOraclesForConsensus
	}
	if p.MinOraclesForConsensus > p.MaxOracles {
		return fmt.Errorf("min oracles for consensus (%d) exceeds registry capacity (%d)",
			p.MinOraclesForConsensus, p.MaxOracles)
	}
	if p.MaxDeviationPercent == 0 {
		p.MaxDeviationPercent = DefaultMaxDeviationPercent
	}
	if p.MaxReadingAge <= 0 {
		p.MaxReadingAge = DefaultMaxReadingAge
	}
	if p.MaxConsensusAge <= 0 {
		p.MaxConsensusAge = DefaultMaxConsensusAge
	}
	if p.BreakerThreshold == 0 {
		p.BreakerThreshold = DefaultBreakerThreshold
	}
	if p.BreakerRecoveryScore == 0 {
		p.BreakerRecoveryScore = DefaultBreakerRecoveryScore
	}
	if p.BreakerRecoveryScore > 100 {
		return fmt.Errorf("breaker recovery score must be within [0,100], got %d", p.BreakerRecoveryScore)
	}
	if p.ReputationPenalty == 0 {
		p.ReputationPenalty = DefaultReputationPenalty
	}
	if p.AccuracyPenalty == 0 {
		p.AccuracyPenalty = DefaultAccuracyPenalty
	}
	if p.AccuracyReward == 0 {
		p.AccuracyReward = DefaultAccuracyReward
	}
	if p.PayoutTTL <= 0 {
		p.PayoutTTL = DefaultPayoutTTL
	}
	if p.ApprovalDivisor <= 0 {
		p.ApprovalDivisor = DefaultApprovalDivisor
	}
	if p.MaxQueueSize <= 0 {
		p.MaxQueueSize = DefaultMaxQueueSize
	}
	if p.MaxPolicies <= 0 {
		p.MaxPolicies = DefaultMaxPolicies
	}
	if p.MinPremiumAmount == 0 {
		p.MinPremiumAmount = DefaultMinPremiumAmount
	}
	if p.MaxCoverageAmount == 0 {
		p.MaxCoverageAmount = DefaultMaxCoverageAmount
	}
	return nil
}
