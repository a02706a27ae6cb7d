package types

import (
	"crypto/ed25519"
	"fmt"
)

// AssetClass identifies one of the treasury's independent books.
type AssetClass uint8

const (
	AssetStable AssetClass = iota
	AssetNative
)

func (a AssetClass) String() string {
	switch a {
	case AssetStable:
		return "stable"
	case AssetNative:
		return "native"
	default:
		return fmt.Sprintf("asset(%d)", uint8(a))
	}
}

// Valid reports whether the asset class is one of the treasury books.
func (a AssetClass) Valid() bool {
	return a == AssetStable || a == AssetNative
}

// ParseAssetClass converts the wire representation of an asset class.
func ParseAssetClass(s string) (AssetClass, error) {
	switch s {
	case "stable":
		return AssetStable, nil
	case "native":
		return AssetNative, nil
	default:
		return 0, fmt.Errorf("unknown asset class %q", s)
	}
}

// OracleType categorizes the measurement a data feed reports.
type OracleType uint8

const (
	OracleWeather OracleType = iota
	OracleSeismic
	OracleFlightData
	OracleCropYield
)

func (t OracleType) String() string {
	switch t {
	case OracleWeather:
		return "weather"
	case OracleSeismic:
		return "seismic"
	case OracleFlightData:
		return "flight-data"
	case OracleCropYield:
		return "crop-yield"
	default:
		return fmt.Sprintf("oracle-type(%d)", uint8(t))
	}
}

// ParseOracleType converts the wire representation of an oracle type.
func ParseOracleType(s string) (OracleType, error) {
	switch s {
	case "weather":
		return OracleWeather, nil
	case "seismic":
		return OracleSeismic, nil
	case "flight-data":
		return OracleFlightData, nil
	case "crop-yield":
		return OracleCropYield, nil
	default:
		return 0, fmt.Errorf("unknown oracle type %q", s)
	}
}

// InsuranceType is the product category of a policy.
type InsuranceType uint8

const (
	InsuranceWeather InsuranceType = iota
	InsuranceEarthquake
	InsuranceFlight
	InsuranceCrop
	InsuranceCustom
)

func (t InsuranceType) String() string {
	switch t {
	case InsuranceWeather:
		return "weather"
	case InsuranceEarthquake:
		return "earthquake"
	case InsuranceFlight:
		return "flight"
	case InsuranceCrop:
		return "crop"
	case InsuranceCustom:
		return "custom"
	default:
		return fmt.Sprintf("insurance-type(%d)", uint8(t))
	}
}

// Valid reports whether the insurance type is an enumerated category.
func (t InsuranceType) Valid() bool {
	return t <= InsuranceCustom
}

// BasePriority returns the head-of-queue precedence for the category.
// Higher-impact categories settle first.
func (t InsuranceType) BasePriority() uint8 {
	switch t {
	case InsuranceEarthquake:
		return 90
	case InsuranceCrop:
		return 80
	case InsuranceWeather:
		return 70
	case InsuranceFlight:
		return 60
	default:
		return 50
	}
}

// PolicyStatus is the lifecycle state of a policy.
type PolicyStatus uint8

const (
	PolicyActive PolicyStatus = iota
	PolicyExpired
	PolicyCancelled
	PolicyPendingPayout
	PolicyPaidOut
)

func (s PolicyStatus) String() string {
	switch s {
	case PolicyActive:
		return "active"
	case PolicyExpired:
		return "expired"
	case PolicyCancelled:
		return "cancelled"
	case PolicyPendingPayout:
		return "pending_payout"
	case PolicyPaidOut:
		return "paid_out"
	default:
		return fmt.Sprintf("policy-status(%d)", uint8(s))
	}
}

// Terminal reports whether the policy is closed to further mutation.
func (s PolicyStatus) Terminal() bool {
	return s == PolicyPaidOut || s == PolicyCancelled
}

// PayoutStatus is the lifecycle state of a queued claim.
type PayoutStatus uint8

const (
	PayoutPending PayoutStatus = iota
	PayoutPendingApproval
	PayoutReady
	PayoutExecuted
	PayoutRejected
	PayoutExpired
)

func (s PayoutStatus) String() string {
	switch s {
	case PayoutPending:
		return "pending"
	case PayoutPendingApproval:
		return "pending_approval"
	case PayoutReady:
		return "ready"
	case PayoutExecuted:
		return "executed"
	case PayoutRejected:
		return "rejected"
	case PayoutExpired:
		return "expired"
	default:
		return fmt.Sprintf("payout-status(%d)", uint8(s))
	}
}

// Terminal reports whether the queue entry is closed to further mutation.
func (s PayoutStatus) Terminal() bool {
	return s == PayoutExecuted || s == PayoutRejected || s == PayoutExpired
}

// Comparator is the relation a trigger condition applies to the consensus value.
type Comparator uint8

const (
	GreaterThan Comparator = iota
	LessThan
	Equals
	NotEquals
)

func (c Comparator) String() string {
	switch c {
	case GreaterThan:
		return "gt"
	case LessThan:
		return "lt"
	case Equals:
		return "eq"
	case NotEquals:
		return "ne"
	default:
		return fmt.Sprintf("comparator(%d)", uint8(c))
	}
}

// Valid reports whether the comparator is one of the enumerated relations.
func (c Comparator) Valid() bool {
	return c <= NotEquals
}

// Reading is one timestamped, signed measurement submitted by an oracle.
// The signature covers the canonical digest of (oracle id, value, timestamp,
// nonce) and is verified against the oracle's registered public key.
type Reading struct {
	Value      uint64 `json:"value"`
	Timestamp  int64  `json:"timestamp"`
	Confidence uint8  `json:"confidence"`
	Nonce      uint64 `json:"nonce"`
	Signature  []byte `json:"signature"`
}

// HealthMetrics are the rolling quality indicators of one oracle.
type HealthMetrics struct {
	Updates24h           uint64 `json:"updates_24h"`
	AccuracyScore        uint8  `json:"accuracy_score"` // [0,100]
	FailedValidations    uint32 `json:"failed_validations"`
	CircuitBreakerActive bool   `json:"circuit_breaker_active"`
}

// Oracle is one registered data feed and its health state.
type Oracle struct {
	ID              string            `json:"id"`
	Authority       string            `json:"authority"`
	Type            OracleType        `json:"type"`
	FeedAddress     string            `json:"feed_address"`
	PublicKey       ed25519.PublicKey `json:"public_key"`
	Active          bool              `json:"active"`
	LatestReading   *Reading          `json:"latest_reading,omitempty"`
	ReputationScore uint8             `json:"reputation_score"` // [0,100]
	UpdateCount     uint64            `json:"update_count"`
	Health          HealthMetrics     `json:"health"`
	RegisteredAt    int64             `json:"registered_at"`
}

// ConsensusResult is the aggregated, filtered value derived from multiple
// oracle readings. Computed on demand, never persisted.
type ConsensusResult struct {
	Value       uint64 `json:"value"` // mean of the filtered set
	Median      uint64 `json:"median"`
	StdDev      uint64 `json:"std_dev"`
	Confidence  uint8  `json:"confidence"` // [0,100]
	OracleCount int    `json:"oracle_count"`
	Timestamp   int64  `json:"timestamp"`
}

// TriggerConditions define when a policy's payout fires.
type TriggerConditions struct {
	ThresholdValue float64    `json:"threshold_value"`
	Operator       Comparator `json:"operator"`
	DataSource     string     `json:"data_source"`
	GracePeriod    int64      `json:"grace_period"`
}

// OracleRequirements configure how consensus is formed for a policy.
type OracleRequirements struct {
	DataFeedID            string `json:"data_feed_id"`
	RequiredConfirmations uint8  `json:"required_confirmations"`
	StalenessThreshold    int64  `json:"staleness_threshold"`
}

// PayoutRecord is one settled claim in a policy's history.
type PayoutRecord struct {
	Amount      uint64 `json:"amount"`
	Timestamp   int64  `json:"timestamp"`
	OracleValue uint64 `json:"oracle_value"`
}

// Policy is one issued insurance contract.
type Policy struct {
	ID                   string             `json:"id"`
	Owner                string             `json:"owner"`
	Type                 InsuranceType      `json:"type"`
	Asset                AssetClass         `json:"asset"`
	CoverageAmount       uint64             `json:"coverage_amount"`
	PremiumAmount        uint64             `json:"premium_amount"`
	Deductible           uint64             `json:"deductible"`
	StartDate            int64              `json:"start_date"`
	EndDate              int64              `json:"end_date"`
	Status               PolicyStatus       `json:"status"`
	Trigger              TriggerConditions  `json:"trigger"`
	Oracle               OracleRequirements `json:"oracle"`
	LastPremiumPaid      int64              `json:"last_premium_paid"`
	PayoutHistory        []PayoutRecord     `json:"payout_history,omitempty"`
	MaxPayoutPerIncident uint64             `json:"max_payout_per_incident"`
	WaitingPeriodHours   uint32             `json:"waiting_period_hours"`
	CreatedAt            int64              `json:"created_at"`
	UpdatedAt            int64              `json:"updated_at"`
}

// PendingPayout is a claim admitted to the settlement queue.
type PendingPayout struct {
	ID              string       `json:"id"`
	PolicyID        string       `json:"policy_id"`
	Amount          uint64       `json:"amount"`
	CreatedAt       int64        `json:"created_at"`
	Priority        uint8        `json:"priority"`
	Status          PayoutStatus `json:"status"`
	Beneficiary     string       `json:"beneficiary"`
	OracleValue     uint64       `json:"oracle_value"`
	SeverityScore   uint8        `json:"severity_score"`
	ApprovedAt      int64        `json:"approved_at,omitempty"`
	ApprovedBy      string       `json:"approved_by,omitempty"`
	ExpiresAt       int64        `json:"expires_at"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
}

// Expired reports whether the entry's settlement window has closed.
func (p *PendingPayout) Expired(now int64) bool {
	return now > p.ExpiresAt
}

// FinancialReport is an aggregate snapshot of the treasury.
type FinancialReport struct {
	TotalBalance       uint64 `json:"total_balance"`
	ReserveRatioBps    uint16 `json:"reserve_ratio_bps"`
	TotalPremiums      uint64 `json:"total_premiums"`
	TotalPayouts       uint64 `json:"total_payouts"`
	NetResult          int64  `json:"net_result"`
	CoverageExposure   uint64 `json:"coverage_exposure"`
	AvailableLiquidity uint64 `json:"available_liquidity"`
	TransactionCount   uint64 `json:"transaction_count"`
	DepositCount       uint64 `json:"deposit_count"`
	WithdrawalCount    uint64 `json:"withdrawal_count"`
	Timestamp          int64  `json:"timestamp"`
}

// QueueStats summarize the payout queue for backpressure decisions.
type QueueStats struct {
	CountByStatus      map[string]int `json:"count_by_status"`
	TotalPendingAmount uint64         `json:"total_pending_amount"`
	OldestCreatedAt    int64          `json:"oldest_created_at,omitempty"`
	Size               int            `json:"size"`
}
