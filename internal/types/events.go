package types

// Audit event types. All use lowercase with underscore separator.
const (
	EventTypePolicyCreated     = "policy_created"
	EventTypePremiumPaid       = "premium_paid"
	EventTypePolicyCancelled   = "policy_cancelled"
	EventTypePayoutTriggered   = "payout_triggered"
	EventTypePayoutApproved    = "payout_approved"
	EventTypePayoutRejected    = "payout_rejected"
	EventTypePayoutExecuted    = "payout_executed"
	EventTypeOracleRegistered  = "oracle_registered"
	EventTypeOracleDataUpdated = "oracle_data_updated"
	EventTypeEmergencyOverride = "oracle_emergency_override"
	EventTypeContractPaused    = "contract_paused"
	EventTypeContractResumed   = "contract_resumed"
	EventTypeTreasuryDeposited = "treasury_deposited"
	EventTypeTreasuryWithdrawn = "treasury_withdrawn"
)

// Event is a typed audit record handed to the audit sink. Event structs
// carry the Event suffix; the bare names belong to the status enums.
type Event interface {
	EventType() string
}

type PolicyCreatedEvent struct {
	PolicyID string        `json:"policy_id"`
	Owner    string        `json:"owner"`
	Type     InsuranceType `json:"type"`
	Coverage uint64        `json:"coverage"`
	Premium  uint64        `json:"premium"`
	Expiry   int64         `json:"expiry"`
}

func (PolicyCreatedEvent) EventType() string { return EventTypePolicyCreated }

type PremiumPaidEvent struct {
	PolicyID  string `json:"policy_id"`
	Payer     string `json:"payer"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

func (PremiumPaidEvent) EventType() string { return EventTypePremiumPaid }

type PolicyCancelledEvent struct {
	PolicyID  string `json:"policy_id"`
	Caller    string `json:"caller"`
	Timestamp int64  `json:"timestamp"`
}

func (PolicyCancelledEvent) EventType() string { return EventTypePolicyCancelled }

type PayoutTriggeredEvent struct {
	PolicyID    string `json:"policy_id"`
	PayoutID    string `json:"payout_id"`
	Beneficiary string `json:"beneficiary"`
	Amount      uint64 `json:"amount"`
	OracleValue uint64 `json:"oracle_value"`
	Timestamp   int64  `json:"timestamp"`
}

func (PayoutTriggeredEvent) EventType() string { return EventTypePayoutTriggered }

type PayoutApprovedEvent struct {
	PolicyID  string `json:"policy_id"`
	PayoutID  string `json:"payout_id"`
	Admin     string `json:"admin"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

func (PayoutApprovedEvent) EventType() string { return EventTypePayoutApproved }

type PayoutRejectedEvent struct {
	PolicyID  string `json:"policy_id"`
	PayoutID  string `json:"payout_id"`
	Admin     string `json:"admin"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

func (PayoutRejectedEvent) EventType() string { return EventTypePayoutRejected }

type PayoutExecutedEvent struct {
	PolicyID    string `json:"policy_id"`
	PayoutID    string `json:"payout_id"`
	Beneficiary string `json:"beneficiary"`
	Amount      uint64 `json:"amount"`
	Timestamp   int64  `json:"timestamp"`
}

func (PayoutExecutedEvent) EventType() string { return EventTypePayoutExecuted }

type OracleRegisteredEvent struct {
	OracleID  string     `json:"oracle_id"`
	Authority string     `json:"authority"`
	Type      OracleType `json:"type"`
	Timestamp int64      `json:"timestamp"`
}

func (OracleRegisteredEvent) EventType() string { return EventTypeOracleRegistered }

type OracleDataUpdatedEvent struct {
	OracleID  string `json:"oracle_id"`
	Value     uint64 `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

func (OracleDataUpdatedEvent) EventType() string { return EventTypeOracleDataUpdated }

type EmergencyOverrideEvent struct {
	OracleID  string `json:"oracle_id"`
	Admin     string `json:"admin"`
	Value     uint64 `json:"value"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

func (EmergencyOverrideEvent) EventType() string { return EventTypeEmergencyOverride }

type ContractPausedEvent struct {
	Admin     string `json:"admin"`
	Timestamp int64  `json:"timestamp"`
}

func (ContractPausedEvent) EventType() string { return EventTypeContractPaused }

type ContractResumedEvent struct {
	Admin     string `json:"admin"`
	Timestamp int64  `json:"timestamp"`
}

func (ContractResumedEvent) EventType() string { return EventTypeContractResumed }

type TreasuryDepositedEvent struct {
	Depositor string     `json:"depositor"`
	Amount    uint64     `json:"amount"`
	Asset     AssetClass `json:"asset"`
	Timestamp int64      `json:"timestamp"`
}

func (TreasuryDepositedEvent) EventType() string { return EventTypeTreasuryDeposited }

type TreasuryWithdrawnEvent struct {
	Admin     string     `json:"admin"`
	Amount    uint64     `json:"amount"`
	Asset     AssetClass `json:"asset"`
	Reason    string     `json:"reason"`
	Timestamp int64      `json:"timestamp"`
}

func (TreasuryWithdrawnEvent) EventType() string { return EventTypeTreasuryWithdrawn }
