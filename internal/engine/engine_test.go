package engine

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/siglab/settlement/internal/audit"
	"github.com/siglab/settlement/internal/oracle"
	"github.com/siglab/settlement/internal/types"
)

type fakeClock struct{ now int64 }

func (c *fakeClock) Now() int64 { return c.now }

type transfer struct {
	asset  types.AssetClass
	amount uint64
	party  string
}

type fakeFunds struct {
	collects  []transfer
	disburses []transfer
	failNext  error
}

func (f *fakeFunds) Collect(asset types.AssetClass, amount uint64, from string) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.collects = append(f.collects, transfer{asset, amount, from})
	return nil
}

func (f *fakeFunds) Disburse(asset types.AssetClass, amount uint64, to string) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.disburses = append(f.disburses, transfer{asset, amount, to})
	return nil
}

type harness struct {
	engine *Engine
	clock  *fakeClock
	funds  *fakeFunds
	sink   *audit.MemorySink
	keys   map[string]ed25519.PrivateKey
	nonces map[string]uint64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	params := types.DefaultParams()
	require.NoError(t, params.Validate())

	h := &harness{
		clock:  &fakeClock{now: 1_000_000},
		funds:  &fakeFunds{},
		sink:   audit.NewMemorySink(),
		keys:   make(map[string]ed25519.PrivateKey),
		nonces: make(map[string]uint64),
	}
	h.engine = New(params, zerolog.Nop(), NewStaticAuthorizer([]string{"admin"}), h.clock, h.funds, h.sink)
	return h
}

func (h *harness) registerOracle(t *testing.T, id string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	h.keys[id] = priv
	require.NoError(t, h.engine.RegisterOracle("admin", id, "auth-"+id, types.OracleWeather, "feed://"+id, pub))
}

func (h *harness) submit(t *testing.T, id string, value uint64) {
	t.Helper()
	h.nonces[id]++
	reading := types.Reading{
		Value:      value,
		Timestamp:  h.clock.now,
		Confidence: 90,
		Nonce:      h.nonces[id],
	}
	digest := oracle.ReadingDigest(id, reading.Value, reading.Timestamp, reading.Nonce)
	reading.Signature = ed25519.Sign(h.keys[id], digest)
	require.NoError(t, h.engine.SubmitReading("auth-"+id, id, reading))
}

func (h *harness) feedConsensus(t *testing.T, value uint64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("oracle-%d", i)
		if _, ok := h.keys[id]; !ok {
			h.registerOracle(t, id)
		}
		h.submit(t, id, value)
	}
}

func (h *harness) fundTreasury(t *testing.T, amount uint64) {
	t.Helper()
	require.NoError(t, h.engine.InitializeTreasury("admin", 2000))
	require.NoError(t, h.engine.Deposit("whale", types.AssetStable, amount))
}

func basePolicy() types.Policy {
	return types.Policy{
		ID:                   "pol-1",
		Type:                 types.InsuranceWeather,
		Asset:                types.AssetStable,
		CoverageAmount:       100_000_000,
		PremiumAmount:        2_000_000,
		MaxPayoutPerIncident: 5_000_000,
		StartDate:            900_000,
		EndDate:              2_000_000,
		Trigger:              types.TriggerConditions{ThresholdValue: 40, Operator: types.GreaterThan},
	}
}

func TestFullSettlementFlow(t *testing.T) {
	h := newHarness(t)
	h.fundTreasury(t, 30_000_000)
	h.feedConsensus(t, 100)

	created, err := h.engine.CreatePolicy("alice", basePolicy())
	require.NoError(t, err)
	require.Equal(t, types.PolicyActive, created.Status)
	require.Equal(t, "alice", created.Owner)

	// Trigger: consensus 100 against threshold 40, severity caps at 100,
	// so the claim is the full per-incident maximum.
	admitted, err := h.engine.TriggerPayout("anyone", "pol-1")
	require.NoError(t, err)
	require.Equal(t, uint64(5_000_000), admitted.Amount)
	require.Equal(t, "alice", admitted.Beneficiary)
	// 5M exceeds a tenth of the 2M premiums collected.
	require.Equal(t, types.PayoutPendingApproval, admitted.Status)

	p, err := h.engine.GetPolicy("pol-1")
	require.NoError(t, err)
	require.Equal(t, types.PolicyPendingPayout, p.Status)

	require.NoError(t, h.engine.ApprovePayout("admin", admitted.ID))

	executed, err := h.engine.ExecutePayout("anyone", admitted.ID)
	require.NoError(t, err)
	require.Equal(t, types.PayoutExecuted, executed.Status)

	require.Len(t, h.funds.disburses, 1)
	require.Equal(t, transfer{types.AssetStable, 5_000_000, "alice"}, h.funds.disburses[0])

	p, err = h.engine.GetPolicy("pol-1")
	require.NoError(t, err)
	require.Equal(t, types.PolicyPaidOut, p.Status)
	require.Len(t, p.PayoutHistory, 1)
	require.Equal(t, uint64(5_000_000), p.PayoutHistory[0].Amount)
	require.Equal(t, uint64(100), p.PayoutHistory[0].OracleValue)

	report := h.engine.FinancialReport()
	require.Equal(t, uint64(30_000_000+2_000_000-5_000_000), report.TotalBalance)
	require.Equal(t, uint64(5_000_000), report.TotalPayouts)
	require.Zero(t, report.CoverageExposure, "exposure released on payout")

	require.Len(t, h.sink.OfType(types.EventTypePayoutTriggered), 1)
	require.Len(t, h.sink.OfType(types.EventTypePayoutApproved), 1)
	require.Len(t, h.sink.OfType(types.EventTypePayoutExecuted), 1)
}

func TestTriggerPayout(t *testing.T) {
	t.Run("fail - trigger not met", func(t *testing.T) {
		h := newHarness(t)
		h.fundTreasury(t, 30_000_000)
		h.feedConsensus(t, 30) // below the threshold of 40
		_, err := h.engine.CreatePolicy("alice", basePolicy())
		require.NoError(t, err)

		_, err = h.engine.TriggerPayout("anyone", "pol-1")
		require.ErrorIs(t, err, types.ErrTriggerNotMet)
	})

	t.Run("fail - waiting period", func(t *testing.T) {
		h := newHarness(t)
		h.fundTreasury(t, 30_000_000)
		h.feedConsensus(t, 100)
		p := basePolicy()
		p.StartDate = h.clock.now
		p.WaitingPeriodHours = 24
		_, err := h.engine.CreatePolicy("alice", p)
		require.NoError(t, err)

		_, err = h.engine.TriggerPayout("anyone", "pol-1")
		require.ErrorIs(t, err, types.ErrWaitingPeriod)

		h.clock.now += 24 * 3600
		h.feedConsensus(t, 100) // refresh readings past the staleness window
		_, err = h.engine.TriggerPayout("anyone", "pol-1")
		require.NoError(t, err)
	})

	t.Run("fail - insufficient oracles", func(t *testing.T) {
		h := newHarness(t)
		h.fundTreasury(t, 30_000_000)
		_, err := h.engine.CreatePolicy("alice", basePolicy())
		require.NoError(t, err)

		_, err = h.engine.TriggerPayout("anyone", "pol-1")
		require.ErrorIs(t, err, types.ErrInsufficientOracles)
	})

	t.Run("fail - policy past end date expires lazily", func(t *testing.T) {
		h := newHarness(t)
		h.fundTreasury(t, 30_000_000)
		h.feedConsensus(t, 100)
		_, err := h.engine.CreatePolicy("alice", basePolicy())
		require.NoError(t, err)

		h.clock.now = 2_000_001
		_, err = h.engine.TriggerPayout("anyone", "pol-1")
		require.ErrorIs(t, err, types.ErrPolicyExpired)

		p, err := h.engine.GetPolicy("pol-1")
		require.NoError(t, err)
		require.Equal(t, types.PolicyExpired, p.Status)
		require.Zero(t, h.engine.FinancialReport().CoverageExposure, "exposure released on expiry")
	})

	t.Run("fail - double trigger", func(t *testing.T) {
		h := newHarness(t)
		h.fundTreasury(t, 30_000_000)
		h.feedConsensus(t, 100)
		_, err := h.engine.CreatePolicy("alice", basePolicy())
		require.NoError(t, err)

		_, err = h.engine.TriggerPayout("anyone", "pol-1")
		require.NoError(t, err)
		_, err = h.engine.TriggerPayout("anyone", "pol-1")
		require.ErrorIs(t, err, types.ErrPolicyNotActive)
	})
}

func TestConcurrentTriggerAdmitsOneClaim(t *testing.T) {
	h := newHarness(t)
	h.fundTreasury(t, 30_000_000)
	h.feedConsensus(t, 100)
	_, err := h.engine.CreatePolicy("alice", basePolicy())
	require.NoError(t, err)

	type outcome struct {
		claim types.PendingPayout
		err   error
	}

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan outcome, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claim, err := h.engine.TriggerPayout("anyone", "pol-1")
			results <- outcome{claim, err}
		}()
	}
	wg.Wait()
	close(results)

	var admitted []types.PendingPayout
	for res := range results {
		if res.err == nil {
			admitted = append(admitted, res.claim)
		} else {
			require.ErrorIs(t, res.err, types.ErrPolicyNotActive)
		}
	}
	require.Len(t, admitted, 1, "one claim per policy regardless of contention")
	require.Equal(t, 1, h.engine.QueueStats().Size)

	// One claim means exactly one settlement.
	require.NoError(t, h.engine.ApprovePayout("admin", admitted[0].ID))
	_, err = h.engine.ExecutePayout("anyone", admitted[0].ID)
	require.NoError(t, err)
	require.Len(t, h.funds.disburses, 1)
}

func TestLapsedClaimReleasesPolicy(t *testing.T) {
	h := newHarness(t)
	h.fundTreasury(t, 30_000_000)
	h.feedConsensus(t, 100)
	_, err := h.engine.CreatePolicy("alice", basePolicy())
	require.NoError(t, err)

	admitted, err := h.engine.TriggerPayout("anyone", "pol-1")
	require.NoError(t, err)

	h.clock.now += types.DefaultParams().PayoutTTL + 1
	require.ErrorIs(t, h.engine.RejectPayout("admin", admitted.ID, "late"), types.ErrPayoutExpired)

	// Observing the lapse hands the policy back; its exposure stays booked
	// because the coverage is still in force.
	p, err := h.engine.GetPolicy("pol-1")
	require.NoError(t, err)
	require.Equal(t, types.PolicyActive, p.Status)
	require.Equal(t, uint64(100_000_000), h.engine.FinancialReport().CoverageExposure)

	pp, err := h.engine.GetPayout(admitted.ID)
	require.NoError(t, err)
	require.Equal(t, types.PayoutExpired, pp.Status)

	// The released policy can both claim again and be cancelled.
	h.feedConsensus(t, 100)
	_, err = h.engine.TriggerPayout("anyone", "pol-1")
	require.NoError(t, err)
}

func TestRejectPayoutReactivatesPolicy(t *testing.T) {
	h := newHarness(t)
	h.fundTreasury(t, 30_000_000)
	h.feedConsensus(t, 100)
	_, err := h.engine.CreatePolicy("alice", basePolicy())
	require.NoError(t, err)

	admitted, err := h.engine.TriggerPayout("anyone", "pol-1")
	require.NoError(t, err)

	require.NoError(t, h.engine.RejectPayout("admin", admitted.ID, "oracle dispute"))

	p, err := h.engine.GetPolicy("pol-1")
	require.NoError(t, err)
	require.Equal(t, types.PolicyActive, p.Status)

	_, err = h.engine.ExecutePayout("anyone", admitted.ID)
	require.ErrorIs(t, err, types.ErrInvalidState)
}

func TestCreatePolicy(t *testing.T) {
	t.Run("fail - solvency gate", func(t *testing.T) {
		h := newHarness(t)
		h.fundTreasury(t, 1_000_000) // 20% of 100M coverage needs 20M
		_, err := h.engine.CreatePolicy("alice", basePolicy())
		require.ErrorIs(t, err, types.ErrSolvencyCheckFailed)
	})

	t.Run("fail - premium collection voids the policy", func(t *testing.T) {
		h := newHarness(t)
		h.fundTreasury(t, 30_000_000)
		h.funds.failNext = errors.New("payer balance too low")

		_, err := h.engine.CreatePolicy("alice", basePolicy())
		require.ErrorIs(t, err, types.ErrTransferFailed)

		p, err := h.engine.GetPolicy("pol-1")
		require.NoError(t, err)
		require.Equal(t, types.PolicyCancelled, p.Status)
		require.Zero(t, h.engine.FinancialReport().CoverageExposure)
	})

	t.Run("fail - premium booking overflow voids the policy", func(t *testing.T) {
		h := newHarness(t)
		h.fundTreasury(t, math.MaxUint64)

		// The balance book cannot absorb the premium; issuance must not
		// stop halfway with the policy left active.
		_, err := h.engine.CreatePolicy("alice", basePolicy())
		require.ErrorIs(t, err, types.ErrOverflow)

		p, err := h.engine.GetPolicy("pol-1")
		require.NoError(t, err)
		require.Equal(t, types.PolicyCancelled, p.Status)
		require.Zero(t, h.engine.FinancialReport().CoverageExposure)
	})

	t.Run("fail - uninitialized treasury", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.engine.CreatePolicy("alice", basePolicy())
		require.ErrorIs(t, err, types.ErrNotInitialized)
	})
}

func TestCancelPolicy(t *testing.T) {
	h := newHarness(t)
	h.fundTreasury(t, 30_000_000)
	_, err := h.engine.CreatePolicy("alice", basePolicy())
	require.NoError(t, err)
	require.Equal(t, uint64(100_000_000), h.engine.FinancialReport().CoverageExposure)

	t.Run("fail - stranger may not cancel", func(t *testing.T) {
		require.ErrorIs(t, h.engine.CancelPolicy("mallory", "pol-1"), types.ErrUnauthorized)
	})

	t.Run("owner cancels and exposure is released", func(t *testing.T) {
		require.NoError(t, h.engine.CancelPolicy("alice", "pol-1"))
		p, err := h.engine.GetPolicy("pol-1")
		require.NoError(t, err)
		require.Equal(t, types.PolicyCancelled, p.Status)
		require.Zero(t, h.engine.FinancialReport().CoverageExposure)
	})

	t.Run("fail - cancel twice", func(t *testing.T) {
		require.ErrorIs(t, h.engine.CancelPolicy("alice", "pol-1"), types.ErrPolicyNotActive)
	})
}

func TestPayPremium(t *testing.T) {
	h := newHarness(t)
	h.fundTreasury(t, 30_000_000)
	_, err := h.engine.CreatePolicy("alice", basePolicy())
	require.NoError(t, err)

	require.ErrorIs(t, h.engine.PayPremium("mallory", "pol-1"), types.ErrUnauthorized)

	h.clock.now += 100
	require.NoError(t, h.engine.PayPremium("alice", "pol-1"))

	p, err := h.engine.GetPolicy("pol-1")
	require.NoError(t, err)
	require.Equal(t, h.clock.now, p.LastPremiumPaid)
	require.Equal(t, uint64(4_000_000), h.engine.FinancialReport().TotalPremiums)
}

func TestSubmitReadingAuthority(t *testing.T) {
	h := newHarness(t)
	h.registerOracle(t, "oracle-0")

	reading := types.Reading{Value: 10, Timestamp: h.clock.now, Confidence: 90, Nonce: 1}
	digest := oracle.ReadingDigest("oracle-0", reading.Value, reading.Timestamp, reading.Nonce)
	reading.Signature = ed25519.Sign(h.keys["oracle-0"], digest)

	require.ErrorIs(t, h.engine.SubmitReading("mallory", "oracle-0", reading), types.ErrUnauthorized)
	require.NoError(t, h.engine.SubmitReading("auth-oracle-0", "oracle-0", reading))
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t)
	h.fundTreasury(t, 30_000_000)

	require.ErrorIs(t, h.engine.Pause("mallory"), types.ErrUnauthorized)
	require.NoError(t, h.engine.Pause("admin"))
	require.True(t, h.engine.Paused())

	_, err := h.engine.CreatePolicy("alice", basePolicy())
	require.ErrorIs(t, err, types.ErrPaused)
	require.ErrorIs(t, h.engine.Deposit("whale", types.AssetStable, 100), types.ErrPaused)
	_, err = h.engine.TriggerPayout("anyone", "pol-1")
	require.ErrorIs(t, err, types.ErrPaused)

	require.ErrorIs(t, h.engine.Pause("admin"), types.ErrInvalidState)

	require.NoError(t, h.engine.Resume("admin"))
	require.False(t, h.engine.Paused())
	_, err = h.engine.CreatePolicy("alice", basePolicy())
	require.NoError(t, err)

	require.Len(t, h.sink.OfType(types.EventTypeContractPaused), 1)
	require.Len(t, h.sink.OfType(types.EventTypeContractResumed), 1)
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	h.fundTreasury(t, 1000)

	require.ErrorIs(t, h.engine.Withdraw("mallory", types.AssetStable, 100, "ops"), types.ErrUnauthorized)

	require.NoError(t, h.engine.Withdraw("admin", types.AssetStable, 400, "ops"))
	require.Len(t, h.funds.disburses, 1)
	require.Equal(t, transfer{types.AssetStable, 400, "admin"}, h.funds.disburses[0])

	_, err := h.engine.CreatePolicy("alice", basePolicy())
	require.ErrorIs(t, err, types.ErrSolvencyCheckFailed)
}

func TestAdminOnlyOracleOps(t *testing.T) {
	h := newHarness(t)
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	require.ErrorIs(t,
		h.engine.RegisterOracle("mallory", "o", "a", types.OracleWeather, "feed://o", pub),
		types.ErrUnauthorized)
	require.ErrorIs(t, h.engine.EmergencyOverride("mallory", "o", types.Reading{Value: 1}, "x"), types.ErrUnauthorized)
	require.ErrorIs(t, h.engine.ResetCircuitBreaker("mallory", "o"), types.ErrUnauthorized)
	require.ErrorIs(t, h.engine.UnregisterOracle("mallory", "o"), types.ErrUnauthorized)
	require.ErrorIs(t, h.engine.SetOracleActive("mallory", "o", false), types.ErrUnauthorized)
}
