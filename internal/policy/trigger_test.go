package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siglab/settlement/internal/types"
)

func TestTriggerMet(t *testing.T) {
	cases := []struct {
		name      string
		op        types.Comparator
		threshold float64
		value     uint64
		want      bool
	}{
		{"gt met", types.GreaterThan, 100, 101, true},
		{"gt not met", types.GreaterThan, 100, 100, false},
		{"lt met", types.LessThan, 100, 99, true},
		{"lt not met", types.LessThan, 100, 100, false},
		{"eq exact", types.Equals, 100, 100, true},
		{"eq within tolerance", types.Equals, 100.005, 100, true},
		{"eq outside tolerance", types.Equals, 100.02, 100, false},
		{"ne met", types.NotEquals, 100.02, 100, true},
		{"ne not met", types.NotEquals, 100, 100, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cond := types.TriggerConditions{ThresholdValue: tc.threshold, Operator: tc.op}
			require.Equal(t, tc.want, TriggerMet(cond, tc.value))
		})
	}
}

func TestSeverity(t *testing.T) {
	cases := []struct {
		name      string
		threshold float64
		value     uint64
		want      uint8
	}{
		{"at threshold", 100, 100, 0},
		{"half over", 100, 150, 50},
		{"capped at 100", 100, 500, 100},
		{"truncated", 100, 133, 33},
		{"zero threshold nonzero value", 0, 7, 100},
		{"zero threshold zero value", 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cond := types.TriggerConditions{ThresholdValue: tc.threshold, Operator: types.GreaterThan}
			require.Equal(t, tc.want, Severity(cond, tc.value))
		})
	}
}

func TestPriority(t *testing.T) {
	require.Equal(t, uint8(90), Priority(types.InsuranceEarthquake, 0))
	require.Equal(t, uint8(100), Priority(types.InsuranceEarthquake, 50))
	require.Equal(t, uint8(100), Priority(types.InsuranceEarthquake, 100))
	require.Equal(t, uint8(82), Priority(types.InsuranceCrop, 10))
	require.Equal(t, uint8(70), Priority(types.InsuranceWeather, 3))
	require.Equal(t, uint8(60), Priority(types.InsuranceFlight, 0))
	require.Equal(t, uint8(75), Priority(types.InsuranceCustom, 100))
}

func TestPayoutAmount(t *testing.T) {
	t.Run("above deductible, capped by max", func(t *testing.T) {
		got, err := PayoutAmount(1000, 100, 50, 600)
		require.NoError(t, err)
		require.Equal(t, uint64(400), got)
	})

	t.Run("below deductible pays nothing", func(t *testing.T) {
		got, err := PayoutAmount(1000, 600, 50, 600)
		require.NoError(t, err)
		require.Zero(t, got)
	})

	t.Run("cap applies", func(t *testing.T) {
		got, err := PayoutAmount(1000, 0, 100, 250)
		require.NoError(t, err)
		require.Equal(t, uint64(250), got)
	})

	t.Run("exactly at deductible pays nothing", func(t *testing.T) {
		got, err := PayoutAmount(1000, 500, 50, 600)
		require.NoError(t, err)
		require.Zero(t, got)
	})
}

func TestWaitingPeriodElapsed(t *testing.T) {
	p := &types.Policy{StartDate: 1000, WaitingPeriodHours: 2}
	require.False(t, WaitingPeriodElapsed(p, 1000+7199))
	require.True(t, WaitingPeriodElapsed(p, 1000+7200))
}

func TestStoreCreate(t *testing.T) {
	params := types.DefaultParams()
	require.NoError(t, params.Validate())
	params.MaxPolicies = 2

	base := types.Policy{
		ID:             "pol-1",
		Owner:          "alice",
		Type:           types.InsuranceWeather,
		Asset:          types.AssetStable,
		CoverageAmount: 500_000_000,
		PremiumAmount:  2_000_000,
		StartDate:      1000,
		EndDate:        100000,
		Trigger:        types.TriggerConditions{ThresholdValue: 40, Operator: types.GreaterThan},
	}

	t.Run("success", func(t *testing.T) {
		s := NewStore(params)
		require.NoError(t, s.Create(base, 1000))

		got, err := s.Get("pol-1")
		require.NoError(t, err)
		require.Equal(t, types.PolicyActive, got.Status)
		require.Equal(t, base.CoverageAmount, got.MaxPayoutPerIncident, "defaults to coverage")
	})

	t.Run("fail - duplicate", func(t *testing.T) {
		s := NewStore(params)
		require.NoError(t, s.Create(base, 1000))
		require.ErrorIs(t, s.Create(base, 1000), types.ErrInvalidState)
	})

	t.Run("fail - premium too low", func(t *testing.T) {
		s := NewStore(params)
		p := base
		p.PremiumAmount = 10
		require.ErrorIs(t, s.Create(p, 1000), types.ErrPremiumTooLow)
	})

	t.Run("fail - coverage exceeds max", func(t *testing.T) {
		s := NewStore(params)
		p := base
		p.CoverageAmount = params.MaxCoverageAmount + 1
		require.ErrorIs(t, s.Create(p, 1000), types.ErrCoverageExceedsMax)
	})

	t.Run("fail - at capacity", func(t *testing.T) {
		s := NewStore(params)
		for i, id := range []string{"a", "b"} {
			p := base
			p.ID = id
			require.NoError(t, s.Create(p, int64(i)))
		}
		p := base
		p.ID = "c"
		require.ErrorIs(t, s.Create(p, 3), types.ErrPolicyStoreFull)
	})

	t.Run("fail - inverted dates", func(t *testing.T) {
		s := NewStore(params)
		p := base
		p.EndDate = p.StartDate
		require.ErrorIs(t, s.Create(p, 1000), types.ErrInvalidInput)
	})
}

func TestStoreUpdate(t *testing.T) {
	params := types.DefaultParams()
	require.NoError(t, params.Validate())
	s := NewStore(params)

	p := types.Policy{
		ID:             "pol-1",
		Owner:          "alice",
		Type:           types.InsuranceWeather,
		Asset:          types.AssetStable,
		CoverageAmount: 500_000_000,
		PremiumAmount:  2_000_000,
		StartDate:      1000,
		EndDate:        100000,
	}
	require.NoError(t, s.Create(p, 1000))

	t.Run("mutation applies", func(t *testing.T) {
		got, err := s.Update("pol-1", 2000, func(p *types.Policy) error {
			p.Status = types.PolicyPendingPayout
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, types.PolicyPendingPayout, got.Status)
		require.Equal(t, int64(2000), got.UpdatedAt)
	})

	t.Run("failed mutation leaves policy unchanged", func(t *testing.T) {
		_, err := s.Update("pol-1", 3000, func(p *types.Policy) error {
			p.Status = types.PolicyPaidOut
			return types.ErrInvalidState
		})
		require.ErrorIs(t, err, types.ErrInvalidState)

		got, err := s.Get("pol-1")
		require.NoError(t, err)
		require.Equal(t, types.PolicyPendingPayout, got.Status)
		require.Equal(t, int64(2000), got.UpdatedAt)
	})

	t.Run("unknown policy", func(t *testing.T) {
		_, err := s.Update("missing", 0, func(*types.Policy) error { return nil })
		require.ErrorIs(t, err, types.ErrPolicyNotFound)
	})
}
