package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBillingProfile(t *testing.T) {
	t.Run("starts on free tier, active", func(t *testing.T) {
		profile, err := NewBillingProfile(uuid.New())

		require.NoError(t, err)
		assert.Equal(t, PlanFree, profile.Plan)
		assert.Equal(t, SubscriptionActive, profile.Status)
		assert.Zero(t, profile.OrdersSynced)
	})

	t.Run("fails with nil user", func(t *testing.T) {
		_, err := NewBillingProfile(uuid.Nil)
		assert.ErrorIs(t, err, ErrInvalidUserID)
	})
}

func TestBillingStateMachine(t *testing.T) {
	newProfile := func(t *testing.T) *BillingProfile {
		p, err := NewBillingProfile(uuid.New())
		require.NoError(t, err)
		return p
	}

	t.Run("checkout activates paid plan", func(t *testing.T) {
		p := newProfile(t)

		require.NoError(t, p.Activate(PlanPro, "cus_123", "sub_456"))
		assert.Equal(t, PlanPro, p.Plan)
		assert.Equal(t, SubscriptionActive, p.Status)
		assert.Equal(t, "cus_123", p.StripeCustomerID)
		assert.Equal(t, "sub_456", p.StripeSubscriptionID)
	})

	t.Run("activate rejects unknown plan", func(t *testing.T) {
		p := newProfile(t)
		assert.ErrorIs(t, p.Activate(Plan("enterprise"), "cus_1", "sub_1"), ErrInvalidPlan)
	})

	t.Run("past due keeps the plan", func(t *testing.T) {
		p := newProfile(t)
		require.NoError(t, p.Activate(PlanStarter, "cus_1", "sub_1"))

		p.MarkPastDue()
		assert.Equal(t, SubscriptionPastDue, p.Status)
		assert.Equal(t, PlanStarter, p.Plan)
	})

	t.Run("cancel reverts to free tier", func(t *testing.T) {
		p := newProfile(t)
		require.NoError(t, p.Activate(PlanPro, "cus_1", "sub_1"))

		p.Cancel()
		assert.Equal(t, SubscriptionCancelled, p.Status)
		assert.Equal(t, PlanFree, p.Plan)
		assert.Empty(t, p.StripeSubscriptionID)
		assert.Equal(t, "cus_1", p.StripeCustomerID)
	})

	t.Run("cancellation is not terminal", func(t *testing.T) {
		p := newProfile(t)
		require.NoError(t, p.Activate(PlanPro, "cus_1", "sub_1"))
		p.Cancel()

		require.NoError(t, p.Activate(PlanStarter, "cus_1", "sub_2"))
		assert.Equal(t, SubscriptionActive, p.Status)
		assert.Equal(t, PlanStarter, p.Plan)
		assert.Equal(t, "sub_2", p.StripeSubscriptionID)
	})

	t.Run("invoice paid resets usage counters", func(t *testing.T) {
		p := newProfile(t)
		p.OrdersSynced = 812
		start := time.Now()
		end := start.AddDate(0, 1, 0)

		p.ResetUsage(start, end)
		assert.Zero(t, p.OrdersSynced)
		require.NotNil(t, p.PeriodStart)
		assert.Equal(t, start, *p.PeriodStart)
		assert.Equal(t, end, *p.PeriodEnd)
	})
}
