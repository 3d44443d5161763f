package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOutcome(t *testing.T) {
	t.Run("ApprovalIncreasesReputation", func(t *testing.T) {
		u := &User{ReputationScore: 50.0}
		u.ApplyOutcome(true)

		assert.Equal(t, 1, u.TotalReports)
		assert.Equal(t, 1, u.ApprovedReports)
		assert.Equal(t, 0, u.RejectedReports)
		assert.Equal(t, 50.5, u.ReputationScore)
		assert.False(t, u.IsBanned)
	})

	t.Run("ReputationCappedAt100", func(t *testing.T) {
		u := &User{ReputationScore: 99.8}
		u.ApplyOutcome(true)
		assert.Equal(t, 100.0, u.ReputationScore)

		u.ApplyOutcome(true)
		assert.Equal(t, 100.0, u.ReputationScore)
	})

	t.Run("RejectionDecreasesReputation", func(t *testing.T) {
		u := &User{ReputationScore: 100.0}
		u.ApplyOutcome(false)

		assert.Equal(t, 1, u.TotalReports)
		assert.Equal(t, 1, u.RejectedReports)
		assert.Equal(t, 98.0, u.ReputationScore)
		assert.False(t, u.IsBanned)
	})

	t.Run("ReputationFlooredAtZero", func(t *testing.T) {
		u := &User{ReputationScore: 1.0, IsBanned: true}
		u.ApplyOutcome(false)
		assert.Equal(t, 0.0, u.ReputationScore)
	})

	t.Run("AutoBanBelowThreshold", func(t *testing.T) {
		u := &User{ReputationScore: 21.0}
		u.ApplyOutcome(false)

		assert.Equal(t, 19.0, u.ReputationScore)
		assert.True(t, u.IsBanned)
		require.NotNil(t, u.BanReason)
		assert.NotEmpty(t, *u.BanReason)
	})

	t.Run("ApprovalNeverUnbans", func(t *testing.T) {
		u := &User{ReputationScore: 21.0}
		u.ApplyOutcome(false)
		require.True(t, u.IsBanned)

		// Recovery above the threshold keeps the ban in place.
		for i := 0; i < 10; i++ {
			u.ApplyOutcome(true)
		}
		assert.Greater(t, u.ReputationScore, 20.0)
		assert.True(t, u.IsBanned)
		require.NotNil(t, u.BanReason)
		assert.Equal(t, BanReasonLowReputation, *u.BanReason)
	})

	t.Run("CountersMonotonic", func(t *testing.T) {
		u := &User{ReputationScore: 100.0}
		outcomes := []bool{true, false, true, true, false}
		for _, approved := range outcomes {
			before := u.TotalReports
			u.ApplyOutcome(approved)
			assert.Equal(t, before+1, u.TotalReports)
		}
		assert.Equal(t, 3, u.ApprovedReports)
		assert.Equal(t, 2, u.RejectedReports)
	})
}
