package afserver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"foldbatch/internal/driver"
)

func TestClassifyStatusText(t *testing.T) {
	cases := []struct {
		raw  string
		want driver.Status
		ok   bool
	}{
		{"check_circle", driver.StatusCompleted, true},
		{"Done", driver.StatusCompleted, true},
		{"Prediction complete", driver.StatusCompleted, true},
		{"error", driver.StatusFailed, true},
		{"error_outline", driver.StatusFailed, true},
		{"Job failed", driver.StatusFailed, true},
		{"cancel", driver.StatusFailed, true},
		{"Running", driver.StatusRunning, true},
		{"progress_activity", driver.StatusRunning, true},
		{"In progress", driver.StatusRunning, true},
		{"hourglass_empty", driver.StatusRunning, true},
		{"Queued", driver.StatusQueued, true},
		{"schedule", driver.StatusQueued, true},
		{"Pending", driver.StatusQueued, true},
		{"", driver.StatusUnknown, false},
		{"some unrelated label", driver.StatusUnknown, false},
	}
	for _, tc := range cases {
		got, ok := ClassifyStatusText(tc.raw)
		require.Equal(t, tc.want, got, "raw=%q", tc.raw)
		require.Equal(t, tc.ok, ok, "raw=%q", tc.raw)
	}
}

func TestClassifyStatusTextCaseInsensitive(t *testing.T) {
	got, ok := ClassifyStatusText("CHECK_CIRCLE")
	require.True(t, ok)
	require.Equal(t, driver.StatusCompleted, got)
}
