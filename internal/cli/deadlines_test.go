package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		deadlinesSLA, deadlinesStart, deadlinesTimezone = "48", "", "UTC"
	})
	err := rootCmd.Execute()
	return out, err
}

func TestDeadlinesSkipsWeekend(t *testing.T) {
	out, err := runRoot(t, "deadlines", "--sla", "2 days", "--start", "2025-01-03T11:00:00Z")
	require.NoError(t, err)

	var got deadlinesOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))

	assert.Equal(t, 48.0, got.SLAHours)
	// Friday 11:00 + 5h acknowledgement window stays on Friday.
	assert.True(t, got.AcknowledgementDueAt.Equal(time.Date(2025, 1, 3, 16, 0, 0, 0, time.UTC)))
	// 13h left on Friday, then Monday and Tuesday.
	assert.True(t, got.ResolutionDueAt.Equal(time.Date(2025, 1, 7, 11, 0, 0, 0, time.UTC)))
}

func TestDeadlinesRejectsBadInput(t *testing.T) {
	cases := map[string][]string{
		"sla":      {"deadlines", "--sla", "soon"},
		"start":    {"deadlines", "--start", "yesterday"},
		"timezone": {"deadlines", "--tz", "Mars/Olympus"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := runRoot(t, args...)
			assert.Error(t, err)
		})
	}
}
