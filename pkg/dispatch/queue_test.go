package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func TestNewQueue_NilPool(t *testing.T) {
	t.Parallel()

	_, err := NewQueue[testPayload](nil, nil)
	require.ErrorIs(t, err, ErrPoolRequired)
}

func TestBuildTaskArgs(t *testing.T) {
	t.Parallel()

	before := time.Now()
	args, opts, err := buildTaskArgs(testPayload{Message: "hello", Count: 42}, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, taskKind, args.Kind())
	assert.Equal(t, 1, opts.MaxAttempts)
	assert.WithinRange(t, opts.ScheduledAt, before.Add(time.Minute), time.Now().Add(time.Minute))

	var decoded testPayload
	require.NoError(t, json.Unmarshal(args.Payload, &decoded))
	assert.Equal(t, testPayload{Message: "hello", Count: 42}, decoded)
}

func TestBuildTaskArgs_Unmarshalable(t *testing.T) {
	t.Parallel()

	_, _, err := buildTaskArgs(func() {}, time.Second)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestParseCronSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "every minute", expr: "* * * * *"},
		{name: "every 15 minutes", expr: "*/15 * * * *"},
		{name: "daily at midnight", expr: "0 0 * * *"},
		{name: "six fields", expr: "0 0 0 * * *", wantErr: true},
		{name: "garbage", expr: "not a cron", wantErr: true},
		{name: "empty", expr: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			schedule, err := parseCronSchedule(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			now := time.Now()
			assert.True(t, schedule.Next(now).After(now))
		})
	}
}
