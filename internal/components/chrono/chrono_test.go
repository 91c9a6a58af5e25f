package chrono

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToday(t *testing.T) {
	cases := []struct {
		now      time.Time
		expected string
	}{
		// 14:59 UTC is still the same day in Tokyo
		{now: time.Date(2025, time.August, 5, 14, 59, 0, 0, time.UTC), expected: "20250805"},
		// 15:00 UTC is midnight in Tokyo
		{now: time.Date(2025, time.August, 5, 15, 0, 0, 0, time.UTC), expected: "20250806"},
		{now: time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC), expected: "20250101"},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, Today(NewFakeImpl(test.now)))
	}
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("20250805")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.August, 5, 0, 0, 0, 0, JST()), parsed)

	for _, invalid := range []string{"2025085", "2025-08-05", "20251305", "20250230", "abcdefgh", ""} {
		_, err := ParseDate(invalid)
		require.Error(t, err, invalid)
	}
}

func TestStandardWaitCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := NewStandardImpl().Wait(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestFakeWaitRecords(t *testing.T) {
	fake := NewFakeImpl(time.Now())
	require.NoError(t, fake.Wait(context.Background(), time.Second))
	require.NoError(t, fake.Wait(context.Background(), 2*time.Second))
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fake.Waits())
}
