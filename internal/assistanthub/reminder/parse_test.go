package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Grammar(t *testing.T) {
	cases := []struct {
		in   string
		want Parsed
	}{
		{
			in:   "remind me to call mom at 18:30",
			want: Parsed{Task: "call mom", Hour: 18, Minute: 30},
		},
		{
			in:   "Remind me to pay rent at 9:05 on 01:11:2026 monthly",
			want: Parsed{Task: "pay rent", Hour: 9, Minute: 5, HasDate: true, Day: 1, Month: time.November, Year: 2026, Recurrence: Monthly},
		},
		{
			in:   "please remind me to eat at home at 12:00 daily.",
			want: Parsed{Task: "eat at home", Hour: 12, Minute: 0, Recurrence: Daily},
		},
		{
			in:   "remind me to stretch at 07:45 weekly",
			want: Parsed{Task: "stretch", Hour: 7, Minute: 45, Recurrence: Weekly},
		},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{
		"remind me to call mom",
		"remind me to call mom tomorrow evening",
		"remind me to call mom at 25:00",
		"remind me to call mom at 10:61",
		"remind me to call mom at 10:00 on 31:02:2026",
		"set an alarm at 10:00",
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrNoMatch, in)
	}
}

func TestParse_Deterministic(t *testing.T) {
	in := "remind me to water plants at 06:15 on 03:04:2027 weekly"
	a, err := Parse(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		b, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestResolve_ElapsedTimeMovesOneDay(t *testing.T) {
	now := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	p, err := Parse("remind me to call mom at 18:30")
	require.NoError(t, err)

	got := p.Resolve(now)
	naive := time.Date(2026, 10, 16, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC), got)
	assert.Equal(t, 24*time.Hour, got.Sub(naive))
	assert.Equal(t, None, p.Recurrence)
	assert.Equal(t, "call mom", p.Task)
}

func TestResolve_FutureTimeStaysToday(t *testing.T) {
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	p := Parsed{Task: "x", Hour: 18, Minute: 30}
	assert.Equal(t, time.Date(2026, 10, 16, 18, 30, 0, 0, time.UTC), p.Resolve(now))
}

func TestResolve_ExplicitDateIsKept(t *testing.T) {
	now := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	p := Parsed{Task: "x", Hour: 8, Minute: 0, HasDate: true, Day: 16, Month: time.October, Year: 2026}
	at := p.Resolve(now)
	assert.Equal(t, time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC), at)
	assert.Equal(t, time.Duration(0), Delay(at, now))
}

func TestParseExtracted(t *testing.T) {
	p, err := ParseExtracted("Sure:\ncall mom | 18:30 | 17:10:2026 | daily\n")
	require.NoError(t, err)
	assert.Equal(t, Parsed{Task: "call mom", Hour: 18, Minute: 30, HasDate: true, Day: 17, Month: time.October, Year: 2026, Recurrence: Daily}, p)

	p, err = ParseExtracted("`buy milk|07:00||none`")
	require.NoError(t, err)
	assert.Equal(t, Parsed{Task: "buy milk", Hour: 7}, p)

	for _, bad := range []string{"none", "none|||", "x|7pm||", "x|07:00|32:01:2026|", "x|07:00||yearly"} {
		_, err := ParseExtracted(bad)
		assert.Error(t, err, bad)
	}
}
