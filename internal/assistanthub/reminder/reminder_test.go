package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurrenceNext(t *testing.T) {
	base := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), Daily.Next(base))
	assert.Equal(t, time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC), Weekly.Next(base))
	assert.Equal(t, time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC), Monthly.Next(base))
	assert.Equal(t, time.Date(2026, 4, 30, 9, 0, 0, 0, time.UTC), Monthly.Next(time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2027, 1, 15, 9, 0, 0, 0, time.UTC), Monthly.Next(time.Date(2026, 12, 15, 9, 0, 0, 0, time.UTC)))
	assert.True(t, None.Next(base).IsZero())
}

func TestParseRecurrence(t *testing.T) {
	for in, want := range map[string]Recurrence{"": None, "none": None, "Daily": Daily, " weekly ": Weekly, "MONTHLY": Monthly} {
		got, err := ParseRecurrence(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseRecurrence("hourly")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	r := Reminder{Task: "call mom", FireAt: time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC)}
	assert.Equal(t, "Reminder set for 'call mom' at 18:30 on 17-10-2026.", r.Describe())
	r.Recurrence = Weekly
	assert.Equal(t, "Reminder set for 'call mom' at 18:30 on 17-10-2026 (weekly).", r.Describe())
}
