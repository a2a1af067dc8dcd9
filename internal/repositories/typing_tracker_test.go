package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingTrackerExpiry(t *testing.T) {
	tr := NewTypingTracker()
	tr.Start("u1", "Ann", "c1", t0)

	assert.Empty(t, tr.SweepExpired(t0.Add(5*time.Second), 30*time.Second))
	assert.True(t, tr.IsTyping("u1"))

	assert.Equal(t, []string{"u1"}, tr.SweepExpired(t0.Add(31*time.Second), 30*time.Second))
	assert.False(t, tr.IsTyping("u1"))
	assert.Equal(t, 0, tr.Len())
}

func TestTypingTrackerStartRefreshes(t *testing.T) {
	tr := NewTypingTracker()
	tr.Start("u1", "Ann", "c1", t0)
	tr.Start("u1", "Ann", "c1", t0.Add(20*time.Second))

	require.Equal(t, 1, tr.Len())
	assert.Empty(t, tr.SweepExpired(t0.Add(31*time.Second), 30*time.Second))
}

func TestTypingTrackerStop(t *testing.T) {
	tr := NewTypingTracker()
	tr.Start("u1", "Ann", "c1", t0)

	st, ok := tr.Stop("u1")
	require.True(t, ok)
	assert.Equal(t, "Ann", st.DisplayName)
	assert.Equal(t, "c1", st.ConnectionID)

	_, ok = tr.Stop("u1")
	assert.False(t, ok)
	assert.Empty(t, tr.SweepExpired(t0.Add(time.Hour), 30*time.Second))
}

func TestTypingTrackerSweepIsSorted(t *testing.T) {
	tr := NewTypingTracker()
	tr.Start("c", "C", "1", t0)
	tr.Start("a", "A", "2", t0)
	tr.Start("b", "B", "3", t0.Add(time.Minute))

	assert.Equal(t, []string{"a", "c"}, tr.SweepExpired(t0.Add(45*time.Second), 30*time.Second))
}
