package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Aggregates(t *testing.T) {
	tracker := NewTracker()

	base := time.Now()
	tracker.Observe("AddOrder_Success", base, base.Add(2*time.Microsecond), 1)
	tracker.Observe("AddOrder_Success", base, base.Add(6*time.Microsecond), 1)
	tracker.Observe("MatchOrders", base, base.Add(time.Microsecond), 3)

	summaries := tracker.Summaries()

	add := summaries["AddOrder_Success"]
	assert.Equal(t, uint64(2), add.Count)
	assert.Equal(t, uint64(2), add.Affected)
	assert.Equal(t, 2*time.Microsecond, add.Min)
	assert.Equal(t, 6*time.Microsecond, add.Max)
	assert.Equal(t, 4*time.Microsecond, add.Mean())

	match := summaries["MatchOrders"]
	assert.Equal(t, uint64(1), match.Count)
	assert.Equal(t, uint64(3), match.Affected)

	// Summaries is a copy; mutating it must not touch the tracker.
	summaries["AddOrder_Success"] = OpSummary{}
	assert.Equal(t, uint64(2), tracker.Summaries()["AddOrder_Success"].Count)
}

func TestTracker_MeanOfEmpty(t *testing.T) {
	var summary OpSummary
	assert.Equal(t, time.Duration(0), summary.Mean())
}
