package timing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopwatchLaps(t *testing.T) {
	s := Start()
	time.Sleep(time.Millisecond)
	first := s.Lap("metric_loop")
	second := s.Lap("generation_loop")

	assert.GreaterOrEqual(t, first, time.Millisecond)
	assert.GreaterOrEqual(t, second, time.Duration(0))

	laps := s.Laps()
	require.Len(t, laps, 2)
	assert.Equal(t, "metric_loop", laps[0].Name)
	assert.Equal(t, first, laps[0].Duration)

	assert.GreaterOrEqual(t, s.Total(), first+second)
}

func TestStopwatchString(t *testing.T) {
	s := Start()
	s.Lap("reduce")
	out := s.String()
	assert.True(t, strings.HasPrefix(out, "reduce="))
	assert.Contains(t, out, "total=")
}
