package clock_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/utils/clock"
)

func TestMockAdvance(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := clock.NewMock(start)
	gt.Bool(t, c.Now().Equal(start)).True()

	c.Advance(90 * time.Second)
	gt.Bool(t, c.Now().Equal(start.Add(90*time.Second))).True()

	c.Set(start.Add(-time.Hour))
	gt.Bool(t, c.Now().Equal(start.Add(-time.Hour))).True()
}

func TestSystemIsUTC(t *testing.T) {
	gt.Value(t, clock.System().Now().Location()).Equal(time.UTC)
}

func TestIn(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	gt.NoError(t, err).Required()

	local := clock.In(time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC), loc)
	gt.Number(t, local.Hour()).Equal(9)
	gt.Value(t, local.Weekday()).Equal(time.Monday)
}
