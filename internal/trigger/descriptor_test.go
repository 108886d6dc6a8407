package trigger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcraft/corerun/internal/domain"
)

func TestValidateRejectsOutOfRangeFields(t *testing.T) {
	cases := []struct {
		name string
		desc Descriptor
	}{
		{"bad second", Descriptor{Kind: KindEveryMinute, Second: 60}},
		{"bad minute", Descriptor{Kind: KindEveryHour, Minute: 60}},
		{"bad hour", Descriptor{Kind: KindEveryDay, Hour: 24}},
		{"bad day", Descriptor{Kind: KindEveryMonth, Day: 32}},
		{"bad month", Descriptor{Kind: KindEveryYear, Month: 13, Day: 1}},
		{"feb 30 does not exist", Descriptor{Kind: KindEveryYear, Month: 2, Day: 30}},
		{"april 31 does not exist", Descriptor{Kind: KindEveryYear, Month: 4, Day: 31}},
		{"bad interval", Descriptor{Kind: KindInterval, Interval: 0}},
		{"unknown kind", Descriptor{Kind: "bogus"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.desc.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrScheduleInvalid))
		})
	}
}

func TestValidateAllowsFeb29ForEveryYear(t *testing.T) {
	d := Descriptor{Kind: KindEveryYear, Month: 2, Day: 29, Hour: 0, Minute: 0, Second: 0}
	assert.NoError(t, d.Validate())
}

func TestNextEveryMinuteAdvancesWhenPast(t *testing.T) {
	d := Descriptor{Kind: KindEveryMinute, Second: 30}
	now := time.Date(2026, 1, 1, 10, 0, 45, 0, time.UTC)
	next := d.NextExecutionTime(now)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 1, 30, 0, time.UTC), next)
}

func TestNextEveryDayFiresTodayIfStillAhead(t *testing.T) {
	d := Descriptor{Kind: KindEveryDay, Hour: 9, Minute: 0, Second: 0}
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	next := d.NextExecutionTime(now)
	assert.Equal(t, time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), next)
}

func TestNextEveryMonthSkipsMonthsWithoutTheDay(t *testing.T) {
	d := Descriptor{Kind: KindEveryMonth, Day: 31, Hour: 0, Minute: 0, Second: 0}
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) // April has 30 days
	next := d.NextExecutionTime(now)
	assert.Equal(t, time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), next)
}

func TestNextEveryYearSkipsToNextLeapYearForFeb29(t *testing.T) {
	d := Descriptor{Kind: KindEveryYear, Month: 2, Day: 29, Hour: 0, Minute: 0, Second: 0}
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	next := d.NextExecutionTime(now)
	assert.Equal(t, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), next)
}

func TestIntervalAddsDurationToNow(t *testing.T) {
	d := Descriptor{Kind: KindInterval, Interval: 5 * time.Minute}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := d.NextExecutionTime(now)
	assert.Equal(t, now.Add(5*time.Minute), next)
}
