package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/teambition/rrule-go"
)

func TestDayCodeTable(t *testing.T) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		code := DayCode(d)
		assert.Len(t, code, 2)
		back, ok := ParseDayCode(code)
		assert.True(t, ok)
		assert.Equal(t, d, back)
	}
	assert.Equal(t, "MO", DayCode(time.Monday))
	assert.Equal(t, "SU", DayCode(time.Sunday))
	assert.Equal(t, rrule.SU, RuleWeekday(time.Sunday))
}

func TestParseDayCode(t *testing.T) {
	d, ok := ParseDayCode("-1fr")
	assert.True(t, ok)
	assert.Equal(t, time.Friday, d)

	_, ok = ParseDayCode("XX")
	assert.False(t, ok)
}

func TestFormatAndParseByDay(t *testing.T) {
	days := []time.Weekday{time.Sunday, time.Thursday, time.Tuesday, time.Thursday}
	assert.Equal(t, "TU,TH,SU", FormatByDay(days))
	assert.Equal(t, []time.Weekday{time.Tuesday, time.Thursday, time.Sunday}, ParseByDayValue("SU,TU,TH"))
	assert.Equal(t, "", FormatByDay(nil))
}

func TestParseByDay(t *testing.T) {
	assert.Equal(t, []time.Weekday{time.Tuesday, time.Thursday}, ParseByDay("FREQ=WEEKLY;BYDAY=TU,TH;UNTIL=20250502T235959Z"))
	assert.Nil(t, ParseByDay("FREQ=WEEKLY;INTERVAL=1"))
}
