package recurrence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_MatchesDecode(t *testing.T) {
	c := NewCache(2)
	rule := "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO,WE;COUNT=4"

	first := c.Decode(rule)
	second := c.Decode(rule)
	assert.Equal(t, Decode(rule), first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.Len())
}

func TestCache_CallerCannotMutateEntry(t *testing.T) {
	c := NewCache(0)
	rule := "FREQ=WEEKLY;BYDAY=TU"

	cfg := c.Decode(rule)
	cfg.DaysOfWeek[0] = time.Saturday

	assert.Equal(t, []time.Weekday{time.Tuesday}, c.Decode(rule).DaysOfWeek)
}

func TestCache_Evicts(t *testing.T) {
	c := NewCache(2)
	c.Decode("FREQ=DAILY")
	c.Decode("FREQ=WEEKLY")
	c.Decode("FREQ=MONTHLY")
	assert.Equal(t, 2, c.Len())
}

func TestCache_Concurrent(t *testing.T) {
	c := NewCache(8)
	rules := []string{"FREQ=DAILY", "FREQ=WEEKLY;BYDAY=FR", "FREQ=YEARLY;COUNT=2", "bogus"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rule := rules[i%len(rules)]
			assert.Equal(t, Decode(rule), c.Decode(rule))
		}(i)
	}
	wg.Wait()
}
