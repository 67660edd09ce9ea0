// Package timing provides lightweight elapsed-time instrumentation for
// engine operations, reporting through the same structured logger the
// rest of the module uses rather than printing directly.
package timing

import (
	"time"

	"github.com/zerodha/logf"
)

// Timer measures the elapsed time of one operation, optionally spanning
// more than one logical event (e.g. every record in a batch insert), and
// reports it when Stop is called. The zero value is not usable; build one
// with Start.
type Timer struct {
	lo      logf.Logger
	message string
	start   time.Time
	events  int
}

// Start begins timing message and returns a Timer ready to be stopped,
// typically with defer.
func Start(lo logf.Logger, message string) *Timer {
	return &Timer{lo: lo, message: message, start: time.Now(), events: 1}
}

// AddCount records that the operation being timed covered n additional
// events, so Stop can report a per-event average alongside the total.
func (t *Timer) AddCount(n int) {
	t.events += n
}

// Stop logs the elapsed time since Start and resets the clock, so a Timer
// can be reused across a sequence of named measures via NewMeasure.
func (t *Timer) Stop() {
	elapsed := time.Since(t.start)
	if t.events <= 1 {
		t.lo.Debug(t.message, "elapsed", elapsed.String())
	} else {
		t.lo.Debug(t.message, "elapsed", elapsed.String(), "events", t.events, "per_event", (elapsed / time.Duration(t.events)).String())
	}
	t.start = time.Now()
}

// NewMeasure stops the current measure and begins a new one under message.
func (t *Timer) NewMeasure(message string) {
	t.Stop()
	t.message = message
	t.events = 1
}
