package clock

import (
	"sync"
	"time"

	"github.com/hennyhux/changsheng/internal/domain/port"
	"github.com/hennyhux/changsheng/internal/domain/valueobject"
)

var (
	_ port.Clock = System{}
	_ port.Clock = (*Fixed)(nil)
)

// System reads the wall clock in UTC.
type System struct{}

func (System) Now() time.Time   { return time.Now().UTC() }
func (System) Today() time.Time { return valueobject.DateOf(time.Now().UTC()) }

// Fixed is a settable clock for tests and for replaying a run as of a date.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Today() time.Time { return valueobject.DateOf(f.Now()) }

func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now.UTC()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
