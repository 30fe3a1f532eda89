package clock

import "time"

// Clock is the single source of "now" for date classification and check-in times.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns the process-local wall clock. Event dates carry no zone,
// so they are compared in whatever location the process runs in.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

type fixedClock struct {
	now time.Time
}

func NewFixed(t time.Time) Clock {
	return fixedClock{now: t}
}

func (f fixedClock) Now() time.Time {
	return f.now
}
