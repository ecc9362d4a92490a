package scheduler

import "time"

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time and timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is backed by package time.
var RealClock Clock = realClock{}
