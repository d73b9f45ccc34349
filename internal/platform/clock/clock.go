package clock

import "time"

// Clock abstracts time so auction expiry can be driven deterministically
// in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func New() Clock { return realClock{} }
