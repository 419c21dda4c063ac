package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock is the source of "now" for every expiration decision.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

func New() Clock {
	return RealClock{}
}

var Module = fx.Module("clock",
	fx.Provide(New),
)
