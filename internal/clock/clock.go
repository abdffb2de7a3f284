package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time for billing dates and scheduling.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
