//go:build !linux

package region

import "time"

var origin = time.Now()

type WallClock struct{}

func (WallClock) Now() float64 {
	return time.Since(origin).Seconds()
}
