package model

import (
	"fmt"
	"math"
)

// FormatDuration renders seconds as "m:ss". Negative and non-finite values are
// not normalized: the minute and second parts are computed the same way and
// printed as they come out.
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Sprintf("%v:%v", math.Floor(seconds/60), math.Floor(math.Mod(seconds, 60)))
	}
	minutes := int64(math.Floor(seconds / 60))
	secs := int64(math.Floor(math.Mod(seconds, 60)))
	if seconds < 0 {
		return fmt.Sprintf("%d:%d", minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
