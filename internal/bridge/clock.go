// SPDX-License-Identifier: MPL-2.0

package bridge

import "time"

type (
	// Clock supplies the instant used to compute the UTC offset.
	Clock interface {
		Now() time.Time
	}

	systemClock struct{}
)

func (systemClock) Now() time.Time { return time.Now() }

// UTCOffset returns the offset of t's zone from UTC in seconds.
//
// In precise mode the offset in effect at t is used, so daylight saving time
// is included. Otherwise the zone's standard offset is returned: the smaller
// of the offsets in effect on January 1 and July 1 of t's year.
func UTCOffset(t time.Time, precise bool) int {
	if precise {
		_, off := t.Zone()
		return off
	}
	loc := t.Location()
	_, jan := time.Date(t.Year(), time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, jul := time.Date(t.Year(), time.July, 1, 12, 0, 0, 0, loc).Zone()
	return min(jan, jul)
}
