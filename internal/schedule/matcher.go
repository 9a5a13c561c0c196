// Package schedule decides whether a user's local reminder time matches the
// current dispatch tick.
package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/auralabs/aura-dispatch/internal/db"
)

// GridMinutes is the time-matching granularity. The dispatcher polls every 15
// minutes, so a user preference like 09:07 can never be hit exactly; both the
// preference and the current time quantize to the same 15-minute grid and are
// compared after rounding.
const GridMinutes = 15

const defaultPreferredTime = "09:00"

// IsDue reports whether nowUTC is the user's notification moment: the user's
// local time and preferred time round to the same grid slot, and the user has
// not already been sent to today on their local calendar.
func IsDue(u *db.UserRecord, nowUTC time.Time) bool {
	loc := userLocation(u.Timezone)
	localNow := nowUTC.In(loc)

	targetH, targetM := roundToGrid(parsePreferredTime(u.PreferredTime))
	nowH, nowM := roundToGrid(localNow.Hour(), localNow.Minute())

	if nowH != targetH || nowM != targetM {
		return false
	}

	return !sentToday(u.LastSentAt, localNow)
}

// sentToday compares local calendar dates, not timestamp deltas, so a DST
// shift or a re-run later the same day cannot trigger a second send.
func sentToday(lastSentAt *time.Time, localNow time.Time) bool {
	if lastSentAt == nil {
		return false
	}
	lastLocal := lastSentAt.In(localNow.Location())
	ly, lm, ld := lastLocal.Date()
	ny, nm, nd := localNow.Date()
	return ly == ny && lm == nm && ld == nd
}

// parsePreferredTime parses "HH:MM", clamping hour to [0,23] and minute to
// [0,59]. Anything malformed falls back to 09:00 rather than erroring.
func parsePreferredTime(s string) (hour, minute int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		parts = strings.SplitN(defaultPreferredTime, ":", 2)
	}

	h, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
	m, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errH != nil || errM != nil {
		return 9, 0
	}

	if h < 0 {
		h = 0
	} else if h > 23 {
		h = 23
	}
	if m < 0 {
		m = 0
	} else if m > 59 {
		m = 59
	}
	return h, m
}

// roundToGrid rounds the minute to the nearest multiple of GridMinutes,
// wrapping 60 into the next hour (and hour 24 into 0).
func roundToGrid(hour, minute int) (int, int) {
	rounded := ((minute + GridMinutes/2) / GridMinutes) * GridMinutes
	if rounded == 60 {
		return (hour + 1) % 24, 0
	}
	return hour, rounded
}

// userLocation resolves an IANA zone name, defaulting to UTC on anything
// missing or unknown.
func userLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
