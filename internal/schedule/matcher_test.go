package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/auralabs/aura-dispatch/internal/db"
)

func testUser(preferred, tz string) *db.UserRecord {
	token := "arn:aws:sns:us-east-1:123456789012:endpoint/GCM/aura/abc"
	return &db.UserRecord{
		ID:                   uuid.New(),
		PushToken:            &token,
		Timezone:             tz,
		PreferredTime:        preferred,
		NotificationsEnabled: true,
	}
}

func utc(hour, minute int) time.Time {
	return time.Date(2026, time.March, 10, hour, minute, 0, 0, time.UTC)
}

func TestIsDue_GridBoundaries(t *testing.T) {
	u := testUser("09:00", "UTC")

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"08:45 rounds to 08:45", utc(8, 45), false},
		{"08:52 rounds to 08:45", utc(8, 52), false},
		{"08:53 rounds to 09:00", utc(8, 53), true},
		{"09:00 exact", utc(9, 0), true},
		{"09:07 rounds to 09:00", utc(9, 7), true},
		{"09:08 rounds to 09:15", utc(9, 8), false},
		{"10:00 wrong hour", utc(10, 0), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDue(u, tc.now); got != tc.want {
				t.Errorf("IsDue(%s) = %v, want %v", tc.now.Format("15:04"), got, tc.want)
			}
		})
	}
}

func TestIsDue_PreferenceQuantizes(t *testing.T) {
	// 09:07 preference rounds down onto the same slot as 09:00.
	u := testUser("09:07", "UTC")
	if !IsDue(u, utc(9, 2)) {
		t.Error("09:07 preference should match a tick that rounds to 09:00")
	}

	// 09:53 preference wraps to 10:00.
	u = testUser("09:53", "UTC")
	if !IsDue(u, utc(10, 1)) {
		t.Error("09:53 preference should wrap to 10:00")
	}
	if IsDue(u, utc(9, 52)) {
		t.Error("09:53 preference should not match 09:45 slot")
	}
}

func TestIsDue_MidnightWrap(t *testing.T) {
	// 23:55 rounds to 00:00 next hour, hour wraps mod 24.
	u := testUser("23:55", "UTC")
	if !IsDue(u, utc(0, 1)) {
		t.Error("23:55 preference should wrap to 00:00")
	}
}

func TestIsDue_MalformedPreferenceDefaultsToNine(t *testing.T) {
	for _, preferred := range []string{"", "garbage", "25:99:17", "ab:cd"} {
		u := testUser(preferred, "UTC")
		if !IsDue(u, utc(9, 0)) {
			t.Errorf("preferred_time %q should default to 09:00", preferred)
		}
		if IsDue(u, utc(8, 0)) {
			t.Errorf("preferred_time %q should not match 08:00", preferred)
		}
	}
}

func TestIsDue_ClampsOutOfRange(t *testing.T) {
	// Hour clamps to 23, minute to 59, then 59 rounds up and wraps to 00:00.
	u := testUser("99:99", "UTC")
	if !IsDue(u, utc(0, 0)) {
		t.Error("99:99 should clamp to 23:59 and round to 00:00")
	}
}

func TestIsDue_Timezone(t *testing.T) {
	// 09:00 in New York is 13:00 or 14:00 UTC depending on DST; March 10 is EDT.
	u := testUser("09:00", "America/New_York")
	if !IsDue(u, utc(13, 0)) {
		t.Error("09:00 EDT should be due at 13:00 UTC")
	}
	if IsDue(u, utc(9, 0)) {
		t.Error("09:00 UTC is 05:00 local, should not be due")
	}
}

func TestIsDue_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	u := testUser("09:00", "Mars/Olympus_Mons")
	if !IsDue(u, utc(9, 0)) {
		t.Error("unknown timezone should behave as UTC")
	}
}

func TestIsDue_AlreadySentToday(t *testing.T) {
	u := testUser("09:00", "UTC")
	earlier := utc(9, 0)
	u.LastSentAt = &earlier

	if IsDue(u, utc(9, 5)) {
		t.Error("user already sent today should not be due")
	}

	// Next local day, eligible again.
	if !IsDue(u, utc(9, 0).Add(24*time.Hour)) {
		t.Error("user should be due again the next day")
	}
}

func TestIsDue_SentTodayUsesLocalCalendarDate(t *testing.T) {
	// Sent at 13:00 UTC = 09:00 in New York. At 23:30 UTC the same UTC day it
	// is still the same local date; at 05:00 UTC next day it is 01:00 local,
	// a new local date, but 01:00 does not match the preferred slot anyway.
	u := testUser("09:00", "America/New_York")
	sent := utc(13, 0)
	u.LastSentAt = &sent

	if IsDue(u, utc(13, 5)) {
		t.Error("same local date should suppress a second send")
	}
	if !IsDue(u, utc(13, 0).Add(24*time.Hour)) {
		t.Error("next local date should be due again")
	}
}
