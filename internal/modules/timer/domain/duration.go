package domain

import (
	"strconv"
	"strings"
	"time"
)

// TotalDuration sums closed durations and the live elapsed time of running
// sessions as of now. Clock skew never makes a running session negative.
func TotalDuration(sessions []Session, now time.Time) int64 {
	var total int64
	for _, s := range sessions {
		if s.IsRunning() {
			total += elapsedSince(s.StartedAt, now)
			continue
		}
		if s.DurationSec > 0 {
			total += s.DurationSec
		}
	}
	return total
}

func HasActiveSession(sessions []Session) bool {
	for _, s := range sessions {
		if s.IsRunning() {
			return true
		}
	}
	return false
}

// Elapsed is the live duration of the locally known session. Pending starts
// report zero until the authoritative id arrives.
func Elapsed(active ActiveSession, now time.Time) int64 {
	if active.IsPending() {
		return 0
	}
	return elapsedSince(active.StartedAt, now)
}

func elapsedSince(start, now time.Time) int64 {
	if start.IsZero() {
		return 0
	}
	d := int64(now.Sub(start) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

// FormatDuration renders seconds as H時間M分S秒, dropping leading zero units.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	var b strings.Builder
	if h > 0 {
		b.WriteString(strconv.FormatInt(h, 10))
		b.WriteString("時間")
	}
	if h > 0 || m > 0 {
		b.WriteString(strconv.FormatInt(m, 10))
		b.WriteString("分")
	}
	b.WriteString(strconv.FormatInt(s, 10))
	b.WriteString("秒")
	return b.String()
}
