package snapshot

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ncruces/go-strftime"
)

// FormatTimeAgo renders the age of t relative to now, truncated to whole
// seconds, minutes, hours or days: "10s ago", "5m ago", "2h ago", "3d ago".
func FormatTimeAgo(t, now time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	default:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
}

// FormatTime renders t in loc using a strftime pattern.
func FormatTime(t time.Time, loc *time.Location, pattern string) string {
	if loc == nil {
		loc = time.UTC
	}
	return strftime.Format(pattern, t.In(loc))
}

// FormatPos renders the position with at most two decimal digits per axis.
func (p Position) FormatPos() string {
	return formatCoord(p.X) + " " + formatCoord(p.Y) + " " + formatCoord(p.Z)
}

// FormatBlockPos renders the integer block coordinates containing p.
func (p Position) FormatBlockPos() string {
	return fmt.Sprintf("%d %d %d",
		int64(math.Floor(p.X)), int64(math.Floor(p.Y)), int64(math.Floor(p.Z)))
}

func formatCoord(v float64) string {
	r := math.RoundToEven(v*100) / 100
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// TimeAgo is FormatTimeAgo for the snapshot's capture time.
func (s Snapshot) TimeAgo(now time.Time) string {
	return FormatTimeAgo(s.Time, now)
}

// StackCount returns the number of occupied slots in the captured contents.
func (s Snapshot) StackCount() int {
	return s.Contents.StackCount()
}
