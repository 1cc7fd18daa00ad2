// Package format turns raw file metadata into display strings.
package format

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FileSize converts a byte count to a human-readable size such as "1.5 KB".
// Values are rounded to two decimals with trailing zeros dropped.
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}

	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// TimestampLayout is the date and time layout used on file cards
const TimestampLayout = "Jan 2, 2006 15:04"

// Timestamp formats t in loc (local time when loc is nil)
func Timestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(TimestampLayout)
}

// Age describes how long ago t was relative to now, e.g. "3 minutes ago"
func Age(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FileKind maps a MIME type to a short document category
func FileKind(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return "Image"
	case ct == "application/pdf":
		return "PDF"
	case strings.Contains(ct, "word"):
		return "Word"
	case strings.Contains(ct, "excel"), strings.Contains(ct, "sheet"):
		return "Excel"
	case strings.Contains(ct, "powerpoint"), strings.Contains(ct, "presentation"):
		return "PowerPoint"
	case strings.Contains(ct, "text"):
		return "Text"
	default:
		return "Document"
	}
}
