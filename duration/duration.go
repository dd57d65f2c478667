// Package duration converts YouTube ISO-8601 durations to clock strings and
// sorts them into fixed length buckets.
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Unknown is the clock string returned for durations that cannot be parsed.
const Unknown = "unknown"

// Bucket is a duration range label.
type Bucket string

const (
	Bucket0To5    Bucket = "0-5min"
	Bucket5To10   Bucket = "5-10min"
	Bucket10To20  Bucket = "10-20min"
	Bucket20To30  Bucket = "20-30min"
	Bucket30To40  Bucket = "30-40min"
	Bucket40To50  Bucket = "40-50min"
	Bucket50To60  Bucket = "50-60min"
	Bucket60Plus  Bucket = "60+min"
	BucketUnknown Bucket = "unknown"
)

var buckets = []Bucket{
	Bucket0To5,
	Bucket5To10,
	Bucket10To20,
	Bucket20To30,
	Bucket30To40,
	Bucket40To50,
	Bucket50To60,
	Bucket60Plus,
	BucketUnknown,
}

// upper bounds in seconds, inclusive, aligned with buckets.
var limits = []int{300, 600, 1200, 1800, 2400, 3000, 3600}

// Buckets returns every bucket in display order, unknown last.
func Buckets() []Bucket {
	out := make([]Bucket, len(buckets))
	copy(out, buckets)
	return out
}

// Valid reports whether b is one of the known buckets.
func (b Bucket) Valid() bool {
	for _, known := range buckets {
		if b == known {
			return true
		}
	}
	return false
}

func (b Bucket) String() string { return string(b) }

var isoPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// Parse converts an ISO-8601 duration such as "PT1H2M3S" to "01:02:03".
// Absent components count as zero. Anything else yields Unknown.
func Parse(iso string) string {
	m := isoPattern.FindStringSubmatch(strings.TrimSpace(iso))
	if m == nil {
		return Unknown
	}
	var parts [3]int
	for i, s := range m[1:] {
		if s == "" {
			continue
		}
		n, err := atoi(s)
		if err != nil {
			return Unknown
		}
		parts[i] = n
	}
	return fmt.Sprintf("%02d:%02d:%02d", parts[0], parts[1], parts[2])
}

// Seconds parses an "HH:MM:SS" clock string into total seconds. Totals too
// large for an int saturate at math.MaxInt.
func Seconds(clock string) (int, bool) {
	segs := strings.Split(clock, ":")
	if len(segs) != 3 {
		return 0, false
	}
	total := 0
	for _, seg := range segs {
		n, err := atoi(seg)
		if err != nil || n < 0 {
			return 0, false
		}
		if total > (math.MaxInt-n)/60 {
			return math.MaxInt, true
		}
		total = total*60 + n
	}
	return total, true
}

// atoi is strconv.Atoi saturating out-of-range digit strings at math.MaxInt.
func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(s, "-") {
		return math.MaxInt, nil
	}
	return n, err
}

// Classify returns the bucket of an "HH:MM:SS" clock string. Malformed input
// maps to BucketUnknown.
func Classify(clock string) Bucket {
	secs, ok := Seconds(clock)
	if !ok {
		return BucketUnknown
	}
	return ClassifySeconds(secs)
}

// ClassifySeconds returns the bucket for a total number of seconds.
// Upper bounds are inclusive: 300s is still 0-5min.
func ClassifySeconds(secs int) Bucket {
	if secs < 0 {
		return BucketUnknown
	}
	for i, limit := range limits {
		if secs <= limit {
			return buckets[i]
		}
	}
	return Bucket60Plus
}
