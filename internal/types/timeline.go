package types

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// TimeType is the kind of ordering axis a timeline represents.
type TimeType int

const (
	// TimeTypeSequence is a plain integer counter, e.g. a frame number.
	TimeTypeSequence TimeType = iota + 1
	// TimeTypeTime is a nanosecond time or duration value.
	TimeTypeTime
)

// String returns the YAML/JSON spelling of the time type.
func (t TimeType) String() string {
	switch t {
	case TimeTypeSequence:
		return "sequence"
	case TimeTypeTime:
		return "time"
	default:
		return fmt.Sprintf("TimeType(%d)", int(t))
	}
}

// ParseTimeType parses "sequence" or "time".
func ParseTimeType(s string) (TimeType, error) {
	switch strings.ToLower(s) {
	case "sequence", "seq":
		return TimeTypeSequence, nil
	case "time", "nanos":
		return TimeTypeTime, nil
	default:
		return 0, fmt.Errorf("unknown time type %q: must be sequence or time", s)
	}
}

// Format renders t according to the time type.
func (t TimeType) Format(ti TimeInt) string {
	switch {
	case ti == MinTime:
		return "-∞"
	case ti == MaxTime:
		return "+∞"
	}
	if t == TimeTypeTime {
		return time.Unix(0, int64(ti)).UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("#%d", int64(ti))
}

// TimeInt is a point on a timeline: a sequence number or nanoseconds.
type TimeInt int64

const (
	// MinTime is the lower bound of every timeline. The first bucket of
	// every index table is keyed at MinTime.
	MinTime TimeInt = math.MinInt64
	// MaxTime is the upper bound of every timeline.
	MaxTime TimeInt = math.MaxInt64
)

// Timeline is a named ordering axis.
type Timeline struct {
	Name string   `json:"name" yaml:"name"`
	Type TimeType `json:"type" yaml:"type"`
}

// NewSequenceTimeline returns a sequence timeline, e.g. "frame_nr".
func NewSequenceTimeline(name string) Timeline {
	return Timeline{Name: name, Type: TimeTypeSequence}
}

// NewTimeTimeline returns a nanosecond timeline, e.g. "log_time".
func NewTimeTimeline(name string) Timeline {
	return Timeline{Name: name, Type: TimeTypeTime}
}

// String renders the timeline as name(type).
func (t Timeline) String() string {
	return fmt.Sprintf("%s(%s)", t.Name, t.Type)
}

// TimeRange is an inclusive [Min, Max] range on one timeline.
type TimeRange struct {
	Min TimeInt `json:"min" yaml:"min"`
	Max TimeInt `json:"max" yaml:"max"`
}

// NewTimeRange returns the inclusive range [min, max].
func NewTimeRange(min, max TimeInt) TimeRange {
	return TimeRange{Min: min, Max: max}
}

// EverythingRange covers the whole timeline.
func EverythingRange() TimeRange {
	return TimeRange{Min: MinTime, Max: MaxTime}
}

// Contains reports whether t lies in the range.
func (r TimeRange) Contains(t TimeInt) bool {
	return r.Min <= t && t <= r.Max
}

// Intersects reports whether the two ranges overlap.
func (r TimeRange) Intersects(other TimeRange) bool {
	return r.Min <= other.Max && other.Min <= r.Max
}

// Union returns the smallest range containing both.
func (r TimeRange) Union(other TimeRange) TimeRange {
	return TimeRange{Min: min(r.Min, other.Min), Max: max(r.Max, other.Max)}
}

// TimePoint associates a time with each timeline a row was logged on.
type TimePoint map[Timeline]TimeInt

// Timelines returns the point's timelines sorted by name then type.
func (tp TimePoint) Timelines() []Timeline {
	out := make([]Timeline, 0, len(tp))
	for tl := range tp {
		out = append(out, tl)
	}
	slices.SortFunc(out, CompareTimelines)
	return out
}

// Clone returns an independent copy.
func (tp TimePoint) Clone() TimePoint {
	out := make(TimePoint, len(tp))
	for k, v := range tp {
		out[k] = v
	}
	return out
}

// CompareTimelines orders timelines by name, then type.
func CompareTimelines(a, b Timeline) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return int(a.Type) - int(b.Type)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeType) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
