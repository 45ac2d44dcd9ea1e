package event

import (
	"fmt"
	"strings"
)

// Priority orders listener execution. Lower values run first.
type Priority int

const (
	// PriorityHighest runs before every other tier.
	PriorityHighest Priority = iota

	// PriorityHigh runs after PriorityHighest.
	PriorityHigh

	// PriorityNormal is the default priority.
	PriorityNormal

	// PriorityLow runs after PriorityNormal.
	PriorityLow

	// PriorityLowest is the last tier that may intercept.
	PriorityLowest

	// PriorityMonitor is for observers. Listeners at this tier see the final
	// state of an event and must not rely on intercepting it.
	PriorityMonitor
)

// priorityCount is the number of priority buckets.
const priorityCount = int(PriorityMonitor) + 1

// Priorities lists every priority from highest to monitor.
var Priorities = []Priority{
	PriorityHighest,
	PriorityHigh,
	PriorityNormal,
	PriorityLow,
	PriorityLowest,
	PriorityMonitor,
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityHighest && p <= PriorityMonitor
}

// String returns the lowercase priority name.
func (p Priority) String() string {
	switch p {
	case PriorityHighest:
		return "highest"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityLowest:
		return "lowest"
	case PriorityMonitor:
		return "monitor"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority parses a priority name as produced by String.
func ParsePriority(s string) (Priority, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, p := range Priorities {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, &UsageError{
		Op:  "parse priority",
		Msg: fmt.Sprintf("unknown priority %q", s),
		Err: ErrInvalidPriority,
	}
}
