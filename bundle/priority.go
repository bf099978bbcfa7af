package bundle

import (
	"fmt"
	"runtime"
	"strings"
)

// Priority controls how much background work a bundle may run at once
// while materializing assets.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityBelowNormal
	PriorityNormal
	PriorityHigh
)

// Priorities lists every level from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityBelowNormal, PriorityNormal, PriorityHigh}

// String returns the level's name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityBelowNormal:
		return "below-normal"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// Workers returns the number of assets materialized concurrently at p.
func (p Priority) Workers() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityBelowNormal:
		return 2
	case PriorityNormal:
		return 4
	default:
		return max(runtime.GOMAXPROCS(0), 4)
	}
}

// ParsePriority parses a level name. Case, spaces and underscores are
// ignored, so "BelowNormal", "below_normal" and "below-normal" are equal.
func ParsePriority(s string) (Priority, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "low":
		return PriorityLow, nil
	case "belownormal":
		return PriorityBelowNormal, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}
