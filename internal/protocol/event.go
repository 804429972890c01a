package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"yqhp/benchgrid/pkg/types"
)

// ErrInvalidEvent reports an event message missing its node or kind. Such
// messages are logged and discarded, never fatal.
var ErrInvalidEvent = errors.New("invalid event message")

// FormatEvent renders a lifecycle event as the logger wire message, e.g.
// "NODE w1 EVENT TASK_ASSIGNED TIME 100.0 TASK matmul". TASK is omitted when
// the event carries no task name.
func FormatEvent(ev types.LifecycleEvent) string {
	var b strings.Builder
	b.WriteString("NODE ")
	b.WriteString(ev.Node)
	b.WriteString(" EVENT ")
	b.WriteString(string(ev.Kind))
	b.WriteString(" TIME ")
	b.WriteString(strconv.FormatFloat(ev.Time, 'f', -1, 64))
	if ev.TaskName != "" {
		b.WriteString(" TASK ")
		b.WriteString(ev.TaskName)
	}
	return b.String()
}

// ParseEvent parses a space-delimited key/value event message. Recognized
// keys are NODE, EVENT, TIME and TASK; unrecognized tokens are skipped.
// Messages without NODE or EVENT are rejected. A missing TIME defaults to
// now (seconds).
func ParseEvent(msg string, now float64) (types.LifecycleEvent, error) {
	parts := strings.Fields(msg)

	var (
		ev      types.LifecycleEvent
		hasNode bool
		hasKind bool
		hasTime bool
	)

	for i := 0; i < len(parts); {
		switch {
		case parts[i] == "NODE" && i+1 < len(parts):
			ev.Node = parts[i+1]
			hasNode = true
			i += 2
		case parts[i] == "EVENT" && i+1 < len(parts):
			ev.Kind = types.EventKind(parts[i+1])
			hasKind = true
			i += 2
		case parts[i] == "TIME" && i+1 < len(parts):
			t, err := strconv.ParseFloat(parts[i+1], 64)
			if err != nil {
				return types.LifecycleEvent{}, fmt.Errorf("%w: bad time %q", ErrInvalidEvent, parts[i+1])
			}
			ev.Time = t
			hasTime = true
			i += 2
		case parts[i] == "TASK" && i+1 < len(parts):
			ev.TaskName = parts[i+1]
			i += 2
		default:
			i++
		}
	}

	if !hasNode || !hasKind {
		return types.LifecycleEvent{}, fmt.Errorf("%w: %q", ErrInvalidEvent, msg)
	}
	if !hasTime {
		ev.Time = now
	}
	return ev, nil
}
