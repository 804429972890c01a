// Package protocol implements the text wire formats used between nodes,
// the scheduler and the event logger: pipe-delimited request/response
// commands and space-delimited key/value event messages.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"yqhp/benchgrid/pkg/jsonx"
	"yqhp/benchgrid/pkg/types"
)

// Separator delimits fields of scheduler commands and responses.
const Separator = "|"

// RestSignal is the assignment payload meaning "no tasks remain".
const RestSignal = "REST"

// ErrMalformed reports a message that does not match any known command or
// response shape. The offending connection is dropped; services keep running.
var ErrMalformed = errors.New("malformed protocol message")

// CommandKind discriminates parsed scheduler-bound commands.
type CommandKind string

const (
	// CmdRegister is a node announcing itself.
	CmdRegister CommandKind = "register"
	// CmdTaskRequest is a node asking for work.
	CmdTaskRequest CommandKind = "task_request"
	// CmdTaskFinish is a node reporting a completed task.
	CmdTaskFinish CommandKind = "task_finish"
)

// Command is one parsed scheduler-bound request. Exactly one command is
// carried per connection.
type Command struct {
	Kind     CommandKind
	Hostname string  // set for CmdRegister
	Duration float64 // seconds, set for CmdTaskFinish
}

// ParseCommand parses a raw request line into a Command.
func ParseCommand(line string) (Command, error) {
	parts := strings.Split(strings.TrimSpace(line), Separator)
	if len(parts) < 2 {
		return Command{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}

	switch parts[0] {
	case "REGISTER":
		if parts[1] != "REQUEST" || len(parts) < 3 || parts[2] == "" {
			return Command{}, fmt.Errorf("%w: %q", ErrMalformed, line)
		}
		return Command{Kind: CmdRegister, Hostname: parts[2]}, nil

	case "TASK":
		switch parts[1] {
		case "REQUEST":
			return Command{Kind: CmdTaskRequest}, nil
		case "FINISH":
			if len(parts) < 3 {
				return Command{}, fmt.Errorf("%w: %q", ErrMalformed, line)
			}
			d, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return Command{}, fmt.Errorf("%w: bad duration %q", ErrMalformed, parts[2])
			}
			return Command{Kind: CmdTaskFinish, Duration: d}, nil
		}
	}
	return Command{}, fmt.Errorf("%w: %q", ErrMalformed, line)
}

// FormatRegister builds the registration request for a hostname.
func FormatRegister(hostname string) string {
	return "REGISTER" + Separator + "REQUEST" + Separator + hostname
}

// FormatTaskRequest builds the task request message.
func FormatTaskRequest() string {
	return "TASK" + Separator + "REQUEST"
}

// FormatTaskFinish builds the finish report carrying the task's wall-clock
// duration in seconds.
func FormatTaskFinish(seconds float64) string {
	return "TASK" + Separator + "FINISH" + Separator + strconv.FormatFloat(seconds, 'f', -1, 64)
}

// FormatRegisterConfirm builds the scheduler's registration acknowledgment.
func FormatRegisterConfirm(schedulerHost string) string {
	return "REGISTER" + Separator + "CONFIRM" + Separator + "true" + Separator + schedulerHost
}

// ParseRegisterConfirm parses a registration response. ok reports whether
// the scheduler confirmed the registration.
func ParseRegisterConfirm(line string) (schedulerHost string, ok bool, err error) {
	parts := strings.Split(strings.TrimSpace(line), Separator)
	if len(parts) < 3 || parts[0] != "REGISTER" || parts[1] != "CONFIRM" {
		return "", false, fmt.Errorf("%w: %q", ErrMalformed, line)
	}
	if parts[2] != "true" {
		return "", false, nil
	}
	if len(parts) > 3 {
		schedulerHost = parts[3]
	}
	return schedulerHost, true, nil
}

// FormatAssign builds the assignment response for a task, encoding its
// parameter bag as JSON.
func FormatAssign(spec types.TaskSpec) (string, error) {
	params, err := jsonx.MarshalString(spec.Parameters)
	if err != nil {
		return "", fmt.Errorf("encode parameters for %s: %w", spec.Type, err)
	}
	return "TASK" + Separator + "ASSIGN" + Separator + spec.Type.String() + Separator + params, nil
}

// FormatRest builds the poison-pill response meaning "stop polling".
func FormatRest() string {
	return "TASK" + Separator + "ASSIGN" + Separator + RestSignal
}

// ParseAssign parses an assignment response. rest reports the poison pill;
// when rest is false the returned spec carries the decoded parameters.
func ParseAssign(line string) (spec types.TaskSpec, rest bool, err error) {
	parts := strings.SplitN(strings.TrimSpace(line), Separator, 4)
	if len(parts) < 3 || parts[0] != "TASK" || parts[1] != "ASSIGN" {
		return types.TaskSpec{}, false, fmt.Errorf("%w: %q", ErrMalformed, line)
	}
	if parts[2] == RestSignal {
		return types.TaskSpec{}, true, nil
	}
	if len(parts) < 4 {
		return types.TaskSpec{}, false, fmt.Errorf("%w: assignment without parameters: %q", ErrMalformed, line)
	}
	params, err := jsonx.FromJSON[map[string]float64](parts[3])
	if err != nil {
		return types.TaskSpec{}, false, fmt.Errorf("%w: bad parameters %q", ErrMalformed, parts[3])
	}
	return types.TaskSpec{Type: types.TaskType(parts[2]), Parameters: params}, false, nil
}
