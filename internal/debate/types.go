// internal/debate/types.go
package debate

import "time"

// Role identifies which participant produced a turn.
type Role string

const (
	RolePersuader Role = "persuader"
	RoleDebater   Role = "debater"
	RoleModerator Role = "moderator"
)

// Turn is one utterance in a debate transcript. Turns are never mutated
// after creation.
type Turn struct {
	Role      Role
	Text      string
	Round     int
	Tokens    int
	Timestamp time.Time
}

// Result is the terminal outcome of a debate.
type Result int

const (
	ResultConverged Result = iota
	ResultMaxRounds
	ResultHardStop
	ResultError
	ResultInterrupted
)

func (r Result) String() string {
	switch r {
	case ResultConverged:
		return "converged"
	case ResultMaxRounds:
		return "max-rounds-reached"
	case ResultHardStop:
		return "hard-stop"
	case ResultError:
		return "error"
	case ResultInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Code returns the numeric summary code used in the central results
// spreadsheet: 1 = debater convinced, 0 = not convinced, 2 = anything else.
func (r Result) Code() int {
	switch r {
	case ResultConverged:
		return 1
	case ResultMaxRounds:
		return 0
	default:
		return 2
	}
}

// LastByRole returns the most recent turn by the given role, or false if
// that role has not spoken yet.
func LastByRole(transcript []Turn, role Role) (Turn, bool) {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == role {
			return transcript[i], true
		}
	}
	return Turn{}, false
}

// ByRole returns all turns by the given role, in order.
func ByRole(transcript []Turn, role Role) []Turn {
	var out []Turn
	for _, t := range transcript {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}
