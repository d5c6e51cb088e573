package patch

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-patchbay/audio"
)

// DestinationID is the reserved socket id of the terminal sink. It is never
// torn down, whatever role it was registered with.
const DestinationID = "destination"

// Role constrains which end of a connection a socket may occupy.
type Role int

const (
	// RoleSource sockets may only be the sending end.
	RoleSource Role = iota + 1
	// RoleTarget sockets may only be the receiving end.
	RoleTarget
	// RoleParam sockets are control parameters: receiving end only.
	RoleParam
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleTarget:
		return "target"
	case RoleParam:
		return "param"
	default:
		return "unknown"
	}
}

// ParseRole parses "source", "target" or "param".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source":
		return RoleSource, nil
	case "target":
		return RoleTarget, nil
	case "param":
		return RoleParam, nil
	default:
		return 0, fmt.Errorf("patch: unknown role %q", s)
	}
}

// Socket is a registered connection point: a role together with the unit
// backing it. The set of implementations is closed.
type Socket interface {
	Role() Role
	socket()
}

// SourceSocket is a sending end. Its unit is disconnected on every
// reconciliation pass and rewired from the connection list.
type SourceSocket struct {
	Unit audio.Output
}

// TargetSocket is a receiving end. Its unit is never disconnected by the
// reconciler, so private wiring inside a widget survives every pass.
type TargetSocket struct {
	Unit audio.Input
}

// ParamSocket is a modulation target.
type ParamSocket struct {
	Param *audio.Param
}

func (SourceSocket) Role() Role { return RoleSource }
func (TargetSocket) Role() Role { return RoleTarget }
func (ParamSocket) Role() Role  { return RoleParam }

func (SourceSocket) socket() {}
func (TargetSocket) socket() {}
func (ParamSocket) socket()  {}

// sink returns the receiving end of s, or nil when s cannot receive.
func sink(s Socket) audio.Input {
	switch s := s.(type) {
	case TargetSocket:
		return s.Unit
	case ParamSocket:
		if s.Param == nil {
			return nil
		}

		return s.Param
	default:
		return nil
	}
}
