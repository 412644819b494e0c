// Package engine implements follow-state reconciliation and bulk action
// execution: diffing followers against following, applying follow and
// unfollow batches through a dry-run gate, recording every decision to
// the history ledger, and undoing recent real unfollows.
package engine

import (
	"errors"
	"fmt"
)

// Action is a bulk-applicable relationship mutation.
type Action int

const (
	ActionFollow Action = iota
	ActionUnfollow
)

// ErrInvalidAction is returned when parsing an unknown action name.
var ErrInvalidAction = errors.New("invalid action")

// ParseAction converts the wire/CLI spelling of an action. Only the
// exact lowercase names are accepted.
func ParseAction(s string) (Action, error) {
	switch s {
	case "follow":
		return ActionFollow, nil
	case "unfollow":
		return ActionUnfollow, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

func (a Action) String() string {
	switch a {
	case ActionFollow:
		return "follow"
	case ActionUnfollow:
		return "unfollow"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}
