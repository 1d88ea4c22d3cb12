package tagmanager

import (
	"fmt"
	"strings"
)

// Action names the operations a hybrid page can invoke.
type Action string

const (
	ActionInitGTM    Action = "initGTM"
	ActionExitGTM    Action = "exitGTM"
	ActionTrackEvent Action = "trackEvent"
	ActionPushEvent  Action = "pushEvent"
	ActionTrackPage  Action = "trackPage"
	ActionDispatch   Action = "dispatch"
)

// Actions lists every recognized action.
var Actions = []Action{
	ActionInitGTM,
	ActionExitGTM,
	ActionTrackEvent,
	ActionPushEvent,
	ActionTrackPage,
	ActionDispatch,
}

// Command is one of InitGTM, ExitGTM, TrackEvent, PushEvent, TrackPage or Dispatch.
type Command interface {
	Action() Action
	isCommand()
}

// InitGTM loads a container and sets the local dispatch period.
type InitGTM struct {
	ContainerID string
	// DispatchInterval is the local dispatch period in seconds.
	DispatchInterval int
}

// ExitGTM marks the session as not initialized.
type ExitGTM struct{}

// TrackEvent pushes an "interaction" record.
type TrackEvent struct {
	Target           string
	EventAction      string
	TargetProperties string
	Value            int
}

// PushEvent pushes an arbitrary record verbatim.
type PushEvent struct {
	Data Record
}

// TrackPage pushes a "content-view" record. Page is forwarded as received.
type TrackPage struct {
	Page any
}

// Dispatch flushes queued hits immediately.
type Dispatch struct{}

func (InitGTM) Action() Action    { return ActionInitGTM }
func (ExitGTM) Action() Action    { return ActionExitGTM }
func (TrackEvent) Action() Action { return ActionTrackEvent }
func (PushEvent) Action() Action  { return ActionPushEvent }
func (TrackPage) Action() Action  { return ActionTrackPage }
func (Dispatch) Action() Action   { return ActionDispatch }

func (InitGTM) isCommand()    {}
func (ExitGTM) isCommand()    {}
func (TrackEvent) isCommand() {}
func (PushEvent) isCommand()  {}
func (TrackPage) isCommand()  {}
func (Dispatch) isCommand()   {}

// RequiresInit reports whether the action is rejected until a container is loaded.
func (a Action) RequiresInit() bool {
	switch a {
	case ActionTrackEvent, ActionPushEvent, ActionTrackPage, ActionDispatch:
		return true
	default:
		return false
	}
}

// DefaultResourceName derives the bundled default container name from a
// container id: "GTM-ABCD" becomes "gtm_abcd".
func DefaultResourceName(containerID string) string {
	return strings.ReplaceAll(strings.ToLower(containerID), "-", "_")
}

// IsKnownAction reports whether name is one of the recognized actions.
func IsKnownAction(name string) bool {
	for _, a := range Actions {
		if string(a) == name {
			return true
		}
	}
	return false
}

// ParseCommand builds a typed command from an action name and its loose
// positional arguments.
func ParseCommand(action string, args []any) (Command, error) {
	switch Action(action) {
	case ActionInitGTM:
		id, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		interval, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		return InitGTM{ContainerID: id, DispatchInterval: interval}, nil

	case ActionExitGTM:
		return ExitGTM{}, nil

	case ActionTrackEvent:
		target, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		act, err := argString(args, 1)
		if err != nil {
			return nil, err
		}
		props, err := argString(args, 2)
		if err != nil {
			return nil, err
		}
		// a missing or unparseable value defaults to 0
		value, err := argInt(args, 3)
		if err != nil {
			value = 0
		}
		return TrackEvent{Target: target, EventAction: act, TargetProperties: props, Value: value}, nil

	case ActionPushEvent:
		data, err := argObject(args, 0)
		if err != nil {
			return nil, err
		}
		return PushEvent{Data: data}, nil

	case ActionTrackPage:
		page, err := argAt(args, 0)
		if err != nil {
			return nil, err
		}
		return TrackPage{Page: page}, nil

	case ActionDispatch:
		return Dispatch{}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}
