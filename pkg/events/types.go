package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeLifecycleStateChanged uint32 = iota + 1
	TypeProcessDiscovered
	TypeProcessExited
	TypeExitRequested
	TypeCleanupStateChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// LifecycleStateChangedEvent is published on every supervisor lifecycle transition.
type LifecycleStateChangedEvent struct {
	From string
	To   string
	At   time.Time
}

func (e LifecycleStateChangedEvent) Type() uint32 { return TypeLifecycleStateChanged }

// ProcessDiscoveredEvent is published when discovery adopts a process, including replacements.
type ProcessDiscoveredEvent struct {
	Name        string
	PID         int
	Replacement bool
	At          time.Time
}

func (e ProcessDiscoveredEvent) Type() uint32 { return TypeProcessDiscovered }

// ProcessExitedEvent is published by the exit monitor.
type ProcessExitedEvent struct {
	Name string
	PID  int
	At   time.Time
}

func (e ProcessExitedEvent) Type() uint32 { return TypeProcessExited }

// ExitRequestedEvent is published once, when the exit request flag is set.
type ExitRequestedEvent struct {
	Reason string
	At     time.Time
}

func (e ExitRequestedEvent) Type() uint32 { return TypeExitRequested }

// CleanupStateChangedEvent is published on every cleanup escalation step.
type CleanupStateChangedEvent struct {
	From string
	To   string
	PID  int
	At   time.Time
}

func (e CleanupStateChangedEvent) Type() uint32 { return TypeCleanupStateChanged }
