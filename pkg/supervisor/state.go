package supervisor

import (
	"sync"
	"sync/atomic"

	"github.com/core-tools/hsu-launcher/pkg/errors"
	"github.com/core-tools/hsu-launcher/pkg/process"
)

// ErrExitRequested is returned by the loops once the exit request flag is set
var ErrExitRequested = errors.NewCancelledError("exit requested", nil)

type processRef struct {
	handle process.Handle
}

// SharedState is what the pipeline, the signal handler and the host share.
// The exit request flag only ever goes from false to true.
type SharedState struct {
	exitRequested atomic.Bool
	exitReason    atomic.Value
	done          chan struct{}
	closeOnce     sync.Once

	process atomic.Pointer[processRef]
}

func NewSharedState() *SharedState {
	return &SharedState{
		done: make(chan struct{}),
	}
}

// RequestExit sets the exit request flag and reports whether this call set it
func (s *SharedState) RequestExit(reason string) bool {
	if !s.exitRequested.CompareAndSwap(false, true) {
		return false
	}
	s.exitReason.Store(reason)
	s.closeOnce.Do(func() { close(s.done) })
	return true
}

func (s *SharedState) ExitRequested() bool {
	return s.exitRequested.Load()
}

func (s *SharedState) ExitReason() string {
	reason, _ := s.exitReason.Load().(string)
	return reason
}

// Done is closed when the exit request flag is set
func (s *SharedState) Done() <-chan struct{} {
	return s.done
}

// Process returns the monitored process reference, nil before discovery
func (s *SharedState) Process() process.Handle {
	ref := s.process.Load()
	if ref == nil {
		return nil
	}
	return ref.handle
}

// SetProcess replaces the reference and returns the previous one
func (s *SharedState) SetProcess(h process.Handle) process.Handle {
	var next *processRef
	if h != nil {
		next = &processRef{handle: h}
	}
	prev := s.process.Swap(next)
	if prev == nil {
		return nil
	}
	return prev.handle
}

// TakeProcess clears the reference and returns what it held
func (s *SharedState) TakeProcess() process.Handle {
	return s.SetProcess(nil)
}
