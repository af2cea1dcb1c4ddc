// internal/app/system/dialog/dialog.go
package dialog

import (
	"errors"
	"sync"
)

// State is the lifecycle position of a modal form.
type State string

const (
	Closed     State = "closed"
	Idle       State = "idle"
	Submitting State = "submitting"
	Done       State = "done"
	Failed     State = "failed"
)

var (
	// ErrBusy is returned when a submit is already in flight.
	ErrBusy = errors.New("dialog: submit already in progress")
	// ErrNotOpen is returned when the dialog is not open.
	ErrNotOpen = errors.New("dialog: not open")
)

// Machine guards a single dialog. The zero value is a closed dialog.
type Machine struct {
	mu      sync.Mutex
	state   State
	lastErr error
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Machine) stateLocked() State {
	if m.state == "" {
		return Closed
	}
	return m.state
}

// IsOpen reports whether the dialog is visible (idle, submitting or failed).
func (m *Machine) IsOpen() bool {
	switch m.State() {
	case Idle, Submitting, Failed:
		return true
	}
	return false
}

// LastError returns the error of the most recent failed submit while the
// dialog stays in Failed.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Open shows the dialog. Opening an already open dialog is a no-op.
func (m *Machine) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.stateLocked() {
	case Submitting:
		return ErrBusy
	case Idle, Failed:
		return nil
	}
	m.state = Idle
	m.lastErr = nil
	return nil
}

// Cancel hides the dialog without submitting. Cancelling a closed dialog
// is a no-op.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stateLocked() == Submitting {
		return ErrBusy
	}
	m.state = Closed
	m.lastErr = nil
	return nil
}

// BeginSubmit moves an open dialog into Submitting.
func (m *Machine) BeginSubmit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.stateLocked() {
	case Submitting:
		return ErrBusy
	case Idle, Failed:
		m.state = Submitting
		return nil
	default:
		return ErrNotOpen
	}
}

// Finish records the submit result. Success closes the dialog in Done;
// failure keeps it open in Failed with err available from LastError.
// Finish outside Submitting is ignored.
func (m *Machine) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stateLocked() != Submitting {
		return
	}
	if err != nil {
		m.state = Failed
		m.lastErr = err
		return
	}
	m.state = Done
	m.lastErr = nil
}
