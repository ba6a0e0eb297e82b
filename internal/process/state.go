package process

import "time"

type Status string

const (
	StatusIdle       Status = "idle"
	StatusStarting   Status = "starting"
	StatusRunning    Status = "running"
	StatusStopping   Status = "stopping"
	StatusRestarting Status = "restarting"
)

// Live reports whether a process instance exists (or is being spawned) for
// the label.
func (s Status) Live() bool {
	return s == StatusStarting || s == StatusRunning || s == StatusStopping
}

// Active reports whether the label's lifecycle is still going, including a
// pending relaunch.
func (s Status) Active() bool {
	return s.Live() || s == StatusRestarting
}

// ProcessState is a snapshot of one label's registry entry.
type ProcessState struct {
	Label       string    `json:"label"`
	Status      Status    `json:"status"`
	PID         int       `json:"pid,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	StoppedAt   time.Time `json:"stopped_at,omitempty"`
	Restarts    int       `json:"restarts"`
	ExitCode    int       `json:"exit_code,omitempty"`
	AskedToStop bool      `json:"asked_to_stop"`
}

func (s ProcessState) Uptime() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.Status == StatusRunning || s.Status == StatusStopping {
		return time.Since(s.StartedAt)
	}
	if !s.StoppedAt.IsZero() {
		return s.StoppedAt.Sub(s.StartedAt)
	}
	return 0
}
