package controlplane

import "fmt"

// Indicator is everything needed to render the one-line status.
type Indicator struct {
	Snapshot Snapshot

	// Paused is set when another instance holds the session lock.
	Paused bool

	// CDP is true when the editor is driven over remote debugging.
	CDP         bool
	Connections int
	Background  bool
}

// String renders the status text shown to the user.
func (i Indicator) String() string {
	s := i.Snapshot
	switch {
	case !s.Enabled:
		return "OFF"
	case i.Paused:
		return "PAUSED (multi-window)"
	case s.State == StateRecovering:
		return fmt.Sprintf("RECOVERING... (%d/%d)", s.RetryCount, s.MaxRecoveries)
	case s.State == StateRecovered:
		return fmt.Sprintf("RECOVERED (%d)", s.RetryCount)
	case s.State == StateStalled:
		return "WAITING"
	case i.CDP && i.Connections == 0:
		return "WAITING"
	case i.CDP && i.Background:
		return "ON (Background)"
	}
	return "ON"
}
