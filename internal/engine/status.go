package engine

// Status is the outcome of the most recent sync activity for a day.
// It is derived state: recomputed on every attempt, never persisted.
type Status int

const (
	// StatusIdle means nothing is pending and nothing has happened yet.
	StatusIdle Status = iota
	// StatusSaving means a send is in flight.
	StatusSaving
	// StatusSaved means the last attempt reached the server.
	StatusSaved
	// StatusQueuedOffline means the last payload was parked in the
	// offline queue.
	StatusQueuedOffline
	// StatusAutoSaveFailed means an automatic save hit a non-network
	// error.
	StatusAutoSaveFailed
	// StatusError means a manual save hit a non-network error.
	StatusError
)

// String returns a stable machine-readable name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusQueuedOffline:
		return "queued-offline"
	case StatusAutoSaveFailed:
		return "autosave-failed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its string name.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// MarshalYAML encodes the status as its string name.
func (s Status) MarshalYAML() (any, error) {
	return s.String(), nil
}
