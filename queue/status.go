package queue

// Status is the processing state encoded in a queue entry's file suffix.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

var knownStatuses = []Status{StatusWaiting, StatusRunning, StatusDone, StatusFailed}

// IsKnown reports whether s is one of the markers written by the pipeline.
func (s Status) IsKnown() bool {
	for _, k := range knownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the pipeline is finished with an entry in this state.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

func (s Status) String() string {
	return string(s)
}
