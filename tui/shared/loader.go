package shared

// ActivityDoneMsg ends an activity spinner with the result of its work.
type ActivityDoneMsg struct {
	Err error
}

// WaitTickMsg advances a wait countdown.
type WaitTickMsg struct{}
