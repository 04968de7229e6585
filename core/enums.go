package core

const DefaultPool = "default"

type Status int

const (
	JobQueued Status = iota
	JobRunning
	JobDone
	JobError
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}
