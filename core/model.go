package core

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// scoreShift places the priority rank above the microsecond timestamp,
// so a single int64 orders jobs by priority first and submission time
// second. Every backend dequeues by ascending score.
const scoreShift = 52

type Payload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Model struct {
	ID          string
	Pool        string
	Priority    Priority
	Status      Status
	Attempts    int
	Error       string
	Score       int64
	Payload     json.RawMessage
	AvailableAt time.Time
	CreatedAt   time.Time
}

func NewModel() *Model {
	job := &Model{
		ID:          uuid.New().String(),
		Pool:        DefaultPool,
		Status:      JobQueued,
		Priority:    PriorityNormal,
		Attempts:    0,
		AvailableAt: time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
		Payload:     json.RawMessage("{}"),
	}
	job.rescore()
	return job
}

// rescore recomputes the dispatch score. High priority yields the lowest
// rank so it drains first; jobs of equal priority keep submission order.
func (j *Model) rescore() {
	rank := int64(PriorityHigh - j.Priority)
	j.Score = rank<<scoreShift + j.CreatedAt.UnixMicro()
}

func (j *Model) SetPool(name string) *Model {
	j.Pool = name
	return j
}

func (j *Model) SetPayload(pl json.RawMessage) *Model {
	j.Payload = pl
	return j
}

func (j *Model) SetAvailableAt(at time.Time) *Model {
	j.AvailableAt = at.UTC()
	return j
}

func (j *Model) SetPriority(priority Priority) *Model {
	j.Priority = priority
	j.rescore()
	return j
}

func (j *Model) SetStatus(status Status) *Model {
	j.Status = status
	return j
}

func (j *Model) SetError(text string) *Model {
	j.Error = text
	return j
}

func (j *Model) Attempt() *Model {
	j.Attempts++
	return j
}

func (j *Model) Decode() (Payload, error) {
	pl := Payload{}

	err := json.Unmarshal(j.Payload, &pl)
	if err != nil {
		return Payload{}, err
	}

	return pl, nil
}

func (j *Model) Encode(task Task) error {
	taskType := reflect.TypeOf(task)
	taskData, err := json.Marshal(task)
	if err != nil {
		return err
	}

	pl := Payload{
		Type: taskType.String(),
		Data: taskData,
	}

	j.Payload, err = json.Marshal(pl)
	if err != nil {
		return err
	}

	return nil
}
