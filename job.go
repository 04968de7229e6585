package go_priority_pool

import (
	"time"

	"go-priority-pool/core"
)

// Job is the builder handed to Enqueue. Priority defaults to Normal and
// the job is available immediately unless delayed.
type Job struct {
	model *core.Model
	task  core.Task
}

func NewJob(task core.Task) *Job {
	return &Job{
		model: core.NewModel(),
		task:  task,
	}
}

func (j *Job) getModel() (core.Model, error) {
	err := j.model.Encode(j.task)
	if err != nil {
		return core.Model{}, err
	}

	return *j.model, nil
}

func (j *Job) onPool(name string) *Job {
	j.model.SetPool(name)
	return j
}

func (j *Job) Priority(priority core.Priority) *Job {
	j.model.SetPriority(priority)
	return j
}

func (j *Job) High() *Job {
	return j.Priority(core.PriorityHigh)
}

func (j *Job) Normal() *Job {
	return j.Priority(core.PriorityNormal)
}

func (j *Job) Low() *Job {
	return j.Priority(core.PriorityLow)
}

func (j *Job) Delay(at time.Time) *Job {
	j.model.SetAvailableAt(at)
	return j
}

func (j *Job) DelaySeconds(s int) *Job {
	return j.Delay(time.Now().Add(time.Duration(s) * time.Second))
}

func (j *Job) DelayMinutes(m int) *Job {
	return j.Delay(time.Now().Add(time.Duration(m) * time.Minute))
}
