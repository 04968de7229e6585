package core

import "errors"

var ErrAlreadyRunning = errors.New("pool already running")
var ErrPoolClosed = errors.New("pool is stopped")
var ErrNoWorkers = errors.New("worker count must be at least 1")
var ErrTypeNotRegistered = errors.New("task type not registered")
var ErrTypeExtract = errors.New("task type cannot be extracted")
var ErrNoJobsFound = errors.New("no jobs found")
var ErrNoJobFound = errors.New("job not found")
