package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when a trigger is requested on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)
