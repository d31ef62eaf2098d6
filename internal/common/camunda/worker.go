package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"journey-board/internal/common/logger"
)

// JobHandler processes one activated job and is responsible for completing or failing it.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

type WorkerOptions struct {
	Name          string
	MaxJobsActive int
	Timeout       time.Duration
}

// JobWorker is an open job subscription for a single task type.
type JobWorker struct {
	worker   worker.JobWorker
	taskType string
	log      logger.Logger
}

func StartWorker(client zbc.Client, taskType string, handler JobHandler, opts WorkerOptions, log logger.Logger) *JobWorker {
	if opts.MaxJobsActive <= 0 {
		opts.MaxJobsActive = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Name == "" {
		opts.Name = taskType
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		Name(opts.Name).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})

	return &JobWorker{worker: jw, taskType: taskType, log: log}
}

// Stop closes the subscription and waits for in-flight jobs.
func (w *JobWorker) Stop() {
	w.log.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.worker.Close()
	w.worker.AwaitClose()
}
