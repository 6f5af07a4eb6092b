package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/annoreview/internal/apperr"
	"github.com/huangang/annoreview/internal/config"
	"github.com/huangang/annoreview/pkg/logger"
)

// Worker consumes export jobs from Redis.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor ExportProcessor
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig, processor ExportProcessor) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				exportQueue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Errorf("[Worker] error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeExport, w.handleExportTask)
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start export worker: %w", err)
	}
	w.running = true
	logger.Infof("[Worker] export worker started")
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] shutting down")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] shutdown complete")
}

func (w *Worker) handleExportTask(ctx context.Context, t *asynq.Task) error {
	return runExportTask(ctx, t.Payload(), w.processor)
}

// runExportTask decodes and runs one job. Jobs for deleted projects and
// undecodable payloads are not retried.
func runExportTask(ctx context.Context, payload []byte, processor ExportProcessor) error {
	var job ExportJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode export job: %v: %w", err, asynq.SkipRetry)
	}
	if processor == nil {
		logger.Warnf("[Worker] no processor set, export %s dropped", job.JobID)
		return nil
	}

	logger.Infof("[Worker] processing export: job=%s project=%d", job.JobID, job.ProjectID)
	result, err := processor(ctx, &job)
	if apperr.IsNotFound(err) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	LogInfo("export", "export_project", fmt.Sprintf("exported %d records to %s", result.Records, result.Path),
		&job.RequestedBy, "", "", map[string]interface{}{"job_id": job.JobID, "project_id": job.ProjectID})
	return nil
}
