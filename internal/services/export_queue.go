package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/huangang/annoreview/internal/config"
	"github.com/huangang/annoreview/pkg/logger"
)

const (
	TaskTypeExport = "export:project"
	exportQueue    = "exports"
)

// ExportJob asks for a project's export file to be rebuilt.
type ExportJob struct {
	JobID       string    `json:"job_id"`
	ProjectID   uint      `json:"project_id"`
	RequestedBy uint      `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// JobInfo is what the caller learns about an enqueued job.
type JobInfo struct {
	JobID  string        `json:"job_id"`
	Async  bool          `json:"async"`
	Result *ExportResult `json:"result,omitempty"`
}

type ExportProcessor func(context.Context, *ExportJob) (*ExportResult, error)

// ExportQueue hands export jobs to a processor, either through Redis or inline.
type ExportQueue interface {
	Enqueue(ctx context.Context, job *ExportJob) (*JobInfo, error)
	IsAsync() bool
	Close() error
}

// NewExportJob stamps a job id and request time.
func NewExportJob(projectID, requestedBy uint) *ExportJob {
	return &ExportJob{
		JobID:       uuid.NewString(),
		ProjectID:   projectID,
		RequestedBy: requestedBy,
		RequestedAt: time.Now(),
	}
}

var (
	globalExportQueue ExportQueue
	exportQueueOnce   sync.Once
)

// InitExportQueue picks the asynq queue when Redis is configured and
// reachable, otherwise exports run inline.
func InitExportQueue(cfg *config.RedisConfig, processor ExportProcessor) ExportQueue {
	exportQueueOnce.Do(func() {
		if cfg.Enabled {
			queue, err := NewAsyncQueue(cfg)
			if err == nil {
				logger.Infof("[ExportQueue] async queue initialized with Redis at %s", cfg.Addr)
				globalExportQueue = queue
				return
			}
			logger.Warnf("[ExportQueue] Redis unavailable, falling back to sync mode: %v", err)
		} else {
			logger.Infof("[ExportQueue] sync queue initialized (Redis disabled)")
		}
		globalExportQueue = NewSyncQueue(processor)
	})
	return globalExportQueue
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue enqueues export jobs into Redis for the Worker.
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, job *ExportJob) (*JobInfo, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}

	t := asynq.NewTask(TaskTypeExport, payload)
	info, err := q.client.EnqueueContext(ctx, t,
		asynq.Queue(exportQueue),
		asynq.MaxRetry(3),
		asynq.TaskID(job.JobID),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, err
	}

	logger.Infof("[AsyncQueue] export enqueued: id=%s project=%d", info.ID, job.ProjectID)
	return &JobInfo{JobID: info.ID, Async: true}, nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue runs the processor in the caller's goroutine.
type SyncQueue struct {
	processor ExportProcessor
}

func NewSyncQueue(processor ExportProcessor) *SyncQueue {
	return &SyncQueue{processor: processor}
}

func (q *SyncQueue) Enqueue(ctx context.Context, job *ExportJob) (*JobInfo, error) {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, export %s dropped", job.JobID)
		return &JobInfo{JobID: job.JobID}, nil
	}
	result, err := q.processor(ctx, job)
	if err != nil {
		return nil, err
	}
	return &JobInfo{JobID: job.JobID, Result: result}, nil
}

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error { return nil }

// ExportJobProcessor adapts ExportService to the queue.
func ExportJobProcessor(svc *ExportService) ExportProcessor {
	return func(ctx context.Context, job *ExportJob) (*ExportResult, error) {
		return svc.Export(ctx, job.ProjectID)
	}
}
