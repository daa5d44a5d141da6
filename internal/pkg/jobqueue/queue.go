package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/metrics"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"
	JobStatsKey      = "job_stats"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour // Jobs expire after 24 hours
)

// ErrNoProcessor is returned for jobs whose type has no registered processor.
var ErrNoProcessor = errors.New("no processor registered for job type")

// Processor executes one job. A returned error marks the job failed and
// schedules a retry while retries remain.
type Processor func(ctx context.Context, job *Job) error

// Queue manages background jobs using Redis
type Queue struct {
	client     redis.UniversalClient
	workers    int
	workerPool chan struct{}
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool

	procMu     sync.RWMutex
	processors map[JobType]Processor
	metrics    *metrics.Metrics
	retryDelay func(attempt int) time.Duration
}

// NewQueue creates a new job queue
func NewQueue(client redis.UniversalClient, workers int) *Queue {
	if workers <= 0 {
		workers = 3 // Default number of workers
	}

	return &Queue{
		client:     client,
		workers:    workers,
		workerPool: make(chan struct{}, workers),
		stopCh:     make(chan struct{}),
		processors: make(map[JobType]Processor),
		retryDelay: func(attempt int) time.Duration { return time.Minute * time.Duration(attempt) },
	}
}

// Register installs the processor for a job type, replacing any previous one.
func (q *Queue) Register(jobType JobType, p Processor) {
	q.procMu.Lock()
	defer q.procMu.Unlock()
	q.processors[jobType] = p
}

// SetMetrics attaches Prometheus collectors to job processing.
func (q *Queue) SetMetrics(m *metrics.Metrics) {
	q.metrics = m
}

func (q *Queue) processor(jobType JobType) (Processor, bool) {
	q.procMu.RLock()
	defer q.procMu.RUnlock()
	p, ok := q.processors[jobType]
	return p, ok
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.stopCh = make(chan struct{})
	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	// Initialize worker pool
	for i := 0; i < q.workers; i++ {
		q.workerPool <- struct{}{}
	}

	// Start workers
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	// Start stuck-processing sweeper (recovers jobs stuck in processing due to crashes)
	q.wg.Add(1)
	go q.stuckSweeper(10*time.Minute, 1*time.Minute)
}

// Stop stops the job queue workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()

	// Drain the worker pool so a later Start refills it from empty.
	for len(q.workerPool) > 0 {
		<-q.workerPool
	}
	log.Info("[JobQueue] All workers stopped")
}

// stuckSweeper periodically scans the processing list and requeues jobs stuck for longer than maxAge
func (q *Queue) stuckSweeper(maxAge time.Duration, interval time.Duration) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Stuck sweeper running (maxAge=%s, interval=%s)", maxAge, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			log.Info("[JobQueue] Stuck sweeper stopping")
			return
		case <-ticker.C:
			q.recoverStuckJobs(ctx, maxAge)
		}
	}
}

// recoverStuckJobs moves jobs that have been processing longer than maxAge
// back to the pending queue and returns how many were recovered.
func (q *Queue) recoverStuckJobs(ctx context.Context, maxAge time.Duration) int {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		log.Errorf("[JobQueue] Sweeper LRange error: %v", err)
		return 0
	}
	recovered := 0
	now := time.Now()
	for _, id := range ids {
		jobKey := JobKeyPrefix + id
		data, err := q.client.Get(ctx, jobKey).Result()
		if err != nil {
			// Job data missing; remove from processing list
			if !errors.Is(err, redis.Nil) {
				log.Errorf("[JobQueue] Sweeper Get error for %s: %v", id, err)
			}
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}
		var job Job
		if uerr := json.Unmarshal([]byte(data), &job); uerr != nil {
			log.Errorf("[JobQueue] Sweeper unmarshal error for %s: %v", id, uerr)
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}
		if job.Status != JobStatusProcessing {
			// Clean up stray entry
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}
		started := job.ProcessedAt
		if started == nil || started.IsZero() {
			tmp := job.UpdatedAt
			if tmp.IsZero() {
				tmp = job.CreatedAt
			}
			started = &tmp
		}
		if now.Sub(*started) > maxAge {
			log.Warnf("[JobQueue] Recovering stuck job %s (type=%s), age=%s", job.ID, job.Type, now.Sub(*started))
			job.Status = JobStatusPending
			job.ErrorMsg = "recovered by sweeper"
			job.UpdatedAt = now
			q.updateJob(ctx, &job)
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			_ = q.client.RPush(ctx, JobQueueKey, id).Err()
			recovered++
		}
	}
	return recovered
}

// worker processes jobs from the queue
func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Worker %d started", id)

	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Infof("[JobQueue] Worker %d stopping", id)
			return
		default:
			// Acquire worker slot
			<-q.workerPool

			job, err := q.dequeueJob(ctx)
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					log.Errorf("[JobQueue] Worker %d: Error dequeuing job: %v", id, err)
					time.Sleep(time.Second)
				}
				q.workerPool <- struct{}{}
				continue
			}

			if job != nil {
				log.Infof("[JobQueue] Worker %d processing job %s (Type: %s)", id, job.ID, job.Type)
				q.processJob(ctx, job)
			}

			// Release worker slot
			q.workerPool <- struct{}{}
		}
	}
}

// EnqueueJob adds a new job to the queue
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	jobKey := JobKeyPrefix + job.ID

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, jobKey, jobData, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Infof("[JobQueue] Enqueued job %s (Type: %s)", job.ID, job.Type)
	return job, nil
}

// EnqueueRecompute schedules a summary rebuild for creatorID.
func (q *Queue) EnqueueRecompute(ctx context.Context, creatorID string) (*Job, error) {
	return q.EnqueueJob(ctx, JobTypeRecomputeSummary, RecomputeSummaryJobPayload{CreatorID: creatorID}.ToMap())
}

// EnqueueStatementExport schedules a CSV statement export.
func (q *Queue) EnqueueStatementExport(ctx context.Context, creatorID, month string) (*Job, error) {
	return q.EnqueueJob(ctx, JobTypeExportStatement, ExportStatementJobPayload{CreatorID: creatorID, Month: month}.ToMap())
}

// dequeueJob gets the next job from the queue
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	// Move job from pending queue to processing queue atomically
	jobID, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	jobData, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("job data not found for ID %s", jobID)
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}

	return &job, nil
}

// processJob processes a single job
func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.updateJob(ctx, job)

	var err error
	if p, ok := q.processor(job.Type); ok {
		err = p(ctx, job)
	} else {
		err = fmt.Errorf("%w: %s", ErrNoProcessor, job.Type)
		// Retrying cannot help an unknown job type.
		job.MaxRetries = 0
	}

	if err != nil {
		log.Errorf("[JobQueue] Job %s failed: %v", job.ID, err)
		job.MarkAsFailed(err.Error())

		if job.IsRetryable() {
			log.Infof("[JobQueue] Retrying job %s (Attempt %d/%d)", job.ID, job.RetryCount, job.MaxRetries)
			job.MarkAsRetrying()
			q.updateJob(ctx, job)
			q.metrics.ObserveJob(string(job.Type), string(JobStatusRetrying))

			jobID := job.ID
			time.AfterFunc(q.retryDelay(job.RetryCount), func() {
				if err := q.client.LPush(context.Background(), JobQueueKey, jobID).Err(); err != nil {
					log.Errorf("[JobQueue] Failed to requeue job %s: %v", jobID, err)
				}
			})
		} else {
			log.Errorf("[JobQueue] Job %s permanently failed after %d retries", job.ID, job.RetryCount)
			q.updateJobStats(ctx, JobStatusFailed, 1)
			q.metrics.ObserveJob(string(job.Type), string(JobStatusFailed))
		}
	} else {
		log.Infof("[JobQueue] Job %s completed successfully", job.ID)
		job.MarkAsCompleted()
		q.updateJobStats(ctx, JobStatusCompleted, 1)
		q.metrics.ObserveJob(string(job.Type), string(JobStatusCompleted))
		q.removeCompletedJob(ctx, job.ID)
	}

	if job.Status != JobStatusCompleted && job.Status != JobStatusRetrying {
		q.updateJob(ctx, job)
	}
	q.removeFromProcessing(ctx, job.ID)
}

// updateJob updates job data in Redis
func (q *Queue) updateJob(ctx context.Context, job *Job) {
	jobData, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}

	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, jobData, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job %s: %v", job.ID, err)
	}
}

// removeFromProcessing removes a job from the processing queue
func (q *Queue) removeFromProcessing(ctx context.Context, jobID string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove job %s from processing queue: %v", jobID, err)
	}
}

// removeCompletedJob completely removes a completed job from Redis
func (q *Queue) removeCompletedJob(ctx context.Context, jobID string) {
	if err := q.client.Del(ctx, JobKeyPrefix+jobID).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove completed job %s from Redis: %v", jobID, err)
	} else {
		log.Debugf("[JobQueue] Successfully removed completed job %s from Redis", jobID)
	}
}

// updateJobStats updates job statistics
func (q *Queue) updateJobStats(ctx context.Context, status JobStatus, delta int64) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), delta).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job stats: %v", err)
	}
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobData, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// GetJobStats returns statistics about job statuses
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	stats, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[JobStatus]int64)
	for status, count := range stats {
		if countInt, err := json.Number(count).Int64(); err == nil {
			result[JobStatus(status)] = countInt
		}
	}

	return result, nil
}

// GetQueueSize returns the number of pending jobs
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

// GetProcessingSize returns the number of jobs being processed
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobProcessingKey).Result()
}
