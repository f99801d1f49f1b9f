package worker

import (
	"context"
	"time"

	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/matching/record/recordsrv"
	"github.com/resumatch/resumatch/pkg/logx"
)

// IndexWorker drains the indexing queue with a small pool of goroutines
// and periodically promotes due retries back into the ready queue.
type IndexWorker struct {
	service *recordsrv.Service
	jobRepo record.JobRepository
	queue   record.JobQueue
	workers int
}

func NewIndexWorker(service *recordsrv.Service, jobRepo record.JobRepository, queue record.JobQueue, workers int) *IndexWorker {
	return &IndexWorker{
		service: service,
		jobRepo: jobRepo,
		queue:   queue,
		workers: workers,
	}
}

func (w *IndexWorker) Start(ctx context.Context) {
	logx.Infof("Starting %d indexing workers", w.workers)

	go w.moveDelayedJobs(ctx)

	for i := 0; i < w.workers; i++ {
		go w.processJobs(ctx, i)
	}
}

func (w *IndexWorker) processJobs(ctx context.Context, workerID int) {
	logx.Infof("Indexing worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			logx.Infof("Indexing worker %d stopping", workerID)
			return
		default:
			jobID, err := w.queue.Dequeue(ctx, 5*time.Second)
			if err != nil {
				logx.Errorf("Worker %d dequeue error: %v", workerID, err)
				continue
			}
			if jobID.IsEmpty() {
				// Dequeue timeout, nothing queued.
				continue
			}

			job, err := w.jobRepo.GetByID(ctx, jobID)
			if err != nil {
				logx.Errorf("Worker %d cannot load job %s: %v", workerID, jobID, err)
				continue
			}

			logx.Infof("Worker %d processing job: %s", workerID, job.ID)
			if err := w.service.ProcessIndexingJob(ctx, job); err != nil {
				logx.Errorf("Worker %d job failed: %v", workerID, err)
			}
		}
	}
}

func (w *IndexWorker) moveDelayedJobs(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := w.queue.MoveDelayedToReady(ctx)
			if err != nil {
				logx.Errorf("Failed to move delayed jobs: %v", err)
			} else if count > 0 {
				logx.Infof("Moved %d delayed jobs to ready queue", count)
			}
		}
	}
}
