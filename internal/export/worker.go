package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

// WorkerPool consumes durable export jobs. The API layer inserts an
// ExportJob row and dispatches its id here; a worker builds the CSV
// and flips the row to done or failed. The row, not the channel, is
// the source of truth for job state.
type WorkerPool struct {
	size  int
	jobs  chan int64
	store store.Store
	dir   string
}

// NewWorkerPool creates a new export worker pool writing files under dir.
func NewWorkerPool(size int, s store.Store, dir string) *WorkerPool {
	return &WorkerPool{
		size:  size,
		jobs:  make(chan int64, size),
		store: s,
		dir:   dir,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Export worker %d started", id)
	for {
		select {
		case jobID := <-wp.jobs:
			log.Printf("Export worker %d processing job %d", id, jobID)
			wp.Process(ctx, jobID)
		case <-ctx.Done():
			log.Printf("Export worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(jobID int64) {
	wp.jobs <- jobID
}

// Process generates the CSV for one job and records the outcome.
func (wp *WorkerPool) Process(ctx context.Context, jobID int64) {
	job, err := wp.findJob(ctx, jobID)
	if err != nil {
		log.Printf("Export job %d not found: %v", jobID, err)
		return
	}

	path, err := wp.writeCSV(ctx, job)
	if err != nil {
		log.Printf("Export job %d failed: %v", jobID, err)
		if ferr := wp.store.FinishExportJob(ctx, jobID, model.ExportFailed, ""); ferr != nil {
			log.Printf("Failed to mark export job %d as failed: %v", jobID, ferr)
		}
		return
	}

	if err := wp.store.FinishExportJob(ctx, jobID, model.ExportDone, path); err != nil {
		log.Printf("Failed to mark export job %d as done: %v", jobID, err)
		return
	}
	log.Printf("Export job %d done: %s", jobID, path)
}

func (wp *WorkerPool) findJob(ctx context.Context, jobID int64) (*model.ExportJob, error) {
	var job model.ExportJob
	if err := wp.store.DB().WithContext(ctx).First(&job, jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// writeCSV dumps the user's full reservation history, oldest first.
func (wp *WorkerPool) writeCSV(ctx context.Context, job *model.ExportJob) (string, error) {
	rows, err := wp.store.ReservationHistory(ctx, job.UserID, true)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(wp.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir %s: %w", wp.dir, err)
	}

	path := filepath.Join(wp.dir, fmt.Sprintf("export_%d.csv", job.ID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ID", "Lot", "Spot", "Start", "End", "Cost", "Status"}); err != nil {
		return "", err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.LotName,
			strconv.Itoa(r.SpotNumber),
			r.StartedAt.Format(time.RFC3339),
			"",
			"",
			string(r.Status),
		}
		if r.EndedAt != nil {
			record[4] = r.EndedAt.Format(time.RFC3339)
		}
		if r.Cost != nil {
			record[5] = strconv.FormatFloat(*r.Cost, 'f', 2, 64)
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}
