package workers

import (
	"context"
	"time"

	"fileshare/internal/logger"
	"fileshare/internal/repositories"
	"fileshare/internal/storage"
)

// CleanupWorker is the external sweep collaborator: the upload core never
// deletes its own tasks, so terminal and abandoned tasks plus their staging
// chunks, and expired files, are reclaimed here.
type CleanupWorker struct {
	taskRepo repositories.UploadTaskRepository
	fileRepo repositories.FileRepository
	chunks   *storage.ChunkStore
	store    storage.Storage

	taskRetention time.Duration
	abandonAfter  time.Duration
	interval      time.Duration
}

func NewCleanupWorker(
	taskRepo repositories.UploadTaskRepository,
	fileRepo repositories.FileRepository,
	chunks *storage.ChunkStore,
	store storage.Storage,
	taskRetention, abandonAfter, interval time.Duration,
) *CleanupWorker {
	return &CleanupWorker{
		taskRepo:      taskRepo,
		fileRepo:      fileRepo,
		chunks:        chunks,
		store:         store,
		taskRetention: taskRetention,
		abandonAfter:  abandonAfter,
		interval:      interval,
	}
}

// Start launches the periodic sweeps until the context is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *CleanupWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			w.sweepTasks(ctx)
			w.sweepExpiredFiles(ctx)
		}
	}
}

// sweepTasks removes terminal tasks past retention and non-terminal tasks
// that were abandoned (including tasks stuck in assembling after a crash),
// together with their chunk records and staging directories.
func (w *CleanupWorker) sweepTasks(ctx context.Context) {
	now := time.Now().UTC()
	tasks, err := w.taskRepo.FindReclaimable(now.Add(-w.taskRetention), now.Add(-w.abandonAfter), 200)
	if err != nil {
		logger.CtxError(ctx, "failed to list reclaimable upload tasks", "error", err)
		return
	}

	for _, task := range tasks {
		if err := w.chunks.Purge(task.ID); err != nil {
			logger.CtxWarn(ctx, "failed to purge staging for task", "task_id", task.ID, "error", err)
			continue
		}
		if err := w.taskRepo.DeleteWithChunks(task.ID); err != nil {
			logger.CtxError(ctx, "failed to delete upload task", "task_id", task.ID, "error", err)
			continue
		}
	}
	if len(tasks) > 0 {
		logger.CtxInfo(ctx, "swept upload tasks", "count", len(tasks))
	}
}

// sweepExpiredFiles deletes files whose expiry timestamp passed, artifact
// first, record second.
func (w *CleanupWorker) sweepExpiredFiles(ctx context.Context) {
	files, err := w.fileRepo.FindExpired(time.Now().UTC(), 200)
	if err != nil {
		logger.CtxError(ctx, "failed to list expired files", "error", err)
		return
	}

	for _, file := range files {
		if err := w.store.Delete(ctx, file.Path); err != nil {
			logger.CtxWarn(ctx, "failed to delete expired artifact", "file_id", file.ID, "error", err)
			continue
		}
		if err := w.fileRepo.Delete(file.ID); err != nil {
			logger.CtxError(ctx, "failed to delete expired file record", "file_id", file.ID, "error", err)
		}
	}
	if len(files) > 0 {
		logger.CtxInfo(ctx, "swept expired files", "count", len(files))
	}
}
