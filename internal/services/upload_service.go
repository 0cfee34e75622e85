package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"fileshare/internal/logger"
	"fileshare/internal/models"
	"fileshare/internal/repositories"
	"fileshare/internal/services/dto"
	"fileshare/internal/storage"
	"fileshare/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UploadService is the resumable chunked upload subsystem: announce a file
// by content hash, stream its chunks in any order, then assemble them into
// a durable, shareable file record.
type UploadService interface {
	// Announce registers intent to upload. It short-circuits when the user
	// already owns identical content, resumes an open task for the same
	// hash, or creates a fresh task after the quota check passes.
	Announce(ctx context.Context, user *models.User, req *dto.CreateUploadTaskRequest) (*dto.CreateUploadTaskResponse, error)

	// ReceiveChunk validates and stages one chunk. Re-sending an already
	// recorded index is a no-op success.
	ReceiveChunk(ctx context.Context, userID, taskID string, index int64, reader io.Reader, declaredSize int64) error

	// Complete verifies completeness, concatenates the chunks in index
	// order, and materializes the file record. Exactly one concurrent
	// caller per task can win the assembly claim.
	Complete(ctx context.Context, user *models.User, taskID string) (*dto.CompleteUploadResponse, error)
}

type UploadServiceImpl struct {
	taskRepo         repositories.UploadTaskRepository
	fileRepo         repositories.FileRepository
	userRepo         repositories.UserRepository
	store            storage.Storage
	chunks           *storage.ChunkStore
	defaultChunkSize int64
}

func NewUploadService(
	taskRepo repositories.UploadTaskRepository,
	fileRepo repositories.FileRepository,
	userRepo repositories.UserRepository,
	store storage.Storage,
	chunks *storage.ChunkStore,
	defaultChunkSize int64,
) UploadService {
	return &UploadServiceImpl{
		taskRepo:         taskRepo,
		fileRepo:         fileRepo,
		userRepo:         userRepo,
		store:            store,
		chunks:           chunks,
		defaultChunkSize: defaultChunkSize,
	}
}

func (s *UploadServiceImpl) Announce(ctx context.Context, user *models.User, req *dto.CreateUploadTaskRequest) (*dto.CreateUploadTaskResponse, error) {
	// Identical content already stored by this user: no new task.
	existing, err := s.fileRepo.FindByUserHashAndSize(user.ID, req.Hash, req.FileSize)
	if err == nil {
		return &dto.CreateUploadTaskResponse{
			FileExists: true,
			File: &dto.ExistingFileInfo{
				ID:         existing.ID,
				Filename:   existing.OriginalFilename,
				Size:       existing.Size,
				UploadTime: existing.CreatedAt,
			},
		}, nil
	}
	if !errors.Is(err, repositories.ErrFileNotFound) {
		return nil, apperrors.InternalError(err)
	}

	// An open task for the same content resumes as-is; the geometry
	// declared when it was created wins over anything supplied now. The
	// already-recorded indices go back too, so the client skips them.
	task, err := s.taskRepo.FindActiveByUserAndHash(user.ID, req.Hash)
	if err == nil {
		received, err := s.receivedChunkIndices(task.ID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		return &dto.CreateUploadTaskResponse{
			TaskID:         task.ID,
			ChunkSize:      task.ChunkSize,
			ChunksCount:    task.ChunksCount,
			ReceivedChunks: received,
		}, nil
	}
	if !errors.Is(err, repositories.ErrTaskNotFound) {
		return nil, apperrors.InternalError(err)
	}

	if req.ShareOptions != nil && req.ShareOptions.ShareType == string(models.ShareSpecifiedUsers) {
		if err := validateAllowedUsers(s.userRepo, req.ShareOptions.AllowedUsers); err != nil {
			return nil, err
		}
	}

	usage, err := s.currentUsage(user.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := CheckQuota(user.Limits(), usage, req.FileSize); err != nil {
		return nil, err
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.defaultChunkSize
	}
	chunksCount := (req.FileSize + chunkSize - 1) / chunkSize

	now := time.Now().UTC()
	expiry := resolveExpiry(req.ShareOptions, now)

	var shareOptions datatypes.JSON
	if req.ShareOptions != nil {
		raw, err := json.Marshal(req.ShareOptions)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		shareOptions = datatypes.JSON(raw)
	}

	task = &models.UploadTask{
		UserID:          user.ID,
		FileHash:        req.Hash,
		FileName:        req.FileName,
		FileSize:        req.FileSize,
		ContentType:     req.ContentType,
		ChunkSize:       chunkSize,
		ChunksCount:     chunksCount,
		PoolID:          req.PoolID,
		BundleID:        req.BundleID,
		EncryptPassword: req.EncryptPassword,
		ExpiredAt:       expiry,
		ShareOptions:    shareOptions,
		Status:          models.TaskStatusUploading,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "upload task created",
		"task_id", task.ID, "file_size", task.FileSize, "chunks_count", task.ChunksCount)

	return &dto.CreateUploadTaskResponse{
		TaskID:      task.ID,
		ChunkSize:   chunkSize,
		ChunksCount: chunksCount,
	}, nil
}

// expectedChunkSize is the declared chunk size for every index except the
// last, which carries the remainder (or a full chunk on exact multiples).
func expectedChunkSize(task *models.UploadTask, index int64) int64 {
	if index < task.ChunksCount-1 {
		return task.ChunkSize
	}
	if rem := task.FileSize % task.ChunkSize; rem != 0 {
		return rem
	}
	return task.ChunkSize
}

func (s *UploadServiceImpl) ReceiveChunk(ctx context.Context, userID, taskID string, index int64, reader io.Reader, declaredSize int64) error {
	task, err := s.taskRepo.FindByIDForUser(taskID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			return apperrors.ErrTaskNotFound
		}
		return apperrors.InternalError(err)
	}
	if task.Status != models.TaskStatusUploading {
		return apperrors.ErrTaskNotOpen
	}
	if index < 0 || index >= task.ChunksCount {
		return apperrors.ErrInvalidChunkIndex
	}

	// Already recorded: the bytes are durably staged, nothing to do.
	if _, err := s.taskRepo.FindChunk(taskID, index); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrChunkNotFound) {
		return apperrors.InternalError(err)
	}

	expected := expectedChunkSize(task, index)
	if declaredSize >= 0 && declaredSize != expected {
		return apperrors.ErrChunkSizeMismatch(expected, declaredSize)
	}

	written, err := s.chunks.SaveChunk(taskID, index, reader)
	if err != nil {
		return apperrors.StorageError(err)
	}
	if written != expected {
		if rmErr := s.chunks.RemoveChunk(taskID, index); rmErr != nil {
			logger.CtxWarn(ctx, "failed to discard mis-sized chunk",
				"task_id", taskID, "chunk_index", index, "error", rmErr)
		}
		return apperrors.ErrChunkSizeMismatch(expected, written)
	}

	// Bytes are flushed; only now does the chunk become accountable.
	// A concurrent duplicate insert for the same index is silently dropped.
	chunk := &models.UploadChunk{
		TaskID:     taskID,
		ChunkIndex: index,
		ChunkSize:  written,
	}
	if err := s.taskRepo.CreateChunk(chunk); err != nil {
		return apperrors.InternalError(err)
	}

	return nil
}

func (s *UploadServiceImpl) Complete(ctx context.Context, user *models.User, taskID string) (*dto.CompleteUploadResponse, error) {
	task, err := s.taskRepo.FindByIDForUser(taskID, user.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if task.Status != models.TaskStatusUploading {
		return nil, apperrors.ErrTaskNotOpen
	}

	// Claim assembly. Losing the compare-and-set means another completion
	// run already owns the task.
	if err := s.taskRepo.ClaimForAssembly(taskID); err != nil {
		if errors.Is(err, repositories.ErrTaskNotClaimable) {
			return nil, apperrors.ErrTaskNotOpen
		}
		return nil, apperrors.InternalError(err)
	}

	received, err := s.taskRepo.CountChunks(taskID)
	if err != nil {
		s.releaseClaim(ctx, taskID)
		return nil, apperrors.InternalError(err)
	}
	if received != task.ChunksCount {
		// Incomplete is not fatal: the task goes back to uploading so the
		// client can keep resuming.
		s.releaseClaim(ctx, taskID)
		return nil, apperrors.ErrUploadIncomplete(received, task.ChunksCount)
	}

	staged, err := s.chunks.HasStaging(taskID)
	if err != nil {
		s.releaseClaim(ctx, taskID)
		return nil, apperrors.StorageError(err)
	}
	if !staged {
		s.markFailed(ctx, taskID)
		return nil, apperrors.ErrStagingMissing
	}

	storedName := fmt.Sprintf("%s_%s_%s", uuid.NewString(), task.FileHash, sanitizeFilename(task.FileName))

	if err := s.assemble(ctx, task, storedName); err != nil {
		return nil, err
	}

	file, err := s.materialize(ctx, task, storedName)
	if err != nil {
		return nil, err
	}

	// Cleanup failure never reverts a successful completion.
	if err := s.chunks.Purge(taskID); err != nil {
		logger.CtxWarn(ctx, "failed to purge staging after completion",
			"task_id", taskID, "error", err)
	}

	logger.CtxInfo(ctx, "upload completed",
		"task_id", taskID, "file_id", file.ID, "size", file.Size)

	return &dto.CompleteUploadResponse{
		FileID:   file.ID,
		Filename: file.OriginalFilename,
		Size:     file.Size,
	}, nil
}

// assemble streams every staged chunk, strictly in index order, into one
// artifact at the final storage key and verifies its total length.
func (s *UploadServiceImpl) assemble(ctx context.Context, task *models.UploadTask, storedName string) error {
	reader := &chunkSequenceReader{
		chunks: s.chunks,
		taskID: task.ID,
		count:  task.ChunksCount,
	}
	defer reader.Close()

	if err := s.store.Save(ctx, storedName, reader, task.ContentType); err != nil {
		s.discardArtifact(ctx, storedName)
		var missing *chunkMissingError
		if errors.As(err, &missing) {
			s.markFailed(ctx, task.ID)
			return apperrors.ErrChunkMissing(missing.index)
		}
		s.markFailed(ctx, task.ID)
		return apperrors.StorageError(err)
	}

	actual, err := s.store.GetSize(ctx, storedName)
	if err != nil {
		s.discardArtifact(ctx, storedName)
		s.markFailed(ctx, task.ID)
		return apperrors.StorageError(err)
	}
	if actual != task.FileSize {
		// A corrupt assembly must never become a file record.
		s.discardArtifact(ctx, storedName)
		s.markFailed(ctx, task.ID)
		return apperrors.ErrAssembledSizeMismatch(task.FileSize, actual)
	}

	return nil
}

// materialize re-validates the quota with fresh usage, then creates the file
// record and finalizes the task in one transaction.
func (s *UploadServiceImpl) materialize(ctx context.Context, task *models.UploadTask, storedName string) (*models.File, error) {
	usage, err := s.currentUsage(task.UserID)
	if err != nil {
		s.discardArtifact(ctx, storedName)
		s.markFailed(ctx, task.ID)
		return nil, apperrors.InternalError(err)
	}

	owner, err := s.userRepo.FindByID(task.UserID)
	if err != nil {
		s.discardArtifact(ctx, storedName)
		s.markFailed(ctx, task.ID)
		return nil, apperrors.InternalError(err)
	}

	// Usage can have drifted since announce; fail closed rather than let a
	// concurrent completion push the user over quota.
	if err := CheckQuota(owner.Limits(), usage, task.FileSize); err != nil {
		s.discardArtifact(ctx, storedName)
		s.markFailed(ctx, task.ID)
		return nil, err
	}

	var opts *dto.ShareOptions
	if len(task.ShareOptions) > 0 {
		opts = &dto.ShareOptions{}
		if err := json.Unmarshal(task.ShareOptions, opts); err != nil {
			// Pending options that fail to parse degrade to defaults.
			logger.CtxWarn(ctx, "unparseable share options, using defaults",
				"task_id", task.ID, "error", err)
			opts = nil
		}
	}

	file := &models.File{
		Filename:         storedName,
		OriginalFilename: sanitizeFilename(task.FileName),
		RawFilename:      task.FileName,
		Path:             storedName,
		Size:             task.FileSize,
		ContentType:      task.ContentType,
		UserID:           task.UserID,
	}
	applyShareOptions(file, opts, task.ExpiredAt)

	if err := s.taskRepo.Complete(task, file); err != nil {
		s.discardArtifact(ctx, storedName)
		s.markFailed(ctx, task.ID)
		return nil, apperrors.InternalError(err)
	}

	return file, nil
}

// receivedChunkIndices lists the recorded chunk indices in ascending order.
func (s *UploadServiceImpl) receivedChunkIndices(taskID string) ([]int64, error) {
	chunks, err := s.taskRepo.ListChunks(taskID)
	if err != nil {
		return nil, err
	}
	indices := make([]int64, 0, len(chunks))
	for i := range chunks {
		indices = append(indices, chunks[i].ChunkIndex)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices, nil
}

func (s *UploadServiceImpl) currentUsage(userID string) (Usage, error) {
	count, err := s.fileRepo.CountByUser(userID)
	if err != nil {
		return Usage{}, err
	}
	total, err := s.fileRepo.SumSizeByUser(userID)
	if err != nil {
		return Usage{}, err
	}
	return Usage{FileCount: count, TotalSize: total}, nil
}

func (s *UploadServiceImpl) releaseClaim(ctx context.Context, taskID string) {
	if err := s.taskRepo.ReleaseToUploading(taskID); err != nil {
		logger.CtxError(ctx, "failed to release assembly claim",
			"task_id", taskID, "error", err)
	}
}

func (s *UploadServiceImpl) markFailed(ctx context.Context, taskID string) {
	if err := s.taskRepo.MarkFailed(taskID); err != nil {
		logger.CtxError(ctx, "failed to mark task failed",
			"task_id", taskID, "error", err)
	}
}

func (s *UploadServiceImpl) discardArtifact(ctx context.Context, storedName string) {
	if err := s.store.Delete(ctx, storedName); err != nil {
		logger.CtxWarn(ctx, "failed to delete partial artifact",
			"path", storedName, "error", err)
	}
}

// chunkMissingError marks a chunk recorded in the database but physically
// absent from staging.
type chunkMissingError struct {
	index int64
}

func (e *chunkMissingError) Error() string {
	return fmt.Sprintf("staged chunk %d missing", e.index)
}

// chunkSequenceReader reads staged chunks 0..count-1 as one contiguous byte
// stream, opening each chunk lazily.
type chunkSequenceReader struct {
	chunks *storage.ChunkStore
	taskID string
	count  int64
	next   int64
	cur    io.ReadCloser
}

func (r *chunkSequenceReader) Read(p []byte) (int, error) {
	for {
		if r.cur == nil {
			if r.next >= r.count {
				return 0, io.EOF
			}
			f, err := r.chunks.OpenChunk(r.taskID, r.next)
			if err != nil {
				if os.IsNotExist(err) {
					return 0, &chunkMissingError{index: r.next}
				}
				return 0, err
			}
			r.cur = f
		}

		n, err := r.cur.Read(p)
		if err == io.EOF {
			r.cur.Close()
			r.cur = nil
			r.next++
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (r *chunkSequenceReader) Close() error {
	if r.cur != nil {
		err := r.cur.Close()
		r.cur = nil
		return err
	}
	return nil
}
