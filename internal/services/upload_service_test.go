package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"fileshare/internal/models"
	"fileshare/internal/services/dto"
	"fileshare/internal/storage"
	"fileshare/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChunkSize = 1024

type uploadFixture struct {
	svc      UploadService
	users    *fakeUserRepo
	files    *fakeFileRepo
	tasks    *fakeTaskRepo
	chunks   *storage.ChunkStore
	storeDir string
	user     *models.User
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()

	chunks, err := storage.NewChunkStore(t.TempDir())
	require.NoError(t, err)

	storeDir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.Config{BasePath: storeDir})
	require.NoError(t, err)

	users := newFakeUserRepo()
	files := newFakeFileRepo()
	tasks := newFakeTaskRepo(files)

	user := users.add(&models.User{
		Username:      "alice",
		Role:          models.UserRoleUser,
		MaxFileSize:   64 << 20,
		MaxTotalFiles: 10,
		MaxTotalSize:  256 << 20,
	})

	return &uploadFixture{
		svc:      NewUploadService(tasks, files, users, store, chunks, testChunkSize),
		users:    users,
		files:    files,
		tasks:    tasks,
		chunks:   chunks,
		storeDir: storeDir,
		user:     user,
	}
}

func (fx *uploadFixture) announce(t *testing.T, req *dto.CreateUploadTaskRequest) *dto.CreateUploadTaskResponse {
	t.Helper()
	resp, err := fx.svc.Announce(context.Background(), fx.user, req)
	require.NoError(t, err)
	return resp
}

func (fx *uploadFixture) sendChunk(t *testing.T, taskID string, index int64, data []byte) {
	t.Helper()
	err := fx.svc.ReceiveChunk(context.Background(), fx.user.ID, taskID, index, bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
}

// chunkPayload builds deterministic, per-index content so reordered or
// corrupted assemblies are detectable byte for byte.
func chunkPayload(index int64, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(int(index)*31 + i%251)
	}
	return data
}

func splitPayload(full []byte, chunkSize int) [][]byte {
	var parts [][]byte
	for off := 0; off < len(full); off += chunkSize {
		end := off + chunkSize
		if end > len(full) {
			end = len(full)
		}
		parts = append(parts, full[off:end])
	}
	return parts
}

func basicRequest(size int64) *dto.CreateUploadTaskRequest {
	return &dto.CreateUploadTaskRequest{
		Hash:        "a1b2c3d4e5f6a7b8",
		FileName:    "report.pdf",
		FileSize:    size,
		ContentType: "application/pdf",
	}
}

func TestAnnounce_CreatesTaskWithDerivedGeometry(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	// 1. Announce a file that needs two full chunks plus a remainder.
	resp := fx.announce(t, basicRequest(testChunkSize*2+512))

	// 2. The response carries a fresh task with the derived chunk count.
	assert.False(t, resp.FileExists)
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, int64(testChunkSize), resp.ChunkSize)
	assert.Equal(t, int64(3), resp.ChunksCount)

	task, err := fx.tasks.FindByID(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusUploading, task.Status)
	assert.Equal(t, fx.user.ID, task.UserID)
}

func TestAnnounce_ExactMultipleHasNoRemainderChunk(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	resp := fx.announce(t, basicRequest(testChunkSize*4))

	assert.Equal(t, int64(4), resp.ChunksCount)
}

func TestAnnounce_ClientChunkSizeWins(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	req := basicRequest(10_000)
	req.ChunkSize = 4000

	resp := fx.announce(t, req)

	assert.Equal(t, int64(4000), resp.ChunkSize)
	assert.Equal(t, int64(3), resp.ChunksCount)
}

func TestAnnounce_ResumesOpenTaskWithOriginalGeometry(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	// 1. First announce creates the task.
	first := fx.announce(t, basicRequest(testChunkSize*3))

	// 2. A second announce for the same hash, even with different geometry,
	//    resumes the existing task unchanged.
	req := basicRequest(testChunkSize * 3)
	req.ChunkSize = 99999
	second := fx.announce(t, req)

	assert.Equal(t, first.TaskID, second.TaskID)
	assert.Equal(t, first.ChunkSize, second.ChunkSize)
	assert.Equal(t, first.ChunksCount, second.ChunksCount)
}

func TestAnnounce_DeduplicatesIdenticalContent(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	full := chunkPayload(0, testChunkSize+100)
	taskID := uploadAll(t, fx, basicRequest(int64(len(full))), full)

	done, err := fx.svc.Complete(context.Background(), fx.user, taskID)
	require.NoError(t, err)

	// Announcing the same hash and size again short-circuits to the
	// existing file, no new task.
	resp := fx.announce(t, basicRequest(int64(len(full))))

	assert.True(t, resp.FileExists)
	require.NotNil(t, resp.File)
	assert.Equal(t, done.FileID, resp.File.ID)
	assert.Empty(t, resp.TaskID)
}

func TestAnnounce_DedupRequiresDelimitedHash(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	// A file whose name merely contains the hash, without the underscore
	// delimiters of a stored key, must not satisfy deduplication.
	req := basicRequest(500)
	require.NoError(t, fx.files.Create(&models.File{
		UserID:   fx.user.ID,
		Filename: "prefix-" + req.Hash + "-name",
		Size:     500,
	}))

	resp := fx.announce(t, req)

	assert.False(t, resp.FileExists)
	assert.NotEmpty(t, resp.TaskID)
}

func TestAnnounce_ResumeReportsReceivedChunks(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	resp := fx.announce(t, basicRequest(testChunkSize*2+512))
	fx.sendChunk(t, resp.TaskID, 2, chunkPayload(2, 512))
	fx.sendChunk(t, resp.TaskID, 0, chunkPayload(0, testChunkSize))

	resumed := fx.announce(t, basicRequest(testChunkSize*2+512))

	assert.Equal(t, resp.TaskID, resumed.TaskID)
	assert.Equal(t, []int64{0, 2}, resumed.ReceivedChunks)
}

func TestAnnounce_RejectsUnknownAllowListedUsers(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	fx.users.add(&models.User{Username: "bob"})

	req := basicRequest(500)
	req.ShareOptions = &dto.ShareOptions{
		ShareType:    string(models.ShareSpecifiedUsers),
		AllowedUsers: "bob\nghost",
	}

	_, err := fx.svc.Announce(context.Background(), fx.user, req)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
	assert.Contains(t, appErr.Message, "ghost")

	// With only known accounts the announce goes through.
	req.ShareOptions.AllowedUsers = "bob"
	resp := fx.announce(t, req)
	assert.NotEmpty(t, resp.TaskID)
}

func TestAnnounce_QuotaRejections(t *testing.T) {
	t.Parallel()

	t.Run("file too large", func(t *testing.T) {
		t.Parallel()
		fx := newUploadFixture(t)
		fx.user.MaxFileSize = 100

		_, err := fx.svc.Announce(context.Background(), fx.user, basicRequest(101))

		assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)
	})

	t.Run("file count reached", func(t *testing.T) {
		t.Parallel()
		fx := newUploadFixture(t)
		fx.user.MaxTotalFiles = 1
		require.NoError(t, fx.files.Create(&models.File{UserID: fx.user.ID, Filename: "x_otherhash_x", Size: 10}))

		_, err := fx.svc.Announce(context.Background(), fx.user, basicRequest(10))

		assert.ErrorIs(t, err, apperrors.ErrFileCountExceeded)
	})

	t.Run("total size exceeded", func(t *testing.T) {
		t.Parallel()
		fx := newUploadFixture(t)
		fx.user.MaxTotalSize = 1000
		require.NoError(t, fx.files.Create(&models.File{UserID: fx.user.ID, Filename: "x_otherhash_x", Size: 900}))

		_, err := fx.svc.Announce(context.Background(), fx.user, basicRequest(200))

		assert.ErrorIs(t, err, apperrors.ErrTotalSizeExceeded)
	})
}

func TestReceiveChunk_RejectsUnknownTaskAndBadIndex(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	ctx := context.Background()

	resp := fx.announce(t, basicRequest(testChunkSize*2+512))
	data := chunkPayload(0, testChunkSize)

	err := fx.svc.ReceiveChunk(ctx, fx.user.ID, "no-such-task", 0, bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	// A task is invisible to anyone but its owner.
	stranger := fx.users.add(&models.User{Username: "mallory"})
	err = fx.svc.ReceiveChunk(ctx, stranger.ID, resp.TaskID, 0, bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	err = fx.svc.ReceiveChunk(ctx, fx.user.ID, resp.TaskID, 3, bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, apperrors.ErrInvalidChunkIndex)

	err = fx.svc.ReceiveChunk(ctx, fx.user.ID, resp.TaskID, -1, bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, apperrors.ErrInvalidChunkIndex)
}

func TestReceiveChunk_DeclaredSizeMismatch(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	resp := fx.announce(t, basicRequest(testChunkSize*2+512))

	// Non-final chunk must be exactly one chunk size.
	short := chunkPayload(0, 100)
	err := fx.svc.ReceiveChunk(context.Background(), fx.user.ID, resp.TaskID, 0, bytes.NewReader(short), int64(len(short)))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	staged, statErr := fx.chunks.HasChunk(resp.TaskID, 0)
	require.NoError(t, statErr)
	assert.False(t, staged)
}

func TestReceiveChunk_ActualSizeMismatchDiscardsStagedBytes(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	resp := fx.announce(t, basicRequest(testChunkSize*2+512))

	// Declared size unknown (-1): the stream itself is too short, so the
	// staged bytes must be discarded and no chunk recorded.
	short := chunkPayload(0, 100)
	err := fx.svc.ReceiveChunk(context.Background(), fx.user.ID, resp.TaskID, 0, bytes.NewReader(short), -1)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	staged, statErr := fx.chunks.HasChunk(resp.TaskID, 0)
	require.NoError(t, statErr)
	assert.False(t, staged)

	count, countErr := fx.tasks.CountChunks(resp.TaskID)
	require.NoError(t, countErr)
	assert.Zero(t, count)
}

func TestReceiveChunk_RecordLookupFailureSurfaces(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	resp := fx.announce(t, basicRequest(testChunkSize*2+512))

	// A broken chunk-record lookup must not be mistaken for "not yet
	// received" and silently restage.
	fx.tasks.findChunkErr = errors.New("connection reset")
	data := chunkPayload(0, testChunkSize)

	err := fx.svc.ReceiveChunk(context.Background(), fx.user.ID, resp.TaskID, 0, bytes.NewReader(data), int64(len(data)))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInternalError, appErr.Code)

	staged, statErr := fx.chunks.HasChunk(resp.TaskID, 0)
	require.NoError(t, statErr)
	assert.False(t, staged)
}

func TestReceiveChunk_ResendIsIdempotent(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	resp := fx.announce(t, basicRequest(testChunkSize*2+512))
	data := chunkPayload(1, testChunkSize)

	fx.sendChunk(t, resp.TaskID, 1, data)
	fx.sendChunk(t, resp.TaskID, 1, data)

	count, err := fx.tasks.CountChunks(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// uploadAll announces the request, streams every chunk of full out of
// order, and returns the task ID ready for completion.
func uploadAll(t *testing.T, fx *uploadFixture, req *dto.CreateUploadTaskRequest, full []byte) string {
	t.Helper()

	resp := fx.announce(t, req)
	require.False(t, resp.FileExists)

	parts := splitPayload(full, int(resp.ChunkSize))
	require.Len(t, parts, int(resp.ChunksCount))

	// Send the last chunk first to exercise out-of-order arrival.
	for i := len(parts) - 1; i >= 0; i-- {
		fx.sendChunk(t, resp.TaskID, int64(i), parts[i])
	}
	return resp.TaskID
}

func TestComplete_AssemblesChunksInIndexOrder(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	// 1. Upload three chunks, deliberately out of order.
	full := append(chunkPayload(0, testChunkSize), chunkPayload(1, testChunkSize)...)
	full = append(full, chunkPayload(2, 512)...)
	taskID := uploadAll(t, fx, basicRequest(int64(len(full))), full)

	// 2. Complete assembles them into one durable artifact.
	done, err := fx.svc.Complete(context.Background(), fx.user, taskID)
	require.NoError(t, err)

	assert.NotEmpty(t, done.FileID)
	assert.Equal(t, "report.pdf", done.Filename)
	assert.Equal(t, int64(len(full)), done.Size)

	// 3. The stored bytes are the chunks concatenated in index order, and
	//    the stored name embeds the content hash for dedup lookups.
	entries, err := os.ReadDir(fx.storeDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "_a1b2c3d4e5f6a7b8_")

	stored, err := os.ReadFile(fx.storeDir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Equal(t, full, stored)

	// 4. Task is terminal, linked to the file, and staging is gone.
	task, err := fx.tasks.FindByID(taskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.FileID)
	assert.Equal(t, done.FileID, *task.FileID)

	staged, err := fx.chunks.HasStaging(taskID)
	require.NoError(t, err)
	assert.False(t, staged)
}

func TestComplete_SingleChunkFile(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	full := chunkPayload(0, 300)
	taskID := uploadAll(t, fx, basicRequest(300), full)

	done, err := fx.svc.Complete(context.Background(), fx.user, taskID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), done.Size)
}

func TestComplete_IncompleteUploadStaysResumable(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	ctx := context.Background()

	full := append(chunkPayload(0, testChunkSize), chunkPayload(1, 200)...)
	resp := fx.announce(t, basicRequest(int64(len(full))))
	fx.sendChunk(t, resp.TaskID, 0, full[:testChunkSize])

	// 1. Completing with a missing chunk reports progress and releases the
	//    task back to uploading.
	_, err := fx.svc.Complete(ctx, fx.user, resp.TaskID)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	assert.Equal(t, models.TaskStatusUploading, fx.tasks.status(resp.TaskID))

	// 2. The client finishes the upload and completion now succeeds.
	fx.sendChunk(t, resp.TaskID, 1, full[testChunkSize:])

	done, err := fx.svc.Complete(ctx, fx.user, resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, int64(len(full)), done.Size)
}

func TestComplete_SecondCompletionIsRejected(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	ctx := context.Background()

	full := chunkPayload(0, 500)
	taskID := uploadAll(t, fx, basicRequest(500), full)

	_, err := fx.svc.Complete(ctx, fx.user, taskID)
	require.NoError(t, err)

	_, err = fx.svc.Complete(ctx, fx.user, taskID)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotOpen)
}

func TestComplete_StagingMissingFailsTask(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	full := chunkPayload(0, 500)
	taskID := uploadAll(t, fx, basicRequest(500), full)

	// Staging vanished underneath the recorded chunks.
	require.NoError(t, fx.chunks.Purge(taskID))

	_, err := fx.svc.Complete(context.Background(), fx.user, taskID)

	assert.ErrorIs(t, err, apperrors.ErrStagingMissing)
	assert.Equal(t, models.TaskStatusFailed, fx.tasks.status(taskID))
}

func TestComplete_MissingChunkFailsTaskAndDiscardsArtifact(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	full := append(chunkPayload(0, testChunkSize), chunkPayload(1, testChunkSize)...)
	full = append(full, chunkPayload(2, 100)...)
	taskID := uploadAll(t, fx, basicRequest(int64(len(full))), full)

	// A recorded chunk is physically gone from staging.
	require.NoError(t, fx.chunks.RemoveChunk(taskID, 1))

	_, err := fx.svc.Complete(context.Background(), fx.user, taskID)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeIntegrityFailure, appErr.Code)
	assert.Equal(t, models.TaskStatusFailed, fx.tasks.status(taskID))

	entries, readErr := os.ReadDir(fx.storeDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)

	files, listErr := fx.files.FindByUser(fx.user.ID, 100, 0)
	require.NoError(t, listErr)
	assert.Empty(t, files)
}

func TestComplete_AssembledSizeMismatchFailsTask(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	full := append(chunkPayload(0, testChunkSize), chunkPayload(1, 100)...)
	taskID := uploadAll(t, fx, basicRequest(int64(len(full))), full)

	// Corrupt a staged chunk behind the service's back so the assembled
	// artifact cannot match the declared size.
	_, err := fx.chunks.SaveChunk(taskID, 1, strings.NewReader("tiny"))
	require.NoError(t, err)

	_, err = fx.svc.Complete(context.Background(), fx.user, taskID)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeIntegrityFailure, appErr.Code)
	assert.Equal(t, models.TaskStatusFailed, fx.tasks.status(taskID))

	entries, readErr := os.ReadDir(fx.storeDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestComplete_QuotaRecheckFailsClosed(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)
	fx.user.MaxTotalSize = 2000

	full := chunkPayload(0, 800)
	taskID := uploadAll(t, fx, basicRequest(800), full)

	// Usage grows between announce and completion; the re-check must reject
	// rather than push the user over quota.
	require.NoError(t, fx.files.Create(&models.File{UserID: fx.user.ID, Filename: "y_otherhash_y", Size: 1500}))

	_, err := fx.svc.Complete(context.Background(), fx.user, taskID)

	assert.ErrorIs(t, err, apperrors.ErrTotalSizeExceeded)
	assert.Equal(t, models.TaskStatusFailed, fx.tasks.status(taskID))

	entries, readErr := os.ReadDir(fx.storeDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestComplete_AppliesPendingShareOptions(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t)

	req := basicRequest(400)
	req.ShareOptions = &dto.ShareOptions{
		ShareType:    string(models.ShareSpecifiedUsers),
		Password:     "s3cret",
		AllowedUsers: "bob\n  carol \n\n",
	}
	taskID := uploadAll(t, fx, req, chunkPayload(0, 400))

	done, err := fx.svc.Complete(context.Background(), fx.user, taskID)
	require.NoError(t, err)

	file, err := fx.files.FindByID(done.FileID)
	require.NoError(t, err)
	assert.Equal(t, models.ShareSpecifiedUsers, file.ShareType)
	assert.False(t, file.IsPublic)
	assert.Equal(t, "s3cret", file.Password)
	assert.JSONEq(t, `["bob","carol"]`, string(file.AllowedUsers))
}
