package services

import (
	"strings"
	"sync"
	"time"

	"fileshare/internal/models"
	"fileshare/internal/repositories"

	"github.com/google/uuid"
)

// In-memory repository fakes so service behavior can be exercised without a
// database. Compare-and-set semantics mirror the gorm implementations.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) add(user *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) FindByID(id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) FindByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) FindByUsernames(usernames []string) ([]models.User, error) {
	var out []models.User
	for _, name := range usernames {
		if u, err := r.FindByUsername(name); err == nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Create(user *models.User) error {
	if _, err := r.FindByUsername(user.Username); err == nil {
		return repositories.ErrUserAlreadyExists
	}
	r.add(user)
	return nil
}

func (r *fakeUserRepo) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateLimits(userID string, limits models.Limits) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.MaxFileSize = limits.MaxFileSize
		u.MaxTotalFiles = limits.MaxTotalFiles
		u.MaxTotalSize = limits.MaxTotalSize
	}
	return nil
}

func (r *fakeUserRepo) UpdatePassword(userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (r *fakeUserRepo) Delete(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
	return nil
}

func (r *fakeUserRepo) FindAll(limit, offset int) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) CountAll() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) CountAdmins() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.Role == models.UserRoleAdmin {
			n++
		}
	}
	return n, nil
}

type fakeFileRepo struct {
	mu    sync.Mutex
	files map[string]*models.File
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]*models.File)}
}

func (r *fakeFileRepo) Create(file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	file.CreatedAt = time.Now().UTC()
	r.files[file.ID] = file
	return nil
}

func (r *fakeFileRepo) FindByID(id string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.files[id]; ok {
		return f, nil
	}
	return nil, repositories.ErrFileNotFound
}

func (r *fakeFileRepo) FindByUser(userID string, limit, offset int) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.File
	for _, f := range r.files {
		if f.UserID == userID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) FindPublic(now time.Time, limit, offset int) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.File
	for _, f := range r.files {
		if f.IsPublic && !f.Expired(now) {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) FindByUserHashAndSize(userID, hash string, size int64) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f.UserID == userID && f.Size == size && strings.Contains(f.Filename, "_"+hash+"_") {
			return f, nil
		}
	}
	return nil, repositories.ErrFileNotFound
}

func (r *fakeFileRepo) Update(file *models.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[file.ID] = file
	return nil
}

func (r *fakeFileRepo) UpdateShareSettings(file *models.File) error {
	return r.Update(file)
}

func (r *fakeFileRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}

func (r *fakeFileRepo) CountByUser(userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, f := range r.files {
		if f.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeFileRepo) SumSizeByUser(userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, f := range r.files {
		if f.UserID == userID {
			total += f.Size
		}
	}
	return total, nil
}

func (r *fakeFileRepo) FindExpired(now time.Time, limit int) ([]models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.File
	for _, f := range r.files {
		if f.Expired(now) {
			out = append(out, *f)
		}
	}
	return out, nil
}

type chunkKey struct {
	taskID string
	index  int64
}

type fakeTaskRepo struct {
	mu     sync.Mutex
	tasks  map[string]*models.UploadTask
	chunks map[chunkKey]*models.UploadChunk
	files  *fakeFileRepo

	// findChunkErr, when set, is returned from FindChunk to simulate a
	// persistence failure.
	findChunkErr error
}

func newFakeTaskRepo(files *fakeFileRepo) *fakeTaskRepo {
	return &fakeTaskRepo{
		tasks:  make(map[string]*models.UploadTask),
		chunks: make(map[chunkKey]*models.UploadChunk),
		files:  files,
	}
}

func (r *fakeTaskRepo) Create(task *models.UploadTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.CreatedAt = time.Now().UTC()
	task.UpdatedAt = task.CreatedAt
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeTaskRepo) FindByID(id string) (*models.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, repositories.ErrTaskNotFound
}

func (r *fakeTaskRepo) FindByIDForUser(id, userID string) (*models.UploadTask, error) {
	task, err := r.FindByID(id)
	if err != nil || task.UserID != userID {
		return nil, repositories.ErrTaskNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) FindActiveByUserAndHash(userID, hash string) (*models.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.UserID == userID && t.FileHash == hash && !t.Status.IsTerminal() {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrTaskNotFound
}

func (r *fakeTaskRepo) cas(taskID string, from, to models.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok || t.Status != from {
		return repositories.ErrTaskNotClaimable
	}
	t.Status = to
	return nil
}

func (r *fakeTaskRepo) ClaimForAssembly(taskID string) error {
	return r.cas(taskID, models.TaskStatusUploading, models.TaskStatusAssembling)
}

func (r *fakeTaskRepo) ReleaseToUploading(taskID string) error {
	return r.cas(taskID, models.TaskStatusAssembling, models.TaskStatusUploading)
}

func (r *fakeTaskRepo) MarkFailed(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[taskID]; ok {
		t.Status = models.TaskStatusFailed
	}
	return nil
}

func (r *fakeTaskRepo) Complete(task *models.UploadTask, file *models.File) error {
	if err := r.files.Create(file); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[task.ID]
	if !ok || t.Status != models.TaskStatusAssembling {
		return repositories.ErrTaskNotClaimable
	}
	t.Status = models.TaskStatusCompleted
	t.FileID = &file.ID
	return nil
}

func (r *fakeTaskRepo) CreateChunk(chunk *models.UploadChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := chunkKey{chunk.TaskID, chunk.ChunkIndex}
	if _, exists := r.chunks[key]; exists {
		return nil // duplicate insert is silently dropped
	}
	chunk.UploadedAt = time.Now().UTC()
	r.chunks[key] = chunk
	return nil
}

func (r *fakeTaskRepo) FindChunk(taskID string, index int64) (*models.UploadChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findChunkErr != nil {
		return nil, r.findChunkErr
	}
	if c, ok := r.chunks[chunkKey{taskID, index}]; ok {
		return c, nil
	}
	return nil, repositories.ErrChunkNotFound
}

func (r *fakeTaskRepo) CountChunks(taskID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key := range r.chunks {
		if key.taskID == taskID {
			n++
		}
	}
	return n, nil
}

func (r *fakeTaskRepo) ListChunks(taskID string) ([]models.UploadChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.UploadChunk
	for key, c := range r.chunks {
		if key.taskID == taskID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) FindReclaimable(terminalCutoff, abandonCutoff time.Time, limit int) ([]models.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.UploadTask
	for _, t := range r.tasks {
		if (t.Status.IsTerminal() && t.UpdatedAt.Before(terminalCutoff)) ||
			(!t.Status.IsTerminal() && t.UpdatedAt.Before(abandonCutoff)) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) DeleteWithChunks(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, taskID)
	for key := range r.chunks {
		if key.taskID == taskID {
			delete(r.chunks, key)
		}
	}
	return nil
}

func (r *fakeTaskRepo) status(taskID string) models.TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[taskID]; ok {
		return t.Status
	}
	return ""
}
