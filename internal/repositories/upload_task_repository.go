package repositories

import (
	"errors"
	"time"

	"fileshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTaskNotFound  = errors.New("upload task not found")
	ErrChunkNotFound = errors.New("upload chunk not found")
	// ErrTaskNotClaimable is returned when a compare-and-set transition
	// finds the task is no longer in the expected source status.
	ErrTaskNotClaimable = errors.New("upload task not in claimable status")
)

type UploadTaskRepository interface {
	Create(task *models.UploadTask) error
	FindByID(id string) (*models.UploadTask, error)
	FindByIDForUser(id, userID string) (*models.UploadTask, error)
	// FindActiveByUserAndHash returns the single non-terminal task for the
	// (user, hash) pair, if one exists.
	FindActiveByUserAndHash(userID, hash string) (*models.UploadTask, error)

	// ClaimForAssembly atomically moves the task from uploading to
	// assembling. Exactly one concurrent caller wins; losers get
	// ErrTaskNotClaimable.
	ClaimForAssembly(taskID string) error
	// ReleaseToUploading undoes an assembly claim when the task turned out
	// to be incomplete, returning it to the resumable state.
	ReleaseToUploading(taskID string) error
	MarkFailed(taskID string) error
	// Complete creates the file record and finalizes the task in one
	// transaction, so a completed task always points at an existing file.
	Complete(task *models.UploadTask, file *models.File) error

	CreateChunk(chunk *models.UploadChunk) error
	FindChunk(taskID string, index int64) (*models.UploadChunk, error)
	CountChunks(taskID string) (int64, error)
	ListChunks(taskID string) ([]models.UploadChunk, error)

	// FindReclaimable lists terminal tasks older than cutoff and non-terminal
	// tasks untouched since abandonCutoff, for the background sweep. A task
	// stuck in assembling after a crash is reclaimed the same way as an
	// abandoned upload.
	FindReclaimable(terminalCutoff, abandonCutoff time.Time, limit int) ([]models.UploadTask, error)
	DeleteWithChunks(taskID string) error
}

type UploadTaskRepositoryImpl struct {
	db *gorm.DB
}

func NewUploadTaskRepository(db *gorm.DB) UploadTaskRepository {
	return &UploadTaskRepositoryImpl{db: db}
}

func (r *UploadTaskRepositoryImpl) Create(task *models.UploadTask) error {
	return r.db.Create(task).Error
}

func (r *UploadTaskRepositoryImpl) FindByID(id string) (*models.UploadTask, error) {
	var task models.UploadTask
	err := r.db.First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *UploadTaskRepositoryImpl) FindByIDForUser(id, userID string) (*models.UploadTask, error) {
	var task models.UploadTask
	err := r.db.First(&task, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *UploadTaskRepositoryImpl) FindActiveByUserAndHash(userID, hash string) (*models.UploadTask, error) {
	var task models.UploadTask
	err := r.db.Where("user_id = ? AND file_hash = ? AND status IN ?",
		userID, hash, []models.TaskStatus{models.TaskStatusUploading, models.TaskStatusAssembling}).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *UploadTaskRepositoryImpl) casStatus(taskID string, from, to models.TaskStatus) error {
	result := r.db.Model(&models.UploadTask{}).
		Where("id = ? AND status = ?", taskID, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotClaimable
	}
	return nil
}

func (r *UploadTaskRepositoryImpl) ClaimForAssembly(taskID string) error {
	return r.casStatus(taskID, models.TaskStatusUploading, models.TaskStatusAssembling)
}

func (r *UploadTaskRepositoryImpl) ReleaseToUploading(taskID string) error {
	return r.casStatus(taskID, models.TaskStatusAssembling, models.TaskStatusUploading)
}

func (r *UploadTaskRepositoryImpl) MarkFailed(taskID string) error {
	return r.db.Model(&models.UploadTask{}).
		Where("id = ?", taskID).
		Update("status", models.TaskStatusFailed).Error
}

func (r *UploadTaskRepositoryImpl) Complete(task *models.UploadTask, file *models.File) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(file).Error; err != nil {
			return err
		}

		result := tx.Model(&models.UploadTask{}).
			Where("id = ? AND status = ?", task.ID, models.TaskStatusAssembling).
			Updates(map[string]interface{}{
				"status":  models.TaskStatusCompleted,
				"file_id": file.ID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotClaimable
		}
		return nil
	})
}

// CreateChunk inserts the chunk record, tolerating a concurrent duplicate
// insert for the same (task, index). The unique index keeps at most one row.
func (r *UploadTaskRepositoryImpl) CreateChunk(chunk *models.UploadChunk) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(chunk).Error
}

func (r *UploadTaskRepositoryImpl) FindChunk(taskID string, index int64) (*models.UploadChunk, error) {
	var chunk models.UploadChunk
	err := r.db.First(&chunk, "task_id = ? AND chunk_index = ?", taskID, index).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChunkNotFound
		}
		return nil, err
	}
	return &chunk, nil
}

func (r *UploadTaskRepositoryImpl) CountChunks(taskID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.UploadChunk{}).Where("task_id = ?", taskID).Count(&count).Error
	return count, err
}

func (r *UploadTaskRepositoryImpl) ListChunks(taskID string) ([]models.UploadChunk, error) {
	var chunks []models.UploadChunk
	err := r.db.Where("task_id = ?", taskID).Order("chunk_index ASC").Find(&chunks).Error
	return chunks, err
}

func (r *UploadTaskRepositoryImpl) FindReclaimable(terminalCutoff, abandonCutoff time.Time, limit int) ([]models.UploadTask, error) {
	var tasks []models.UploadTask
	err := r.db.
		Where("(status IN ? AND updated_at < ?) OR (status IN ? AND updated_at < ?)",
			[]models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusFailed}, terminalCutoff,
			[]models.TaskStatus{models.TaskStatusUploading, models.TaskStatusAssembling}, abandonCutoff).
		Limit(limit).Find(&tasks).Error
	return tasks, err
}

func (r *UploadTaskRepositoryImpl) DeleteWithChunks(taskID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.UploadChunk{}, "task_id = ?", taskID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.UploadTask{}, "id = ?", taskID).Error
	})
}
