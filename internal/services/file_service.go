package services

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"fileshare/internal/logger"
	"fileshare/internal/models"
	"fileshare/internal/repositories"
	"fileshare/internal/services/dto"
	"fileshare/internal/storage"
	"fileshare/pkg/apperrors"

	"gorm.io/datatypes"
)

// FileService covers access evaluation, listing, share-settings updates and
// deletion of stored files.
type FileService interface {
	// GetFile returns file metadata if the viewer may access it. A nil
	// viewer is an anonymous request.
	GetFile(ctx context.Context, fileID string, viewer *models.User, password string) (*dto.FileResponse, error)

	// Download opens the stored artifact for an authorized viewer.
	Download(ctx context.Context, fileID string, viewer *models.User, password string) (io.ReadCloser, *models.File, error)

	// GetDownloadURL returns a direct URL to the stored artifact for an
	// authorized viewer: presigned and time-limited on S3-compatible
	// backends, a plain public URL on local storage.
	GetDownloadURL(ctx context.Context, fileID string, viewer *models.User, password string) (*dto.FileURLResponse, error)

	ListUserFiles(ctx context.Context, userID string, limit, offset int) (*dto.FileListResponse, error)
	ListPublicFiles(ctx context.Context, limit, offset int) (*dto.FileListResponse, error)

	UpdateShare(ctx context.Context, fileID string, actor *models.User, req *dto.UpdateShareRequest) (*dto.FileResponse, error)
	Delete(ctx context.Context, fileID string, actor *models.User) error
}

// downloadURLTTL bounds how long a presigned download URL stays valid.
const downloadURLTTL = 15 * time.Minute

type FileServiceImpl struct {
	fileRepo repositories.FileRepository
	userRepo repositories.UserRepository
	store    storage.Storage
}

func NewFileService(fileRepo repositories.FileRepository, userRepo repositories.UserRepository, store storage.Storage) FileService {
	return &FileServiceImpl{fileRepo: fileRepo, userRepo: userRepo, store: store}
}

func (s *FileServiceImpl) findFile(fileID string) (*models.File, error) {
	file, err := s.fileRepo.FindByID(fileID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrFileNotFound) {
			return nil, apperrors.ErrFileNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return file, nil
}

func isOwnerOrAdmin(file *models.File, viewer *models.User) bool {
	return viewer != nil && (viewer.IsAdmin() || viewer.ID == file.UserID)
}

// checkAccess applies the visibility rules: public files are open to anyone,
// link-only files to any authenticated user, allow-listed files to the
// owner, admins, and listed usernames. Expiry and password gate everything
// except the owner and admins.
func checkAccess(file *models.File, viewer *models.User, password string) error {
	allowed := false
	switch file.ShareType {
	case models.SharePublic:
		allowed = true
	case models.ShareLinkOnly:
		allowed = viewer != nil
	case models.ShareSpecifiedUsers:
		if isOwnerOrAdmin(file, viewer) {
			allowed = true
		} else if viewer != nil && len(file.AllowedUsers) > 0 {
			var users []string
			if err := json.Unmarshal(file.AllowedUsers, &users); err == nil {
				for _, u := range users {
					if u == viewer.Username {
						allowed = true
						break
					}
				}
			}
		}
	}
	if !allowed {
		if viewer == nil {
			return apperrors.NewUnauthorizedError("Authentication required to access this file")
		}
		return apperrors.ErrFileAccessDenied
	}

	if isOwnerOrAdmin(file, viewer) {
		return nil
	}
	if file.Expired(time.Now().UTC()) {
		return apperrors.ErrFileExpired
	}
	if file.Password != "" && password != file.Password {
		return apperrors.ErrFilePasswordRequired
	}
	return nil
}

func (s *FileServiceImpl) GetFile(ctx context.Context, fileID string, viewer *models.User, password string) (*dto.FileResponse, error) {
	file, err := s.findFile(fileID)
	if err != nil {
		return nil, err
	}
	if err := checkAccess(file, viewer, password); err != nil {
		return nil, err
	}
	if !file.AllowView && !isOwnerOrAdmin(file, viewer) {
		return nil, apperrors.ErrFileAccessDenied
	}
	return dto.NewFileResponse(file), nil
}

func (s *FileServiceImpl) Download(ctx context.Context, fileID string, viewer *models.User, password string) (io.ReadCloser, *models.File, error) {
	file, err := s.findFile(fileID)
	if err != nil {
		return nil, nil, err
	}
	if err := checkAccess(file, viewer, password); err != nil {
		return nil, nil, err
	}
	if !file.AllowDownload && !isOwnerOrAdmin(file, viewer) {
		return nil, nil, apperrors.ErrDownloadNotAllowed
	}

	reader, err := s.store.Get(ctx, file.Path)
	if err != nil {
		return nil, nil, apperrors.StorageError(err)
	}
	return reader, file, nil
}

func (s *FileServiceImpl) GetDownloadURL(ctx context.Context, fileID string, viewer *models.User, password string) (*dto.FileURLResponse, error) {
	file, err := s.findFile(fileID)
	if err != nil {
		return nil, err
	}
	if err := checkAccess(file, viewer, password); err != nil {
		return nil, err
	}
	if !file.AllowDownload && !isOwnerOrAdmin(file, viewer) {
		return nil, apperrors.ErrDownloadNotAllowed
	}

	url, err := s.store.GetSignedURL(ctx, file.Path, downloadURLTTL)
	if err != nil {
		return nil, apperrors.StorageError(err)
	}
	return &dto.FileURLResponse{URL: url, ExpiresIn: int64(downloadURLTTL.Seconds())}, nil
}

func (s *FileServiceImpl) ListUserFiles(ctx context.Context, userID string, limit, offset int) (*dto.FileListResponse, error) {
	files, err := s.fileRepo.FindByUser(userID, limit, offset)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	total, err := s.fileRepo.CountByUser(userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return buildFileList(files, total), nil
}

func (s *FileServiceImpl) ListPublicFiles(ctx context.Context, limit, offset int) (*dto.FileListResponse, error) {
	files, err := s.fileRepo.FindPublic(time.Now().UTC(), limit, offset)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return buildFileList(files, int64(len(files))), nil
}

func buildFileList(files []models.File, total int64) *dto.FileListResponse {
	resp := &dto.FileListResponse{Files: make([]dto.FileResponse, 0, len(files)), Total: total}
	for i := range files {
		resp.Files = append(resp.Files, *dto.NewFileResponse(&files[i]))
	}
	return resp
}

func (s *FileServiceImpl) UpdateShare(ctx context.Context, fileID string, actor *models.User, req *dto.UpdateShareRequest) (*dto.FileResponse, error) {
	file, err := s.findFile(fileID)
	if err != nil {
		return nil, err
	}
	if !isOwnerOrAdmin(file, actor) {
		return nil, apperrors.ErrFileAccessDenied
	}

	if req.ShareType == string(models.ShareSpecifiedUsers) {
		if err := validateAllowedUsers(s.userRepo, req.AllowedUsers); err != nil {
			return nil, err
		}
	}

	opts := &dto.ShareOptions{
		ShareType:     req.ShareType,
		AllowView:     &req.AllowView,
		AllowDownload: &req.AllowDownload,
		AllowEdit:     &req.AllowEdit,
		Password:      req.Password,
		ExpiryType:    req.ExpiryType,
		ExpiryHours:   req.ExpiryHours,
		CustomExpiry:  req.CustomExpiry,
		AllowedUsers:  req.AllowedUsers,
		Description:   file.Description,
		Tags:          file.Tags,
	}
	if req.Description != nil {
		opts.Description = *req.Description
	}
	if req.Tags != nil {
		opts.Tags = *req.Tags
	}
	expiry := resolveExpiry(opts, time.Now().UTC())

	file.AllowedUsers = datatypes.JSON(nil)
	applyShareOptions(file, opts, expiry)

	if err := s.fileRepo.UpdateShareSettings(file); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "share settings updated", "file_id", file.ID, "share_type", file.ShareType)
	return dto.NewFileResponse(file), nil
}

func (s *FileServiceImpl) Delete(ctx context.Context, fileID string, actor *models.User) error {
	file, err := s.findFile(fileID)
	if err != nil {
		return err
	}
	if !isOwnerOrAdmin(file, actor) {
		return apperrors.ErrFileAccessDenied
	}

	if err := s.store.Delete(ctx, file.Path); err != nil {
		return apperrors.StorageError(err)
	}
	if err := s.fileRepo.Delete(file.ID); err != nil {
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "file deleted", "file_id", file.ID)
	return nil
}
