package services

import (
	"context"

	"fileshare/internal/models"
	"fileshare/internal/repositories"
	"fileshare/internal/services/dto"
	"fileshare/pkg/apperrors"
)

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	GetUsage(ctx context.Context, userID string) (*dto.UserUsageResponse, error)

	// Admin operations.
	ListUsers(ctx context.Context, limit, offset int) ([]dto.UserResponse, int64, error)
	UpdateLimits(ctx context.Context, userID string, req *dto.UpdateLimitsRequest) error
	DeleteUser(ctx context.Context, userID string) error
}

type UserServiceImpl struct {
	userRepo repositories.UserRepository
	fileRepo repositories.FileRepository
}

func NewUserService(userRepo repositories.UserRepository, fileRepo repositories.FileRepository) UserService {
	return &UserServiceImpl{userRepo: userRepo, fileRepo: fileRepo}
}

func (s *UserServiceImpl) findUser(userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	if req.Nickname != nil {
		user.Nickname = *req.Nickname
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.Language != nil {
		user.Language = *req.Language
	}
	if req.Theme != nil {
		user.Theme = *req.Theme
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewUserResponse(user), nil
}

func (s *UserServiceImpl) GetUsage(ctx context.Context, userID string) (*dto.UserUsageResponse, error) {
	count, err := s.fileRepo.CountByUser(userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	total, err := s.fileRepo.SumSizeByUser(userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.UserUsageResponse{FileCount: count, TotalSize: total}, nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, limit, offset int) ([]dto.UserResponse, int64, error) {
	users, err := s.userRepo.FindAll(limit, offset)
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}
	total, err := s.userRepo.CountAll()
	if err != nil {
		return nil, 0, apperrors.InternalError(err)
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *dto.NewUserResponse(&users[i]))
	}
	return out, total, nil
}

func (s *UserServiceImpl) UpdateLimits(ctx context.Context, userID string, req *dto.UpdateLimitsRequest) error {
	user, err := s.findUser(userID)
	if err != nil {
		return err
	}

	limits := user.Limits()
	if req.MaxFileSize != nil {
		limits.MaxFileSize = *req.MaxFileSize
	}
	if req.MaxTotalFiles != nil {
		limits.MaxTotalFiles = *req.MaxTotalFiles
	}
	if req.MaxTotalSize != nil {
		limits.MaxTotalSize = *req.MaxTotalSize
	}

	if err := s.userRepo.UpdateLimits(userID, limits); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.findUser(userID)
	if err != nil {
		return err
	}

	// Deleting the last admin would lock everyone out of administration.
	if user.IsAdmin() {
		admins, err := s.userRepo.CountAdmins()
		if err != nil {
			return apperrors.InternalError(err)
		}
		if admins <= 1 {
			return apperrors.ErrLastAdmin
		}
	}

	if err := s.userRepo.Delete(userID); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}
