package services

import (
	"context"

	"fileshare/internal/auth"
	"fileshare/internal/logger"
	"fileshare/internal/models"
	"fileshare/internal/repositories"
	"fileshare/internal/services/dto"
	"fileshare/pkg/apperrors"
)

type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
}

type AuthServiceImpl struct {
	userRepo   repositories.UserRepository
	configServ ConfigService
}

func NewAuthService(userRepo repositories.UserRepository, configServ ConfigService) AuthService {
	return &AuthServiceImpl{userRepo: userRepo, configServ: configServ}
}

// Register creates a user with quota defaults taken from the current site
// configuration snapshot.
func (s *AuthServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if !s.configServ.AllowRegistration() {
		return nil, apperrors.ErrRegistrationDisabled
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	limits := s.configServ.DefaultLimits()
	user := &models.User{
		Username:      req.Username,
		PasswordHash:  hash,
		Role:          models.UserRoleUser,
		Nickname:      req.Nickname,
		MaxFileSize:   limits.MaxFileSize,
		MaxTotalFiles: limits.MaxTotalFiles,
		MaxTotalSize:  limits.MaxTotalSize,
		Theme:         s.configServ.DefaultTheme(),
		Language:      s.configServ.DefaultLanguage(),
	}

	if err := s.userRepo.Create(user); err != nil {
		if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return dto.NewUserResponse(user), nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.FindByUsername(req.Username)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.LoginResponse{
		AccessToken: token,
		User:        dto.NewUserResponse(user),
	}, nil
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return apperrors.ErrInvalidCredentials
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.NewBadRequestError(err.Error())
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	if err := s.userRepo.UpdatePassword(user.ID, hash); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}
