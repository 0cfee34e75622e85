package handlers

import (
	"fileshare/internal/services"
	"fileshare/internal/validator"
)

// AppHandlers holds every HTTP handler of the application.
type AppHandlers struct {
	AuthHandler   *AuthHandler
	UserHandler   *UserHandler
	FileHandler   *FileHandler
	UploadHandler *UploadHandler
	AdminHandler  *AdminHandler
	HealthHandler *HealthHandler
}

func NewAppHandlers(svc *services.ServiceContainer, v *validator.Validator) *AppHandlers {
	base := NewBaseHandler(v)
	return &AppHandlers{
		AuthHandler:   NewAuthHandler(base, svc.Auth),
		UserHandler:   NewUserHandler(base, svc.Users),
		FileHandler:   NewFileHandler(base, svc.Files),
		UploadHandler: NewUploadHandler(base, svc.Upload),
		AdminHandler:  NewAdminHandler(base, svc.Users, svc.Config),
		HealthHandler: NewHealthHandler(base),
	}
}
