package services

import (
	"fileshare/internal/repositories"
	"fileshare/internal/storage"
)

// ServiceContainer wires every service over the shared repositories and
// storage backends.
type ServiceContainer struct {
	Auth   AuthService
	Users  UserService
	Files  FileService
	Upload UploadService
	Config ConfigService
}

type ContainerDeps struct {
	UserRepo   repositories.UserRepository
	FileRepo   repositories.FileRepository
	TaskRepo   repositories.UploadTaskRepository
	ConfigRepo repositories.ConfigRepository

	Store      storage.Storage
	ChunkStore *storage.ChunkStore

	DefaultChunkSize int64
}

func NewServiceContainer(deps ContainerDeps) *ServiceContainer {
	configServ := NewConfigService(deps.ConfigRepo)
	return &ServiceContainer{
		Config: configServ,
		Auth:   NewAuthService(deps.UserRepo, configServ),
		Users:  NewUserService(deps.UserRepo, deps.FileRepo),
		Files:  NewFileService(deps.FileRepo, deps.UserRepo, deps.Store),
		Upload: NewUploadService(deps.TaskRepo, deps.FileRepo, deps.UserRepo, deps.Store, deps.ChunkStore, deps.DefaultChunkSize),
	}
}
