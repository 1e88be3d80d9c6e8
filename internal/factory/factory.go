package factory

import (
	"fmt"

	"go-skin-inspector/internal/camera"
	"go-skin-inspector/internal/config"
	"go-skin-inspector/internal/storage"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for http(s) image URLs
	HTTPStorage StorageType = "http"
	// AzureStorage for azblob://container/blob references
	AzureStorage StorageType = "azure"
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
	// CreateRouter returns a fetcher for every backend the configuration enables
	CreateRouter() (*storage.Router, error)
}

// CameraFactory creates camera devices
type CameraFactory interface {
	CreateDevice() (camera.Device, error)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.cfg.MaxRequestBodySize), nil
	case AzureStorage:
		if f.cfg.AzureStorageAccount == "" || f.cfg.AzureStorageKey == "" {
			return nil, fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return storage.NewAzureBlobFetcher(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, f.cfg.MaxRequestBodySize)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

func (f *storageFactory) CreateRouter() (*storage.Router, error) {
	httpFetcher, err := f.CreateStorage(HTTPStorage)
	if err != nil {
		return nil, err
	}
	if f.cfg.AzureStorageAccount == "" {
		return storage.NewRouter(httpFetcher, nil), nil
	}
	blobFetcher, err := f.CreateStorage(AzureStorage)
	if err != nil {
		return nil, err
	}
	return storage.NewRouter(httpFetcher, blobFetcher), nil
}

// cameraFactory implements CameraFactory
type cameraFactory struct {
	cfg *config.Config
}

// NewCameraFactory creates a new camera factory
func NewCameraFactory(cfg *config.Config) CameraFactory {
	return &cameraFactory{cfg: cfg}
}

// CreateDevice resolves CAMERA_SOURCE into a device
func (f *cameraFactory) CreateDevice() (camera.Device, error) {
	return camera.Resolve(f.cfg.CameraSource)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory StorageFactory
	CameraFactory  CameraFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory: NewStorageFactory(cfg),
		CameraFactory:  NewCameraFactory(cfg),
	}
}
