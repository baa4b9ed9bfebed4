// Package storage selects and connects the object storage for uploaded images
package storage

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/UnendingLoop/ImageAble/internal/storage/localstorage"
	"github.com/UnendingLoop/ImageAble/internal/storage/miniostorage"
	"github.com/spf13/afero"
	"github.com/wb-go/wbf/config"
)

const defaultUploadDir = "./uploads"

type ImgStorage interface {
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, olderThan time.Time) ([]model.StoredObject, error)
}

// NewImgStorage reads STORAGE_BACKEND: "local" keeps files in UPLOAD_DIR, anything else means MinIO.
func NewImgStorage(cfg *config.Config, delay time.Duration) ImgStorage {
	if strings.EqualFold(cfg.GetString("STORAGE_BACKEND"), "local") {
		dir := cfg.GetString("UPLOAD_DIR")
		if dir == "" {
			dir = defaultUploadDir
		}
		local, err := localstorage.NewLocalStorage(afero.NewOsFs(), dir)
		if err != nil {
			log.Fatalf("Failed to prepare upload dir %q: %v", dir, err)
		}
		log.Printf("Using local IMG-storage in %q", dir)
		return local
	}

	var client *miniostorage.MinioImageStorage
	var err error
	for {
		log.Println("Connecting to IMG-storage...")
		client, err = miniostorage.NewMinioClient(cfg)
		if err == nil {
			break
		}
		log.Printf("Failed to init connection to IMG-storage: %v\nNext retry in %v...", err, delay)
		time.Sleep(delay)
	}
	log.Println("Successfully connected IMG-storage!")

	return client
}
