// Package service provides business-logic for the app
package service

import (
	"context"
	"io"
	"time"

	"github.com/UnendingLoop/ImageAble/internal/backend"
	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/UnendingLoop/ImageAble/internal/repository"
	"github.com/wb-go/wbf/retry"
)

const (
	DefaultPageSize  = 3
	DefaultOrphanAge = 10 * time.Minute

	// предел на один загружаемый файл
	maxImageSize = 32 << 20
)

type ImageService struct {
	repo      repository.ImageRepo
	publisher TaskPublisher
	storage   ImageStorage
	backends  DescriberFactory
	evaluator Evaluator
	pageSize  int
	orphanAge time.Duration
}

type Options struct {
	PageSize  int
	OrphanAge time.Duration
}

func NewImageService(imgRepo repository.ImageRepo, pub TaskPublisher, strg ImageStorage, backends DescriberFactory, eval Evaluator, opts Options) *ImageService {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.OrphanAge <= 0 {
		opts.OrphanAge = DefaultOrphanAge
	}

	return &ImageService{
		repo:      imgRepo,
		publisher: pub,
		storage:   strg,
		backends:  backends,
		evaluator: eval,
		pageSize:  opts.PageSize,
		orphanAge: opts.OrphanAge,
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageStorage - контракт для работы с хранилищем
type ImageStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
	List(ctx context.Context, olderThan time.Time) ([]model.StoredObject, error)
}

// DescriberFactory - выбор клиента инференса под конкретный вызов
type DescriberFactory interface {
	For(sel model.BackendSelector) (backend.Describer, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, descriptions []string) ([][]float64, error)
}

// Стратегия ретрая отправки в очередь - можно потом вынести значения в конфиг/env
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}
