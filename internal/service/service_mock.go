package service

import (
	"context"
	"io"
	"time"

	"github.com/UnendingLoop/ImageAble/internal/backend"
	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK RESPOSITORY

type mockRepo struct {
	createFn       func(ctx context.Context, rec *model.ImageRecord) error
	getByIDFn      func(ctx context.Context, id string) (*model.ImageRecord, error)
	getByOwnerFn   func(ctx context.Context, owner string, q model.GalleryQuery) ([]model.ImageRecord, error)
	countByOwnerFn func(ctx context.Context, owner, search string) (int, error)
	updateFn       func(ctx context.Context, rec *model.ImageRecord) error
	deleteFn       func(ctx context.Context, id, owner string) (string, error)
	existsByPathFn func(ctx context.Context, path string) (bool, error)
}

func (m *mockRepo) Create(ctx context.Context, rec *model.ImageRecord) error {
	return m.createFn(ctx, rec)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*model.ImageRecord, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockRepo) GetByOwner(ctx context.Context, owner string, q model.GalleryQuery) ([]model.ImageRecord, error) {
	return m.getByOwnerFn(ctx, owner, q)
}

func (m *mockRepo) CountByOwner(ctx context.Context, owner, search string) (int, error) {
	return m.countByOwnerFn(ctx, owner, search)
}

func (m *mockRepo) Update(ctx context.Context, rec *model.ImageRecord) error {
	return m.updateFn(ctx, rec)
}

func (m *mockRepo) Delete(ctx context.Context, id, owner string) (string, error) {
	return m.deleteFn(ctx, id, owner)
}

func (m *mockRepo) ExistsByPath(ctx context.Context, path string) (bool, error) {
	return m.existsByPathFn(ctx, path)
}

// MOCK STORAGE

type mockStorage struct {
	putFn    func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
	getFn    func(ctx context.Context, key string) (io.ReadCloser, string, error)
	deleteFn func(ctx context.Context, key string) error
	listFn   func(ctx context.Context, olderThan time.Time) ([]model.StoredObject, error)
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, key)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.deleteFn(ctx, key)
}

func (m *mockStorage) List(ctx context.Context, olderThan time.Time) ([]model.StoredObject, error) {
	return m.listFn(ctx, olderThan)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}

// MOCK BACKENDS

type mockDescriber struct {
	calls      int
	describeFn func(ctx context.Context, image []byte) (string, error)
}

func (m *mockDescriber) Name() string { return "mock" }

func (m *mockDescriber) Describe(ctx context.Context, image []byte) (string, error) {
	m.calls++
	return m.describeFn(ctx, image)
}

type mockFactory struct {
	forFn func(sel model.BackendSelector) (backend.Describer, error)
}

func (m *mockFactory) For(sel model.BackendSelector) (backend.Describer, error) {
	return m.forFn(sel)
}

type mockEvaluator struct {
	evaluateFn func(ctx context.Context, descriptions []string) ([][]float64, error)
}

func (m *mockEvaluator) Evaluate(ctx context.Context, descriptions []string) ([][]float64, error) {
	return m.evaluateFn(ctx, descriptions)
}
