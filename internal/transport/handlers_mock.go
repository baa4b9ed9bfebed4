package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/gin-gonic/gin"
)

type mockImageService struct {
	processBatchFn      func(ctx context.Context, req *model.InferenceRequest, sel model.BackendSelector) model.ProcessingResult
	evaluateFn          func(ctx context.Context, req *model.EvaluationRequest) ([][]float64, error)
	saveImagesFn        func(ctx context.Context, owner string, files []model.UploadFile, descs, evals []string) ([]model.ImageRecord, error)
	downloadWithMetaFn  func(ctx context.Context, f model.UploadFile, desc, eval string) ([]byte, string, error)
	getGalleryFn        func(ctx context.Context, owner string, req model.GalleryRequest) (*model.GalleryPage, error)
	downloadImageFn     func(ctx context.Context, owner, id string) (io.ReadCloser, string, string, error)
	updateDescriptionFn func(ctx context.Context, owner string, req model.UpdateDescriptionRequest) (*model.ImageRecord, error)
	deleteFn            func(ctx context.Context, owner, id string) error
}

func (m *mockImageService) ProcessBatch(ctx context.Context, req *model.InferenceRequest, sel model.BackendSelector) model.ProcessingResult {
	return m.processBatchFn(ctx, req, sel)
}

func (m *mockImageService) Evaluate(ctx context.Context, req *model.EvaluationRequest) ([][]float64, error) {
	return m.evaluateFn(ctx, req)
}

func (m *mockImageService) SaveImages(ctx context.Context, owner string, files []model.UploadFile, descs, evals []string) ([]model.ImageRecord, error) {
	return m.saveImagesFn(ctx, owner, files, descs, evals)
}

func (m *mockImageService) DownloadWithMetadata(ctx context.Context, f model.UploadFile, desc, eval string) ([]byte, string, error) {
	return m.downloadWithMetaFn(ctx, f, desc, eval)
}

func (m *mockImageService) GetGallery(ctx context.Context, owner string, req model.GalleryRequest) (*model.GalleryPage, error) {
	return m.getGalleryFn(ctx, owner, req)
}

func (m *mockImageService) DownloadImage(ctx context.Context, owner, id string) (io.ReadCloser, string, string, error) {
	return m.downloadImageFn(ctx, owner, id)
}

func (m *mockImageService) UpdateDescription(ctx context.Context, owner string, req model.UpdateDescriptionRequest) (*model.ImageRecord, error) {
	return m.updateDescriptionFn(ctx, owner, req)
}

func (m *mockImageService) Delete(ctx context.Context, owner, id string) error {
	return m.deleteFn(ctx, owner, id)
}

func init() {
	gin.SetMode(gin.TestMode)
}
