package transport

import (
	"bytes"
	"errors"
	"io"
	"log"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/gin-gonic/gin/binding"
	"github.com/wb-go/wbf/ginext"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500),
		errors.Is(err, model.ErrSaveFailed),
		errors.Is(err, model.ErrDownloadFailed):
		return 500
	case errors.Is(err, model.ErrImageNotFound):
		return 404
	case errors.Is(err, model.ErrForbidden):
		return 403
	case errors.Is(err, model.ErrNilRequest),
		errors.Is(err, model.ErrEmptyImageList),
		errors.Is(err, model.ErrNotBase64),
		errors.Is(err, model.ErrEmptyAPIKey),
		errors.Is(err, model.ErrEmptyEndpoint),
		errors.Is(err, model.ErrBadEndpoint),
		errors.Is(err, model.ErrNullDescription),
		errors.Is(err, model.ErrBackendFailed),
		errors.Is(err, model.ErrInvalidRequest),
		errors.Is(err, model.ErrNoImageFile),
		errors.Is(err, model.ErrUnsupportedFormat),
		errors.Is(err, model.ErrCorruptImage),
		errors.Is(err, model.ErrMetadataTooLarge),
		errors.Is(err, model.ErrIncorrectID):
		return 400
	default:
		return 500
	}
}

// bindInferenceRequest возвращает nil для пустого тела или literal null - это отдельная ошибка сервиса
func bindInferenceRequest(ctx *ginext.Context) (*model.InferenceRequest, error) {
	body, err := ctx.GetRawData()
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var req model.InferenceRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func bindJSONBody(ctx *ginext.Context, dst any) error {
	body, err := ctx.GetRawData()
	if err != nil {
		return err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return model.ErrInvalidRequest
	}
	return binding.JSON.BindBody(body, dst)
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
