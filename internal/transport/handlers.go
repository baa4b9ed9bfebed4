// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"slices"

	"github.com/UnendingLoop/ImageAble/internal/auth"
	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/wb-go/wbf/ginext"
)

type ImageHandler struct {
	service ImageService
}

type ImageService interface {
	ProcessBatch(ctx context.Context, req *model.InferenceRequest, sel model.BackendSelector) model.ProcessingResult
	Evaluate(ctx context.Context, req *model.EvaluationRequest) ([][]float64, error)
	SaveImages(ctx context.Context, owner string, files []model.UploadFile, descriptions, evaluations []string) ([]model.ImageRecord, error)
	DownloadWithMetadata(ctx context.Context, f model.UploadFile, desc, eval string) ([]byte, string, error)
	GetGallery(ctx context.Context, owner string, req model.GalleryRequest) (*model.GalleryPage, error)
	DownloadImage(ctx context.Context, owner, id string) (io.ReadCloser, string, string, error) // поток, content-type, имя файла
	UpdateDescription(ctx context.Context, owner string, req model.UpdateDescriptionRequest) (*model.ImageRecord, error)
	Delete(ctx context.Context, owner, id string) error // запись сразу, файл через очередь
}

func NewImageHandler(svc ImageService) *ImageHandler {
	return &ImageHandler{
		service: svc,
	}
}

func (h ImageHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// GetMultipleImages - описание картинок дефолтным сервисом
func (h ImageHandler) GetMultipleImages(ctx *ginext.Context) {
	h.describe(ctx, model.BackendSelector{Kind: model.BackendDefault})
}

// DescFromChatGPT - описание через chat-completion с ключом пользователя
func (h ImageHandler) DescFromChatGPT(ctx *ginext.Context) {
	h.describe(ctx, model.BackendSelector{Kind: model.BackendChat, APIKey: ctx.GetHeader("apiKey")})
}

// Custom - описание пользовательским эндпоинтом
func (h ImageHandler) Custom(ctx *ginext.Context) {
	h.describe(ctx, model.BackendSelector{Kind: model.BackendCustom, Endpoint: ctx.GetHeader("customEndpoint")})
}

func (h ImageHandler) describe(ctx *ginext.Context, sel model.BackendSelector) {
	req, err := bindInferenceRequest(ctx)
	if err != nil {
		ctx.JSON(400, model.ErrInvalidRequest.Error())
		return
	}

	res := h.service.ProcessBatch(ctx.Request.Context(), req, sel)
	if !res.Success {
		ctx.JSON(errorCodeDefiner(res.Err), res.Message)
		return
	}

	ctx.JSON(200, res)
}

func (h ImageHandler) GetEval(ctx *ginext.Context) {
	var req model.EvaluationRequest
	if err := bindJSONBody(ctx, &req); err != nil {
		ctx.JSON(400, model.ErrInvalidRequest.Error())
		return
	}

	res, err := h.service.Evaluate(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), err.Error())
		return
	}

	ctx.JSON(200, res)
}

func (h ImageHandler) SaveImage(ctx *ginext.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(400, model.ErrInvalidRequest.Error())
		return
	}

	// клиенты шлют поля и как "name", и как "name[]"
	headers := slices.Concat(form.File["imageFiles"], form.File["imageFiles[]"])
	descriptions := slices.Concat(form.Value["descriptions"], form.Value["descriptions[]"])
	evaluations := slices.Concat(form.Value["evaluations"], form.Value["evaluations[]"])

	files := make([]model.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, closer, err := openUpload(fh)
		if err != nil {
			log.Printf("Failed to open uploaded file %q: %v", fh.Filename, err)
			ctx.JSON(400, model.ErrInvalidRequest.Error())
			return
		}
		defer closeFileFlow(closer)
		files = append(files, f)
	}

	owner := auth.OwnerFromContext(ctx.Request.Context())
	saved, err := h.service.SaveImages(ctx.Request.Context(), owner, files, descriptions, evaluations)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), err.Error())
		return
	}

	ctx.JSON(200, map[string]any{
		"message": "Images saved successfully.",
		"images":  saved,
	})
}

func (h ImageHandler) DownloadImageWithMetadata(ctx *ginext.Context) {
	var upload model.UploadFile
	if fh, err := ctx.FormFile("imageFile"); err == nil {
		f, closer, err := openUpload(fh)
		if err != nil {
			log.Printf("Failed to open uploaded file %q: %v", fh.Filename, err)
			ctx.JSON(500, model.ErrDownloadFailed.Error())
			return
		}
		defer closeFileFlow(closer)
		upload = f
	}

	out, ctype, err := h.service.DownloadWithMetadata(ctx.Request.Context(), upload, ctx.PostForm("description"), ctx.PostForm("evaluation"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), err.Error())
		return
	}

	setAttachment(ctx, upload.Filename)
	ctx.Data(200, ctype, out)
}

func (h ImageHandler) Gallery(ctx *ginext.Context) {
	var req model.GalleryRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, model.ErrInvalidRequest.Error())
		return
	}

	page, err := h.service.GetGallery(ctx.Request.Context(), auth.OwnerFromContext(ctx.Request.Context()), req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), err.Error())
		return
	}

	ctx.JSON(200, page)
}

func (h ImageHandler) DownloadImage(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, name, err := h.service.DownloadImage(ctx.Request.Context(), auth.OwnerFromContext(ctx.Request.Context()), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), err.Error())
		return
	}
	defer closeFileFlow(res)

	setAttachment(ctx, name)
	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		log.Printf("Failed to write response at byte %d for file id %q: %v", n, id, err)
	}
}

func (h ImageHandler) UpdateImageDescription(ctx *ginext.Context) {
	var req model.UpdateDescriptionRequest
	if err := bindJSONBody(ctx, &req); err != nil {
		ctx.JSON(400, model.ErrInvalidRequest.Error())
		return
	}

	rec, err := h.service.UpdateDescription(ctx.Request.Context(), auth.OwnerFromContext(ctx.Request.Context()), req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), err.Error())
		return
	}

	ctx.JSON(200, rec)
}

func (h ImageHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), auth.OwnerFromContext(ctx.Request.Context()), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), err.Error())
		return
	}

	ctx.Status(204)
}

func openUpload(fh *multipart.FileHeader) (model.UploadFile, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return model.UploadFile{}, nil, err
	}
	return model.UploadFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Content:     f,
	}, f, nil
}

func setAttachment(ctx *ginext.Context, filename string) {
	if filename == "" {
		filename = "image"
	}
	ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}
