package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UnendingLoop/ImageAble/internal/auth"
	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/ginext"
)

type formFile struct {
	field, name string
	content     []byte
}

func newMultipartRequest(t *testing.T, target string, fields map[string][]string, files []formFile) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func asOwner(req *http.Request, owner string) *http.Request {
	return req.WithContext(auth.WithOwner(req.Context(), owner))
}

func jsonString(t *testing.T, body []byte) string {
	t.Helper()

	var s string
	require.NoError(t, json.Unmarshal(body, &s))
	return s
}

func TestImageHandler_Ping(t *testing.T) {
	r := gin.New()
	h := NewImageHandler(nil)

	r.GET("/ping", func(c *gin.Context) {
		h.SimplePinger((*ginext.Context)(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "pong", body["message"])
}

func TestImageHandler_DescribeRoutes(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		header  map[string]string
		handler func(h *ImageHandler) func(*ginext.Context)
		wantSel model.BackendSelector
	}{
		{
			name:    "default",
			path:    "/Image/GetMultipleImages",
			handler: func(h *ImageHandler) func(*ginext.Context) { return h.GetMultipleImages },
			wantSel: model.BackendSelector{Kind: model.BackendDefault},
		},
		{
			name:    "chat",
			path:    "/Image/DescFromChatGPT",
			header:  map[string]string{"apiKey": "sk-1"},
			handler: func(h *ImageHandler) func(*ginext.Context) { return h.DescFromChatGPT },
			wantSel: model.BackendSelector{Kind: model.BackendChat, APIKey: "sk-1"},
		},
		{
			name:    "custom",
			path:    "/Image/Custom",
			header:  map[string]string{"customEndpoint": "http://model.local/caption"},
			handler: func(h *ImageHandler) func(*ginext.Context) { return h.Custom },
			wantSel: model.BackendSelector{Kind: model.BackendCustom, Endpoint: "http://model.local/caption"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockImageService{
				processBatchFn: func(ctx context.Context, req *model.InferenceRequest, sel model.BackendSelector) model.ProcessingResult {
					require.Equal(t, tt.wantSel, sel)
					require.Equal(t, []string{"YQ=="}, req.ImageBase64Array)
					return model.ProcessingResult{Success: true, Descriptions: []string{"a cat"}}
				},
			}
			r := gin.New()
			h := NewImageHandler(mock)
			route := tt.handler(h)
			r.POST(tt.path, func(c *gin.Context) { route((*ginext.Context)(c)) })

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{"ImageBase64Array":["YQ=="]}`))
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, 200, w.Code)
			require.JSONEq(t, `{"Descriptions":["a cat"]}`, w.Body.String())
		})
	}
}

func TestImageHandler_GetMultipleImages_Failures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		result   model.ProcessingResult
		wantNil  bool
		wantCode int
		wantMsg  string
	}{
		{
			name:     "null body reaches service as nil",
			body:     "null",
			result:   model.ProcessingResult{Message: model.ErrNilRequest.Error(), Err: model.ErrNilRequest},
			wantNil:  true,
			wantCode: 400,
			wantMsg:  "Request cannot be null.",
		},
		{
			name:     "backend failure",
			body:     `{"ImageBase64Array":["YQ=="]}`,
			result:   model.ProcessingResult{Message: "inference backend failed: status 502", Err: model.ErrBackendFailed},
			wantCode: 400,
			wantMsg:  "inference backend failed: status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockImageService{
				processBatchFn: func(ctx context.Context, req *model.InferenceRequest, sel model.BackendSelector) model.ProcessingResult {
					require.Equal(t, tt.wantNil, req == nil)
					return tt.result
				},
			}
			r := gin.New()
			h := NewImageHandler(mock)
			r.POST("/Image/GetMultipleImages", func(c *gin.Context) { h.GetMultipleImages((*ginext.Context)(c)) })

			req := httptest.NewRequest(http.MethodPost, "/Image/GetMultipleImages", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
			require.Equal(t, tt.wantMsg, jsonString(t, w.Body.Bytes()))
		})
	}
}

func TestImageHandler_GetMultipleImages_BadJSON(t *testing.T) {
	r := gin.New()
	h := NewImageHandler(&mockImageService{})
	r.POST("/Image/GetMultipleImages", func(c *gin.Context) { h.GetMultipleImages((*ginext.Context)(c)) })

	req := httptest.NewRequest(http.MethodPost, "/Image/GetMultipleImages", strings.NewReader(`{"ImageBase64Array":`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, 400, w.Code)
	require.Equal(t, "Invalid request.", jsonString(t, w.Body.Bytes()))
}

func TestImageHandler_GetEval(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		mock     *mockImageService
		wantCode int
	}{
		{
			name: "success",
			body: `{"description":["a","b"]}`,
			mock: &mockImageService{
				evaluateFn: func(ctx context.Context, req *model.EvaluationRequest) ([][]float64, error) {
					require.Equal(t, []string{"a", "b"}, req.Description)
					return [][]float64{{1, 2, 3}, {4, 5, 6}}, nil
				},
			},
			wantCode: 200,
		},
		{
			name:     "empty body",
			body:     "",
			mock:     &mockImageService{},
			wantCode: 400,
		},
		{
			name: "evaluator down",
			body: `{"description":["a"]}`,
			mock: &mockImageService{
				evaluateFn: func(ctx context.Context, req *model.EvaluationRequest) ([][]float64, error) {
					return nil, model.ErrBackendFailed
				},
			},
			wantCode: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewImageHandler(tt.mock)
			r.POST("/Image/GetEval", func(c *gin.Context) { h.GetEval((*ginext.Context)(c)) })

			req := httptest.NewRequest(http.MethodPost, "/Image/GetEval", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestImageHandler_SaveImage(t *testing.T) {
	mock := &mockImageService{
		saveImagesFn: func(ctx context.Context, owner string, files []model.UploadFile, descs, evals []string) ([]model.ImageRecord, error) {
			require.Equal(t, "user-1", owner)
			require.Len(t, files, 2)
			require.Equal(t, "a.png", files[0].Filename)
			content, err := io.ReadAll(files[1].Content)
			require.NoError(t, err)
			require.Equal(t, []byte("second"), content)
			require.Equal(t, []string{"d1", "d2"}, descs)
			require.Equal(t, []string{"e1", "e2"}, evals)
			return []model.ImageRecord{{ID: uuid.New()}, {ID: uuid.New()}}, nil
		},
	}
	r := gin.New()
	h := NewImageHandler(mock)
	r.POST("/Image/SaveImage", func(c *gin.Context) { h.SaveImage((*ginext.Context)(c)) })

	req := newMultipartRequest(t, "/Image/SaveImage",
		map[string][]string{"descriptions": {"d1", "d2"}, "evaluations[]": {"e1", "e2"}},
		[]formFile{{"imageFiles", "a.png", []byte("first")}, {"imageFiles", "b.png", []byte("second")}},
	)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, asOwner(req, "user-1"))

	require.Equal(t, 200, w.Code)
	var body struct {
		Message string              `json:"message"`
		Images  []model.ImageRecord `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Images, 2)
	require.NotEmpty(t, body.Message)
}

func TestImageHandler_SaveImage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"forbidden", model.ErrForbidden, 403},
		{"mismatch", model.ErrInvalidRequest, 400},
		{"empty description", model.ErrNullDescription, 400},
		{"storage", model.ErrSaveFailed, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockImageService{
				saveImagesFn: func(ctx context.Context, owner string, files []model.UploadFile, descs, evals []string) ([]model.ImageRecord, error) {
					return nil, tt.err
				},
			}
			r := gin.New()
			h := NewImageHandler(mock)
			r.POST("/Image/SaveImage", func(c *gin.Context) { h.SaveImage((*ginext.Context)(c)) })

			req := newMultipartRequest(t, "/Image/SaveImage",
				map[string][]string{"descriptions": {"d"}, "evaluations": {"e"}},
				[]formFile{{"imageFiles", "a.png", []byte("x")}},
			)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
			require.Equal(t, tt.err.Error(), jsonString(t, w.Body.Bytes()))
		})
	}
}

func TestImageHandler_DownloadImageWithMetadata(t *testing.T) {
	mock := &mockImageService{
		downloadWithMetaFn: func(ctx context.Context, f model.UploadFile, desc, eval string) ([]byte, string, error) {
			require.Equal(t, "cat.png", f.Filename)
			require.Equal(t, "a cat", desc)
			require.Equal(t, "0.9", eval)
			return []byte("png-with-exif"), model.PNG, nil
		},
	}
	r := gin.New()
	h := NewImageHandler(mock)
	r.POST("/Image/downloadImageWithMetadata", func(c *gin.Context) { h.DownloadImageWithMetadata((*ginext.Context)(c)) })

	req := newMultipartRequest(t, "/Image/downloadImageWithMetadata",
		map[string][]string{"description": {"a cat"}, "evaluation": {"0.9"}},
		[]formFile{{"imageFile", "cat.png", []byte("png")}},
	)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	require.Equal(t, model.PNG, w.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename=cat.png`, w.Header().Get("Content-Disposition"))
	require.Equal(t, "png-with-exif", w.Body.String())
}

func TestImageHandler_Gallery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		owner    string
		mock     *mockImageService
		wantCode int
	}{
		{
			name:  "success",
			query: "?sortOrder=Date&searchString=cat&pageNumber=2",
			owner: "user-1",
			mock: &mockImageService{
				getGalleryFn: func(ctx context.Context, owner string, req model.GalleryRequest) (*model.GalleryPage, error) {
					require.Equal(t, "user-1", owner)
					require.Equal(t, model.GalleryRequest{SortOrder: "Date", SearchString: "cat", PageNumber: 2}, req)
					return &model.GalleryPage{Images: []model.ImageRecord{}, PageIndex: 1}, nil
				},
			},
			wantCode: 200,
		},
		{
			name:     "bad page number",
			query:    "?pageNumber=abc",
			owner:    "user-1",
			mock:     &mockImageService{},
			wantCode: 400,
		},
		{
			name:  "anonymous",
			query: "",
			mock: &mockImageService{
				getGalleryFn: func(ctx context.Context, owner string, req model.GalleryRequest) (*model.GalleryPage, error) {
					require.Empty(t, owner)
					return nil, model.ErrForbidden
				},
			},
			wantCode: 403,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewImageHandler(tt.mock)
			r.GET("/Gallery", func(c *gin.Context) { h.Gallery((*ginext.Context)(c)) })

			req := httptest.NewRequest(http.MethodGet, "/Gallery"+tt.query, nil)
			if tt.owner != "" {
				req = asOwner(req, tt.owner)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestImageHandler_DownloadImage(t *testing.T) {
	tests := []struct {
		name       string
		mock       *mockImageService
		wantStatus int
	}{
		{
			name: "success",
			mock: &mockImageService{
				downloadImageFn: func(ctx context.Context, owner, id string) (io.ReadCloser, string, string, error) {
					require.Equal(t, "123", id)
					return io.NopCloser(bytes.NewReader([]byte("ok"))), model.JPEG, "cat.jpg", nil
				},
			},
			wantStatus: 200,
		},
		{
			name: "not found",
			mock: &mockImageService{
				downloadImageFn: func(ctx context.Context, owner, id string) (io.ReadCloser, string, string, error) {
					return nil, "", "", model.ErrImageNotFound
				},
			},
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewImageHandler(tt.mock)
			r.GET("/Gallery/DownloadImage/:id", func(c *gin.Context) { h.DownloadImage((*ginext.Context)(c)) })

			req := httptest.NewRequest(http.MethodGet, "/Gallery/DownloadImage/123", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, asOwner(req, "user-1"))

			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestImageHandler_UpdateImageDescription(t *testing.T) {
	id := uuid.New()
	mock := &mockImageService{
		updateDescriptionFn: func(ctx context.Context, owner string, req model.UpdateDescriptionRequest) (*model.ImageRecord, error) {
			require.Equal(t, "user-1", owner)
			require.Equal(t, model.UpdateDescriptionRequest{ImageID: id.String(), Description: "new"}, req)
			return &model.ImageRecord{ID: id, Description: "new"}, nil
		},
	}
	r := gin.New()
	h := NewImageHandler(mock)
	r.POST("/Gallery/UpdateImageDescription", func(c *gin.Context) { h.UpdateImageDescription((*ginext.Context)(c)) })

	body := `{"ImageId":"` + id.String() + `","Description":"new"}`
	req := httptest.NewRequest(http.MethodPost, "/Gallery/UpdateImageDescription", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, asOwner(req, "user-1"))

	require.Equal(t, 200, w.Code)
}

func TestImageHandler_Delete(t *testing.T) {
	tests := []struct {
		name       string
		mock       *mockImageService
		wantStatus int
	}{
		{
			name: "success",
			mock: &mockImageService{
				deleteFn: func(ctx context.Context, owner, id string) error {
					require.Equal(t, "user-1", owner)
					return nil
				},
			},
			wantStatus: 204,
		},
		{
			name: "not found",
			mock: &mockImageService{
				deleteFn: func(ctx context.Context, owner, id string) error {
					return model.ErrImageNotFound
				},
			},
			wantStatus: 404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			h := NewImageHandler(tt.mock)
			r.DELETE("/Gallery/:id", func(c *gin.Context) { h.Delete((*ginext.Context)(c)) })

			req := httptest.NewRequest(http.MethodDelete, "/Gallery/123", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, asOwner(req, "user-1"))

			require.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
