package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/gabriel-vasile/mimetype"
)

// CaptionClient posts the image as multipart form field "image" and reads {"caption": "..."} back.
// Used both for the default captioning service and for caller-supplied endpoints.
type CaptionClient struct {
	name     string
	endpoint string
	client   *http.Client
}

var _ Describer = &CaptionClient{}

func NewCaptionClient(name, endpoint string, httpClient *http.Client) *CaptionClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	return &CaptionClient{name: name, endpoint: endpoint, client: httpClient}
}

func (c *CaptionClient) Name() string { return c.name }

type captionResponse struct {
	Caption *string `json:"caption"`
	Error   string  `json:"error"`
}

func (c *CaptionClient) Describe(ctx context.Context, image []byte) (string, error) {
	body, contentType, err := multipartImage(image)
	if err != nil {
		return "", fmt.Errorf("%s: failed to build multipart body: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", model.ErrBackendFailed, c.name, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s request failed: %v", model.ErrBackendFailed, c.name, err)
	}
	defer closeBody(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: %s: failed to read response: %v", model.ErrBackendFailed, c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s responded with status %d", model.ErrBackendFailed, c.name, resp.StatusCode)
	}

	var parsed captionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: %s returned malformed JSON: %v", model.ErrBackendFailed, c.name, err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("%w: %s: %s", model.ErrBackendFailed, c.name, parsed.Error)
	}
	if parsed.Caption == nil || strings.TrimSpace(*parsed.Caption) == "" {
		return "", model.ErrNullDescription
	}

	return strings.TrimSpace(*parsed.Caption), nil
}

func multipartImage(image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="upload.jpg"`)
	h.Set("Content-Type", mimetype.Detect(image).String())

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

func closeBody(b io.ReadCloser) {
	// дочитываем хвост, чтобы соединение вернулось в пул
	_, _ = io.Copy(io.Discard, io.LimitReader(b, maxResponseSize))
	_ = b.Close()
}
