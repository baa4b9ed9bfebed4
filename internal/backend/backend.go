// Package backend provides clients for the remote inference services: captioning, vision chat and evaluation
package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/UnendingLoop/ImageAble/internal/model"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultPrompt  = "Create a description for the following image."
	DefaultModel   = "gpt-4o"

	// ответы бэкендов не должны быть большими, больше мегабайта - это уже ошибка
	maxResponseSize = 1 << 20
)

// Describer describes an image with one remote model.
type Describer interface {
	// Name returns a short backend name used in logs, e.g. "caption" or "chat"
	Name() string

	// Describe sends the raw image bytes to the backend and returns its text.
	// An empty description is returned as model.ErrNullDescription.
	Describe(ctx context.Context, image []byte) (string, error)
}

// Options - настройки фабрики, собираются из конфига в cmd/api
type Options struct {
	CaptionEndpoint string
	ChatModel       string
	ChatBaseURL     string
	DefaultPrompt   string
	Timeout         time.Duration
}

// Factory builds a Describer for a BackendSelector. The default captioner is shared,
// chat and custom clients are built per call since they carry caller credentials.
type Factory struct {
	opts       Options
	httpClient *http.Client
	captioner  *CaptionClient
}

func NewFactory(opts Options) *Factory {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DefaultPrompt == "" {
		opts.DefaultPrompt = DefaultPrompt
	}
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultModel
	}

	httpClient := NewHTTPClient(opts.Timeout)
	return &Factory{
		opts:       opts,
		httpClient: httpClient,
		captioner:  NewCaptionClient("caption", opts.CaptionEndpoint, httpClient),
	}
}

// NewHTTPClient returns a client whose every request is bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (f *Factory) HTTPClient() *http.Client { return f.httpClient }

func (f *Factory) For(sel model.BackendSelector) (Describer, error) {
	switch sel.Kind {
	case model.BackendDefault, "":
		if f.opts.CaptionEndpoint == "" {
			return nil, fmt.Errorf("%w: default caption endpoint is not configured", model.ErrBackendFailed)
		}
		return f.captioner, nil
	case model.BackendChat:
		if sel.APIKey == "" {
			return nil, model.ErrEmptyAPIKey
		}
		prompt := sel.Prompt
		if prompt == "" {
			prompt = f.opts.DefaultPrompt
		}
		return NewChatClient(sel.APIKey, prompt, f.opts.ChatModel, f.opts.ChatBaseURL, f.httpClient), nil
	case model.BackendCustom:
		if sel.Endpoint == "" {
			return nil, model.ErrEmptyEndpoint
		}
		if err := ValidateEndpoint(sel.Endpoint); err != nil {
			return nil, err
		}
		return NewCaptionClient("custom", sel.Endpoint, f.httpClient), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", model.ErrBackendFailed, sel.Kind)
	}
}

// ValidateEndpoint accepts only absolute http(s) URLs with a host.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return model.ErrBadEndpoint
	}
	return nil
}
