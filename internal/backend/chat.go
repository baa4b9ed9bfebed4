package backend

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/gabriel-vasile/mimetype"
	oagc "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatClient describes images through a chat-completion vision model using the caller's API key.
type ChatClient struct {
	oac    *oagc.Client
	model  string
	prompt string
}

var _ Describer = &ChatClient{}

func NewChatClient(apiKey, prompt, chatModel, baseURL string, httpClient *http.Client) *ChatClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0), // ретраи - забота вызывающего
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &ChatClient{
		oac:    oagc.NewClient(opts...),
		model:  chatModel,
		prompt: prompt,
	}
}

func (c *ChatClient) Name() string { return "chat" }

func (c *ChatClient) Describe(ctx context.Context, image []byte) (string, error) {
	dataURL := "data:" + mimetype.Detect(image).String() + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := c.oac.Chat.Completions.New(ctx, oagc.ChatCompletionNewParams{
		Messages: oagc.F([]oagc.ChatCompletionMessageParamUnion{
			oagc.UserMessageParts(
				oagc.TextPart(c.prompt),
				oagc.ImagePart(dataURL),
			),
		}),
		Model: oagc.F(oagc.ChatModel(c.model)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion failed: %v", model.ErrBackendFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", model.ErrBackendFailed)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", model.ErrNullDescription
	}
	return text, nil
}
