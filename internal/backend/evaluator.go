package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/UnendingLoop/ImageAble/internal/model"
)

// EvaluatorClient scores descriptions with the evaluation service, one request per description.
type EvaluatorClient struct {
	endpoint string
	client   *http.Client
}

func NewEvaluatorClient(endpoint string, httpClient *http.Client) *EvaluatorClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	return &EvaluatorClient{endpoint: endpoint, client: httpClient}
}

type evaluationResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

// Evaluate calls the service sequentially and appends every returned vector in call order.
// The first failing description fails the whole call, so the result never silently shrinks.
func (e *EvaluatorClient) Evaluate(ctx context.Context, descriptions []string) ([][]float64, error) {
	all := make([][]float64, 0, len(descriptions))

	for i, desc := range descriptions {
		preds, err := e.evaluateOne(ctx, desc)
		if err != nil {
			return nil, fmt.Errorf("description #%d: %w", i, err)
		}
		all = append(all, preds...)
	}

	return all, nil
}

func (e *EvaluatorClient) evaluateOne(ctx context.Context, desc string) ([][]float64, error) {
	payload, err := json.Marshal(map[string]string{"description": desc})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: evaluator: %v", model.ErrBackendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: evaluator request failed: %v", model.ErrBackendFailed, err)
	}
	defer closeBody(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: evaluator: failed to read response: %v", model.ErrBackendFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: evaluator responded with status %d", model.ErrBackendFailed, resp.StatusCode)
	}

	var parsed evaluationResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: evaluator returned malformed JSON: %v", model.ErrBackendFailed, err)
	}
	if parsed.Predictions == nil {
		return nil, fmt.Errorf("%w: evaluator response has no predictions", model.ErrBackendFailed)
	}

	return parsed.Predictions, nil
}
