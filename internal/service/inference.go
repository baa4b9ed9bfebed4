package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/UnendingLoop/ImageAble/internal/imgdata"
	"github.com/UnendingLoop/ImageAble/internal/model"
	"github.com/UnendingLoop/ImageAble/internal/mwlogger"
)

// ProcessBatch describes every image with the selected backend, strictly one after another.
// The first failing image stops the batch and no descriptions are returned.
func (c ImageService) ProcessBatch(ctx context.Context, req *model.InferenceRequest, sel model.BackendSelector) model.ProcessingResult {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := checkBatch(req, sel); err != nil {
		return failed(err)
	}
	if sel.Prompt == "" {
		sel.Prompt = strings.TrimSpace(req.Prompt)
	}

	describer, err := c.backends.For(sel)
	if err != nil {
		return failed(err)
	}

	descriptions := make([]string, 0, len(req.ImageBase64Array))
	for i, raw := range req.ImageBase64Array {
		data, err := imgdata.Decode(raw)
		if err != nil {
			logger.Warn().Err(err).Int("image", i).Msg("Rejected malformed image in batch")
			return failed(err)
		}

		desc, err := describer.Describe(ctx, data)
		if err != nil {
			logger.Error().Err(err).Int("image", i).Str("backend", describer.Name()).Msg("Inference failed, aborting batch")
			return failed(err)
		}
		descriptions = append(descriptions, desc)
	}

	logger.Info().Int("images", len(descriptions)).Str("backend", describer.Name()).Msg("Batch described")
	return model.ProcessingResult{Success: true, Descriptions: descriptions}
}

func checkBatch(req *model.InferenceRequest, sel model.BackendSelector) error {
	if req == nil {
		return model.ErrNilRequest
	}
	if len(req.ImageBase64Array) == 0 {
		return model.ErrEmptyImageList
	}

	switch sel.Kind {
	case model.BackendChat:
		if strings.TrimSpace(sel.APIKey) == "" {
			return model.ErrEmptyAPIKey
		}
	case model.BackendCustom:
		if strings.TrimSpace(sel.Endpoint) == "" {
			return model.ErrEmptyEndpoint
		}
	}
	return nil
}

func failed(err error) model.ProcessingResult {
	return model.ProcessingResult{Success: false, Message: err.Error(), Err: err}
}

// Evaluate scores each description with the evaluator; vectors are appended in request order.
func (c ImageService) Evaluate(ctx context.Context, req *model.EvaluationRequest) ([][]float64, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if req == nil || len(req.Description) == 0 {
		return nil, model.ErrInvalidRequest
	}
	if c.evaluator == nil {
		return nil, fmt.Errorf("%w: evaluator is not configured", model.ErrBackendFailed)
	}

	scores, err := c.evaluator.Evaluate(ctx, req.Description)
	if err != nil {
		logger.Error().Err(err).Int("descriptions", len(req.Description)).Msg("Evaluation failed")
		return nil, err
	}

	return scores, nil
}
