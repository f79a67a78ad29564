package relay

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/flashide/flashide/internal/shared/id"
)

// Service validates prompts and relays them upstream
type Service struct {
	upstream *Upstream
	logger   *zap.Logger
}

// NewService creates a relay service
func NewService(upstream *Upstream, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{upstream: upstream, logger: logger}
}

// Relay forwards prompt and returns the generated text.
func (s *Service) Relay(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrPromptRequired
	}

	logger := s.logger.With(zap.String("request_id", string(id.NewRequestID())))
	logger.Info("Sending request to upstream", zap.String("model", s.upstream.Model()))

	result, err := s.upstream.GenerateContent(ctx, prompt)
	if err != nil {
		var upErr *UpstreamError
		if errors.As(err, &upErr) {
			logger.Error("Upstream API error",
				zap.Int("status", upErr.Status),
				zap.ByteString("data", upErr.Body))
		} else {
			logger.Error("Upstream API error", zap.Error(err))
		}
		return "", err
	}

	logger.Info("Upstream responded", zap.Int("result_bytes", len(result)))
	return result, nil
}

// ListModels returns the upstream model list as raw JSON.
func (s *Service) ListModels(ctx context.Context) ([]byte, error) {
	models, err := s.upstream.ListModels(ctx)
	if err != nil {
		s.logger.Error("ListModels error", zap.Error(err))
		return nil, err
	}
	return models, nil
}
