package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrUnavailable marks scoring failures that are the scorer's fault, not
// the traveler's: timeouts, transport errors, malformed sidecar replies.
// Completion stays retryable when the pipeline sees this error.
var ErrUnavailable = errors.New("cleanliness scorer unavailable")

// ModelScorer calls an inference sidecar that runs the trash classifier
// (a frozen MobileNetV2 backbone with a single-unit sigmoid head; the
// sidecar owns resizing to the model's 224x224 input). The sidecar
// accepts raw image bytes on POST /score and answers
// {"trashiness": <float>}.
type ModelScorer struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewModelScorer builds a scorer against the sidecar at baseURL. Every
// call runs under the given timeout so a stalled model cannot hold a
// completion request open indefinitely.
func NewModelScorer(baseURL string, timeout time.Duration, logger *slog.Logger) *ModelScorer {
	logger.Info("cleanliness scorer using model sidecar", "url", baseURL, "timeout", timeout)
	return &ModelScorer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type scoreResponse struct {
	Trashiness float64 `json:"trashiness"`
}

func (s *ModelScorer) Score(ctx context.Context, image []byte) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/score", bytes.NewReader(image))
	if err != nil {
		return 0, fmt.Errorf("%w: building request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("scorer request failed", "error", err)
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Error("scorer returned non-200", "status", resp.StatusCode, "body", string(body))
		return 0, fmt.Errorf("%w: sidecar status %d", ErrUnavailable, resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decoding response: %w", ErrUnavailable, err)
	}
	if out.Trashiness < 0 || out.Trashiness > 1 {
		return 0, fmt.Errorf("%w: score %f out of range", ErrUnavailable, out.Trashiness)
	}
	return out.Trashiness, nil
}
