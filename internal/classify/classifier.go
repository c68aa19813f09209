package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/loandesk/document-service/internal/models"
)

// Classifier is the external document classification service. A nil result
// with a nil error means the service could not classify the file; callers
// must treat that as a normal outcome.
type Classifier interface {
	Classify(ctx context.Context, fileName string, data []byte) (*models.ClassificationResult, error)
}

// HTTPClassifier posts files to a remote classification endpoint.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

func NewHTTPClassifier(endpoint string) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (h *HTTPClassifier) Classify(ctx context.Context, fileName string, data []byte) (*models.ClassificationResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		// Classifier declined to classify; not an error.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[Classifier] unexpected status %d: %s", resp.StatusCode, raw)
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result models.ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode classification result: %w", err)
	}
	return &result, nil
}
