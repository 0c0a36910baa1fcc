package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"time"
)

const (
	defaultDetectorURL = "http://localhost:8000"
	defaultTimeout     = 60 * time.Second
)

// HTTPClient talks to an InsightFace-style detection server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a detector client for the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// detectResponse is the wire format of the detection server.
type detectResponse struct {
	Model  string `json:"model"`
	Dim    int    `json:"dim"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Faces  []struct {
		BBox      []float64 `json:"bbox"`
		DetScore  float64   `json:"det_score"`
		Embedding []float32 `json:"embedding"`
	} `json:"faces"`
}

// DetectAndEmbed posts the image to the detection server and parses the
// observations. Connection failures and server errors are reported as
// ErrModelUnavailable.
func (c *HTTPClient) DetectAndEmbed(ctx context.Context, image []byte) (*Result, error) {
	body, err := c.postMultipartImage(ctx, "/detect", image)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing detector response: %w", err)
	}

	result := &Result{
		Width:  resp.Width,
		Height: resp.Height,
		Model:  resp.Model,
		Dim:    resp.Dim,
	}
	for _, f := range resp.Faces {
		if len(f.BBox) != 4 || len(f.Embedding) == 0 {
			continue
		}
		result.Observations = append(result.Observations, Observation{
			BBox:       [4]float64{f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3]},
			Confidence: f.DetScore,
			Embedding:  f.Embedding,
		})
	}

	// The server emits faces in confidence order; keep the contract even
	// if it does not.
	sort.SliceStable(result.Observations, func(i, j int) bool {
		return result.Observations[i].Confidence > result.Observations[j].Confidence
	})

	return result, nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint.
func (c *HTTPClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d: %s", ErrModelUnavailable, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image magic bytes.
func detectMIMEType(data []byte) string {
	if len(data) < 12 {
		return "application/octet-stream"
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "image/gif"
	case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
