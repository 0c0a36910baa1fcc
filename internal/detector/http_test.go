package detector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDetectAndEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "buffalo_l", "dim": 3, "width": 1000, "height": 800,
			"faces": [
				{"bbox": [10, 20, 110, 140], "det_score": 0.71, "embedding": [0, 1, 0]},
				{"bbox": [300, 80, 420, 220], "det_score": 0.98, "embedding": [1, 0, 0]}
			]
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	result, err := client.DetectAndEmbed(context.Background(), []byte("\xFF\xD8\xFFfake-jpeg"))
	if err != nil {
		t.Fatalf("DetectAndEmbed: %v", err)
	}

	if result.Model != "buffalo_l" || result.Dim != 3 {
		t.Errorf("unexpected model metadata: %+v", result)
	}
	if result.Width != 1000 || result.Height != 800 {
		t.Errorf("unexpected dimensions: %dx%d", result.Width, result.Height)
	}
	if len(result.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(result.Observations))
	}
	// Observations must be ordered by confidence descending.
	if result.Observations[0].Confidence != 0.98 {
		t.Errorf("expected highest confidence first, got %f", result.Observations[0].Confidence)
	}
	if result.Observations[0].BBox != [4]float64{300, 80, 420, 220} {
		t.Errorf("unexpected bbox: %v", result.Observations[0].BBox)
	}
}

func TestDetectAndEmbedNoFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model": "buffalo_l", "dim": 512, "width": 640, "height": 480, "faces": []}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	result, err := client.DetectAndEmbed(context.Background(), []byte("noface"))
	if err != nil {
		t.Fatalf("DetectAndEmbed: %v", err)
	}
	if len(result.Observations) != 0 {
		t.Errorf("expected no observations, got %d", len(result.Observations))
	}
}

func TestDetectAndEmbedServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	_, err := client.DetectAndEmbed(context.Background(), []byte("img"))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for 500, got %v", err)
	}
}

func TestDetectAndEmbedUnreachable(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := client.DetectAndEmbed(context.Background(), []byte("img"))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable for connection failure, got %v", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", append([]byte{0xFF, 0xD8, 0xFF}, make([]byte, 16)...), "image/jpeg"},
		{"png", append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 8)...), "image/png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"short", []byte{1, 2}, "application/octet-stream"},
		{"unknown", make([]byte, 20), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType() = %q, want %q", got, tt.want)
			}
		})
	}
}
