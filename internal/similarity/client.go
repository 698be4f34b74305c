// Package similarity wraps the external image-similarity service. The
// search pipeline only needs it to resolve an image or reference entity
// into a URI set; every failure degrades to an empty set, which the filter
// compiler treats as "no restriction".
package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/silknow/explorer-api/internal/platform/logger"
)

// Result carries the two URI sets the service answers with.
type Result struct {
	VisualURIs   []string `json:"visualUris"`
	SemanticURIs []string `json:"semanticUris"`
	Message      string   `json:"message,omitempty"`
}

// URIs flattens both sets, visual first.
func (r Result) URIs() []string {
	return append(append([]string(nil), r.VisualURIs...), r.SemanticURIs...)
}

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client interface {
	SimilarByURI(ctx context.Context, imageURL string) (Result, error)
	SimilarByUpload(ctx context.Context, filename string, file io.Reader) (Result, error)
}

type client struct {
	log      *logger.Logger
	endpoint string
	http     Doer
}

func NewClient(log *logger.Logger, endpoint string, doer Doer) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("missing similarity endpoint")
	}
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &client{
		log:      log.With("service", "SimilarityClient"),
		endpoint: endpoint,
		http:     doer,
	}, nil
}

func (c *client) SimilarByURI(ctx context.Context, imageURL string) (Result, error) {
	body, err := json.Marshal(map[string]string{"uri": imageURL})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *client) SimilarByUpload(ctx context.Context, filename string, file io.Reader) (Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return Result{}, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Result{}, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req)
}

func (c *client) send(req *http.Request) (Result, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("similarity request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("similarity status %d", resp.StatusCode)
	}
	var out Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Message != "" {
		return Result{}, fmt.Errorf("similarity service: %s", out.Message)
	}
	return out, nil
}
