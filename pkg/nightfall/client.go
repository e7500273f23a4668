// Package nightfall is a minimal client for the parts of the
// Nightfall REST API that this app uses: uploading a file and
// triggering an asynchronous scan with a webhook policy.
package nightfall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://api.nightfall.ai"

	// Chunk uploads of large files can be slow; everything else is small.
	uploadTimeout  = 60 * time.Second
	requestTimeout = 10 * time.Second
)

// Confidence is the likelihood that a detected match is truly
// sensitive data, as graded by Nightfall's detection engine.
type Confidence string

const (
	ConfidenceVeryUnlikely Confidence = "VERY_UNLIKELY"
	ConfidenceUnlikely     Confidence = "UNLIKELY"
	ConfidencePossible     Confidence = "POSSIBLE"
	ConfidenceLikely       Confidence = "LIKELY"
	ConfidenceVeryLikely   Confidence = "VERY_LIKELY"
)

// Detector selects a single Nightfall detector,
// with a minimum confidence for reported findings.
type Detector struct {
	MinConfidence     Confidence `json:"minConfidence"`
	MinNumFindings    int        `json:"minNumFindings"`
	DetectorType      string     `json:"detectorType"`
	NightfallDetector string     `json:"nightfallDetector"`
	DisplayName       string     `json:"displayName,omitempty"`
}

// NewDetector constructs a detector backed by one of Nightfall's
// prebuilt detectors, reporting from the first finding.
func NewDetector(minConfidence Confidence, nightfallDetector, displayName string) Detector {
	return Detector{
		MinConfidence:     minConfidence,
		MinNumFindings:    1,
		DetectorType:      "NIGHTFALL_DETECTOR",
		NightfallDetector: nightfallDetector,
		DisplayName:       displayName,
	}
}

// DetectionRule is a named grouping of detectors, combined with a logical
// operator, supplied when triggering a scan.
type DetectionRule struct {
	Name      string     `json:"name,omitempty"`
	LogicalOp string     `json:"logicalOp"`
	Detectors []Detector `json:"detectors"`
}

// ScanResponse acknowledges an accepted asynchronous scan request. The scan
// results themselves arrive later, via the policy's webhook URL.
type ScanResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type upload struct {
	ID            string `json:"id"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
	ChunkSize     int64  `json:"chunkSize"`
}

// Client calls the Nightfall REST API on behalf of a single API key.
// It is immutable after construction and safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Nightfall API client. It fails if the
// API key is missing, rather than sending unauthenticated
// requests that the service would reject anyway.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("nightfall: API key is not configured")
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}, nil
}

// ScanFile uploads the given file and triggers an asynchronous scan of it.
// Nightfall reports the results to the given webhook URL when the scan
// completes, per https://docs.nightfall.ai/docs/scanning-files.
func (c *Client) ScanFile(ctx context.Context, path, webhookURL string, rules []DetectionRule) (*ScanResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	u, err := c.initUpload(ctx, fi.Size())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("upload_id", u.ID).Int64("chunk_size", u.ChunkSize).
		Msg("initialized file upload")

	if err := c.uploadChunks(ctx, u, f); err != nil {
		return nil, err
	}
	if err := c.finishUpload(ctx, u.ID); err != nil {
		return nil, err
	}
	log.Debug().Str("upload_id", u.ID).Str("file", path).Msg("uploaded file")

	return c.scanUpload(ctx, u.ID, webhookURL, rules)
}

func (c *Client) initUpload(ctx context.Context, size int64) (*upload, error) {
	u := new(upload)
	body := map[string]int64{"fileSizeBytes": size}
	if err := c.doJSON(ctx, http.MethodPost, "/v3/upload", body, u); err != nil {
		return nil, err
	}
	if u.ChunkSize <= 0 {
		return nil, fmt.Errorf("nightfall: invalid chunk size %d", u.ChunkSize)
	}
	return u, nil
}

// uploadChunks sends the file's content in chunks of the size that the
// upload-initialization response dictated.
func (c *Client) uploadChunks(ctx context.Context, u *upload, f io.Reader) error {
	buf := make([]byte, u.ChunkSize)
	var offset int64

	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			if err := c.uploadChunk(ctx, u.ID, offset, buf[:n]); err != nil {
				return err
			}
			offset += int64(n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *Client) uploadChunk(ctx context.Context, uploadID string, offset int64, chunk []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v3/upload/%s", c.baseURL, uploadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(chunk))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Upload-Offset", strconv.FormatInt(offset, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (c *Client) finishUpload(ctx context.Context, uploadID string) error {
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v3/upload/%s/finish", uploadID), nil, nil)
}

func (c *Client) scanUpload(ctx context.Context, uploadID, webhookURL string, rules []DetectionRule) (*ScanResponse, error) {
	body := map[string]any{
		"policy": map[string]any{
			"webhookURL":     webhookURL,
			"detectionRules": rules,
		},
	}

	s := new(ScanResponse)
	path := fmt.Sprintf("/v3/upload/%s/scan", uploadID)
	if err := c.doJSON(ctx, http.MethodPost, path, body, s); err != nil {
		return nil, err
	}
	return s, nil
}

// doJSON sends an authenticated JSON request and decodes the JSON response
// into out, when out is a non-nil reference.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// checkStatus converts non-2xx API responses into errors,
// including the response body for actionable messages.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("nightfall: %s %s: %s: %s",
		resp.Request.Method, resp.Request.URL.Path, resp.Status, bytes.TrimSpace(b))
}
