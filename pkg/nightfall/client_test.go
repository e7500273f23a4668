package nightfall

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "NF-test-key"

func TestNewClientWithoutKey(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err, "a missing API key must fail before any network call")

	c, err := NewClient(testAPIKey)
	assert.NoError(t, err)
	assert.NotNil(t, c)
}

// mockAPI implements the upload + scan endpoints that ScanFile exercises.
type mockAPI struct {
	t *testing.T

	chunkSize int64
	uploaded  []byte
	offsets   []string
	finished  bool
	scanBody  map[string]any
}

func (m *mockAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+testAPIKey {
			m.t.Errorf("Authorization header: got %q", got)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v3/upload":
			var req map[string]int64
			require.NoError(m.t, json.NewDecoder(r.Body).Decode(&req))
			_ = json.NewEncoder(w).Encode(upload{
				ID:            "up_1",
				FileSizeBytes: req["fileSizeBytes"],
				ChunkSize:     m.chunkSize,
			})

		case r.Method == http.MethodPatch && r.URL.Path == "/v3/upload/up_1":
			chunk, err := io.ReadAll(r.Body)
			require.NoError(m.t, err)
			m.uploaded = append(m.uploaded, chunk...)
			m.offsets = append(m.offsets, r.Header.Get("X-Upload-Offset"))
			w.WriteHeader(http.StatusNoContent)

		case r.Method == http.MethodPost && r.URL.Path == "/v3/upload/up_1/finish":
			m.finished = true
			_, _ = w.Write([]byte(`{"id": "up_1"}`))

		case r.Method == http.MethodPost && r.URL.Path == "/v3/upload/up_1/scan":
			require.True(m.t, m.finished, "scan requested before the upload was finished")
			require.NoError(m.t, json.NewDecoder(r.Body).Decode(&m.scanBody))
			_, _ = w.Write([]byte(`{"id": "scan_1", "message": "scan initiated"}`))

		default:
			m.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestScanFile(t *testing.T) {
	content := []byte("4242424242424242,John Doe\n4916673475725015,Jane Doe\n")
	path := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	m := &mockAPI{t: t, chunkSize: 16} // Forces multiple chunks.
	s := httptest.NewServer(m.handler())
	defer s.Close()

	c, err := NewClient(testAPIKey)
	require.NoError(t, err)
	c.baseURL = s.URL

	rules := []DetectionRule{{
		LogicalOp: "ANY",
		Detectors: []Detector{NewDetector(ConfidenceLikely, "CREDIT_CARD_NUMBER", "Credit Card Number")},
	}}

	resp, err := c.ScanFile(t.Context(), path, "https://example.com/ingest", rules)
	require.NoError(t, err)
	assert.Equal(t, "scan_1", resp.ID)
	assert.Equal(t, "scan initiated", resp.Message)

	// The full file arrived, chunked at the size the API dictated.
	assert.Equal(t, content, m.uploaded)
	assert.Equal(t, []string{"0", "16", "32", "48"}, m.offsets)

	// The scan policy carries the webhook URL and the detection rules.
	policy, ok := m.scanBody["policy"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/ingest", policy["webhookURL"])

	ruleList, ok := policy["detectionRules"].([]any)
	require.True(t, ok)
	require.Len(t, ruleList, 1)
	rule := ruleList[0].(map[string]any)
	assert.Equal(t, "ANY", rule["logicalOp"])

	detector := rule["detectors"].([]any)[0].(map[string]any)
	assert.Equal(t, "LIKELY", detector["minConfidence"])
	assert.Equal(t, "NIGHTFALL_DETECTOR", detector["detectorType"])
	assert.Equal(t, "CREDIT_CARD_NUMBER", detector["nightfallDetector"])
	assert.Equal(t, "Credit Card Number", detector["displayName"])
}

func TestScanFileAPIError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "file size exceeds plan limit"}`))
	}))
	defer s.Close()

	c, err := NewClient(testAPIKey)
	require.NoError(t, err)
	c.baseURL = s.URL

	path := filepath.Join(t.TempDir(), "big.csv")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))

	_, err = c.ScanFile(t.Context(), path, "https://example.com/ingest", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file size exceeds plan limit")
}

func TestScanFileMissing(t *testing.T) {
	c, err := NewClient(testAPIKey)
	require.NoError(t, err)

	_, err = c.ScanFile(t.Context(), filepath.Join(t.TempDir(), "nope.csv"), "https://x/ingest", nil)
	assert.Error(t, err)
}
