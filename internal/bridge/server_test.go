package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-voicelive/internal/assistant"
	"github.com/Raikerian/go-voicelive/internal/bridge"
	"github.com/Raikerian/go-voicelive/internal/config"
)

func TestServer_StatusEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/", "/health"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

			var status map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
			assert.Equal(t, map[string]string{"status": "healthy", "version": "1.0.0"}, status)
		})
	}
}

func TestServer_UnknownPath(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Interaction(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/interaction", "application/json",
		strings.NewReader(`{"text":"What time is it?"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var reply map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.NotEmpty(t, reply["text"], "The mock backend always answers")
}

func TestServer_InteractionValidation(t *testing.T) {
	tests := map[string]struct {
		method      string
		body        string
		wantStatus  int
		description string
	}{
		"preflight": {
			method:      http.MethodOptions,
			wantStatus:  http.StatusNoContent,
			description: "CORS preflight succeeds without a body",
		},
		"wrong method": {
			method:      http.MethodGet,
			wantStatus:  http.StatusMethodNotAllowed,
			description: "Only POST carries an interaction",
		},
		"empty body": {
			method:      http.MethodPost,
			wantStatus:  http.StatusBadRequest,
			description: "A body is required",
		},
		"malformed body": {
			method:      http.MethodPost,
			body:        `{"text":`,
			wantStatus:  http.StatusBadRequest,
			description: "Malformed JSON is rejected",
		},
		"blank text": {
			method:      http.MethodPost,
			body:        `{"text":"   "}`,
			wantStatus:  http.StatusBadRequest,
			description: "Whitespace-only text is rejected",
		},
	}

	srv := newTestServer(t, nil)

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+"/api/interaction", strings.NewReader(tt.body))
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode, tt.description)
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestServer_InteractionProviderFailure(t *testing.T) {
	srv := newTestServer(t, failingProvider{})

	resp, err := http.Post(srv.URL+"/api/interaction", "application/json",
		strings.NewReader(`{"text":"Hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "assistant unavailable", body["error"])
}

// Helper functions

// failingProvider simulates an unreachable assistant backend.
type failingProvider struct{}

func (failingProvider) StartSession(context.Context, assistant.SessionConfig) (assistant.Session, error) {
	return nil, errors.New("backend unreachable")
}

func (failingProvider) TextTurn(context.Context, string) (string, error) {
	return "", errors.New("backend unreachable")
}

// newTestServer serves the bridge over httptest. A nil provider selects the
// offline mock backend.
func newTestServer(t *testing.T, provider assistant.Provider) *httptest.Server {
	t.Helper()

	if provider == nil {
		provider = assistant.NewMockProvider(zaptest.NewLogger(t))
	}
	server := bridge.NewServer(zaptest.NewLogger(t), testConfig(), provider)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() *config.Config {
	return &config.Config{
		Bridge: config.BridgeConfig{
			ListenAddr:          ":0",
			Provider:            config.ProviderMock,
			Model:               "gpt-4o-realtime-preview",
			Voice:               "shimmer",
			Instructions:        "Keep replies short.",
			TranscriptCacheSize: 16,
		},
	}
}
