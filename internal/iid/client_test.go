package iid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials() Credentials {
	return Credentials{
		APIKey:      "AAAAxGkzQl0:APA91bG-test-server-key",
		Environment: EnvDevelopment,
	}
}

func TestNewClient_PanicsOnIncompleteCredentials(t *testing.T) {
	assert.Panics(t, func() {
		NewClient(Credentials{Environment: EnvProduction})
	})
	assert.Panics(t, func() {
		NewClient(Credentials{APIKey: "key", Environment: "staging"})
	})
	assert.NotPanics(t, func() {
		NewClient(testCredentials())
	})
}

func TestExchange_RequestShape(t *testing.T) {
	var (
		gotMethod  string
		gotPath    string
		gotHeaders http.Header
		gotBody    batchImportRequest
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"registration_token":"fcm-token-1"}]}`))
	}))
	defer server.Close()

	client := NewClient(testCredentials(),
		WithEndpoint(server.URL),
		WithAppInfo(AppInfo{
			BundleID: "com.example.app",
			Name:     "ExampleApp",
			Version:  "2.1.0",
			Build:    "347",
		}),
	)

	token, err := client.Exchange(context.Background(), "740f4707bebcf74f9b7c25d4")
	require.NoError(t, err)
	assert.Equal(t, "fcm-token-1", token)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/", gotPath)
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "key=AAAAxGkzQl0:APA91bG-test-server-key", gotHeaders.Get("Authorization"))
	assert.Equal(t, "ExampleApp/2.1.0 (com.example.app; build 347)", gotHeaders.Get("User-Agent"))

	assert.Equal(t, "com.example.app", gotBody.Application)
	assert.True(t, gotBody.Sandbox, "development environment must set sandbox")
	assert.Equal(t, []string{"740f4707bebcf74f9b7c25d4"}, gotBody.APNSTokens)
}

func TestExchange_SandboxFollowsEnvironment(t *testing.T) {
	var gotBody batchImportRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"results":[{"registration_token":"fcm-token-2"}]}`))
	}))
	defer server.Close()

	client := NewClient(
		Credentials{APIKey: "server-key", Environment: EnvProduction},
		WithEndpoint(server.URL),
	)

	_, err := client.Exchange(context.Background(), "device-token")
	require.NoError(t, err)
	assert.False(t, gotBody.Sandbox, "production environment must not set sandbox")
}

func TestExchange_AppInfoPlaceholders(t *testing.T) {
	var gotBody batchImportRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"results":[{"registration_token":"fcm-token-3"}]}`))
	}))
	defer server.Close()

	client := NewClient(testCredentials(), WithEndpoint(server.URL))

	_, err := client.Exchange(context.Background(), "device-token")
	require.NoError(t, err)
	assert.Equal(t, "unknown", gotBody.Application)
}

func TestExchange_Classification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantStatus int
		wantBody   string
	}{
		{
			name:       "non-success status wins over body checks",
			status:     http.StatusInternalServerError,
			body:       "upstream exploded",
			wantKind:   KindUnexpectedStatus,
			wantStatus: http.StatusInternalServerError,
			wantBody:   "upstream exploded",
		},
		{
			name:       "authentication failure",
			status:     http.StatusUnauthorized,
			body:       `{"error":"unauthorized"}`,
			wantKind:   KindUnexpectedStatus,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
		},
		{
			name:     "success status with empty body",
			status:   http.StatusOK,
			body:     "",
			wantKind: KindMissingBody,
		},
		{
			name:     "body that is not JSON",
			status:   http.StatusOK,
			body:     "<html>gateway error</html>",
			wantKind: KindMalformedBody,
			wantBody: "<html>gateway error</html>",
		},
		{
			name:     "JSON without results",
			status:   http.StatusOK,
			body:     `{}`,
			wantKind: KindMalformedBody,
			wantBody: `{}`,
		},
		{
			name:     "empty results list",
			status:   http.StatusOK,
			body:     `{"results":[]}`,
			wantKind: KindMalformedBody,
		},
		{
			name:     "result without registration token",
			status:   http.StatusOK,
			body:     `{"results":[{"apns_token":"x","status":"INTERNAL_ERROR"}]}`,
			wantKind: KindMalformedBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			}))
			defer server.Close()

			client := NewClient(testCredentials(), WithEndpoint(server.URL))

			token, err := client.Exchange(context.Background(), "device-token")
			assert.Empty(t, token)
			require.Error(t, err)

			var exchErr *ExchangeError
			require.ErrorAs(t, err, &exchErr)
			assert.Equal(t, tt.wantKind, exchErr.Kind)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, exchErr.StatusCode)
			}
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, exchErr.Body)
			}
		})
	}
}

func TestExchange_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(testCredentials(), WithEndpoint(server.URL))

	token, err := client.Exchange(context.Background(), "device-token")
	assert.Empty(t, token)

	var exchErr *ExchangeError
	require.ErrorAs(t, err, &exchErr)
	assert.Equal(t, KindTransportFailure, exchErr.Kind)
	assert.Error(t, exchErr.Unwrap())
}

func TestExchange_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(testCredentials(), WithEndpoint(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Exchange(ctx, "device-token")

	var exchErr *ExchangeError
	require.ErrorAs(t, err, &exchErr)
	assert.Equal(t, KindTransportFailure, exchErr.Kind)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClassify_NilResponse(t *testing.T) {
	token, err := classify(nil, nil)
	assert.Empty(t, token)

	var exchErr *ExchangeError
	require.ErrorAs(t, err, &exchErr)
	assert.Equal(t, KindInvalidResponse, exchErr.Kind)
}
