// Package iid implements the token exchange against the Instance ID
// batch-import API. It converts an APNS device token into an FCM
// registration token with a single HTTP round trip and classifies every
// failure mode into an ExchangeError kind.
package iid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// BatchImportURL is the fixed Instance ID batch-import endpoint.
	BatchImportURL = "https://iid.googleapis.com/iid/v1:batchImport"

	// placeholderAppValue is substituted for any host application metadata
	// field that was not supplied.
	placeholderAppValue = "unknown"

	defaultTimeout = 10 * time.Second
)

// Environment selects which APNS environment the device token belongs to.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Credentials holds the two values required to call the batch-import
// endpoint. Both fields must be set before a Client can be constructed;
// they are immutable afterwards, so concurrent exchanges never race a
// configuration writer.
type Credentials struct {
	APIKey      string
	Environment Environment
}

// AppInfo carries host application metadata. The bundle identifier feeds the
// request body; the remaining fields only feed the diagnostic User-Agent
// header. Unset fields fall back to a placeholder.
type AppInfo struct {
	BundleID string
	Name     string
	Version  string
	Build    string
}

func (a AppInfo) withPlaceholders() AppInfo {
	if a.BundleID == "" {
		a.BundleID = placeholderAppValue
	}
	if a.Name == "" {
		a.Name = placeholderAppValue
	}
	if a.Version == "" {
		a.Version = placeholderAppValue
	}
	if a.Build == "" {
		a.Build = placeholderAppValue
	}
	return a
}

func (a AppInfo) userAgent() string {
	return fmt.Sprintf("%s/%s (%s; build %s)", a.Name, a.Version, a.BundleID, a.Build)
}

// Client performs token exchanges. It is stateless apart from its immutable
// configuration and is safe for concurrent use.
type Client struct {
	creds      Credentials
	app        AppInfo
	endpoint   string
	httpClient *http.Client
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithEndpoint overrides the batch-import endpoint. Intended for tests; the
// production endpoint is fixed.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithAppInfo sets the host application metadata used for the request body's
// application field and the diagnostic User-Agent header.
func WithAppInfo(app AppInfo) ClientOption {
	return func(c *Client) {
		c.app = app.withPlaceholders()
	}
}

// NewClient creates a new exchange client. Incomplete credentials are a
// contract violation by the integrating caller, not a runtime condition:
// continuing would send an unauthenticated or mistargeted request, so the
// constructor panics instead of returning an error.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	if creds.APIKey == "" {
		panic("iid: API key must be configured before exchanging tokens")
	}
	if creds.Environment != EnvDevelopment && creds.Environment != EnvProduction {
		panic(fmt.Sprintf("iid: invalid environment %q", creds.Environment))
	}

	c := &Client{
		creds:    creds,
		app:      AppInfo{}.withPlaceholders(),
		endpoint: BatchImportURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// batchImportRequest is the wire format of one exchange. The token list
// always carries exactly one entry.
type batchImportRequest struct {
	Application string   `json:"application"`
	Sandbox     bool     `json:"sandbox"`
	APNSTokens  []string `json:"apns_tokens"`
}

type batchImportResult struct {
	APNSToken         string `json:"apns_token"`
	Status            string `json:"status"`
	RegistrationToken string `json:"registration_token"`
}

type batchImportResponse struct {
	Results []batchImportResult `json:"results"`
}

// buildRequest deterministically constructs the outbound request from the
// client configuration and the device token. A marshal or request
// construction failure here means a broken invariant, so it panics rather
// than returning an error.
func (c *Client) buildRequest(ctx context.Context, deviceToken string) *http.Request {
	payload := batchImportRequest{
		Application: c.app.BundleID,
		Sandbox:     c.creds.Environment == EnvDevelopment,
		APNSTokens:  []string{deviceToken},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("iid: failed to marshal batch import body: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		panic(fmt.Sprintf("iid: failed to build batch import request: %v", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.creds.APIKey)
	req.Header.Set("User-Agent", c.app.userAgent())

	return req
}

// Exchange converts deviceToken into an FCM registration token. The token is
// passed through verbatim; no format validation is applied. On failure the
// returned error is always a *ExchangeError carrying exactly one Kind.
// Nothing is retried; the caller decides whether to issue a new call.
func (c *Client) Exchange(ctx context.Context, deviceToken string) (string, error) {
	resp, err := c.httpClient.Do(c.buildRequest(ctx, deviceToken))
	return classify(resp, err)
}

// classify maps the transport completion onto the exchange outcome. The
// checks run strictly in order and the first match wins, so every call
// yields exactly one kind.
func classify(resp *http.Response, reqErr error) (string, error) {
	if reqErr != nil {
		return "", &ExchangeError{Kind: KindTransportFailure, cause: reqErr}
	}
	if resp == nil {
		return "", &ExchangeError{Kind: KindInvalidResponse}
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		// The body was cut off mid-stream; the transport never produced a
		// complete response.
		return "", &ExchangeError{Kind: KindTransportFailure, cause: readErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ExchangeError{
			Kind:       KindUnexpectedStatus,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if len(raw) == 0 {
		return "", &ExchangeError{Kind: KindMissingBody}
	}

	var parsed batchImportResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ExchangeError{Kind: KindMalformedBody, Body: string(raw), cause: err}
	}

	if len(parsed.Results) == 0 || parsed.Results[0].RegistrationToken == "" {
		return "", &ExchangeError{Kind: KindMalformedBody, Body: string(raw)}
	}

	return parsed.Results[0].RegistrationToken, nil
}
