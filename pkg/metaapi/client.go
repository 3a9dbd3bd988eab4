package metaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/lakshcode9/metaapi-server-deploy/pkg/errors"
	"github.com/lakshcode9/metaapi-server-deploy/pkg/metrics"
)

// Config holds MetaApi endpoint and polling configuration. Zero values
// fall back to the production endpoints and provider-default timeouts.
type Config struct {
	ProvisioningURL string
	ClientURL       string
	RequestTimeout  time.Duration
	DeployTimeout   time.Duration
	SyncTimeout     time.Duration
	PollInterval    time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProvisioningURL == "" {
		c.ProvisioningURL = "https://mt-provisioning-api-v1.agiliumtrade.agiliumtrade.ai"
	}
	if c.ClientURL == "" {
		c.ClientURL = "https://mt-client-api-v1.agiliumtrade.agiliumtrade.ai"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.DeployTimeout == 0 {
		c.DeployTimeout = 5 * time.Minute
	}
	if c.SyncTimeout == 0 {
		c.SyncTimeout = 5 * time.Minute
	}
	if c.PollInterval == 0 {
		c.PollInterval = 2 * time.Second
	}
	return c
}

// ClientFactory builds REST clients for per-request tokens.
type ClientFactory struct {
	cfg Config
}

// NewFactory creates a factory bound to the given endpoints.
func NewFactory(cfg Config) *ClientFactory {
	return &ClientFactory{cfg: cfg.withDefaults()}
}

func (f *ClientFactory) NewClient(token string) Client {
	return &restClient{
		cfg:   f.cfg,
		token: token,
		httpClient: &http.Client{
			Timeout: f.cfg.RequestTimeout,
		},
	}
}

// restClient is the REST implementation of Client. One instance per
// request; it holds the caller's token and nothing else.
type restClient struct {
	cfg        Config
	token      string
	httpClient *http.Client
}

// doRequest performs an authenticated HTTP request against MetaApi.
// Transport-level failures map to the Connection kind.
func (c *restClient) doRequest(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("auth-token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ErrConnection.WithError(err)
	}
	return resp, nil
}

// providerError is the error body MetaApi returns on non-2xx responses.
type providerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeResponse narrows the provider response at the boundary: non-2xx
// statuses become tagged error kinds, 2xx bodies decode into target.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)

		message := string(body)
		var pe providerError
		if err := json.Unmarshal(body, &pe); err == nil && pe.Message != "" {
			message = pe.Message
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.ErrAuthentication.WithMessage(message)
		case http.StatusNotFound:
			return apperrors.ErrNotFound.WithMessage(message)
		default:
			return apperrors.ErrProviderOperation.WithMessagef("provider error (status %d): %s", resp.StatusCode, message)
		}
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return apperrors.ErrProviderOperation.WithMessagef("failed to decode provider response: %v", err)
		}
	}

	return nil
}

// record reports one provider call to the metrics registry.
func record(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			status = appErr.Code
		}
	}
	metrics.RecordProviderCall(operation, status, time.Since(start))
}
