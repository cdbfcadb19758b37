package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/udemarket/markethub/common"
)

const defaultTimeout = 30 * time.Second

// HTTPClient talks to a pinning service: POST /blobs stores a blob and
// returns its reference, GET /blobs/:ref fetches it back. Every call is
// bounded by the client timeout; network faults and 5xx responses come
// back marked transient so the publish pipeline can retry them at the
// stage boundary.
type HTTPClient struct {
	baseURL    string
	gatewayURL string
	token      string
	httpClient *http.Client
}

type HTTPClientOption = func(client *HTTPClient)

func WithToken(token string) HTTPClientOption {
	return func(client *HTTPClient) {
		client.token = token
	}
}

func WithTimeout(timeout time.Duration) HTTPClientOption {
	return func(client *HTTPClient) {
		client.httpClient.Timeout = timeout
	}
}

func NewHTTPClient(baseURL, gatewayURL string, options ...HTTPClientOption) *HTTPClient {
	client := &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, option := range options {
		option(client)
	}
	return client
}

var _ Client = (*HTTPClient)(nil)

type putResponse struct {
	Ref string `json:"ref"`
}

func (c *HTTPClient) Put(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/blobs", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: content store put: %v", common.ErrTransient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: content store put returned %d", common.ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("content store put returned %d", resp.StatusCode)
	}
	stored := putResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return "", fmt.Errorf("content store put: decoding response: %w", err)
	}
	if stored.Ref == "" {
		return "", fmt.Errorf("content store put: empty ref in response")
	}
	return stored.Ref, nil
}

func (c *HTTPClient) Get(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/blobs/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: content store get: %v", common.ErrTransient, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: blob %s", common.ErrNotFound, ref)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: content store get returned %d", common.ErrTransient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("content store get returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *HTTPClient) GatewayURL(ref string) string {
	return c.gatewayURL + "/" + ref
}
