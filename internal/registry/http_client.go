package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/fhir"
)

// Config for the HTTP registry client.
type Config struct {
	BaseURL      string // e.g. https://api.medplum.com/fhir/R4
	TokenURL     string // OAuth2 token endpoint; empty disables auth
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// HTTPClient talks FHIR R4 REST to a remote registry.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  *tokenSource
	log     *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	c := &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		log:     logger,
	}
	if cfg.TokenURL != "" && cfg.ClientID != "" {
		c.tokens = newTokenSource(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, hc)
	}
	return c
}

func (c *HTTPClient) Create(ctx context.Context, resourceType string, resource any) (*Stored, error) {
	body, err := json.Marshal(resource)
	if err != nil {
		return nil, &common.RegistryError{Op: "create", ResourceType: resourceType, Cause: fmt.Errorf("encode resource: %w", err)}
	}
	raw, err := c.do(ctx, "create", resourceType, http.MethodPost, c.baseURL+"/"+resourceType, body)
	if err != nil {
		return nil, err
	}
	stored, err := decodeStored(resourceType, raw)
	if err != nil {
		return nil, &common.RegistryError{Op: "create", ResourceType: resourceType, Cause: err}
	}
	c.log.Info("registry.create.ok", "resource_type", resourceType, "id", stored.ID)
	return stored, nil
}

func (c *HTTPClient) Read(ctx context.Context, resourceType, id string) (*Stored, error) {
	raw, err := c.do(ctx, "read", resourceType, http.MethodGet, c.baseURL+"/"+resourceType+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	stored, err := decodeStored(resourceType, raw)
	if err != nil {
		return nil, &common.RegistryError{Op: "read", ResourceType: resourceType, Cause: err}
	}
	return stored, nil
}

func (c *HTTPClient) Search(ctx context.Context, resourceType string, params url.Values) ([]*Stored, error) {
	endpoint := c.baseURL + "/" + resourceType
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	raw, err := c.do(ctx, "search", resourceType, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var bundle fhir.Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, &common.RegistryError{Op: "search", ResourceType: resourceType, Cause: fmt.Errorf("decode bundle: %w", err)}
	}
	out := make([]*Stored, 0, len(bundle.Entry))
	for _, entry := range bundle.Entry {
		var header fhir.Resource
		if err := json.Unmarshal(entry.Resource, &header); err != nil {
			return nil, &common.RegistryError{Op: "search", ResourceType: resourceType, Cause: fmt.Errorf("decode entry: %w", err)}
		}
		// searchsets may include OperationOutcome entries for warnings
		if header.ResourceType != resourceType {
			continue
		}
		stored, err := decodeStored(resourceType, entry.Resource)
		if err != nil {
			return nil, &common.RegistryError{Op: "search", ResourceType: resourceType, Cause: err}
		}
		out = append(out, stored)
	}
	c.log.Debug("registry.search.ok", "resource_type", resourceType, "params", params.Encode(), "matches", len(out))
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, op, resourceType, method, endpoint string, body []byte) ([]byte, error) {
	start := time.Now()
	regErr := func(status int, diagnostics string, cause error) error {
		c.log.Error("registry."+op+".error",
			"resource_type", resourceType,
			"status", status,
			"diagnostics", diagnostics,
			"error", cause,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return &common.RegistryError{Op: op, ResourceType: resourceType, StatusCode: status, Diagnostics: diagnostics, Cause: cause}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, regErr(0, "", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", constants.MIMEApplicationFHIRJSON)
	if body != nil {
		req.Header.Set("Content-Type", constants.MIMEApplicationFHIRJSON)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, regErr(0, "", fmt.Errorf("authenticate: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, regErr(0, "", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("registry.response_body_close_error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, regErr(resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode/100 != 2 {
		var outcome fhir.OperationOutcome
		diagnostics := ""
		if json.Unmarshal(raw, &outcome) == nil {
			diagnostics = outcome.Diagnostics()
		}
		return nil, regErr(resp.StatusCode, diagnostics, fmt.Errorf("unexpected status %s", resp.Status))
	}
	return raw, nil
}

func decodeStored(resourceType string, raw []byte) (*Stored, error) {
	var header fhir.Resource
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	if header.ID == "" {
		return nil, fmt.Errorf("resource has no id")
	}
	if header.ResourceType == "" {
		header.ResourceType = resourceType
	}
	return &Stored{ResourceType: header.ResourceType, ID: header.ID, Body: raw}, nil
}
