// Package backend forwards tool calls to a downstream REST API according to
// declarative routes.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const maxResponseSize = 10 * 1024 * 1024

// Call is a single backend request.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	Token  string
}

// APIError is a non-success backend response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	detail := strings.TrimSpace(e.Body)
	message := struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}{}
	if err := json.Unmarshal([]byte(detail), &message); err == nil {
		for _, candidate := range []string{message.Message, message.Error, message.Detail} {
			if candidate != "" {
				detail = candidate
				break
			}
		}
	}
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("API Error: %d %s", e.Status, detail)
}

// Client calls the backend.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// Do executes call, returning the response body.
func (c *Client) Do(ctx context.Context, call *Call) ([]byte, error) {
	URL := strings.TrimRight(c.config.URL, "/") + "/" + strings.TrimLeft(call.Path, "/")
	if len(call.Query) > 0 {
		URL += "?" + call.Query.Encode()
	}
	var body io.Reader
	if call.Body != nil {
		data, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	request, err := http.NewRequestWithContext(ctx, call.Method, URL, body)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.config.Headers {
		request.Header.Set(key, value)
	}
	if call.Token != "" {
		token := &oauth2.Token{AccessToken: call.Token, TokenType: "Bearer"}
		token.SetAuthHeader(request)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("API Error: %w", err)
	}
	defer response.Body.Close()
	data, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("API Error: failed to read response: %w", err)
	}
	c.logger.Debug().
		Str("method", call.Method).
		Str("path", call.Path).
		Int("status", response.StatusCode).
		Str("subject", Subject(call.Token)).
		Msg("backend_call")
	if response.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{Status: response.StatusCode, Body: string(data)}
	}
	return data, nil
}

// Subject returns the unverified sub (or email) claim of a JWT bearer token for
// audit logging; opaque tokens yield an empty string.
func Subject(token string) string {
	if token == "" {
		return ""
	}
	var claims jwt.MapClaims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return ""
	}
	for _, key := range []string{"sub", "email"} {
		if value, ok := claims[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// NewClient creates a backend client.
func NewClient(config *Config, logger zerolog.Logger) (*Client, error) {
	config.Init()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !*config.SSLValidate {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout, Transport: transport},
		logger:     logger,
	}, nil
}
