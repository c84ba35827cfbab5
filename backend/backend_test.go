package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mcp-protocol/schema"
	"github.com/viant/mcpbroker/tool"
)

type captured struct {
	method        string
	path          string
	query         string
	authorization string
	custom        string
	body          map[string]interface{}
}

func newBackend(t *testing.T, status int, payload string, capture *captured) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capture.method = r.Method
		capture.path = r.URL.Path
		capture.query = r.URL.RawQuery
		capture.authorization = r.Header.Get("Authorization")
		capture.custom = r.Header.Get("X-Client")
		data, _ := io.ReadAll(r.Body)
		capture.body = nil
		if len(data) > 0 {
			_ = json.Unmarshal(data, &capture.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func contentText(t *testing.T, result *schema.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	data, err := json.Marshal(result.Content[0])
	require.NoError(t, err)
	element := struct {
		Text string `json:"text"`
	}{}
	require.NoError(t, json.Unmarshal(data, &element))
	return element.Text
}

func newClient(t *testing.T, URL string) *Client {
	client, err := NewClient(&Config{URL: URL, Headers: map[string]string{"X-Client": "broker"}}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestRoute_Call(t *testing.T) {
	var testCases = []struct {
		description string
		route       *Route
		args        map[string]interface{}
		expectPath  string
		expectQuery string
		expectBody  map[string]interface{}
		expectToken string
		expectErr   bool
	}{
		{
			description: "path and query",
			route:       &Route{Method: "get", Path: "/campaigns/{id}", Query: []string{"limit"}},
			args:        map[string]interface{}{"id": float64(12), "limit": float64(5), "token": "abc"},
			expectPath:  "/campaigns/12",
			expectQuery: "limit=5",
			expectToken: "abc",
		},
		{
			description: "remaining arguments as body",
			route:       &Route{Method: "POST", Path: "/campaigns/{id}/notes", Body: []string{"*"}},
			args:        map[string]interface{}{"id": "a b", "text": "hello", "token": "abc"},
			expectPath:  "/campaigns/a%20b/notes",
			expectBody:  map[string]interface{}{"text": "hello"},
			expectToken: "abc",
		},
		{
			description: "listed body fields",
			route:       &Route{Method: "PATCH", Path: "/items", Body: []string{"name"}},
			args:        map[string]interface{}{"name": "x", "other": 1},
			expectPath:  "/items",
			expectBody:  map[string]interface{}{"name": "x"},
		},
		{
			description: "missing path argument",
			route:       &Route{Path: "/campaigns/{id}"},
			args:        map[string]interface{}{},
			expectErr:   true,
		},
	}

	for _, testCase := range testCases {
		call, err := testCase.route.call(testCase.args, "token")
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectPath, call.Path, testCase.description)
		assert.Equal(t, testCase.expectQuery, call.Query.Encode(), testCase.description)
		assert.Equal(t, testCase.expectToken, call.Token, testCase.description)
		if testCase.expectBody == nil {
			assert.Nil(t, call.Body, testCase.description)
		} else {
			assert.EqualValues(t, testCase.expectBody, call.Body, testCase.description)
		}
	}
}

func TestRoute_Definition(t *testing.T) {
	route := &Route{Name: "get_campaign", Description: "Fetch a campaign", Path: "/c/{id}", InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"id": map[string]interface{}{"type": "integer"}},
		"required":   []interface{}{"id"},
	}}
	definition, err := route.Definition()
	require.NoError(t, err)
	assert.Equal(t, "get_campaign", definition.Name)
	require.NotNil(t, definition.Description)
	assert.Equal(t, "Fetch a campaign", *definition.Description)
	assert.Equal(t, []string{"id"}, definition.InputSchema.Required)
}

func TestClient_Do(t *testing.T) {
	capture := &captured{}
	backend := newBackend(t, http.StatusOK, `{"id":1}`, capture)
	client := newClient(t, backend.URL+"/api/")

	data, err := client.Do(context.Background(), &Call{Method: http.MethodGet, Path: "/campaigns/1", Token: "secret"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(data))
	assert.Equal(t, "/api/campaigns/1", capture.path)
	assert.Equal(t, "Bearer secret", capture.authorization)
	assert.Equal(t, "broker", capture.custom)
}

func TestClient_APIError(t *testing.T) {
	var testCases = []struct {
		description string
		status      int
		payload     string
		expect      string
	}{
		{description: "json message", status: http.StatusNotFound, payload: `{"message":"campaign not found"}`, expect: "API Error: 404 campaign not found"},
		{description: "plain body", status: http.StatusBadGateway, payload: `upstream down`, expect: "API Error: 502 upstream down"},
		{description: "empty body", status: http.StatusForbidden, payload: ``, expect: "API Error: 403 Forbidden"},
	}
	for _, testCase := range testCases {
		backend := newBackend(t, testCase.status, testCase.payload, &captured{})
		client := newClient(t, backend.URL)
		_, err := client.Do(context.Background(), &Call{Method: http.MethodGet, Path: "/x"})
		require.Error(t, err, testCase.description)
		assert.Equal(t, testCase.expect, err.Error(), testCase.description)
	}
}

func TestRegister(t *testing.T) {
	capture := &captured{}
	backend := newBackend(t, http.StatusOK, `{"data":{"name":"spring"},"status":"ok"}`, capture)
	client := newClient(t, backend.URL)
	disabled := false
	registry := tool.NewRegistry()
	err := Register(registry, client, []*Route{
		{Name: "get_campaign", Path: "/campaigns/{id}", Unwrap: "data"},
		{Name: "hidden", Path: "/hidden", Enabled: &disabled},
	})
	require.NoError(t, err)

	_, ok := registry.Lookup("hidden")
	assert.False(t, ok)
	aTool, ok := registry.Lookup("get_campaign")
	require.True(t, ok)

	result, err := aTool.Call(context.Background(), map[string]interface{}{"id": "7"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.JSONEq(t, `{"name":"spring"}`, contentText(t, result))
	assert.Equal(t, "/campaigns/7", capture.path)
}

func TestSubject(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", Subject(token))
	assert.Equal(t, "", Subject("opaque"))
	assert.Equal(t, "", Subject(""))
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{URL: "ftp://host"}).Validate())
	assert.NoError(t, (&Config{URL: "https://host/api"}).Validate())
}
