package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcpbroker/session"
)

// echoHandler is a minimal protocol engine used to exercise the broker.
type echoHandler struct {
	transport transport.Transport
}

func (h *echoHandler) Serve(ctx context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	switch request.Method {
	case "initialize":
		if strings.Contains(string(request.Params), "reject") {
			response.Error = jsonrpc.NewInvalidParamsError("unsupported client", nil)
			return
		}
		response.Result = json.RawMessage(`{"protocolVersion":"2025-03-26","serverInfo":{"name":"echo","version":"1"}}`)
	case "echo":
		response.Result = request.Params
	case "ask":
		reply, err := h.transport.Send(ctx, &jsonrpc.Request{Method: "roots/list"})
		if err != nil {
			response.Error = jsonrpc.NewInternalError(err.Error(), nil)
			return
		}
		response.Result = reply.Result
	default:
		response.Error = jsonrpc.NewMethodNotFound(request.Method, nil)
	}
}

func (h *echoHandler) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {}

func newEchoHandler(ctx context.Context, aTransport transport.Transport) transport.Handler {
	return &echoHandler{transport: aTransport}
}

// sequence returns a generator yielding the given ids, then uuid-like fallbacks.
func sequence(ids ...string) func() string {
	var mux sync.Mutex
	var i int
	return func() string {
		mux.Lock()
		defer mux.Unlock()
		i++
		if i <= len(ids) {
			return ids[i-1]
		}
		return fmt.Sprintf("gen-%d", i)
	}
}

func newTestServer(t *testing.T, options ...Option) (*Server, *httptest.Server) {
	options = append([]Option{WithNewHandler(newEchoHandler), WithKeepalive(0)}, options...)
	srv, err := New(options...)
	require.NoError(t, err)
	ts := httptest.NewUnstartedServer(nil)
	ts.Config = srv.HTTP(context.Background(), "")
	ts.Start()
	t.Cleanup(func() {
		_ = srv.Close()
		ts.Close()
	})
	return srv, ts
}

type event struct {
	name string
	data string
}

// eventReader reads server-sent events from a streaming response.
type eventReader struct {
	events chan event
}

func newEventReader(response *http.Response) *eventReader {
	ret := &eventReader{events: make(chan event, 16)}
	go func() {
		defer close(ret.events)
		reader := bufio.NewReader(response.Body)
		current := event{}
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				if current.name != "" || current.data != "" {
					ret.events <- current
				}
				current = event{}
			case strings.HasPrefix(line, "event: "):
				current.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				current.data = strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	return ret
}

func (e *eventReader) next(t *testing.T) event {
	t.Helper()
	select {
	case ev, ok := <-e.events:
		require.True(t, ok, "stream ended")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return event{}
}

type stubHandle struct {
	session *session.Session
	done    chan struct{}
	once    sync.Once
	closes  atomic.Int32
}

func (h *stubHandle) Session() *session.Session { return h.session }
func (h *stubHandle) Receive(ctx context.Context) ([]byte, error) {
	<-h.done
	return nil, session.ErrClosed
}
func (h *stubHandle) Send(ctx context.Context, data []byte) error { return nil }
func (h *stubHandle) ServePost(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusAccepted)
}
func (h *stubHandle) Done() <-chan struct{} { return h.done }
func (h *stubHandle) Close() error {
	h.closes.Add(1)
	h.once.Do(func() {
		h.session.MarkClosed()
		close(h.done)
	})
	return fmt.Errorf("close failed")
}

func newStubHandle(id string) *stubHandle {
	return &stubHandle{session: session.New(id, session.KindStreamable), done: make(chan struct{})}
}

func TestNew(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
	_, err = New(WithNewHandler(newEchoHandler), WithSessionIDGenerator(nil))
	assert.Error(t, err)
	srv, err := New(WithNewHandler(newEchoHandler))
	require.NoError(t, err)
	assert.NotNil(t, srv.Streams())
	assert.NotNil(t, srv.Pushes())
	assert.False(t, srv.UseTLS())
}

func TestServer_Expire(t *testing.T) {
	srv, err := New(WithNewHandler(newEchoHandler))
	require.NoError(t, err)
	handle := newStubHandle("idle")
	require.NoError(t, srv.Streams().Register("idle", handle))
	assert.Equal(t, 0, srv.expire(time.Now().Add(-time.Hour)))
	assert.Equal(t, 1, srv.expire(time.Now().Add(time.Second)))
	assert.True(t, handle.session.IsClosed())
	assert.Equal(t, 0, srv.Streams().Len())
}

func TestServer_Close(t *testing.T) {
	srv, err := New(WithNewHandler(newEchoHandler))
	require.NoError(t, err)
	stream, push := newStubHandle("a"), newStubHandle("b")
	require.NoError(t, srv.Streams().Register("a", stream))
	require.NoError(t, srv.Pushes().Register("b", push))
	require.NoError(t, srv.Close())
	assert.True(t, stream.session.IsClosed())
	assert.True(t, push.session.IsClosed())
	assert.Equal(t, 0, srv.Streams().Len()+srv.Pushes().Len())
}

func TestMiddleware(t *testing.T) {
	_, ts := newTestServer(t)
	testCases := []struct {
		description  string
		method       string
		path         string
		header       map[string]string
		expectStatus int
		expectHeader map[string]string
	}{
		{
			description:  "health",
			method:       http.MethodGet,
			path:         "/health",
			expectStatus: http.StatusOK,
			expectHeader: map[string]string{"X-Content-Type-Options": "nosniff", "X-Frame-Options": "DENY", "Cache-Control": "no-store"},
		},
		{
			description:  "unsupported protocol version",
			method:       http.MethodPost,
			path:         "/mcp",
			header:       map[string]string{HeaderProtocolVersion: "1999-01-01"},
			expectStatus: http.StatusBadRequest,
		},
		{
			description:  "preflight",
			method:       http.MethodOptions,
			path:         "/mcp",
			header:       map[string]string{"Origin": "http://localhost:3000", AllControlRequestHeader: "DELETE"},
			expectStatus: http.StatusNoContent,
			expectHeader: map[string]string{AllowOriginHeader: "http://localhost:3000", AllowMethodsHeader: "DELETE", HeaderProtocolVersion: "2025-06-18"},
		},
	}
	for _, testCase := range testCases {
		request, err := http.NewRequest(testCase.method, ts.URL+testCase.path, nil)
		require.NoError(t, err)
		for k, v := range testCase.header {
			request.Header.Set(k, v)
		}
		response, err := http.DefaultClient.Do(request)
		require.NoError(t, err, testCase.description)
		_ = response.Body.Close()
		assert.Equal(t, testCase.expectStatus, response.StatusCode, testCase.description)
		for k, v := range testCase.expectHeader {
			if k == HeaderProtocolVersion {
				assert.NotEmpty(t, response.Header.Get(k), testCase.description)
				continue
			}
			assert.Equal(t, v, response.Header.Get(k), testCase.description+" "+k)
		}
	}
}

func TestOriginValidation(t *testing.T) {
	_, ts := newTestServer(t, WithCORS(&Cors{AllowOrigins: []string{"http://allowed"}}))
	var testCases = []struct {
		description string
		origin      string
		expect      int
	}{
		{description: "no origin", expect: http.StatusOK},
		{description: "allowed", origin: "http://allowed", expect: http.StatusOK},
		{description: "allowed with trailing slash", origin: "HTTP://Allowed/", expect: http.StatusOK},
		{description: "unknown", origin: "http://evil", expect: http.StatusForbidden},
	}
	for _, testCase := range testCases {
		request, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
		require.NoError(t, err)
		if testCase.origin != "" {
			request.Header.Set("Origin", testCase.origin)
		}
		response, err := http.DefaultClient.Do(request)
		require.NoError(t, err)
		_ = response.Body.Close()
		assert.Equal(t, testCase.expect, response.StatusCode, testCase.description)
	}
}

func TestCorsHandler(t *testing.T) {
	maxAge := int64(600)
	var testCases = []struct {
		description string
		cors        *Cors
		method      string
		origin      string
		expect      map[string]string
	}{
		{
			description: "listed origin",
			cors:        &Cors{AllowOrigins: []string{"https://app.example.com/"}, AllowMethods: []string{"GET", "POST"}, MaxAge: &maxAge},
			method:      http.MethodGet,
			origin:      "https://APP.example.com",
			expect:      map[string]string{AllowOriginHeader: "https://APP.example.com", AllowMethodsHeader: "GET, POST", MaxAgeHeader: "600", "Vary": "Origin"},
		},
		{
			description: "unlisted origin",
			cors:        &Cors{AllowOrigins: []string{"https://app.example.com"}},
			method:      http.MethodGet,
			origin:      "https://other.example.com",
			expect:      map[string]string{AllowOriginHeader: ""},
		},
		{
			description: "wildcard expands session headers",
			cors:        defaultCors(),
			method:      http.MethodGet,
			expect:      map[string]string{AllowOriginHeader: "*", ExposeHeadersHeader: defaultExposeHeaders, AllowHeadersHeader: defaultAllowHeaders, AllowCredentialsHeader: "true"},
		},
	}
	for _, testCase := range testCases {
		request := httptest.NewRequest(testCase.method, "/mcp", nil)
		if testCase.origin != "" {
			request.Header.Set("Origin", testCase.origin)
		}
		recorder := httptest.NewRecorder()
		newCorsHandler(testCase.cors).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(recorder, request)
		for key, value := range testCase.expect {
			assert.Equal(t, value, recorder.Header().Get(key), testCase.description+" "+key)
		}
	}
}
