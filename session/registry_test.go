package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	session *Session
	done    chan struct{}
	once    sync.Once
}

func (f *fakeHandle) Session() *Session                           { return f.session }
func (f *fakeHandle) Receive(ctx context.Context) ([]byte, error) { <-f.done; return nil, ErrClosed }
func (f *fakeHandle) Send(ctx context.Context, data []byte) error { return nil }
func (f *fakeHandle) Done() <-chan struct{}                       { return f.done }
func (f *fakeHandle) Close() error {
	f.once.Do(func() {
		f.session.MarkClosed()
		close(f.done)
	})
	return nil
}

func newFakeHandle(id string) *fakeHandle {
	return &fakeHandle{session: New(id, KindSSE), done: make(chan struct{})}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	first := newFakeHandle("a")
	second := newFakeHandle("a")
	require.NoError(t, registry.Register("a", first))
	assert.ErrorIs(t, registry.Register("a", second), ErrDuplicate)
	actual, ok := registry.Lookup("a")
	require.True(t, ok)
	assert.Same(t, first, actual)
	assert.ErrorIs(t, registry.Register("", second), ErrUnbound)
}

func TestRegistry_Remove(t *testing.T) {
	registry := NewRegistry()
	registry.Remove("missing")
	handle := newFakeHandle("a")
	require.NoError(t, registry.Register("a", handle))
	registry.Remove("a")
	registry.Remove("a")
	_, ok := registry.Lookup("a")
	assert.False(t, ok)
}

func TestRegistry_RemoveIfMatches(t *testing.T) {
	testCases := []struct {
		description string
		registered  *fakeHandle
		removed     *fakeHandle
		expectGone  bool
	}{
		{description: "matching handle", registered: newFakeHandle("a"), expectGone: true},
		{description: "stale handle", registered: newFakeHandle("a"), removed: newFakeHandle("a"), expectGone: false},
	}
	for _, testCase := range testCases {
		registry := NewRegistry()
		require.NoError(t, registry.Register("a", testCase.registered))
		removed := testCase.removed
		if removed == nil {
			removed = testCase.registered
		}
		first := registry.RemoveIfMatches("a", removed)
		second := registry.RemoveIfMatches("a", removed)
		assert.Equal(t, testCase.expectGone, first, testCase.description)
		assert.False(t, second, testCase.description)
		_, ok := registry.Lookup("a")
		assert.Equal(t, !testCase.expectGone, ok, testCase.description)
	}
}

func TestRegistry_LookupHidesClosed(t *testing.T) {
	registry := NewRegistry()
	handle := newFakeHandle("a")
	require.NoError(t, registry.Register("a", handle))
	require.NoError(t, handle.Close())
	_, ok := registry.Lookup("a")
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_StaleRemovalKeepsNewEntry(t *testing.T) {
	registry := NewRegistry()
	old := newFakeHandle("a")
	require.NoError(t, registry.Register("a", old))
	registry.Remove("a")
	replacement := newFakeHandle("a")
	require.NoError(t, registry.Register("a", replacement))
	assert.False(t, registry.RemoveIfMatches("a", old))
	actual, ok := registry.Lookup("a")
	require.True(t, ok)
	assert.Same(t, replacement, actual)
}

func TestRegistry_Concurrent(t *testing.T) {
	registry := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%8)
			handle := newFakeHandle(id)
			if err := registry.Register(id, handle); err != nil {
				return
			}
			_, _ = registry.Lookup(id)
			assert.True(t, registry.RemoveIfMatches(id, handle))
			if actual, ok := registry.Lookup(id); ok {
				assert.NotSame(t, handle, actual)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, registry.Len())
}

func TestRegistry_Idle(t *testing.T) {
	registry := NewRegistry()
	handle := newFakeHandle("a")
	require.NoError(t, registry.Register("a", handle))
	assert.Empty(t, registry.Idle(time.Now().Add(-time.Hour)))
	assert.Len(t, registry.Idle(time.Now().Add(time.Second)), 1)
}

func TestLatest(t *testing.T) {
	latest := &Latest{}
	_, ok := latest.Get()
	assert.False(t, ok)
	a, b := newFakeHandle("a"), newFakeHandle("b")
	latest.Set(a)
	latest.Set(b)
	assert.False(t, latest.ClearIf(a))
	actual, ok := latest.Get()
	require.True(t, ok)
	assert.Same(t, b, actual)
	require.NoError(t, b.Close())
	_, ok = latest.Get()
	assert.False(t, ok)
	assert.True(t, latest.ClearIf(b))
}

func TestSession_Bind(t *testing.T) {
	aSession := New("", KindStreamable)
	assert.Equal(t, "", aSession.ID())
	require.NoError(t, aSession.Bind("u1"))
	assert.Error(t, aSession.Bind("u2"))
	assert.Equal(t, "u1", aSession.ID())
	assert.True(t, aSession.MarkClosed())
	assert.False(t, aSession.MarkClosed())
}

type postOnly struct{}

func (postOnly) ServePost(w http.ResponseWriter, r *http.Request) {}

func TestOperations(t *testing.T) {
	assert.Equal(t, []string{"ServePost"}, Operations(postOnly{}))
	assert.Equal(t, []string{"Close", "Receive", "Send"}, Operations(newFakeHandle("a")))
	assert.Empty(t, Operations(struct{}{}))
}

func TestIDFromRequest(t *testing.T) {
	testCases := []struct {
		description string
		header      string
		url         string
		expect      string
	}{
		{description: "canonical", header: "Mcp-Session-Id", url: "/mcp", expect: "a"},
		{description: "upper", header: "MCP-Session-Id", url: "/mcp", expect: "a"},
		{description: "lower", header: "mcp-session-id", url: "/mcp", expect: "a"},
		{description: "x prefixed", header: "X-Mcp-Session-Id", url: "/mcp", expect: "a"},
		{description: "query", url: "/mcp?sessionId=a", expect: "a"},
		{description: "absent", url: "/mcp", expect: ""},
	}
	for _, testCase := range testCases {
		request, err := http.NewRequest(http.MethodGet, testCase.url, nil)
		require.NoError(t, err)
		if testCase.header != "" {
			request.Header.Set(testCase.header, "a")
		}
		assert.Equal(t, testCase.expect, IDFromRequest(request), testCase.description)
	}
}
