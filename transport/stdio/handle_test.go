package stdio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/mcpbroker/session"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("read failure") }

func TestHandle_Receive(t *testing.T) {
	in := strings.NewReader("{\"a\":1}\n\n  {\"b\":2}  \n")
	handle := New(in, &bytes.Buffer{})
	ctx := context.Background()
	data, err := handle.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
	data, err = handle.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(data))
	_, err = handle.Receive(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, handle.Err())
}

func TestHandle_Send(t *testing.T) {
	out := &bytes.Buffer{}
	handle := New(strings.NewReader(""), out)
	require.NoError(t, handle.Send(context.Background(), []byte(`{"x":1}`)))
	assert.Equal(t, "{\"x\":1}\n", out.String())
	require.NoError(t, handle.Close())
	assert.ErrorIs(t, handle.Send(context.Background(), []byte(`{}`)), session.ErrClosed)
	assert.NoError(t, handle.Err())
}

func TestHandle_WriteFailureIsFatal(t *testing.T) {
	handle := New(strings.NewReader(""), failingWriter{})
	err := handle.Send(context.Background(), []byte(`{}`))
	require.Error(t, err)
	<-handle.Done()
	assert.True(t, handle.Session().IsClosed())
	assert.ErrorContains(t, handle.Err(), "broken pipe")
}

func TestHandle_ReadFailureIsFatal(t *testing.T) {
	handle := New(failingReader{}, &bytes.Buffer{})
	_, err := handle.Receive(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "read failure")
	<-handle.Done()
	assert.ErrorContains(t, handle.Err(), "read failure")
}
