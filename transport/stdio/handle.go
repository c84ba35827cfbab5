// Package stdio implements the pipe transport: newline delimited JSON-RPC
// messages over a single reader/writer pair, usually the process stdin/stdout.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/viant/mcpbroker/session"
)

const maxMessageSize = 10 * 1024 * 1024

// Handle is the single session carried by a pipe.
type Handle struct {
	session *session.Session
	out     io.Writer
	wmux    sync.Mutex
	lines   chan []byte
	eof     chan struct{}
	done    chan struct{}
	once    sync.Once
	errMux  sync.Mutex
	err     error
}

func (h *Handle) Session() *session.Session {
	return h.session
}

func (h *Handle) read(in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		data := append([]byte(nil), line...)
		select {
		case h.lines <- data:
		case <-h.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		h.fail(fmt.Errorf("stdio read: %w", err))
		return
	}
	close(h.eof)
}

// Receive returns the next line; io.EOF once input is exhausted.
func (h *Handle) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-h.lines:
		return data, nil
	case <-h.eof:
		return nil, io.EOF
	case <-h.done:
		if err := h.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send writes data followed by a newline. A write failure is fatal for the pipe.
func (h *Handle) Send(_ context.Context, data []byte) error {
	h.wmux.Lock()
	defer h.wmux.Unlock()
	if h.session.IsClosed() {
		return session.ErrClosed
	}
	payload := make([]byte, 0, len(data)+1)
	payload = append(payload, data...)
	payload = append(payload, '\n')
	if _, err := h.out.Write(payload); err != nil {
		err = fmt.Errorf("stdio write: %w", err)
		h.fail(err)
		return err
	}
	return nil
}

func (h *Handle) fail(err error) {
	h.errMux.Lock()
	if h.err == nil {
		h.err = err
	}
	h.errMux.Unlock()
	_ = h.Close()
}

// Err returns the pipe failure, nil after a clean EOF or Close.
func (h *Handle) Err() error {
	h.errMux.Lock()
	defer h.errMux.Unlock()
	return h.err
}

func (h *Handle) Close() error {
	h.once.Do(func() {
		h.session.MarkClosed()
		close(h.done)
	})
	return nil
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// New creates a pipe handle and starts reading in.
func New(in io.Reader, out io.Writer) *Handle {
	ret := &Handle{
		session: session.New(string(session.KindStdio), session.KindStdio),
		out:     out,
		lines:   make(chan []byte),
		eof:     make(chan struct{}),
		done:    make(chan struct{}),
	}
	go ret.read(in)
	return ret
}
