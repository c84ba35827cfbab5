package sse

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
)

// Content types and headers used on event streams.
const (
	ContentTypeEventStream = "text/event-stream"
	ContentTypeJSON        = "application/json"
	headerContentType      = "Content-Type"
)

// EventMessage is the event name carrying JSON-RPC payloads.
const EventMessage = "message"

// Writer writes server-sent events to an HTTP response.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mux     sync.Mutex
	eventID int64
}

// NewWriter wraps w; w must support flushing.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}
	return &Writer{w: w, flusher: flusher}, nil
}

// WriteHeaders sets stream headers and flushes them to the client.
func (s *Writer) WriteHeaders() {
	header := s.w.Header()
	header.Set(headerContentType, ContentTypeEventStream)
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

// WriteEvent writes one event; multi-line data is split into data lines.
func (s *Writer) WriteEvent(event string, data []byte) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.eventID++
	buf := bytes.Buffer{}
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatInt(s.eventID, 10))
	buf.WriteByte('\n')
	if event != "" {
		buf.WriteString("event: ")
		buf.WriteString(event)
		buf.WriteByte('\n')
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteComment writes a comment line, used for keepalive.
func (s *Writer) WriteComment(comment string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", comment); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
