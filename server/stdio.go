package server

import (
	"context"
	"io"

	"github.com/viant/mcpbroker/transport/stdio"
)

// ServeStdio runs the single pipe session on in/out until input ends, the pipe
// fails or ctx is done. It returns nil on a clean end and the pipe error otherwise;
// the pipe is always closed before returning.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	handle := stdio.New(in, out)
	finished := s.attach(handle)
	s.logger.Info().Str("kind", string(handle.Session().Kind)).Msg("session opened")
	select {
	case <-ctx.Done():
	case <-finished:
	}
	_ = handle.Close()
	err := handle.Err()
	if err != nil {
		s.logger.Error().Err(err).Msg("pipe failed")
	} else {
		s.logger.Info().Str("kind", string(handle.Session().Kind)).Msg("session closed")
	}
	return err
}
