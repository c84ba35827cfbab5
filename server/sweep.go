package server

import (
	"context"
	"time"

	"github.com/viant/mcpbroker/session"
)

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if expired := s.expire(now.Add(-s.idleTimeout)); expired > 0 {
				s.logger.Info().Int("expired", expired).Msg("idle sessions closed")
			}
		}
	}
}

// expire releases sessions whose last activity is before cutoff.
func (s *Server) expire(cutoff time.Time) int {
	count := 0
	for _, registry := range []*session.Registry{s.streams, s.pushes} {
		for _, handle := range registry.Idle(cutoff) {
			s.release(registry, handle.Session().ID(), handle, "idle")
			count++
		}
	}
	return count
}
