package connection

import (
	"context"
)

// heartbeat sends an application ping every PingInterval until ctx ends.
// A failed send is logged and reported, and ends the heartbeat only; the
// read loop keeps running.
func (s *Session) heartbeat(ctx context.Context) error {
	tick, stop := s.ticker(s.cfg.PingInterval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			ping := NewPing(s.now())
			if err := s.send(ctx, ping); err != nil {
				if ctx.Err() != nil {
					return nil
				}

				s.logger.Warn("heartbeat ping failed, stopping heartbeat", "id", ping.ID, "error", err)
				s.metrics.HeartbeatFailed()

				if s.failures != nil {
					select {
					case s.failures <- HeartbeatFailure{SessionID: s.id, At: s.now(), Err: err}:
					default:
						s.logger.Warn("heartbeat failure report dropped")
					}
				}
				return nil
			}
			s.logger.Debug("heartbeat ping sent", "id", ping.ID)
		}
	}
}
