package live

import (
	dtsync "github.com/denttrack/denttrack/internal/sync"
	"go.uber.org/zap"
)

// OnChange broadcasts the current collections for ch. Register it with
// the coordinator's Subscribe.
func (s *Server) OnChange(ch dtsync.Change) {
	msg, err := s.snapshotMessage(MessageTypeCollections, ch)
	if err != nil {
		s.logger.Error("failed to build collections message", zap.Error(err))
		return
	}
	s.Broadcast(msg)
}
