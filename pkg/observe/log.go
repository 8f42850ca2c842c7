package observe

import (
	log "github.com/sirupsen/logrus"
)

// LogSink writes events to a logrus logger. Failures are logged at warn
// level, routine traffic at debug level, and state changes at info level.
type LogSink struct {
	Logger *log.Logger
}

// Observe logs e.
func (s LogSink) Observe(e Event) {
	logger := s.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	fields := log.Fields{"kind": e.Kind}
	if e.DocID != "" {
		fields["doc"] = e.DocID
	}
	if e.Generation != 0 {
		fields["generation"] = e.Generation
	}
	if e.State != "" {
		fields["state"] = e.State
	}
	if e.Version != nil {
		fields["version"] = *e.Version
	}
	if e.Op != "" {
		fields["op"] = e.Op
	}
	if e.Reason != "" {
		fields["reason"] = e.Reason
	}
	if e.Detail != "" {
		fields["detail"] = e.Detail
	}
	entry := logger.WithFields(fields)
	if e.Error != "" {
		entry = entry.WithField("error", e.Error)
	}

	switch e.Kind {
	case KindNack, KindTransportError, KindEditDropped, KindCreateFailed:
		entry.Warn("Session event")
	case KindStateChanged, KindSnapshot, KindResync:
		entry.Info("Session event")
	default:
		entry.Debug("Session event")
	}
}
