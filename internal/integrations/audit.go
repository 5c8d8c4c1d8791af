package integrations

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"buildledger/internal/logging"
)

// LogAuditSink writes one structured line per audit entry to a dedicated log.
type LogAuditSink struct {
	log *logrus.Logger
}

// NewLogAuditSink writes to a rotating file at path, or to stdout when path is empty.
func NewLogAuditSink(path string) *LogAuditSink {
	var out io.Writer = logging.Logger.Out
	if path != "" {
		out = logging.RotatingFile(path)
	}
	return NewWriterAuditSink(out)
}

func NewWriterAuditSink(out io.Writer) *LogAuditSink {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	return &LogAuditSink{log: l}
}

func (s *LogAuditSink) CreateAuditLog(_ context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	fields := logrus.Fields{
		"user_id":     e.UserID,
		"action":      e.Action,
		"entity_type": e.EntityType,
		"entity_id":   e.EntityID,
		"project_id":  e.ProjectID,
	}
	if len(e.Changes) > 0 {
		fields["changes"] = e.Changes
	}
	s.log.WithFields(fields).WithTime(e.At).Info("audit")
	return nil
}
