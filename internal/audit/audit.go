package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by the console.
const (
	ActionLogin          = "login"
	ActionExternalLogin  = "external_login"
	ActionLogout         = "logout"
	ActionAssetCreate    = "asset_create"
	ActionAssetUpdate    = "asset_update"
	ActionAssetDelete    = "asset_delete"
	ActionAlertAck       = "alert_acknowledge"
	ActionAlertResolve   = "alert_resolve"
	ActionUserRoleChange = "user_role_change"
	ActionReportExport   = "report_export"
)

// Entry represents an audit log entry.
type Entry struct {
	ID            string
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	Result        string
	Metadata      json.RawMessage
	PayloadDigest string
	CreatedAt     time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	return "audit-" + uuid.NewString()
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Recorder writes entries best effort: a failing sink is logged and never reaches the caller.
type Recorder struct {
	sink   Logger
	logger *log.Logger
}

// NewRecorder wraps sink. A nil sink makes Record a no-op.
func NewRecorder(sink Logger, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{sink: sink, logger: logger}
}

// Record stamps and writes entry.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.sink == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.PayloadDigest == "" {
		entry.PayloadDigest = DigestJSON(entry.Metadata)
	}
	if err := r.sink.Log(ctx, entry); err != nil {
		r.logger.Printf("audit %s error: %v", entry.Action, err)
	}
}

// LogWriter writes entries to a process logger. Used when no database is configured.
type LogWriter struct {
	logger *log.Logger
}

// NewLogWriter constructs a log-backed audit sink.
func NewLogWriter(logger *log.Logger) *LogWriter {
	if logger == nil {
		logger = log.Default()
	}
	return &LogWriter{logger: logger}
}

// Log prints entry on one line.
func (w *LogWriter) Log(_ context.Context, entry Entry) error {
	w.logger.Printf("audit id=%s actor=%s role=%s action=%s resource=%s/%s result=%s",
		entry.ID, entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID, entry.Result)
	return nil
}
