package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmcleod/keygate/internal/util"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditAuthSuccess     AuditEvent = "auth_success"
	AuditAuthRejected    AuditEvent = "auth_rejected"
	AuditLicenseValid    AuditEvent = "license_valid"
	AuditLicenseInvalid  AuditEvent = "license_invalid"
	AuditLicenseDegraded AuditEvent = "license_degraded"
	AuditLogout          AuditEvent = "logout"
	AuditUserAdded       AuditEvent = "user_added"
	AuditUserDisabled    AuditEvent = "user_disabled"
	AuditUsersListed     AuditEvent = "users_listed"
	AuditAdminRejected   AuditEvent = "admin_rejected"
	AuditKeyRejected     AuditEvent = "api_key_rejected"
	AuditThrottled       AuditEvent = "request_throttled"
)

// auditLogger wraps slog.Logger for structured security audit logging.
// Credentials and session tokens only ever appear as blake2b fingerprints.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("event_id", uuid.NewString()),
		slog.String("remote_addr", r.RemoteAddr),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
}

// credential logs an event attributed to a credential fingerprint.
func (al *auditLogger) credential(event AuditEvent, r *http.Request, credential string, extra ...slog.Attr) {
	attrs := append([]slog.Attr{
		slog.String("credential_fp", util.Fingerprint(credential)),
	}, extra...)
	al.log(event, r, attrs...)
}

// session logs an event attributed to a session token fingerprint.
func (al *auditLogger) session(event AuditEvent, r *http.Request, token string, extra ...slog.Attr) {
	attrs := append([]slog.Attr{
		slog.String("session_fp", util.Fingerprint(token)),
	}, extra...)
	al.log(event, r, attrs...)
}

func (al *auditLogger) keyRejected(r *http.Request) {
	al.log(AuditKeyRejected, r)
}

func (al *auditLogger) throttled(r *http.Request) {
	al.log(AuditThrottled, r)
}

// degraded records a suppressed storage failure from the fail-open
// revalidation path at error level so operators see it even though the
// client did not.
func (al *auditLogger) degraded(r *http.Request, err error) {
	al.logger.ErrorContext(r.Context(), "audit",
		"event", string(AuditLicenseDegraded),
		"event_id", uuid.NewString(),
		"remote_addr", r.RemoteAddr,
		"error", err.Error(),
	)
}
