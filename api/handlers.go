package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmcleod/keygate/license"
)

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, RejectionResponse{Message: "malformed request body"})
		return false
	}
	return true
}

// ValidatePassword authenticates a credential and mints a session token.
// Unlike check-license this endpoint fails closed: storage trouble is a hard
// error and no session is issued.
func (a *API) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decode(w, r, &req) {
		return
	}

	grant, err := a.engine.Authenticate(req.Password, req.Tool)
	switch {
	case errors.Is(err, license.ErrMissingParameter):
		a.metrics.observe("validate", "missing_parameter")
		writeJSON(w, http.StatusBadRequest, ValidateResponse{Message: "missing password"})
	case errors.Is(err, license.ErrUnknownCredential):
		a.audit.credential(AuditAuthRejected, r, req.Password)
		a.metrics.observe("validate", "unknown_credential")
		writeJSON(w, http.StatusUnauthorized, ValidateResponse{Message: "invalid password"})
	case errors.Is(err, license.ErrAccountDisabled):
		a.audit.credential(AuditAuthRejected, r, req.Password)
		a.metrics.observe("validate", "account_disabled")
		writeJSON(w, http.StatusForbidden, ValidateResponse{Message: "account has been disabled"})
	case err != nil:
		a.metrics.observe("validate", "error")
		writeJSON(w, http.StatusInternalServerError, ValidateResponse{Message: "server error"})
	default:
		a.audit.credential(AuditAuthSuccess, r, req.Password)
		a.metrics.observe("validate", "ok")
		writeJSON(w, http.StatusOK, ValidateResponse{
			Valid:      true,
			Message:    fmt.Sprintf("Welcome! Your %s account is active.", grant.Role),
			ExpiryDays: grant.ExpiryDays,
			SessionID:  grant.SessionToken,
		})
	}
}

// CheckLicense revalidates a session token. Every outcome is delivered with
// status 200 so client tools can degrade gracefully instead of aborting, and
// a storage failure reports the license as valid with a degraded message.
func (a *API) CheckLicense(w http.ResponseWriter, r *http.Request) {
	var req CheckLicenseRequest
	if !decode(w, r, &req) {
		return
	}

	status, suppressed := a.engine.Revalidate(req.SessionID)
	if suppressed != nil {
		a.audit.degraded(r, suppressed)
		a.metrics.observe("check_license", "degraded")
		writeJSON(w, http.StatusOK, CheckLicenseResponse{
			Valid:   true,
			Message: "License check temporarily degraded. Continuing with limited validation.",
		})
		return
	}

	if !status.Valid {
		a.audit.session(AuditLicenseInvalid, r, req.SessionID)
		a.metrics.observe("check_license", "invalid")
		writeJSON(w, http.StatusOK, CheckLicenseResponse{
			Message: invalidLicenseMessage(status.Reason),
		})
		return
	}

	a.audit.session(AuditLicenseValid, r, req.SessionID)
	a.metrics.observe("check_license", "ok")
	writeJSON(w, http.StatusOK, CheckLicenseResponse{
		Valid:         true,
		Message:       fmt.Sprintf("License valid. Expires in %d days.", status.DaysRemaining),
		Role:          status.Role,
		ExpiresAt:     status.ExpiresAt,
		DaysRemaining: status.DaysRemaining,
	})
}

func invalidLicenseMessage(reason string) string {
	switch reason {
	case license.ReasonLicenseExpired:
		return "Your license has expired. Please renew."
	case license.ReasonAccountDisabled:
		return "Your account has been disabled."
	default:
		return "Session expired or invalid. Please log in again."
	}
}

// Logout discards a session token. Unknown tokens still succeed.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	var req CheckLicenseRequest
	if !decode(w, r, &req) {
		return
	}

	err := a.engine.Logout(req.SessionID)
	switch {
	case errors.Is(err, license.ErrMissingParameter):
		a.metrics.observe("logout", "missing_parameter")
		writeJSON(w, http.StatusBadRequest, AdminResponse{Message: "missing session ID"})
	case err != nil:
		a.metrics.observe("logout", "error")
		writeJSON(w, http.StatusInternalServerError, AdminResponse{Message: "server error"})
	default:
		a.audit.session(AuditLogout, r, req.SessionID)
		a.metrics.observe("logout", "ok")
		writeJSON(w, http.StatusOK, AdminResponse{Success: true, Message: "logged out"})
	}
}

// Status reports service health. It sits outside the throttle and API-key
// check so monitors can probe it freely.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "online",
		Timestamp: time.Now().UnixMilli(),
		Version:   a.version,
	})
}
