package api

import (
	"errors"
	"net/http"

	"github.com/jmcleod/keygate/license"
)

// AddUser creates a new credential. Requires an admin credential in the body.
func (a *API) AddUser(w http.ResponseWriter, r *http.Request) {
	var req AddUserRequest
	if !decode(w, r, &req) {
		return
	}

	summary, err := a.engine.AddAccount(req.AdminPassword, req.NewUser.Username, req.NewUser.Role, req.NewUser.ExpiryDays)
	if err != nil {
		a.auditAdminFailure(r, req.AdminPassword, err)
		a.metrics.observe("add_user", outcomeLabel(err))
		mapAdminError(w, err)
		return
	}

	a.audit.credential(AuditUserAdded, r, req.AdminPassword)
	a.metrics.observe("add_user", "ok")
	writeJSON(w, http.StatusOK, AddUserResponse{
		Success: true,
		Message: "user added successfully",
		User: &UserSummary{
			Username:   summary.Credential,
			Role:       summary.Role,
			ExpiryDays: summary.ExpiryDays,
			Active:     summary.Active,
			CreatedAt:  summary.CreatedAt,
		},
	})
}

// DisableUser deactivates a credential and revokes its outstanding sessions.
func (a *API) DisableUser(w http.ResponseWriter, r *http.Request) {
	var req DisableUserRequest
	if !decode(w, r, &req) {
		return
	}

	if err := a.engine.DisableAccount(req.AdminPassword, req.Username); err != nil {
		a.auditAdminFailure(r, req.AdminPassword, err)
		a.metrics.observe("disable_user", outcomeLabel(err))
		mapAdminError(w, err)
		return
	}

	a.audit.credential(AuditUserDisabled, r, req.AdminPassword)
	a.metrics.observe("disable_user", "ok")
	writeJSON(w, http.StatusOK, AdminResponse{Success: true, Message: "user disabled successfully"})
}

// ListUsers returns every account visible to an admin.
func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	var req ListUsersRequest
	if !decode(w, r, &req) {
		return
	}

	accounts, err := a.engine.ListAccounts(req.AdminPassword)
	if err != nil {
		a.auditAdminFailure(r, req.AdminPassword, err)
		a.metrics.observe("list_users", outcomeLabel(err))
		mapAdminError(w, err)
		return
	}

	users := make([]UserSummary, 0, len(accounts))
	for _, acct := range accounts {
		users = append(users, UserSummary{
			Username:   acct.Credential,
			Role:       acct.Role,
			ExpiryDays: acct.ExpiryDays,
			Active:     acct.Active,
			CreatedAt:  acct.CreatedAt,
			LastLogin:  acct.LastLogin,
		})
	}

	a.audit.credential(AuditUsersListed, r, req.AdminPassword)
	a.metrics.observe("list_users", "ok")
	writeJSON(w, http.StatusOK, ListUsersResponse{Success: true, Users: users})
}

func (a *API) auditAdminFailure(r *http.Request, admin string, err error) {
	if errors.Is(err, license.ErrUnauthorized) {
		a.audit.credential(AuditAdminRejected, r, admin)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, license.ErrMissingParameter):
		return "missing_parameter"
	case errors.Is(err, license.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, license.ErrConflict):
		return "conflict"
	case errors.Is(err, license.ErrNotFound):
		return "not_found"
	case errors.Is(err, license.ErrProtectedRole):
		return "protected_role"
	default:
		return "error"
	}
}
