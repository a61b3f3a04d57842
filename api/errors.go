package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/keygate/license"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// mapAdminError translates engine errors for the admin endpoints. Internal
// failures collapse to a generic message; these endpoints fail closed.
func mapAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, license.ErrMissingParameter):
		writeJSON(w, http.StatusBadRequest, AdminResponse{Message: "missing required fields"})
	case errors.Is(err, license.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, AdminResponse{Message: "permission denied"})
	case errors.Is(err, license.ErrConflict):
		writeJSON(w, http.StatusConflict, AdminResponse{Message: "user already exists"})
	case errors.Is(err, license.ErrNotFound):
		writeJSON(w, http.StatusNotFound, AdminResponse{Message: "user not found"})
	case errors.Is(err, license.ErrProtectedRole):
		writeJSON(w, http.StatusForbidden, AdminResponse{Message: "cannot disable an admin account"})
	default:
		writeJSON(w, http.StatusInternalServerError, AdminResponse{Message: "server error"})
	}
}
