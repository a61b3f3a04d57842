package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/keygate/api"
	"github.com/jmcleod/keygate/license"
	"github.com/jmcleod/keygate/storage"
	"github.com/jmcleod/keygate/storage/memory"
)

const testAPIKey = "test-api-key"

func setupServer(t *testing.T, opts ...api.Option) (*httptest.Server, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	require.NoError(t, repo.PutAccount("root-secret", &storage.Account{
		Role: license.RoleAdmin, ExpiryDays: 365, Active: true, CreatedAt: 1,
	}))
	require.NoError(t, repo.PutAccount("demo", &storage.Account{
		Role: "demo", ExpiryDays: 1, Active: true, CreatedAt: 1,
	}))
	require.NoError(t, repo.PutAccount("locked-out", &storage.Account{
		Role: "user", ExpiryDays: 30, Active: false, CreatedAt: 1,
	}))

	engine := license.NewEngine(repo)
	opts = append([]api.Option{
		api.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		api.WithThrottleInterval(time.Nanosecond),
	}, opts...)
	a := api.New(engine, testAPIKey, opts...)
	srv := httptest.NewServer(a.Router())
	t.Cleanup(func() {
		srv.Close()
		a.Close()
	})
	return srv, repo
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status api.StatusResponse
	decodeInto(t, resp, &status)
	assert.Equal(t, "online", status.Status)
	assert.NotZero(t, status.Timestamp)
	assert.NotEmpty(t, status.Version)
}

func TestValidateAndCheckLicenseFlow(t *testing.T) {
	srv, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
		APIKey: testAPIKey, Password: "demo", Tool: "toolX",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var grant api.ValidateResponse
	decodeInto(t, resp, &grant)
	require.True(t, grant.Valid)
	assert.Equal(t, 1, grant.ExpiryDays)
	require.NotEmpty(t, grant.SessionID)

	resp = postJSON(t, srv.URL+"/validate-password/check-license", api.CheckLicenseRequest{
		APIKey: testAPIKey, SessionID: grant.SessionID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var check api.CheckLicenseResponse
	decodeInto(t, resp, &check)
	require.True(t, check.Valid)
	assert.Equal(t, "demo", check.Role)
	assert.Equal(t, 1, check.DaysRemaining)
	assert.NotZero(t, check.ExpiresAt)

	// Logout, then the same token is a soft failure.
	resp = postJSON(t, srv.URL+"/validate-password/logout", api.CheckLicenseRequest{
		APIKey: testAPIKey, SessionID: grant.SessionID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/validate-password/check-license", api.CheckLicenseRequest{
		APIKey: testAPIKey, SessionID: grant.SessionID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "check-license is always a soft 200")
	decodeInto(t, resp, &check)
	assert.False(t, check.Valid)
}

func TestValidatePasswordRejections(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("WrongAPIKey", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
			APIKey: "not-the-key", Password: "demo",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("MissingAPIKey", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
			Password: "demo",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("UnknownCredential", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
			APIKey: testAPIKey, Password: "nobody",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body api.ValidateResponse
		decodeInto(t, resp, &body)
		assert.False(t, body.Valid)
		assert.Empty(t, body.SessionID)
	})

	t.Run("DisabledAccount", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
			APIKey: testAPIKey, Password: "locked-out",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("MissingPassword", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
			APIKey: testAPIKey,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCheckLicenseUnknownToken(t *testing.T) {
	srv, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/validate-password/check-license", api.CheckLicenseRequest{
		APIKey: testAPIKey, SessionID: "deadbeefdeadbeefdeadbeefdeadbeef",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var check api.CheckLicenseResponse
	decodeInto(t, resp, &check)
	assert.False(t, check.Valid)
	assert.Contains(t, check.Message, "log in again")
}

func TestAdminEndpoints(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("AddUser", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/admin/add-user", api.AddUserRequest{
			APIKey: testAPIKey, AdminPassword: "root-secret",
			NewUser: api.NewUser{Username: "fresh-key", Role: "user", ExpiryDays: 30},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body api.AddUserResponse
		decodeInto(t, resp, &body)
		require.True(t, body.Success)
		require.NotNil(t, body.User)
		assert.Equal(t, "fresh-key", body.User.Username)
		assert.Equal(t, 30, body.User.ExpiryDays)
	})

	t.Run("AddUserConflict", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/admin/add-user", api.AddUserRequest{
			APIKey: testAPIKey, AdminPassword: "root-secret",
			NewUser: api.NewUser{Username: "fresh-key", Role: "demo"},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("AddUserUnauthorized", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/admin/add-user", api.AddUserRequest{
			APIKey: testAPIKey, AdminPassword: "demo",
			NewUser: api.NewUser{Username: "other-key", Role: "user"},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("DisableUserRevokesSessions", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
			APIKey: testAPIKey, Password: "fresh-key", Tool: "toolX",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var grant api.ValidateResponse
		decodeInto(t, resp, &grant)
		require.NotEmpty(t, grant.SessionID)

		resp = postJSON(t, srv.URL+"/admin/disable-user", api.DisableUserRequest{
			APIKey: testAPIKey, AdminPassword: "root-secret", Username: "fresh-key",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = postJSON(t, srv.URL+"/validate-password/check-license", api.CheckLicenseRequest{
			APIKey: testAPIKey, SessionID: grant.SessionID,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var check api.CheckLicenseResponse
		decodeInto(t, resp, &check)
		assert.False(t, check.Valid)
	})

	t.Run("DisableAdminProtected", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/admin/disable-user", api.DisableUserRequest{
			APIKey: testAPIKey, AdminPassword: "root-secret", Username: "root-secret",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("DisableUnknownUser", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/admin/disable-user", api.DisableUserRequest{
			APIKey: testAPIKey, AdminPassword: "root-secret", Username: "ghost",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("ListUsers", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/admin/list-users", api.ListUsersRequest{
			APIKey: testAPIKey, AdminPassword: "root-secret",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body api.ListUsersResponse
		decodeInto(t, resp, &body)
		require.True(t, body.Success)
		assert.GreaterOrEqual(t, len(body.Users), 3)

		seen := map[string]bool{}
		for _, u := range body.Users {
			seen[u.Username] = true
		}
		assert.True(t, seen["root-secret"])
		assert.True(t, seen["demo"])
	})

	t.Run("ListUsersUnauthorized", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/admin/list-users", api.ListUsersRequest{
			APIKey: testAPIKey, AdminPassword: "demo",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestThrottleRejectsRapidRequests(t *testing.T) {
	srv, _ := setupServer(t, api.WithThrottleInterval(time.Hour))

	resp := postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
		APIKey: testAPIKey, Password: "demo",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
		APIKey: testAPIKey, Password: "demo",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/validate-password", api.ValidateRequest{
		APIKey: testAPIKey, Password: "demo",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "keygate_requests_total")
}

func TestOpenAPISpecServed(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Keygate API")
}
