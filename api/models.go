package api

// Request bodies keep the field names of the service keygate replaces, so
// deployed client tools keep working unchanged: the shared API key travels in
// the JSON body, the credential is called "password", and the session token
// "sessionId".

// ValidateRequest is the JSON body for POST /validate-password.
type ValidateRequest struct {
	APIKey   string `json:"apiKey"`
	Password string `json:"password"`
	Tool     string `json:"tool,omitempty"`
}

// ValidateResponse is returned from POST /validate-password.
type ValidateResponse struct {
	Valid      bool   `json:"valid"`
	Message    string `json:"message"`
	ExpiryDays int    `json:"expiryDays,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

// CheckLicenseRequest is the JSON body for POST /validate-password/check-license
// and POST /validate-password/logout.
type CheckLicenseRequest struct {
	APIKey    string `json:"apiKey"`
	SessionID string `json:"sessionId"`
}

// CheckLicenseResponse is returned from POST /validate-password/check-license.
// It is always delivered with status 200; Valid carries the verdict.
type CheckLicenseResponse struct {
	Valid         bool   `json:"valid"`
	Message       string `json:"message"`
	Role          string `json:"role,omitempty"`
	ExpiresAt     int64  `json:"expiresAt,omitempty"`
	DaysRemaining int    `json:"daysRemaining,omitempty"`
}

// NewUser describes the account to create in an add-user request.
type NewUser struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	ExpiryDays int    `json:"expiryDays,omitempty"`
}

// AddUserRequest is the JSON body for POST /admin/add-user.
type AddUserRequest struct {
	APIKey        string  `json:"apiKey"`
	AdminPassword string  `json:"adminPassword"`
	NewUser       NewUser `json:"newUser"`
}

// UserSummary is one entry in a list-users response.
type UserSummary struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	ExpiryDays int    `json:"expiryDays"`
	Active     bool   `json:"active"`
	CreatedAt  int64  `json:"createdAt,omitempty"`
	LastLogin  int64  `json:"lastLogin,omitempty"`
}

// AddUserResponse is returned from POST /admin/add-user.
type AddUserResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *UserSummary `json:"user,omitempty"`
}

// DisableUserRequest is the JSON body for POST /admin/disable-user.
type DisableUserRequest struct {
	APIKey        string `json:"apiKey"`
	AdminPassword string `json:"adminPassword"`
	Username      string `json:"username"`
}

// ListUsersRequest is the JSON body for POST /admin/list-users.
type ListUsersRequest struct {
	APIKey        string `json:"apiKey"`
	AdminPassword string `json:"adminPassword"`
}

// ListUsersResponse is returned from POST /admin/list-users.
type ListUsersResponse struct {
	Success bool          `json:"success"`
	Users   []UserSummary `json:"users"`
}

// AdminResponse is the generic admin operation result.
type AdminResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatusResponse is returned from GET /status.
type StatusResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// RejectionResponse is returned by the throttle and API-key middleware.
type RejectionResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}
