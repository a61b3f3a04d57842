package api

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net"
	"net/http"
)

// maxBodyBytes bounds request bodies; every legitimate request is tiny.
const maxBodyBytes = 1 << 20

type apiKeyEnvelope struct {
	APIKey string `json:"apiKey"`
}

// requireAPIKey authenticates the shared API key carried in the JSON request
// body. The body is buffered and restored so the handler can decode it again.
// Missing and wrong keys produce the same response.
func (a *API) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, RejectionResponse{Message: "unreadable request body"})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var envelope apiKeyEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil || !a.apiKeyMatches(envelope.APIKey) {
			a.audit.keyRejected(r)
			a.metrics.observe("api_key", "rejected")
			writeJSON(w, http.StatusForbidden, RejectionResponse{Message: "invalid or missing API key"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// apiKeyMatches opens the enclave only for the duration of the comparison.
func (a *API) apiKeyMatches(candidate string) bool {
	if candidate == "" {
		return false
	}
	buf, err := a.apiKey.Open()
	if err != nil {
		return false
	}
	defer buf.Destroy()
	if len(candidate) != buf.Size() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), buf.Bytes()) == 1
}

// throttleRequests enforces the per-address minimum interval.
func (a *API) throttleRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := clientAddr(r)
		if !a.throttle.allow(addr) {
			a.audit.throttled(r)
			a.metrics.observe("throttle", "rejected")
			writeJSON(w, http.StatusTooManyRequests, RejectionResponse{Message: "too many requests, try again later"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr returns the peer address without the port. Proxy headers are
// not consulted; behind a reverse proxy the throttle keys on the proxy itself.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
