package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstream_StatusRelay(t *testing.T) {
	err := Upstream("clio", http.StatusForbidden, "insufficient scope")
	assert.Equal(t, http.StatusForbidden, err.Status)
	assert.Equal(t, ErrUpstream, err.Code)
	assert.Contains(t, err.Error(), "insufficient scope")
}

func TestUpstream_NonErrorStatusBecomesBadGateway(t *testing.T) {
	// status 0 means the provider never answered
	err := Upstream("google", 0, "")
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Contains(t, err.Message, "google")
}

func TestWithDetails_RawJSON(t *testing.T) {
	err := BadRequest("nope").WithDetails([]byte(`{"error":"invalid_grant"}`))
	assert.JSONEq(t, `{"error":"invalid_grant"}`, string(err.Details))
}

func TestWithDetails_NonJSONIsQuoted(t *testing.T) {
	err := BadRequest("nope").WithDetails([]byte("<html>gateway timeout</html>"))
	assert.Equal(t, `"<html>gateway timeout</html>"`, string(err.Details))
}

func TestWithField(t *testing.T) {
	err := ValidationError("endpoint", "endpoint is required")
	assert.Equal(t, "endpoint", err.Field)
	assert.Contains(t, err.Error(), "field: endpoint")
}
