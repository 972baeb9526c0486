package controllers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestReadyz(t *testing.T) {
	p := new(MockPinger)
	SetPinger(p)
	defer SetPinger(nil)
	r := setupTestRouter()
	r.GET("/readyz", Readyz)
	r.GET("/healthz", Healthz)

	p.On("Ping", mock.Anything).Return(nil).Once()
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/readyz", nil).Code)

	p.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(r, http.MethodGet, "/readyz", nil).Code)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/healthz", nil).Code)
}
