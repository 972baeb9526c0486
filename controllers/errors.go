package controllers

import (
	"KidQuest/models"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{models.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden"},
	{models.ErrInvalidSession, http.StatusForbidden, "invalid_session"},
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrConflict, http.StatusConflict, "conflict"},
	{models.ErrDuplicateRequest, http.StatusConflict, "duplicate_request"},
	{models.ErrAlreadyDecided, http.StatusConflict, "already_decided"},
	{models.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{models.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
	{models.ErrTransientStore, http.StatusServiceUnavailable, "transient"},
}

// respondError maps the models error taxonomy onto an HTTP status.
// Unknown errors are logged through c.Error and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": err.Error(), "code": e.code})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
}
