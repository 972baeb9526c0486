package controllers

import (
	"KidQuest/middlewares"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var sessionService SessionServiceInterface

func SetSessionService(service SessionServiceInterface) {
	sessionService = service
}

type childInput struct {
	ChildID string `json:"child_id" binding:"required"`
}

func StartSession(c *gin.Context) {
	var input struct {
		ChildID    string     `json:"child_id" binding:"required"`
		DeviceID   string     `json:"device_id" binding:"required"`
		SessionEnd *time.Time `json:"session_end"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	session, err := sessionService.CreateSession(c.Request.Context(), c.GetString(middlewares.ContextParentID), input.ChildID, input.DeviceID, input.SessionEnd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "session_id": session.ID, "data": session})
}

func StopSession(c *gin.Context) {
	var input childInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if err := sessionService.Stop(c.Request.Context(), c.GetString(middlewares.ContextParentID), input.ChildID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true})
}

func RevokeSession(c *gin.Context) {
	var input childInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if err := sessionService.Revoke(c.Request.Context(), c.GetString(middlewares.ContextParentID), input.ChildID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true})
}

func SessionStatus(c *gin.Context) {
	status, err := sessionService.Status(c.Request.Context(), c.GetString(middlewares.ContextParentID), c.Query("child_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "data": status})
}

func SessionHistory(c *gin.Context) {
	history, err := sessionService.History(c.Request.Context(), c.GetString(middlewares.ContextParentID), c.Query("child_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "data": history})
}
