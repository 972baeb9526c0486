package controllers

import (
	"KidQuest/middlewares"
	"KidQuest/services"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

var taskService TaskServiceInterface

func SetTaskService(service TaskServiceInterface) {
	taskService = service
}

// CompleteTask accepts a task completion from the child's bound device.
func CompleteTask(c *gin.Context) {
	var input struct {
		TaskID       string          `json:"task_id" binding:"required"`
		CompletionID string          `json:"completion_id"`
		Proof        json.RawMessage `json:"proof"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	result, err := taskService.CompleteTask(c.Request.Context(), services.CompleteTaskInput{
		ChildID:      c.Param("id"),
		DeviceID:     c.GetString(middlewares.ContextDeviceID),
		TaskID:       input.TaskID,
		CompletionID: input.CompletionID,
		Proof:        input.Proof,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "data": result})
}
