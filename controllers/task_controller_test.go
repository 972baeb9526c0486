package controllers

import (
	"KidQuest/models"
	"KidQuest/services"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCompleteTask(t *testing.T) {
	svc := new(MockTaskService)
	SetTaskService(svc)
	r := setupTestRouter()
	r.POST("/child/:id/task-complete", asDevice("deviceA"), CompleteTask)

	svc.On("CompleteTask", mock.Anything, mock.MatchedBy(func(in services.CompleteTaskInput) bool {
		return in.ChildID == "c1" && in.DeviceID == "deviceA" && in.TaskID == "t1" && in.CompletionID == "cmp1"
	})).Return(services.TaskResult{Entry: &models.LedgerEntry{ID: "e1", Amount: 10}}, nil)

	w := doJSON(r, http.MethodPost, "/child/c1/task-complete", map[string]interface{}{
		"task_id":       "t1",
		"completion_id": "cmp1",
		"proof":         map[string]string{"photo": "x.jpg"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestCompleteTask_MissingTask(t *testing.T) {
	svc := new(MockTaskService)
	SetTaskService(svc)
	r := setupTestRouter()
	r.POST("/child/:id/task-complete", asDevice("deviceA"), CompleteTask)

	w := doJSON(r, http.MethodPost, "/child/c1/task-complete", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CompleteTask", mock.Anything, mock.Anything)
}

func TestCompleteTask_InvalidSessionAndInternal(t *testing.T) {
	svc := new(MockTaskService)
	SetTaskService(svc)
	r := setupTestRouter()
	r.POST("/child/:id/task-complete", asDevice("deviceB"), CompleteTask)

	svc.On("CompleteTask", mock.Anything, mock.MatchedBy(func(in services.CompleteTaskInput) bool { return in.TaskID == "t1" })).
		Return(services.TaskResult{}, models.InvalidSessionError{Reason: models.ReasonDeviceMismatch}).Once()
	svc.On("CompleteTask", mock.Anything, mock.MatchedBy(func(in services.CompleteTaskInput) bool { return in.TaskID == "t2" })).
		Return(services.TaskResult{}, errors.New("db is on fire")).Once()

	w := doJSON(r, http.MethodPost, "/child/c1/task-complete", map[string]string{"task_id": "t1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodPost, "/child/c1/task-complete", map[string]string{"task_id": "t2"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decodeBody(w)["error"], "детали внутренней ошибки не уходят клиенту")
}
