package controllers

import (
	"KidQuest/models"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRegisterParent(t *testing.T) {
	svc := new(MockAuthService)
	SetAuthService(svc)
	r := setupTestRouter()
	r.POST("/register/parent", RegisterParent)

	svc.On("RegisterParent", mock.Anything, "ru", "Мама", "mama@example.com", "password1").
		Return(models.Parent{ID: "p1", Email: "mama@example.com"}, "jwt", nil)

	w := doJSON(r, http.MethodPost, "/register/parent", map[string]string{
		"name": "Мама", "email": "mama@example.com", "password": "password1",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "jwt", decodeBody(w)["token"])
}

func TestRegisterParent_Duplicate(t *testing.T) {
	svc := new(MockAuthService)
	SetAuthService(svc)
	r := setupTestRouter()
	r.POST("/register/parent", RegisterParent)

	svc.On("RegisterParent", mock.Anything, "en", "Dad", "dad@example.com", "password1").
		Return(models.Parent{}, "", models.ErrConflict)

	w := doJSON(r, http.MethodPost, "/register/parent", map[string]string{
		"lang": "en", "name": "Dad", "email": "dad@example.com", "password": "password1",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterChild_CodeLength(t *testing.T) {
	svc := new(MockAuthService)
	SetAuthService(svc)
	r := setupTestRouter()
	r.POST("/register/child", RegisterChild)

	w := doJSON(r, http.MethodPost, "/register/child", map[string]string{"code": "12345"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.On("RegisterChild", mock.Anything, "ru", "1234", "Аня").
		Return(models.Child{ID: "c1"}, models.Wallet{ID: "w1", ChildID: "c1"}, nil)
	w = doJSON(r, http.MethodPost, "/register/child", map[string]string{"code": "1234", "name": "Аня"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestLinkChild(t *testing.T) {
	svc := new(MockAuthService)
	SetAuthService(svc)
	r := setupTestRouter()
	r.POST("/parents/children/link", asParent("p2"), LinkChild)

	svc.On("LinkChild", mock.Anything, "p2", "5678").Return(models.Child{ID: "c1"}, nil)

	w := doJSON(r, http.MethodPost, "/parents/children/link", map[string]string{"code": "5678"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
