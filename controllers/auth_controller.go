package controllers

import (
	"KidQuest/middlewares"
	"net/http"

	"github.com/gin-gonic/gin"
)

var authService AuthServiceInterface

func SetAuthService(service AuthServiceInterface) {
	authService = service
}

func RegisterParent(c *gin.Context) {
	var input struct {
		Lang     string `json:"lang"`
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	// Русский как язык по умолчанию
	if input.Lang == "" {
		input.Lang = "ru"
	}

	parent, token, err := authService.RegisterParent(c.Request.Context(), input.Lang, input.Name, input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": true, "token": token, "data": parent})
}

func LoginParent(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	parent, token, err := authService.LoginParent(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "token": token, "user": parent})
}

// RegisterChild onboards a child device with the parent's 4-digit code.
func RegisterChild(c *gin.Context) {
	var input struct {
		Lang string `json:"lang"`
		Code string `json:"code" binding:"required,len=4"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	if input.Lang == "" {
		input.Lang = "ru"
	}

	child, wallet, err := authService.RegisterChild(c.Request.Context(), input.Lang, input.Code, input.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": true, "data": child, "wallet": wallet})
}

// LinkChild привязывает второго родителя по коду ребенка
func LinkChild(c *gin.Context) {
	var input struct {
		Code string `json:"code" binding:"required,len=4"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	child, err := authService.LinkChild(c.Request.Context(), c.GetString(middlewares.ContextParentID), input.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "data": child})
}

func UpdatePushToken(c *gin.Context) {
	var input struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	if err := authService.UpdatePushToken(c.Request.Context(), c.GetString(middlewares.ContextParentID), input.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true})
}
