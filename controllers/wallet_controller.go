package controllers

import (
	"KidQuest/middlewares"
	"KidQuest/models"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	ledgerService     LedgerServiceInterface
	redemptionService RedemptionServiceInterface
)

func SetLedgerService(service LedgerServiceInterface) {
	ledgerService = service
}

func SetRedemptionService(service RedemptionServiceInterface) {
	redemptionService = service
}

// authorizeChildRead lets a linked parent or the child's bound device read wallet data.
func authorizeChildRead(c *gin.Context, childID string) error {
	if childID == "" {
		return fmt.Errorf("%w: child_id is required", models.ErrInvalidInput)
	}
	if parentID := c.GetString(middlewares.ContextParentID); parentID != "" {
		return authService.RequireLink(c.Request.Context(), parentID, childID)
	}
	_, err := sessionService.RequireSession(c.Request.Context(), childID, c.GetString(middlewares.ContextDeviceID))
	return err
}

func Balance(c *gin.Context) {
	childID := c.Query("child_id")
	if err := authorizeChildRead(c, childID); err != nil {
		respondError(c, err)
		return
	}

	balance, err := ledgerService.Balance(c.Request.Context(), childID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func WalletHistory(c *gin.Context) {
	childID := c.Query("child_id")
	if err := authorizeChildRead(c, childID); err != nil {
		respondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := ledgerService.History(c.Request.Context(), childID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "data": entries})
}

// Redeem is called by the child's device; the device must hold the child's session.
func Redeem(c *gin.Context) {
	var input struct {
		ChildID  string `json:"child_id" binding:"required"`
		WalletID string `json:"wallet_id" binding:"required"`
		RewardID string `json:"reward_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := sessionService.RequireSession(ctx, input.ChildID, c.GetString(middlewares.ContextDeviceID)); err != nil {
		respondError(c, err)
		return
	}

	req, err := redemptionService.RequestSpend(ctx, input.ChildID, input.WalletID, input.RewardID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "request_id": req.ID, "data": req})
}

func Decide(c *gin.Context) {
	var input struct {
		RequestID string `json:"request_id" binding:"required"`
		Approve   *bool  `json:"approve" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	req, err := redemptionService.Decide(c.Request.Context(), c.GetString(middlewares.ContextParentID), input.RequestID, *input.Approve)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "data": req})
}

func ListRequests(c *gin.Context) {
	var status *models.SpendStatus
	if raw := c.Query("status"); raw != "" {
		s := models.SpendStatus(strings.ToUpper(raw))
		switch s {
		case models.SpendPending, models.SpendApproved, models.SpendDenied, models.SpendExpired:
			status = &s
		default:
			badRequest(c, errors.New("unknown status "+raw))
			return
		}
	}

	reqs, err := redemptionService.ListRequests(c.Request.Context(), c.GetString(middlewares.ContextParentID), c.Query("child_id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "data": reqs})
}
