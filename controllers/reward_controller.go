package controllers

import (
	"KidQuest/middlewares"
	"net/http"

	"github.com/gin-gonic/gin"
)

var rewardService RewardServiceInterface

func SetRewardService(service RewardServiceInterface) {
	rewardService = service
}

func CreateReward(c *gin.Context) {
	var input struct {
		XPCost      int64  `json:"xp_cost" binding:"required,gt=0"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	reward, err := rewardService.CreateReward(c.Request.Context(), c.GetString(middlewares.ContextParentID), input.XPCost, input.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": true, "data": reward})
}

func ListRewards(c *gin.Context) {
	rewards, err := rewardService.ListRewards(c.Request.Context(), c.GetString(middlewares.ContextParentID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true, "data": rewards})
}

func DeleteReward(c *gin.Context) {
	if err := rewardService.DeleteReward(c.Request.Context(), c.GetString(middlewares.ContextParentID), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": true})
}
