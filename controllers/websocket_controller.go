package controllers

import (
	"KidQuest/middlewares"
	"KidQuest/websocket"

	"github.com/gin-gonic/gin"
)

var WebSocketHub *websocket.Hub

// SetWebSocketHub only stores the hub; Run is owned by the caller.
func SetWebSocketHub(hub *websocket.Hub) {
	WebSocketHub = hub
}

// ServeWs подписывает родителя на события его детей
func ServeWs(c *gin.Context) {
	parentID := c.GetString(middlewares.ContextParentID)
	if err := websocket.ServeWs(WebSocketHub, c.Writer, c.Request, parentID); err != nil {
		// Upgrade уже ответил клиенту
		_ = c.Error(err)
	}
}
