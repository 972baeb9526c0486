package websocket

import (
	"KidQuest/pkg/logger"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи сообщения
	writeWait = 10 * time.Second

	// Время ожидания чтения сообщений от клиента
	pongWait = 60 * time.Second

	// Период отправки пингов
	pingPeriod = (pongWait * 9) / 10

	// родитель только слушает, входящие кадры маленькие
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one parent connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	ParentID string
	send     chan []byte
	log      *logger.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, parentID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		ParentID: parentID,
		send:     make(chan []byte, 256),
		log:      hub.log.With("parent_id", parentID),
	}
}

// ReadPump держит соединение живым и ловит закрытие; содержимое кадров игнорируется.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.log.Debug("websocket connection closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warnw("websocket read failed", "error", err)
			}
			return
		}
	}
}

// WritePump отправляет события клиенту и пингует его
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// хаб закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warnw("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades the request and attaches the connection to the parent's family stream.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, parentID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := NewClient(hub, conn, parentID)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return nil
}
