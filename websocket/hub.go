package websocket

import (
	"KidQuest/interfaces"
	"KidQuest/pkg/logger"
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Message это закодированное событие для одной семьи
type Message struct {
	ParentID string
	Data     []byte
}

// Hub держит подключения родителей и рассылает им события семьи.
type Hub struct {
	// Registered clients by parent ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}

	mu sync.Mutex

	// последние события семьи, отправляются новому клиенту при подключении
	history        map[string]*familyHistory
	historyMaxSize int
	// история семьи без подключений живет historyIdle
	historyIdle time.Duration
	now         func() time.Time

	log *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:        make(map[string]map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *Message, 256),
		done:           make(chan struct{}),
		history:        make(map[string]*familyHistory),
		historyMaxSize: 50,
		historyIdle:    10 * time.Minute,
		now:            time.Now,
		log:            log,
	}
}

// Register регистрирует нового клиента в хабе
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister отменяет регистрацию клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish implements interfaces.EventPublisher. It never blocks the caller:
// when the broadcast queue is full the event is dropped and logged.
func (h *Hub) Publish(parentID string, event interfaces.FamilyEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Errorw("encode family event", "type", event.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- &Message{ParentID: parentID, Data: data}:
	default:
		h.log.Warnw("broadcast queue full, event dropped", "parent_id", parentID, "type", event.Type)
	}
}

// ClientCount returns the number of connections open for a family.
func (h *Hub) ClientCount(parentID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[parentID])
}

// Run обслуживает каналы хаба до отмены ctx, затем закрывает все подключения.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	janitor := time.NewTicker(h.historyIdle / 2)
	defer janitor.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case <-janitor.C:
			h.evictIdle()

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.ParentID]; !ok {
				h.clients[client.ParentID] = make(map[*Client]bool)
			}
			h.clients[client.ParentID][client] = true
			h.mu.Unlock()
			if fh, ok := h.history[client.ParentID]; ok {
				fh.idleSince = time.Time{}
			}
			h.replay(client)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.markIdle(client.ParentID)

		case message := <-h.broadcast:
			h.remember(message)
			h.mu.Lock()
			for client := range h.clients[message.ParentID] {
				select {
				case client.send <- message.Data:
				default:
					// медленный клиент
					h.remove(client)
				}
			}
			h.mu.Unlock()
			h.markIdle(message.ParentID)
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.ParentID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.ParentID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

type familyHistory struct {
	events [][]byte
	// zero while the family has a connection
	idleSince time.Time
}

func (h *Hub) remember(message *Message) {
	fh, ok := h.history[message.ParentID]
	if !ok {
		fh = &familyHistory{}
		h.history[message.ParentID] = fh
	}
	if len(fh.events) >= h.historyMaxSize {
		fh.events = fh.events[1:]
	}
	fh.events = append(fh.events, message.Data)
}

// markIdle starts the idle clock for a family that has no connections left.
func (h *Hub) markIdle(parentID string) {
	fh, ok := h.history[parentID]
	if !ok || !fh.idleSince.IsZero() || h.ClientCount(parentID) > 0 {
		return
	}
	fh.idleSince = h.now()
}

// evictIdle drops the history of families that stayed without connections for historyIdle.
func (h *Hub) evictIdle() {
	now := h.now()
	for parentID, fh := range h.history {
		if !fh.idleSince.IsZero() && now.Sub(fh.idleSince) >= h.historyIdle {
			delete(h.history, parentID)
		}
	}
}

func (h *Hub) replay(client *Client) {
	fh, ok := h.history[client.ParentID]
	if !ok {
		return
	}
	for _, data := range fh.events {
		select {
		case client.send <- data:
		default:
			return
		}
	}
}
