package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"chirper/internal/domain"
)

const (
	writeTimeout  = 5 * time.Second
	sendQueueSize = 16
)

// Hub fans newly created posts out to connected websocket clients. Slow
// clients are disconnected rather than allowed to block the hub.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *logrus.Logger

	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan postEvent
}

type postEvent struct {
	Post   postPayload   `json:"post"`
	Author authorPayload `json:"author"`
}

type postPayload struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type authorPayload struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Publish implements service.Publisher. It never blocks: clients whose send
// queue is full are dropped.
func (h *Hub) Publish(post domain.PostWithAuthor) {
	ev := postEvent{
		Post: postPayload{
			ID:        post.Post.ID,
			AuthorID:  post.Post.AuthorID,
			Content:   post.Post.Content,
			CreatedAt: post.Post.CreatedAt.Format(time.RFC3339),
		},
		Author: authorPayload{
			ID:              post.Author.ID,
			Username:        post.Author.Username,
			ProfileImageURL: post.Author.ProfileImageURL,
		},
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeWS upgrades the request and streams post events until the client
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("websocket upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan postEvent, sendQueueSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(ev); err != nil {
			break
		}
	}
	_ = c.conn.Close()
}

// readLoop drains the connection so close frames are processed; clients are
// not expected to send anything.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Shutdown closes all client connections.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
