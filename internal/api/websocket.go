// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/johnmartinello/gscript/internal/services"
	"github.com/johnmartinello/gscript/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The views are served from the same host; tighten this when the
		// editor ever runs remotely.
		return true
	},
}

// changeMessage is pushed to every connected view after a store mutation
type changeMessage struct {
	Type            string            `json:"type"`
	Revision        uint64            `json:"revision"`
	Dirty           bool              `json:"dirty"`
	SelectedSceneID string            `json:"selected_scene_id,omitempty"`
	ViewMode        services.ViewMode `json:"view_mode"`
}

// wsClient is one connected view (editor panel, graph panel, ...)
type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	closed int32
}

func (c *wsClient) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.conn.Close()
	}
}

func (c *wsClient) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// ChangeFeed broadcasts store change notifications over websockets. The
// views use it to re-derive their node/edge/document state whenever any
// view wrote to the store, which is what keeps the graph current while the
// author types in the editor.
type ChangeFeed struct {
	mu          sync.RWMutex
	clients     map[*wsClient]bool
	unsubscribe func()
}

// NewChangeFeed creates the feed and subscribes it to the store
func NewChangeFeed(store *services.ProjectService) *ChangeFeed {
	f := &ChangeFeed{
		clients: make(map[*wsClient]bool),
	}
	f.unsubscribe = store.Subscribe(func(snap services.Snapshot) {
		f.broadcast(changeMessage{
			Type:            "project_changed",
			Revision:        snap.Revision,
			Dirty:           snap.Dirty,
			SelectedSceneID: snap.SelectedSceneID,
			ViewMode:        snap.ViewMode,
		})
	})
	return f
}

// Close detaches from the store and drops every client
func (f *ChangeFeed) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for client := range f.clients {
		client.close()
	}
	f.clients = make(map[*wsClient]bool)
}

// ClientCount returns the number of connected views
func (f *ChangeFeed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *ChangeFeed) broadcast(msg changeMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for client := range f.clients {
		if client.isClosed() {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Slow consumer: drop the notification, the next one carries a
			// newer revision anyway.
		}
	}
}

// Handle upgrades an HTTP request to a change-feed connection
func (f *ChangeFeed) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	f.mu.Lock()
	f.clients[client] = true
	f.mu.Unlock()

	go f.writeLoop(client)
	go f.readLoop(client)
}

func (f *ChangeFeed) writeLoop(client *wsClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		f.drop(client)
	}()

	for {
		select {
		case data, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains the connection; the feed is one-directional, so inbound
// frames only matter for detecting a closed peer
func (f *ChangeFeed) readLoop(client *wsClient) {
	defer f.drop(client)
	client.conn.SetReadLimit(1024)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *ChangeFeed) drop(client *wsClient) {
	f.mu.Lock()
	if _, ok := f.clients[client]; ok {
		delete(f.clients, client)
	}
	f.mu.Unlock()
	client.close()
}
