package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"terrastream/internal/streaming"
	"terrastream/internal/terrain"
)

const writeTimeout = time.Second

// TileInfo describes one loaded tile in the /tiles listing.
type TileInfo struct {
	X         int     `json:"x"`
	Z         int     `json:"z"`
	Key       string  `json:"key"`
	State     string  `json:"state"`
	Blends    int     `json:"blends"`
	Pending   bool    `json:"pending"`
	MinHeight float64 `json:"minHeight"`
	MaxHeight float64 `json:"maxHeight"`
}

// Frame is the message broadcast on /ws after every published frame.
type Frame struct {
	Type     string               `json:"type"`
	Stats    streaming.FrameStats `json:"stats"`
	Counters map[string]int64     `json:"counters,omitempty"`
}

// Hub serves a read-only debug feed of the tile manager. Publish is called
// from the frame loop; HTTP handlers run on their own goroutines.
type Hub struct {
	upgrader websocket.Upgrader
	log      *log.Logger

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex

	tilesMu sync.RWMutex
	tiles   []TileInfo
}

// NewHub creates a hub. A nil logger discards output.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     logger,
		clients: make(map[*websocket.Conn]*sync.Mutex),
		tiles:   []TileInfo{},
	}
}

// Handler returns the hub's routes: /ws and /tiles.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/tiles", h.handleTiles)
	return mux
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Publish records the loaded tiles and broadcasts the frame stats.
func (h *Hub) Publish(st streaming.FrameStats, tiles []*terrain.Tile, counters map[string]int64) {
	infos := make([]TileInfo, 0, len(tiles))
	for _, t := range tiles {
		infos = append(infos, describe(t))
	}
	h.tilesMu.Lock()
	h.tiles = infos
	h.tilesMu.Unlock()

	h.broadcast(Frame{Type: "frame", Stats: st, Counters: counters})
}

func describe(t *terrain.Tile) TileInfo {
	info := TileInfo{
		X:       t.Coord.X,
		Z:       t.Coord.Z,
		Key:     t.Key(),
		State:   t.State().String(),
		Blends:  t.Blends(),
		Pending: t.RequiresBlending(),
	}
	if h := t.Heights(); len(h) > 0 {
		info.MinHeight, info.MaxHeight = h[0], h[0]
		for _, v := range h {
			info.MinHeight = min(info.MinHeight, v)
			info.MaxHeight = max(info.MaxHeight, v)
		}
	}
	return info
}

func (h *Hub) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Println("inspect: marshal:", err)
		return
	}
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for conn, mu := range h.clients {
		if err := writeFrame(conn, mu, data); err != nil {
			h.log.Println("inspect: write:", err)
		}
	}
}

func writeFrame(conn *websocket.Conn, mu *sync.Mutex, data []byte) error {
	mu.Lock()
	defer mu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Println("inspect: upgrade:", err)
		return
	}
	defer conn.Close()

	h.clientsMu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.clientsMu.Unlock()
	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
	}()

	// the feed is one-way; reading only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) handleTiles(w http.ResponseWriter, r *http.Request) {
	h.tilesMu.RLock()
	tiles := h.tiles
	h.tilesMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tiles); err != nil {
		h.log.Println("inspect: tiles:", err)
	}
}
