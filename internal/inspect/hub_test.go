package inspect

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"terrastream/internal/cache"
	"terrastream/internal/streaming"
	"terrastream/internal/terrain"
)

func loadedTile(t *testing.T) *terrain.Tile {
	t.Helper()
	cfg := terrain.DefaultTileConfig()
	cfg.Segments = 8
	cfg.OverlapSegments = 2
	cfg.Erosion.Enabled = false
	tile := terrain.NewTile(terrain.Coord{X: 1, Z: -2}, cfg, cache.NewStore(), terrain.Options{})
	tile.Load(nil)
	return tile
}

func TestTilesListing(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	hub.Publish(streaming.FrameStats{Frame: 1}, []*terrain.Tile{loadedTile(t)}, nil)

	resp, err := http.Get(srv.URL + "/tiles")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var tiles []TileInfo
	if err := json.NewDecoder(resp.Body).Decode(&tiles); err != nil {
		t.Fatal(err)
	}
	if len(tiles) != 1 || tiles[0].Key != "1_-2" || tiles[0].State != "loaded" {
		t.Fatalf("tiles = %+v", tiles)
	}
	if tiles[0].MinHeight > tiles[0].MaxHeight {
		t.Fatalf("height range inverted: %+v", tiles[0])
	}
}

func TestFrameBroadcast(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(streaming.FrameStats{Frame: 7, Loaded: 2}, nil, map[string]int64{"tiles.loaded": 2})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	if f.Type != "frame" || f.Stats.Frame != 7 || f.Stats.Loaded != 2 || f.Counters["tiles.loaded"] != 2 {
		t.Fatalf("frame = %+v", f)
	}
}

func TestWriteFrameClosedConn(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
	if err := writeFrame(conn, &sync.Mutex{}, []byte("{}")); err == nil {
		t.Fatal("write on a closed connection succeeded")
	}
}
