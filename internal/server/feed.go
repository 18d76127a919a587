package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/warpfront/warpfront-server-go/internal/game"
	"github.com/warpfront/warpfront-server-go/internal/session"
	"github.com/warpfront/warpfront-server-go/internal/wire"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedBuffer     = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type feedClient struct {
	conn   *websocket.Conn
	send   chan wire.FeedEvent
	gameID string
}

// Feed pushes the newest change sequence of a game to WebSocket subscribers.
// Events are hints; a slow subscriber drops events and clients keep polling
// for the changes themselves.
type Feed struct {
	registry   *session.Registry
	logger     *zap.Logger
	clients    map[*feedClient]bool
	broadcast  chan wire.FeedEvent
	register   chan *feedClient
	unregister chan *feedClient
	done       chan struct{}
}

func NewFeed(registry *session.Registry, logger *zap.Logger) *Feed {
	return &Feed{
		registry:   registry,
		logger:     logger,
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan wire.FeedEvent, 256),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		done:       make(chan struct{}),
	}
}

// Run subscribes to the registry and fans events out until ctx is done.
func (f *Feed) Run(ctx context.Context) {
	unsubscribe := f.registry.Subscribe(func(gameID string, lastSeq uint64) {
		select {
		case f.broadcast <- wire.FeedEvent{GameID: gameID, LastSeq: lastSeq}:
		default:
			f.logger.Debug("feed backlog full, dropping event", zap.String("game_id", gameID))
		}
	})
	defer unsubscribe()
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			for client := range f.clients {
				close(client.send)
				delete(f.clients, client)
			}
			return

		case client := <-f.register:
			f.clients[client] = true
			f.logger.Debug("feed client registered", zap.String("game_id", client.gameID))

		case client := <-f.unregister:
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.send)
				f.logger.Debug("feed client unregistered", zap.String("game_id", client.gameID))
			}

		case event := <-f.broadcast:
			for client := range f.clients {
				if client.gameID != event.GameID {
					continue
				}
				select {
				case client.send <- event:
				default:
					// keep only the newest sequence for slow readers
					select {
					case <-client.send:
					default:
					}
					client.send <- event
				}
			}
		}
	}
}

// ServeHTTP upgrades /games/feed?game=ID and sends the current sequence
// followed by one event per accepted action.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	var lastSeq uint64
	err := f.registry.WithGame(gameID, func(s *game.State) error {
		lastSeq = s.LastSeq()
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Debug("failed to upgrade feed connection", zap.Error(err))
		return
	}

	client := &feedClient{
		conn:   conn,
		send:   make(chan wire.FeedEvent, feedBuffer),
		gameID: gameID,
	}
	client.send <- wire.FeedEvent{GameID: gameID, LastSeq: lastSeq}

	select {
	case f.register <- client:
	case <-f.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go client.writePump(f.logger)
	go client.readPump(f)
}

// readPump discards client input and notices disconnects.
func (c *feedClient) readPump(f *Feed) {
	defer func() {
		select {
		case f.unregister <- c:
		case <-f.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				f.logger.Debug("feed connection closed", zap.Error(err))
			}
			return
		}
	}
}

func (c *feedClient) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := wire.Pack(&event)
			if err != nil {
				logger.Error("failed to encode feed event", zap.Error(err))
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
