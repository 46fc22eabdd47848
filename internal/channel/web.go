package channel

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/warelinehq/wareline/internal/bus"
	"github.com/warelinehq/wareline/internal/config"
)

//go:embed static
var staticFiles embed.FS

const webChannelName = "web"

// Responder answers one turn synchronously; the HTTP POST endpoint uses it
// so callers get the reply in the response body instead of over the bus.
type Responder interface {
	Respond(ctx context.Context, userID, content string) string
}

type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	id   string
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// WebChannel serves the browser chat page, a synchronous POST /chat endpoint,
// a websocket endpoint, and the health probe.
type WebChannel struct {
	BaseChannel
	host      string
	port      int
	responder Responder
	server    *http.Server
	clients   sync.Map
	nextID    atomic.Int64
	startedAt time.Time
}

func NewWebChannel(cfg config.WebConfig, gwCfg config.GatewayConfig, b *bus.MessageBus, responder Responder) (*WebChannel, error) {
	port := gwCfg.Port
	if port == 0 {
		port = config.DefaultPort
	}

	return &WebChannel{
		BaseChannel: NewBaseChannel(webChannelName, b, cfg.AllowFrom),
		host:        gwCfg.Host,
		port:        port,
		responder:   responder,
	}, nil
}

func (w *WebChannel) Start(ctx context.Context) error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("embed static fs: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/chat", w.handleChat)
	mux.HandleFunc("/ws", w.handleWS)
	mux.HandleFunc("/healthz", w.handleHealth)

	w.startedAt = time.Now()
	w.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", w.host, w.port),
		Handler: mux,
	}

	go func() {
		log.Printf("[web] listening on %s", w.server.Addr)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[web] server error: %v", err)
		}
	}()

	return nil
}

func (w *WebChannel) handleChat(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(wr, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if w.responder == nil {
		http.Error(wr, "chat endpoint disabled", http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(wr, "invalid request body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || strings.TrimSpace(req.Content) == "" {
		http.Error(wr, "user_id and content are required", http.StatusBadRequest)
		return
	}
	if !w.IsAllowed(req.UserID) {
		http.Error(wr, "sender not allowed", http.StatusForbidden)
		return
	}

	reply := w.responder.Respond(r.Context(), req.UserID, req.Content)

	wr.Header().Set("Content-Type", "application/json")
	json.NewEncoder(wr).Encode(chatResponse{Response: reply})
}

func (w *WebChannel) handleWS(wr http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[web] websocket accept error: %v", err)
		return
	}

	clientID := fmt.Sprintf("web-%d", w.nextID.Add(1))
	client := &wsClient{conn: conn, id: clientID}
	w.clients.Store(clientID, client)
	log.Printf("[web] client connected: %s", clientID)

	defer func() {
		w.clients.Delete(clientID)
		conn.CloseNow()
		log.Printf("[web] client disconnected: %s", clientID)
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type != "message" || msg.Content == "" {
			continue
		}
		if !w.IsAllowed(clientID) {
			log.Printf("[web] rejected message from %s", clientID)
			continue
		}

		w.bus.Inbound <- bus.InboundMessage{
			Channel:   webChannelName,
			SenderID:  clientID,
			ChatID:    clientID,
			Content:   msg.Content,
			Timestamp: time.Now(),
		}
	}
}

func (w *WebChannel) handleHealth(wr http.ResponseWriter, r *http.Request) {
	wr.Header().Set("Content-Type", "application/json")
	json.NewEncoder(wr).Encode(map[string]any{
		"status":         "ok",
		"message":        "Warehouse Inventory Chatbot API is running",
		"uptime_seconds": int(time.Since(w.startedAt).Seconds()),
	})
}

func (w *WebChannel) Send(msg bus.OutboundMessage) error {
	data, err := json.Marshal(wsMessage{
		Type:    "message",
		Content: msg.Content,
	})
	if err != nil {
		return err
	}

	client, ok := w.clients.Load(msg.ChatID)
	if !ok {
		// No specific target, broadcast.
		w.clients.Range(func(key, value any) bool {
			c := value.(*wsClient)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.conn.Write(ctx, websocket.MessageText, data)
			return true
		})
		return nil
	}

	c := client.(*wsClient)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (w *WebChannel) Stop() error {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			log.Printf("[web] shutdown error: %v", err)
		}
	}
	w.clients.Range(func(key, value any) bool {
		c := value.(*wsClient)
		c.conn.CloseNow()
		return true
	})
	log.Printf("[web] stopped")
	return nil
}
