package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warelinehq/wareline/internal/bus"
	"github.com/warelinehq/wareline/internal/channel"
	"github.com/warelinehq/wareline/internal/chat"
	"github.com/warelinehq/wareline/internal/config"
	"github.com/warelinehq/wareline/internal/cron"
	"github.com/warelinehq/wareline/internal/llm"
	"github.com/warelinehq/wareline/internal/store"
)

// StoreFactory creates the persistence backend.
type StoreFactory func(dbPath string) (store.Store, error)

// Options for creating a Gateway.
type Options struct {
	StoreFactory StoreFactory
	Fallback     chat.Generator
	SignalChan   chan os.Signal // for testing signal handling
}

// Gateway wires the store, chat controller, channels, and reminders together
// and runs the inbound processing loop.
type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	store      store.Store
	controller *chat.Controller
	channels   *channel.Manager
	cron       *cron.Service
	signalChan chan os.Signal
}

// New creates a Gateway with default options.
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing.
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	factory := opts.StoreFactory
	if factory == nil {
		factory = func(dbPath string) (store.Store, error) {
			return store.NewSQLiteStore(dbPath)
		}
	}
	st, err := factory(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	g.store = st

	fallback := opts.Fallback
	if fallback == nil {
		client := llm.NewClient(cfg)
		if client.Enabled() {
			fallback = client
		} else {
			log.Printf("[gateway] no provider configured, LLM fallback disabled")
		}
	}

	g.controller = chat.NewController(st, chat.ControllerOptions{
		Fallback: fallback,
		Timeout:  time.Duration(cfg.Assistant.TurnTimeoutSeconds) * time.Second,
	})

	g.signalChan = opts.SignalChan

	// Reminders
	cronStorePath := filepath.Join(config.ConfigDir(), "data", "cron", "reminders.json")
	g.cron = cron.NewService(cronStorePath)
	seeded := make([]cron.Reminder, 0, len(cfg.Reminders))
	for _, r := range cfg.Reminders {
		seeded = append(seeded, cron.NewReminder(r.Name, cron.Schedule{Kind: "cron", Expr: r.CronExpr}, r.Channel, r.To, r.Message))
	}
	g.cron.Seed(seeded)
	g.cron.OnReminder = func(r cron.Reminder) error {
		g.bus.Outbound <- bus.OutboundMessage{
			Channel: r.Channel,
			ChatID:  r.To,
			Content: r.Message,
		}
		return nil
	}

	chMgr, err := channel.NewManager(cfg.Channels, cfg.Gateway, g.bus, g.controller)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	return g, nil
}

// Respond answers one turn directly, bypassing the channels. The CLI chat
// REPL uses it.
func (g *Gateway) Respond(ctx context.Context, userID, content string) string {
	return g.controller.Respond(ctx, userID, content)
}

// Store exposes the persistence backend for seeding and status checks.
func (g *Gateway) Store() store.Store {
	return g.store
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.cron.Start(ctx); err != nil {
		log.Printf("[gateway] cron start warning: %v", err)
	}

	go g.pingLoop(ctx)
	go g.processLoop(ctx)

	log.Printf("[gateway] running on %s:%d", g.cfg.Gateway.Host, g.cfg.Gateway.Port)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			reply := g.controller.Respond(ctx, msg.UserKey(), msg.Content)
			if reply == "" {
				continue
			}

			g.bus.Outbound <- bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: reply,
			}
		case <-ctx.Done():
			return
		}
	}
}

// pingLoop probes the store once a minute so backend trouble shows up in the
// logs before a user turn hits it.
func (g *Gateway) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := g.store.Ping(pingCtx); err != nil {
				log.Printf("[gateway] store ping failed: %v", err)
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	_ = g.channels.StopAll()
	if err := g.store.Close(); err != nil {
		log.Printf("[gateway] close store warning: %v", err)
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
