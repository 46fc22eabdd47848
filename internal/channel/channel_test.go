package channel

import (
	"testing"

	"github.com/warelinehq/wareline/internal/bus"
	"github.com/warelinehq/wareline/internal/config"
)

func TestBaseChannel_IsAllowed(t *testing.T) {
	b := bus.NewMessageBus(1)

	open := NewBaseChannel("test", b, nil)
	if !open.IsAllowed("anyone") {
		t.Error("empty allowlist must admit everyone")
	}

	restricted := NewBaseChannel("test", b, []string{"42"})
	if !restricted.IsAllowed("42") {
		t.Error("listed sender must be admitted")
	}
	if restricted.IsAllowed("43") {
		t.Error("unlisted sender must be rejected")
	}
}

func TestManager_EnabledChannels(t *testing.T) {
	b := bus.NewMessageBus(1)
	cfg := config.ChannelsConfig{
		Web: config.WebConfig{Enabled: true},
	}

	m, err := NewManager(cfg, config.GatewayConfig{Port: 0}, b, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	names := m.EnabledChannels()
	if len(names) != 1 || names[0] != "web" {
		t.Errorf("EnabledChannels = %v", names)
	}
}

func TestManager_TelegramRequiresToken(t *testing.T) {
	b := bus.NewMessageBus(1)
	cfg := config.ChannelsConfig{
		Telegram: config.TelegramConfig{Enabled: true},
	}

	if _, err := NewManager(cfg, config.GatewayConfig{}, b, nil); err == nil {
		t.Fatal("want error when telegram enabled without token")
	}
}
