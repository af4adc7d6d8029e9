// Package connector handles outbound integrations, currently Discord
// webhook notifications for lobby activity.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chulobby-project/chulobby/internal/config"
	"github.com/chulobby-project/chulobby/internal/events"
)

// roomJoinCooldown throttles per-room join embeds so a busy room does not
// spam the channel.
const roomJoinCooldown = 5 * time.Minute

// DiscordConnector posts lobby activity to a Discord webhook: players
// gathering in a room and games starting.
type DiscordConnector struct {
	mu sync.Mutex

	cfg    *config.Config
	client *http.Client

	// Last join notification per room, for the cooldown.
	lastJoinNotify map[string]time.Time
}

// NewDiscordConnector creates the connector and subscribes it to lobby
// events. With no webhook configured it stays dormant.
func NewDiscordConnector(cfg *config.Config, eventBus *events.EventBus) *DiscordConnector {
	dc := &DiscordConnector{
		cfg:            cfg,
		client:         &http.Client{Timeout: 10 * time.Second},
		lastJoinNotify: make(map[string]time.Time),
	}

	eventBus.Subscribe(events.EventRoomJoined, "discord.roomJoined", dc.onRoomJoined)
	eventBus.Subscribe(events.EventGameStarted, "discord.gameStarted", dc.onGameStarted)

	return dc
}

// onRoomJoined posts who is gathering in a room, at most once per room per
// cooldown window.
func (dc *DiscordConnector) onRoomJoined(ctx context.Context, event events.Event) error {
	discordCfg := dc.cfg.GetApplicationData().Discord
	if discordCfg.WebhookURL == "" || !discordCfg.NotifyOnRoomJoin {
		return nil
	}

	payload, ok := event.Payload.(events.RoomJoinedPayload)
	if !ok {
		return nil
	}

	dc.mu.Lock()
	if last, seen := dc.lastJoinNotify[payload.Room]; seen && time.Since(last) < roomJoinCooldown {
		dc.mu.Unlock()
		return nil
	}
	dc.lastJoinNotify[payload.Room] = time.Now()
	dc.mu.Unlock()

	message := fmt.Sprintf("%s joined %s\nOnline: %s",
		payload.Player, payload.Room, strings.Join(payload.Players, ", "))
	return dc.sendWebhook(ctx, discordCfg.WebhookURL, "Players gathering", message, 0x00AAFF)
}

// onGameStarted posts the roster of a starting game.
func (dc *DiscordConnector) onGameStarted(ctx context.Context, event events.Event) error {
	discordCfg := dc.cfg.GetApplicationData().Discord
	if discordCfg.WebhookURL == "" || !discordCfg.NotifyOnGameStart {
		return nil
	}

	payload, ok := event.Payload.(events.GameStartedPayload)
	if !ok {
		return nil
	}

	title := fmt.Sprintf("%s: Game Start", payload.Room)
	message := fmt.Sprintf("Players: %s", strings.Join(payload.Players, ", "))
	return dc.sendWebhook(ctx, discordCfg.WebhookURL, title, message, 0x00FF00)
}

// sendWebhook posts one embed to the webhook.
func (dc *DiscordConnector) sendWebhook(ctx context.Context, webhookURL, title, message string, color int) error {
	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       title,
				"description": message,
				"color":       color,
				"timestamp":   time.Now().Format(time.RFC3339),
				"footer": map[string]string{
					"text": "ChuLobby Server",
				},
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dc.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	log.Debug().Str("title", title).Msg("Discord webhook notification sent")
	return nil
}
