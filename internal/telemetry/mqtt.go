// Package telemetry publishes lobby activity to an MQTT broker.
package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/chulobby-project/chulobby/internal/config"
	"github.com/chulobby-project/chulobby/internal/events"
	"github.com/chulobby-project/chulobby/internal/util"
)

// MQTT topic suffixes, appended to the configured topic base.
const (
	TopicAdmin   = "admin"
	TopicPlayers = "lobby/players"
	TopicRooms   = "lobby/rooms"
	TopicMatch   = "lobby/match"
)

// MQTTHandler manages the MQTT connection and publishes lobby events.
type MQTTHandler struct {
	mu sync.Mutex

	cfg      *config.Config
	eventBus *events.EventBus
	client   mqtt.Client

	// Metadata included in every message
	metadata map[string]interface{}
}

// NewMQTTHandler creates a new MQTT telemetry handler.
func NewMQTTHandler(cfg *config.Config, eventBus *events.EventBus) (*MQTTHandler, error) {
	mqttCfg := cfg.GetApplicationData().MQTT

	if !mqttCfg.Enabled {
		return nil, fmt.Errorf("MQTT is disabled")
	}

	// Build system metadata
	sysInfo := util.GetSystemInfo()
	metadata := map[string]interface{}{
		"hostname":    sysInfo.Hostname,
		"platform":    sysInfo.Platform,
		"cpu_model":   sysInfo.CPUModel,
		"cpu_cores":   sysInfo.CPUCores,
		"memory_mb":   sysInfo.TotalMemory,
		"app_version": "1.0.0",
	}

	handler := &MQTTHandler{
		cfg:      cfg,
		eventBus: eventBus,
		metadata: metadata,
	}

	// Configure MQTT client
	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if mqttCfg.UseTLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, mqttCfg.BrokerURL, mqttCfg.Port))

	if mqttCfg.ClientID != "" {
		opts.SetClientID(mqttCfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("chulobby-%s", sysInfo.Hostname))
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)

	// TLS configuration
	if mqttCfg.UseTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}

		// mTLS: load client certificate
		if mqttCfg.CertFile != "" && mqttCfg.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(mqttCfg.CertFile, mqttCfg.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load MQTT TLS certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}

		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Info().Msg("MQTT connected")
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	handler.client = mqtt.NewClient(opts)

	return handler, nil
}

// Start connects to the MQTT broker and subscribes to events. Blocks until
// ctx is done.
func (h *MQTTHandler) Start(ctx context.Context) error {
	mqttCfg := h.cfg.GetApplicationData().MQTT
	log.Info().
		Str("broker", mqttCfg.BrokerURL).
		Int("port", mqttCfg.Port).
		Msg("connecting to MQTT broker")

	token := h.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect failed: %w", token.Error())
	}

	h.subscribeEvents()

	<-ctx.Done()

	h.PublishShutdown()
	h.client.Disconnect(5000)
	log.Info().Msg("MQTT disconnected")

	return nil
}

// subscribeEvents registers event handlers for MQTT publishing.
func (h *MQTTHandler) subscribeEvents() {
	h.eventBus.Subscribe(events.EventPlayerJoined, "mqtt.playerJoined", h.onPlayerJoined)
	h.eventBus.Subscribe(events.EventPlayerLeft, "mqtt.playerLeft", h.onPlayerLeft)
	h.eventBus.Subscribe(events.EventRoomCreated, "mqtt.roomCreated", h.onRoomCreated)
	h.eventBus.Subscribe(events.EventRoomJoined, "mqtt.roomJoined", h.onRoomJoined)
	h.eventBus.Subscribe(events.EventGameStarted, "mqtt.gameStarted", h.onGameStarted)
}

// topic joins the configured base with a suffix.
func (h *MQTTHandler) topic(suffix string) string {
	base := h.cfg.GetApplicationData().MQTT.TopicBase
	if base == "" {
		return suffix
	}
	return base + "/" + suffix
}

// publish sends a JSON message to an MQTT topic.
func (h *MQTTHandler) publish(topic string, payload interface{}) {
	if !h.client.IsConnected() {
		return
	}

	msg := h.buildMessage(payload)

	data, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to marshal MQTT message")
		return
	}

	token := h.client.Publish(topic, 1, false, data) // QoS 1
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Warn().Err(token.Error()).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

// buildMessage combines metadata with the event payload.
func (h *MQTTHandler) buildMessage(payload interface{}) map[string]interface{} {
	msg := make(map[string]interface{})

	for k, v := range h.metadata {
		msg[k] = v
	}

	msg["payload"] = payload
	msg["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	return msg
}

// Event handlers

func (h *MQTTHandler) onPlayerJoined(ctx context.Context, event events.Event) error {
	h.publish(h.topic(TopicPlayers), map[string]interface{}{
		"event":   "player_joined",
		"payload": event.Payload,
	})
	return nil
}

func (h *MQTTHandler) onPlayerLeft(ctx context.Context, event events.Event) error {
	h.publish(h.topic(TopicPlayers), map[string]interface{}{
		"event":   "player_left",
		"payload": event.Payload,
	})
	return nil
}

func (h *MQTTHandler) onRoomCreated(ctx context.Context, event events.Event) error {
	h.publish(h.topic(TopicRooms), map[string]interface{}{
		"event":   "room_created",
		"payload": event.Payload,
	})
	return nil
}

func (h *MQTTHandler) onRoomJoined(ctx context.Context, event events.Event) error {
	h.publish(h.topic(TopicRooms), map[string]interface{}{
		"event":   "room_joined",
		"payload": event.Payload,
	})
	return nil
}

func (h *MQTTHandler) onGameStarted(ctx context.Context, event events.Event) error {
	h.publish(h.topic(TopicMatch), map[string]interface{}{
		"event":   "game_started",
		"payload": event.Payload,
	})
	return nil
}

// PublishShutdown sends a shutdown message to the MQTT broker.
func (h *MQTTHandler) PublishShutdown() {
	h.publish(h.topic(TopicAdmin), map[string]interface{}{
		"event":     "shutdown",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
