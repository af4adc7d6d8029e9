// Package config handles configuration loading, validation, and persistence
// for the lobby service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"

	DefaultLoginPort = 9000
	DefaultLobbyPort = 9001
	DefaultAPIPort   = 5000

	DefaultMaxClients   = 100
	DefaultMaxRooms     = 16
	DefaultMaxPuzzles   = 96
	DefaultSeatsPerRoom = 4
)

// Config is the root configuration structure.
type Config struct {
	mu   sync.RWMutex
	path string

	ServerData      ServerData      `json:"server_data"`
	ApplicationData ApplicationData `json:"application_data"`
}

// ServerData contains the game-facing server configuration.
type ServerData struct {
	// Addresses. PublicIP is what the login server redirects consoles to;
	// it must be reachable from the internet.
	BindIP   string `json:"bind_ip"`
	PublicIP string `json:"public_ip"`

	// Ports
	LoginPort int `json:"login_port"`
	LobbyPort int `json:"lobby_port"`

	// Deedee switches to the Dee Dee Planet lobby layout: no puzzle
	// features and only two seeded rooms.
	Deedee bool `json:"deedee_mode"`

	// Paths
	DatabasePath string `json:"database_path"`
	InfoFile     string `json:"info_file"`

	// Capacities
	MaxClients   int `json:"max_clients"`
	MaxRooms     int `json:"max_rooms"`
	MaxPuzzles   int `json:"max_puzzles"`
	SeatsPerRoom int `json:"seats_per_room"`

	// IdleTimeoutMin is how long a silent console keeps its connection.
	IdleTimeoutMin int `json:"idle_timeout_min"`
}

// ApplicationData contains operator-side configuration.
type ApplicationData struct {
	APIPort int           `json:"api_port"`
	Discord DiscordConfig `json:"discord"`
	MQTT    MQTTConfig    `json:"mqtt"`
	Logging LoggingConfig `json:"logging"`
}

// DiscordConfig holds Discord webhook settings.
type DiscordConfig struct {
	WebhookURL        string `json:"webhook_url"`
	NotifyOnRoomJoin  bool   `json:"notify_on_room_join"`
	NotifyOnGameStart bool   `json:"notify_on_game_start"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	UseTLS    bool   `json:"use_tls"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	CAFile    string `json:"ca_file"`
	ClientID  string `json:"client_id"`
	TopicBase string `json:"topic_base"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level"`
	Directory string `json:"directory"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerData: ServerData{
			BindIP:         "0.0.0.0",
			LoginPort:      DefaultLoginPort,
			LobbyPort:      DefaultLobbyPort,
			DatabasePath:   filepath.Join("data", "lobby.db"),
			InfoFile:       filepath.Join("data", "info.txt"),
			MaxClients:     DefaultMaxClients,
			MaxRooms:       DefaultMaxRooms,
			MaxPuzzles:     DefaultMaxPuzzles,
			SeatsPerRoom:   DefaultSeatsPerRoom,
			IdleTimeoutMin: 30,
		},
		ApplicationData: ApplicationData{
			APIPort: DefaultAPIPort,
			MQTT: MQTTConfig{
				Port:      8883,
				UseTLS:    true,
				TopicBase: "chulobby",
			},
			Logging: LoggingConfig{
				Level:     "info",
				Directory: "logs",
			},
		},
	}
}

// Load reads configuration from a JSON file, creating a default one on
// first run.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save to persist any new default fields added in code updates.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// IsFirstRun returns true if the configuration needs initial setup.
func (c *Config) IsFirstRun() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerData.PublicIP == ""
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetServerData returns a copy of the server configuration.
func (c *Config) GetServerData() ServerData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerData
}

// GetApplicationData returns a copy of the application configuration.
func (c *Config) GetApplicationData() ApplicationData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ApplicationData
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}
