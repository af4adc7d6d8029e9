package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/chulobby-project/chulobby/internal/util"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration. The
// process refuses to bind any socket when errors are present.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServerData(&cfg.ServerData, result)
	validateApplicationData(&cfg.ApplicationData, result)

	return result
}

func validateServerData(data *ServerData, result *ValidationResult) {
	validatePort(data.LobbyPort, "server_data.lobby_port", result)
	validatePort(data.LoginPort, "server_data.login_port", result)
	if data.LobbyPort == data.LoginPort {
		result.AddError("server_data.ports", "lobby_port and login_port must differ")
	}

	if net.ParseIP(data.BindIP) == nil {
		result.AddError("server_data.bind_ip", fmt.Sprintf("not an IP address: %s", data.BindIP))
	}

	// The login server hands public_ip to consoles in the redirect message,
	// so it must be a routable IPv4 address.
	if strings.TrimSpace(data.PublicIP) == "" {
		result.AddError("server_data.public_ip", "public IP is required for console redirects")
	} else {
		ip := net.ParseIP(data.PublicIP)
		if ip == nil || ip.To4() == nil {
			result.AddError("server_data.public_ip",
				fmt.Sprintf("not an IPv4 address: %s", data.PublicIP))
		} else if ip.IsLoopback() || ip.IsPrivate() {
			result.AddWarning("server_data.public_ip",
				"loopback or private address, real consoles will not reach it")
		}
	}

	if strings.TrimSpace(data.DatabasePath) == "" {
		result.AddError("server_data.database_path", "database path is required")
	}
	if strings.TrimSpace(data.InfoFile) == "" {
		result.AddError("server_data.info_file", "info file path is required")
	} else if !util.FileExists(data.InfoFile) {
		result.AddWarning("server_data.info_file",
			"info file does not exist yet, the Top News panel will be empty")
	}

	if data.MaxClients < 1 {
		result.AddError("server_data.max_clients", "must allow at least 1 client")
	}
	if data.MaxRooms < 1 {
		result.AddError("server_data.max_rooms", "must allow at least 1 room")
	}
	if !data.Deedee && data.MaxRooms < 5 {
		result.AddWarning("server_data.max_rooms",
			"fewer than 5 rooms leaves no slot for player-created rooms")
	}
	if data.MaxPuzzles < 1 {
		result.AddError("server_data.max_puzzles", "must allow at least 1 puzzle")
	}
	if data.SeatsPerRoom < 2 {
		result.AddError("server_data.seats_per_room", "a game needs at least 2 seats")
	}
	if data.IdleTimeoutMin < 1 {
		result.AddError("server_data.idle_timeout_min", "idle timeout must be at least 1 minute")
	}
}

func validateApplicationData(data *ApplicationData, result *ValidationResult) {
	validatePort(data.APIPort, "application_data.api_port", result)

	if data.MQTT.Enabled {
		if strings.TrimSpace(data.MQTT.BrokerURL) == "" {
			result.AddError("application_data.mqtt.broker_url", "MQTT broker URL is required when enabled")
		}
		if data.MQTT.Port < 1 || data.MQTT.Port > 65535 {
			result.AddError("application_data.mqtt.port", "invalid MQTT port")
		}
	}

	if data.Discord.WebhookURL != "" &&
		!strings.HasPrefix(data.Discord.WebhookURL, "https://") {
		result.AddWarning("application_data.discord.webhook_url",
			"webhook URL does not look like an HTTPS endpoint")
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}

// IsPortAvailable checks if a port is available for binding.
func IsPortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
