package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/chulobby-project/chulobby/internal/util"
)

// RunSetupWizard guides the operator through first-time configuration.
func RunSetupWizard(cfg *Config) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║        ChuLobby - First Run Setup            ║")
	fmt.Println("╠══════════════════════════════════════════════╣")
	fmt.Println("║  Welcome! Let's configure your server.       ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Println("── Network ──")

	// Detected address as the suggestion, the operator can still override.
	if cfg.ServerData.PublicIP == "" {
		if ip, err := util.GetPublicIP(); err == nil {
			cfg.ServerData.PublicIP = ip
		} else if ip, err := util.GetLocalIP(); err == nil {
			cfg.ServerData.PublicIP = ip
		}
	}

	cfg.ServerData.PublicIP = promptString(reader,
		"Public IPv4 address (consoles are redirected here)", cfg.ServerData.PublicIP)
	cfg.ServerData.BindIP = promptString(reader, "Bind address", cfg.ServerData.BindIP)
	cfg.ServerData.LoginPort = promptInt(reader, "Login server port", cfg.ServerData.LoginPort)
	cfg.ServerData.LobbyPort = promptInt(reader, "Lobby server port", cfg.ServerData.LobbyPort)

	fmt.Println()
	fmt.Println("── Game ──")

	cfg.ServerData.Deedee = promptBool(reader,
		"Dee Dee Planet mode (small lobby, no puzzles)", cfg.ServerData.Deedee)
	cfg.ServerData.MaxClients = promptInt(reader, "Maximum connected clients", cfg.ServerData.MaxClients)
	cfg.ServerData.MaxRooms = promptInt(reader, "Maximum game rooms", cfg.ServerData.MaxRooms)

	fmt.Println()
	fmt.Println("── Storage ──")

	cfg.ServerData.DatabasePath = promptString(reader, "SQLite database path", cfg.ServerData.DatabasePath)
	cfg.ServerData.InfoFile = promptString(reader, "Top News text file", cfg.ServerData.InfoFile)

	fmt.Println()
	fmt.Println("── Integrations ──")

	cfg.ApplicationData.Discord.WebhookURL = promptString(reader,
		"Discord webhook URL (blank to disable)", cfg.ApplicationData.Discord.WebhookURL)
	cfg.ApplicationData.MQTT.Enabled = promptBool(reader,
		"Enable MQTT telemetry", cfg.ApplicationData.MQTT.Enabled)
	if cfg.ApplicationData.MQTT.Enabled {
		cfg.ApplicationData.MQTT.BrokerURL = promptString(reader,
			"MQTT broker URL", cfg.ApplicationData.MQTT.BrokerURL)
	}

	// Validate before saving
	result := Validate(cfg)
	if !result.IsValid() {
		fmt.Println("\n⚠ Configuration has errors:")
		for _, e := range result.Errors {
			fmt.Printf("  - [%s] %s\n", e.Field, e.Message)
		}
		retry := promptString(reader, "Would you like to try again? (yes/no)", "yes")
		if strings.ToLower(retry) == "yes" {
			return RunSetupWizard(cfg)
		}
		return fmt.Errorf("configuration validation failed")
	}

	for _, w := range result.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved successfully!")
	fmt.Println()

	return nil
}

func promptString(reader *bufio.Reader, prompt string, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Printf("  %s: ", prompt)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func promptInt(reader *bufio.Reader, prompt string, defaultVal int) int {
	fmt.Printf("  %s [%d]: ", prompt, defaultVal)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(input)
	if err != nil {
		fmt.Printf("    Invalid number, using default: %d\n", defaultVal)
		return defaultVal
	}
	return val
}

func promptBool(reader *bufio.Reader, prompt string, defaultVal bool) bool {
	defaultStr := "no"
	if defaultVal {
		defaultStr = "yes"
	}

	fmt.Printf("  %s [%s]: ", prompt, defaultStr)

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))

	if input == "" {
		return defaultVal
	}

	return input == "yes" || input == "y" || input == "true" || input == "1"
}
