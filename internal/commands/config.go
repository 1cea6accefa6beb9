package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// CommonConfig contains configuration common to all commands
type CommonConfig struct {
	// DataDir is the path to the data directory
	DataDir string `help:"Path to data directory" default:"./data" env:"CHAT_LEDGER_DATA_DIR"`
	// Timezone is the timezone transaction dates and report periods are read in
	Timezone string `help:"Timezone for transaction dates and report periods" required:"" default:"Asia/Jakarta" env:"CHAT_LEDGER_TIMEZONE"`
	// LogLevel is the logging level to use
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error"`
	// Vocabulary is an optional YAML file replacing the built-in keywords and units
	Vocabulary string `help:"Path to a vocabulary YAML file (default: built-in)" type:"path" env:"CHAT_LEDGER_VOCABULARY"`
	// AllowedSenders restricts who may use the ledger; empty allows everyone
	AllowedSenders []string `help:"Sender ids allowed to use the ledger (default: everyone)" sep:"," env:"CHAT_LEDGER_ALLOWED_SENDERS"`
}

// NewLogger builds a stderr logger at the configured level
func (c CommonConfig) NewLogger() (*log.Logger, error) {
	logger := log.New(os.Stderr)

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	logger.SetLevel(level)

	return logger, nil
}

// Location loads the configured timezone
func (c CommonConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
