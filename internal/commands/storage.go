package commands

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lox/chat-ledger/internal/bot"
	"github.com/lox/chat-ledger/internal/db"
	"github.com/lox/chat-ledger/internal/parser"
	"github.com/lox/chat-ledger/internal/vocabulary"
)

// Ledger bundles everything a command needs to handle messages
type Ledger struct {
	Logger     *log.Logger
	Vocabulary *vocabulary.Vocabulary
	Parser     *parser.Parser
	DB         *db.DB
	Bot        *bot.Bot
}

// LoadParser loads the configured vocabulary without touching the database
func LoadParser(config CommonConfig) (*parser.Parser, error) {
	v, err := vocabulary.Load(config.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return parser.New(v), nil
}

// OpenLedger loads the vocabulary, opens the database and wires the bot.
// Callers must Close the ledger.
func OpenLedger(config CommonConfig, logger *log.Logger) (*Ledger, error) {
	p, err := LoadParser(config)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded vocabulary", "version", p.Vocabulary().Version())

	loc, err := config.Location()
	if err != nil {
		return nil, err
	}

	database, err := db.New(config.DataDir, logger, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Ledger{
		Logger:     logger,
		Vocabulary: p.Vocabulary(),
		Parser:     p,
		DB:         database,
		Bot:        bot.New(p, database, logger, config.AllowedSenders),
	}, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.DB.Close()
}
