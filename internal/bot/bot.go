// Package bot routes inbound chat messages to the parser, the store and the
// reply templates. It knows nothing about how messages arrive.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/chat-ledger/internal/db"
	"github.com/lox/chat-ledger/internal/format"
	"github.com/lox/chat-ledger/internal/parser"
	"github.com/lox/chat-ledger/internal/period"
	"github.com/lox/chat-ledger/internal/types"
)

// ErrUnauthorized is returned when a sender outside the allow-list asks for a
// privileged operation
var ErrUnauthorized = errors.New("sender is not allowed")

// Store is the persistence the bot needs
type Store interface {
	Store(ctx context.Context, sender string, draft types.TransactionDraft) (types.StoredTransaction, error)
	Totals(ctx context.Context, start, end time.Time) (types.Totals, error)
	Delete(ctx context.Context, id string) error
	Now() time.Time
}

// Message is one inbound chat message
type Message struct {
	// Sender is an opaque id such as "6281234567890@s.whatsapp.net"
	Sender string
	Text   string
}

// Reply is what to send back. Ignored replies must not be sent.
type Reply struct {
	Text    string
	Ignored bool

	// Set when the message stored a transaction
	Transaction *types.StoredTransaction
	// Set when the message was a report command that resolved
	Report *format.ReportData
}

type Bot struct {
	parser  *parser.Parser
	store   Store
	logger  *log.Logger
	allowed map[string]bool
}

// New creates a bot. An empty allow-list lets every sender through.
func New(p *parser.Parser, store Store, logger *log.Logger, allowedSenders []string) *Bot {
	allowed := make(map[string]bool, len(allowedSenders))
	for _, s := range allowedSenders {
		if id := senderID(s); id != "" {
			allowed[id] = true
		}
	}
	return &Bot{
		parser:  p,
		store:   store,
		logger:  logger,
		allowed: allowed,
	}
}

// senderID drops any "@domain" suffix
func senderID(sender string) string {
	id, _, _ := strings.Cut(strings.TrimSpace(sender), "@")
	return id
}

// Allowed reports whether sender may use the bot
func (b *Bot) Allowed(sender string) bool {
	if len(b.allowed) == 0 {
		return true
	}
	return b.allowed[senderID(sender)]
}

// Handle routes one message. Parse failures become "Error: ..." replies; only
// storage failures are returned as errors.
func (b *Bot) Handle(ctx context.Context, msg Message) (Reply, error) {
	b.logger.Info("Received message", "sender", msg.Sender, "text", msg.Text)

	if !b.Allowed(msg.Sender) {
		b.logger.Debug("Ignoring message from unlisted sender", "sender", msg.Sender)
		return Reply{Ignored: true}, nil
	}

	switch {
	case isHelp(msg.Text):
		return b.handleHelp()
	case parser.IsReportCommand(msg.Text):
		return b.handleReport(ctx, msg)
	default:
		return b.handleStore(ctx, msg)
	}
}

func isHelp(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "help")
}

func (b *Bot) handleHelp() (Reply, error) {
	text, err := format.Help(b.parser.Vocabulary())
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text}, nil
}

func (b *Bot) handleReport(ctx context.Context, msg Message) (Reply, error) {
	query, err := parser.ParseReportQuery(msg.Text)
	if err != nil {
		b.logger.Warn("Failed to parse report command", "sender", msg.Sender, "error", err)
		return Reply{Text: format.Error(err)}, nil
	}

	data, err := b.Report(ctx, query)
	if err != nil {
		if _, ok := parser.CodeOf(err); ok {
			b.logger.Warn("Unsupported report filter", "sender", msg.Sender, "error", err)
			return Reply{Text: format.Error(err)}, nil
		}
		return Reply{}, err
	}

	text, err := format.Report(data)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Report: &data}, nil
}

// Report resolves query against the store's clock and totals that period
func (b *Bot) Report(ctx context.Context, query types.ReportQuery) (format.ReportData, error) {
	r, err := period.Resolve(query, b.store.Now())
	if err != nil {
		return format.ReportData{}, err
	}

	totals, err := b.store.Totals(ctx, r.Start, r.End)
	if err != nil {
		return format.ReportData{}, fmt.Errorf("failed to total %s report: %w", r.Type, err)
	}
	b.logger.Debug("Report totals", "type", r.Type, "period", r.Label(), "income", totals.Income, "expense", totals.Expense)

	return format.ReportData{Type: r.Type, Period: r.Label(), Totals: totals}, nil
}

func (b *Bot) handleStore(ctx context.Context, msg Message) (Reply, error) {
	draft, err := b.parser.ParseMessage(msg.Text, b.parser.Vocabulary().Params())
	if err != nil {
		b.logger.Warn("Failed to parse message", "sender", msg.Sender, "error", err)
		return Reply{Text: format.Error(err)}, nil
	}
	b.logger.Debug("Parsed message", "type", draft.Type, "amount", draft.Amount, "description", draft.Description)

	tx, err := b.store.Store(ctx, msg.Sender, draft)
	if errors.Is(err, db.ErrInvalidDate) {
		return Reply{Text: format.Error(err)}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("failed to store transaction: %w", err)
	}
	b.logger.Info("Stored transaction", "id", tx.ID, "sender", msg.Sender)

	text, err := format.Transaction(tx)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Transaction: &tx}, nil
}

// Delete removes a stored transaction on behalf of sender
func (b *Bot) Delete(ctx context.Context, sender, id string) error {
	if !b.Allowed(sender) {
		return ErrUnauthorized
	}
	if err := b.store.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	b.logger.Info("Deleted transaction", "id", id, "sender", sender)
	return nil
}
