package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lox/chat-ledger/internal/bot"
	"github.com/lox/chat-ledger/internal/db"
	"github.com/lox/chat-ledger/internal/format"
	"github.com/lox/chat-ledger/internal/parser"
	"github.com/lox/chat-ledger/internal/types"
)

// Lister lists recent transactions
type Lister interface {
	Recent(ctx context.Context, days, limit int) ([]types.StoredTransaction, error)
}

type Server struct {
	bot    *bot.Bot
	parser *parser.Parser
	lister Lister
	logger *log.Logger
	// sender used when a tool call does not name one
	defaultSender string
}

func New(b *bot.Bot, p *parser.Parser, lister Lister, logger *log.Logger, defaultSender string) *Server {
	return &Server{
		bot:           b,
		parser:        p,
		lister:        lister,
		logger:        logger,
		defaultSender: defaultSender,
	}
}

// MCPServer builds the tool server without starting it
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"Chat Ledger",
		"1.0.0",
	)

	mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a chat message to the ledger bot, as if it arrived from a sender, and return the bot's reply"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Message text, e.g. \"beli kopi 15rb\", \"-show:monthly:07-2025\" or \"help\""),
		),
		mcp.WithString("sender",
			mcp.Description("Sender id, e.g. 6281234567890@s.whatsapp.net"),
		),
	), s.sendMessageHandler)

	mcpServer.AddTool(mcp.NewTool("parse_message",
		mcp.WithDescription("Parse a message without storing anything and return the result as JSON"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Transaction message or -show command"),
		),
	), s.parseMessageHandler)

	mcpServer.AddTool(mcp.NewTool("show_report",
		mcp.WithDescription("Show income, expense and balance for a period"),
		mcp.WithString("period",
			mcp.Description("Report filter such as \"daily\", \"monthly:07-2025\" or \"yearly:2025\". Empty means today."),
		),
	), s.showReportHandler)

	mcpServer.AddTool(mcp.NewTool("delete_transaction",
		mcp.WithDescription("Delete a stored transaction by id"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Transaction id from the confirmation message"),
		),
		mcp.WithString("sender",
			mcp.Description("Sender id requesting the deletion"),
		),
	), s.deleteTransactionHandler)

	mcpServer.AddTool(mcp.NewTool("list_transactions",
		mcp.WithDescription("List stored transactions, newest first"),
		mcp.WithString("days",
			mcp.Required(),
			mcp.Description("Number of days to look back"),
		),
		mcp.WithString("limit",
			mcp.Description("Maximum number of results to return (default: 50)"),
		),
	), s.listTransactionsHandler)

	return mcpServer
}

// Run serves the tools over stdio until stdin closes
func (s *Server) Run() error {
	return server.ServeStdio(s.MCPServer())
}

func (s *Server) sender(request mcp.CallToolRequest) string {
	if sender, ok := request.Params.Arguments["sender"].(string); ok && sender != "" {
		return sender
	}
	return s.defaultSender
}

func (s *Server) sendMessageHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok := request.Params.Arguments["text"].(string)
	if !ok {
		return nil, errors.New("text must be a string")
	}

	reply, err := s.bot.Handle(ctx, bot.Message{Sender: s.sender(request), Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to handle message: %w", err)
	}
	if reply.Ignored {
		return mcp.NewToolResultError("sender is not allowed to use this ledger"), nil
	}

	return mcp.NewToolResultText(reply.Text), nil
}

type parseResult struct {
	Success     bool                    `json:"success"`
	Code        string                  `json:"code,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Transaction *types.TransactionDraft `json:"transaction,omitempty"`
	Report      *types.ReportQuery      `json:"report,omitempty"`
}

func (s *Server) parseMessageHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok := request.Params.Arguments["text"].(string)
	if !ok {
		return nil, errors.New("text must be a string")
	}

	var (
		result parseResult
		err    error
	)
	if parser.IsReportCommand(text) {
		var q types.ReportQuery
		if q, err = parser.ParseReportQuery(text); err == nil {
			result.Report = &q
		}
	} else {
		var draft types.TransactionDraft
		if draft, err = s.parser.ParseMessage(text, s.parser.Vocabulary().Params()); err == nil {
			result.Transaction = &draft
		}
	}

	if err != nil {
		code, _ := parser.CodeOf(err)
		result.Code = code.String()
		result.Error = err.Error()
	} else {
		result.Success = true
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) showReportHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, _ := request.Params.Arguments["period"].(string)
	filter = strings.TrimSpace(filter)

	command := filter
	if !parser.IsReportCommand(command) {
		command = parser.ReportCommand
		if filter != "" {
			command += ":" + filter
		}
	}

	query, err := parser.ParseReportQuery(command)
	if err != nil {
		return mcp.NewToolResultError(format.Error(err)), nil
	}

	data, err := s.bot.Report(ctx, query)
	if err != nil {
		if _, ok := parser.CodeOf(err); ok {
			return mcp.NewToolResultError(format.Error(err)), nil
		}
		return nil, err
	}

	text, err := format.Report(data)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) deleteTransactionHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := request.Params.Arguments["id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, errors.New("id must be a non-empty string")
	}

	err := s.bot.Delete(ctx, s.sender(request), id)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("no transaction with id %s", id)), nil
	case errors.Is(err, bot.ErrUnauthorized):
		return mcp.NewToolResultError("sender is not allowed to use this ledger"), nil
	case err != nil:
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Deleted transaction %s", id)), nil
}

func (s *Server) listTransactionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days, err := intArgument(request, "days", -1)
	if err != nil {
		return nil, err
	}
	limit, err := intArgument(request, "limit", 50)
	if err != nil {
		return nil, err
	}

	transactions, err := s.lister.Recent(ctx, days, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var result strings.Builder
	for _, t := range transactions {
		fmt.Fprintf(&result, "%s: %s %s [%s]\n", t.Date.Format("02/01/2006"), t.Type, format.FormatRupiah(t.Amount), t.ID)
		if t.Description != "" {
			fmt.Fprintf(&result, "  Description: %s\n", t.Description)
		}
		if t.Sender != "" {
			fmt.Fprintf(&result, "  Sender: %s\n", t.Sender)
		}
		result.WriteString("\n")
	}
	if len(transactions) == 0 {
		fmt.Fprintf(&result, "No transactions in the last %d days\n", days)
	}

	return mcp.NewToolResultText(result.String()), nil
}

// intArgument reads an integer that clients may send as a number or a string.
// Missing arguments take def; a def below zero makes the argument required.
func intArgument(request mcp.CallToolRequest, name string, def int) (int, error) {
	value, ok := request.Params.Arguments[name]
	if !ok {
		if def < 0 {
			return 0, fmt.Errorf("%s is required", name)
		}
		return def, nil
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", name, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number or string", name)
	}
}
