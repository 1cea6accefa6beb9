package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/lox/chat-ledger/internal/commands"
	"github.com/lox/chat-ledger/internal/mcp"
)

type CLI struct {
	commands.CommonConfig

	Sender string `help:"Sender id for tool calls that do not name one" default:"mcp" env:"CHAT_LEDGER_MCP_SENDER"`
}

func (c *CLI) Run() error {
	logger, err := c.NewLogger()
	if err != nil {
		return err
	}

	ledger, err := commands.OpenLedger(c.CommonConfig, logger)
	if err != nil {
		logger.Fatal("Failed to open ledger", "error", err)
	}
	defer ledger.Close()

	s := mcp.New(ledger.Bot, ledger.Parser, ledger.DB, logger, c.Sender)
	return s.Run()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chat-ledger-mcp-server"),
		kong.Description("Serve the chat ledger over the Model Context Protocol on stdio"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
