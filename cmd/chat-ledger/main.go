package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/lox/chat-ledger/internal/bot"
	"github.com/lox/chat-ledger/internal/commands"
	"github.com/lox/chat-ledger/internal/format"
	"github.com/lox/chat-ledger/internal/importer"
	"github.com/lox/chat-ledger/internal/parser"
	"github.com/lox/chat-ledger/internal/vocabulary"
)

type CLI struct {
	commands.CommonConfig

	Parse          ParseCmd      `cmd:"" help:"Parse a message and print the result as JSON without storing it"`
	Send           SendCmd       `cmd:"" help:"Handle a message as the chat bot would and print the reply"`
	Report         ReportCmd     `cmd:"" help:"Show income, expense and balance for a period"`
	Delete         DeleteCmd     `cmd:"" help:"Delete a stored transaction"`
	Import         ImportCmd     `cmd:"" help:"Import a chat export, one message per line"`
	ShowVocabulary VocabularyCmd `cmd:"" name:"vocabulary" help:"Print the active vocabulary as YAML"`
}

type ParseCmd struct {
	Message []string `arg:"" help:"Message text"`
}

func (c *ParseCmd) Run(common *commands.CommonConfig) error {
	p, err := commands.LoadParser(*common)
	if err != nil {
		return err
	}

	text := strings.Join(c.Message, " ")
	var result any
	if parser.IsReportCommand(text) {
		result, err = parser.ParseReportQuery(text)
	} else {
		result, err = p.ParseMessage(text, p.Vocabulary().Params())
	}
	if err != nil {
		code, _ := parser.CodeOf(err)
		return fmt.Errorf("%s: %w", code, err)
	}

	return printJSON(result)
}

type SendCmd struct {
	Sender  string   `help:"Sender id" default:"cli"`
	Message []string `arg:"" help:"Message text"`
}

func (c *SendCmd) Run(common *commands.CommonConfig) error {
	ledger, err := openLedger(common)
	if err != nil {
		return err
	}
	defer ledger.Close()

	reply, err := ledger.Bot.Handle(context.Background(), bot.Message{
		Sender: c.Sender,
		Text:   strings.Join(c.Message, " "),
	})
	if err != nil {
		return err
	}
	if reply.Ignored {
		return fmt.Errorf("sender %q is not allowed", c.Sender)
	}

	fmt.Println(reply.Text)
	return nil
}

type ReportCmd struct {
	Period string `arg:"" optional:"" help:"Report filter, e.g. daily, monthly:07-2025 or yearly:2025 (default: today)"`
}

func (c *ReportCmd) Run(common *commands.CommonConfig) error {
	ledger, err := openLedger(common)
	if err != nil {
		return err
	}
	defer ledger.Close()

	command := parser.ReportCommand
	if period := strings.TrimSpace(c.Period); period != "" {
		command += ":" + period
	}

	query, err := parser.ParseReportQuery(command)
	if err != nil {
		return err
	}

	data, err := ledger.Bot.Report(context.Background(), query)
	if err != nil {
		return err
	}

	text, err := format.Report(data)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

type DeleteCmd struct {
	Sender string `help:"Sender id requesting the deletion" default:"cli"`
	ID     string `arg:"" help:"Transaction id"`
}

func (c *DeleteCmd) Run(common *commands.CommonConfig) error {
	ledger, err := openLedger(common)
	if err != nil {
		return err
	}
	defer ledger.Close()

	if err := ledger.Bot.Delete(context.Background(), c.Sender, c.ID); err != nil {
		return err
	}

	fmt.Printf("Deleted transaction %s\n", c.ID)
	return nil
}

type ImportCmd struct {
	File          string `arg:"" type:"existingfile" help:"Chat export to import"`
	Sender        string `help:"Sender for lines without one" default:"import"`
	Concurrency   int    `help:"Number of messages to store concurrently" default:"4"`
	RetryAttempts uint   `help:"Attempts per message when the database is busy" default:"5"`
	NoProgress    bool   `help:"Disable progress bar" default:"false"`
	DryRun        bool   `help:"Parse messages without storing them" default:"false"`
}

func (c *ImportCmd) Run(common *commands.CommonConfig) error {
	ledger, err := openLedger(common)
	if err != nil {
		return err
	}
	defer ledger.Close()

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open chat export: %w", err)
	}
	defer f.Close()

	lines, err := importer.ReadLines(f, c.Sender)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	im := importer.New(ledger.Parser, ledger.DB, ledger.Logger)
	result, err := im.Import(ctx, lines, importer.Config{
		Concurrency:   c.Concurrency,
		DryRun:        c.DryRun,
		Progress:      progressWriter(c.NoProgress),
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    100 * time.Millisecond,
		Allowed:       ledger.Bot.Allowed,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return printJSON(result)
}

type VocabularyCmd struct{}

func (c *VocabularyCmd) Run(common *commands.CommonConfig) error {
	v, err := vocabulary.Load(common.Vocabulary)
	if err != nil {
		return err
	}
	return vocabulary.Encode(os.Stdout, v)
}

func openLedger(common *commands.CommonConfig) (*commands.Ledger, error) {
	logger, err := common.NewLogger()
	if err != nil {
		return nil, err
	}
	return commands.OpenLedger(*common, logger)
}

func progressWriter(disabled bool) io.Writer {
	if disabled {
		return nil
	}
	return os.Stderr
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chat-ledger"),
		kong.Description("Record income and expenses from chat messages"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.CommonConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
