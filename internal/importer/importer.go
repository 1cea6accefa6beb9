// Package importer loads exported chat histories into the ledger.
package importer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/chat-ledger/internal/db"
	"github.com/lox/chat-ledger/internal/parser"
	"github.com/lox/chat-ledger/internal/types"
)

// Store persists parsed drafts
type Store interface {
	Store(ctx context.Context, sender string, draft types.TransactionDraft) (types.StoredTransaction, error)
}

// Line is one message of a chat export
type Line struct {
	Number int
	Sender string
	Text   string
}

// Config controls an import run
type Config struct {
	Concurrency   int
	DryRun        bool
	// Progress receives a progress bar with running counts; nil disables it
	Progress      io.Writer
	RetryAttempts uint
	RetryDelay    time.Duration
	// Allowed filters senders; nil allows everyone
	Allowed func(sender string) bool
}

// Result counts what happened to each line
type Result struct {
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Importer struct {
	parser *parser.Parser
	store  Store
	logger *log.Logger
}

func New(p *parser.Parser, store Store, logger *log.Logger) *Importer {
	return &Importer{parser: p, store: store, logger: logger}
}

// ReadLines splits a chat export into messages. A line is either the message
// text or "sender<TAB>text"; blank lines are dropped.
func ReadLines(r io.Reader, defaultSender string) ([]Line, error) {
	var lines []Line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		raw := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		line := Line{Number: n, Sender: defaultSender, Text: raw}
		if sender, text, ok := strings.Cut(raw, "\t"); ok {
			line.Sender = strings.TrimSpace(sender)
			line.Text = text
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return lines, nil
}

// Import parses and stores lines concurrently. Lines that are not transactions
// are skipped; lines whose store keeps failing are counted as failed. Only
// cancellation aborts the run.
func (im *Importer) Import(ctx context.Context, lines []Line, config Config) (Result, error) {
	startTime := time.Now()
	im.logger.Info("Starting import", "messages", len(lines), "dry_run", config.DryRun)

	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.RetryAttempts < 1 {
		config.RetryAttempts = 1
	}

	tally := newTally(config.Progress, len(lines))
	defer tally.close()

	params := im.parser.Vocabulary().Params()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(config.Concurrency)

	for _, line := range lines {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			o, err := im.importLine(gCtx, line, params, config)
			if err != nil {
				return err
			}
			tally.record(o)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			im.logger.Info("Import interrupted")
		}
		return tally.result(), err
	}

	r := tally.result()
	im.logger.Info("Import finished",
		"duration", time.Since(startTime),
		"stored", r.Stored,
		"skipped", r.Skipped,
		"failed", r.Failed)

	return r, nil
}

// importLine returns an error only when the run should stop.
func (im *Importer) importLine(ctx context.Context, line Line, params []string, config Config) (outcome, error) {
	if config.Allowed != nil && !config.Allowed(line.Sender) {
		im.logger.Debug("Skipping unlisted sender", "line", line.Number, "sender", line.Sender)
		return outcomeSkipped, nil
	}
	if parser.IsReportCommand(line.Text) {
		return outcomeSkipped, nil
	}

	draft, err := im.parser.ParseMessage(line.Text, params)
	if err != nil {
		im.logger.Debug("Skipping line", "line", line.Number, "error", err)
		return outcomeSkipped, nil
	}

	if config.DryRun {
		return outcomeStored, nil
	}

	err = im.storeWithRetry(ctx, line, draft, config)
	switch {
	case errors.Is(err, context.Canceled):
		return outcomeFailed, err
	case errors.Is(err, db.ErrInvalidDate):
		im.logger.Debug("Skipping line", "line", line.Number, "error", err)
		return outcomeSkipped, nil
	case err != nil:
		im.logger.Error("Failed to store line", "line", line.Number, "error", err)
		return outcomeFailed, nil
	}
	return outcomeStored, nil
}

func (im *Importer) storeWithRetry(ctx context.Context, line Line, draft types.TransactionDraft, config Config) error {
	return retry.Do(
		func() error {
			_, err := im.store.Store(ctx, line.Sender, draft)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(config.RetryAttempts),
		retry.Delay(config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, db.ErrInvalidDate) && !errors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			im.logger.Warn("Retrying store", "line", line.Number, "attempt", n+1, "error", err)
		}),
	)
}
