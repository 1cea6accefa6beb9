package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/chat-ledger/internal/bot"
)

func TestNewLogger(t *testing.T) {
	logger, err := CommonConfig{LogLevel: "debug"}.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, log.DebugLevel, logger.GetLevel())

	_, err = CommonConfig{LogLevel: "loud"}.NewLogger()
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	loc, err := CommonConfig{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = CommonConfig{Timezone: "Nowhere/Special"}.Location()
	assert.Error(t, err)
}

func TestOpenLedger(t *testing.T) {
	dir := t.TempDir()
	vocabPath := filepath.Join(dir, "vocab.yaml")
	require.NoError(t, os.WriteFile(vocabPath, []byte(`version: test
units:
  - token: k
    multiplier: 1000
income_keywords: [income]
expense_keywords: [spend]
params: [note]
`), 0o644))

	config := CommonConfig{
		DataDir:        filepath.Join(dir, "data"),
		Timezone:       "UTC",
		LogLevel:       "warn",
		Vocabulary:     vocabPath,
		AllowedSenders: []string{"6281"},
	}

	ledger, err := OpenLedger(config, log.New(io.Discard))
	require.NoError(t, err)
	defer ledger.Close()

	assert.Equal(t, "test", ledger.Vocabulary.Version())
	assert.FileExists(t, filepath.Join(dir, "data", "ledger.db"))

	reply, err := ledger.Bot.Handle(context.Background(), bot.Message{Sender: "6281@s.whatsapp.net", Text: "spend 5k lunch -note:team"})
	require.NoError(t, err)
	require.NotNil(t, reply.Transaction)
	assert.Equal(t, "lunch", reply.Transaction.Description)

	reply, err = ledger.Bot.Handle(context.Background(), bot.Message{Sender: "6282", Text: "spend 5k lunch"})
	require.NoError(t, err)
	assert.True(t, reply.Ignored)
}

func TestOpenLedgerBadVocabulary(t *testing.T) {
	_, err := OpenLedger(CommonConfig{
		DataDir:    t.TempDir(),
		Timezone:   "UTC",
		Vocabulary: filepath.Join(t.TempDir(), "missing.yaml"),
	}, log.New(io.Discard))
	assert.Error(t, err)
}
