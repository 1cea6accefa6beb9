package mcp

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/chat-ledger/internal/bot"
	"github.com/lox/chat-ledger/internal/db"
	"github.com/lox/chat-ledger/internal/parser"
	"github.com/lox/chat-ledger/internal/vocabulary"
)

func setupTestServer(t *testing.T, allowed ...string) *Server {
	t.Helper()
	logger := log.New(io.Discard)

	store, err := db.New(t.TempDir(), logger, time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := parser.New(vocabulary.Default())
	b := bot.New(p, store, logger, allowed)
	return New(b, p, store, logger, "6281")
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", result.Content[0])
	return ""
}

func TestSendMessageAndList(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	result, err := s.sendMessageHandler(ctx, call(map[string]interface{}{"text": "beli kopi 15rb"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Rp 15.000")

	result, err = s.listTransactionsHandler(ctx, call(map[string]interface{}{"days": float64(7)}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "expense Rp 15.000")
	assert.Contains(t, text, "Description: kopi")
	assert.Contains(t, text, "Sender: 6281")

	result, err = s.showReportHandler(ctx, call(map[string]interface{}{"period": ""}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Pengeluaran: Rp 15.000")

	result, err = s.showReportHandler(ctx, call(map[string]interface{}{"period": "-show:yearly"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Pengeluaran: Rp 15.000")
}

func TestSendMessageFromUnlistedSender(t *testing.T) {
	s := setupTestServer(t, "6289")

	result, err := s.sendMessageHandler(context.Background(), call(map[string]interface{}{"text": "beli kopi 15rb"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestParseMessage(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		text    string
		success bool
		code    string
	}{
		{"beli kopi 15rb", true, ""},
		{"-show:monthly:07-2025", true, ""},
		{"hello world", false, "no-amount"},
		{"-show:monthly:7-2025", false, "bad-monthly-format"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result, err := s.parseMessageHandler(ctx, call(map[string]interface{}{"text": tt.text}))
			require.NoError(t, err)

			var decoded parseResult
			require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
			assert.Equal(t, tt.success, decoded.Success)
			assert.Equal(t, tt.code, decoded.Code)
		})
	}

	result, err := s.parseMessageHandler(ctx, call(map[string]interface{}{"text": "beli kopi 15rb"}))
	require.NoError(t, err)
	var decoded parseResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
	require.NotNil(t, decoded.Transaction)
	assert.Equal(t, "15000", decoded.Transaction.Amount.String())
	assert.Equal(t, "kopi", decoded.Transaction.Description)

	// parsing never stores
	list, err := s.listTransactionsHandler(ctx, call(map[string]interface{}{"days": "30"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, list), "No transactions")
}

func TestShowReportErrors(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	for _, period := range []string{"monthly:13-2025", "weekly:01-2025", "daily:2025-01-01"} {
		result, err := s.showReportHandler(ctx, call(map[string]interface{}{"period": period}))
		require.NoError(t, err)
		assert.True(t, result.IsError, period)
		assert.Contains(t, resultText(t, result), "Error: ")
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	reply, err := s.bot.Handle(ctx, bot.Message{Sender: "6281", Text: "gaji 5jt"})
	require.NoError(t, err)
	require.NotNil(t, reply.Transaction)

	result, err := s.deleteTransactionHandler(ctx, call(map[string]interface{}{"id": reply.Transaction.ID}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	result, err = s.deleteTransactionHandler(ctx, call(map[string]interface{}{"id": reply.Transaction.ID}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	_, err = s.deleteTransactionHandler(ctx, call(map[string]interface{}{}))
	assert.Error(t, err)
}

func TestIntArgument(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		def     int
		want    int
		wantErr bool
	}{
		{"float", map[string]interface{}{"n": float64(7)}, 0, 7, false},
		{"int", map[string]interface{}{"n": 3}, 0, 3, false},
		{"string", map[string]interface{}{"n": " 12 "}, 0, 12, false},
		{"default", map[string]interface{}{}, 50, 50, false},
		{"required", map[string]interface{}{}, -1, 0, true},
		{"bad string", map[string]interface{}{"n": "x"}, 0, 0, true},
		{"bad type", map[string]interface{}{"n": true}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := intArgument(call(tt.args), "n", tt.def)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMCPServerBuilds(t *testing.T) {
	s := setupTestServer(t)
	assert.NotNil(t, s.MCPServer())
}
