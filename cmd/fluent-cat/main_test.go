package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
	"github.com/quarks-tech/fluentforward-go/pkg/fluent"
	"github.com/quarks-tech/fluentforward-go/pkg/transport/gochan"
	"github.com/quarks-tech/fluentforward-go/pkg/wire"
)

const input = `{"msg":"one"}
{"msg":"two"}

{"msg":"three"}
`

func testConfig(mode string) Config {
	cfg := defaultConfig()
	cfg.Tag = "app"
	cfg.Mode = mode
	cfg.Batch = 2

	return cfg
}

func drain(t *testing.T, sr *gochan.SendReceiver) [][]byte {
	t.Helper()

	ctx := context.Background()
	sr.Close(ctx)

	var payloads [][]byte
	require.NoError(t, sr.Receive(ctx, func(op delivery.Operation) error {
		payloads = append(payloads, op.Payload)
		return nil
	}))

	return payloads
}

func TestCatSingleRecords(t *testing.T) {
	cfg := testConfig("msgpack")
	sr := gochan.New()
	client := fluent.NewWithConfig(cfg.Address, cfg.Tag, cfg.retryConfig(),
		append(cfg.clientOptions(logrus.New()), fluent.WithTransport(sr))...)

	require.NoError(t, cat(context.Background(), client, strings.NewReader(input), cfg))

	payloads := drain(t, sr)
	require.Len(t, payloads, 3)

	for i, want := range []string{"one", "two", "three"} {
		r, err := wire.DecodeRecord(payloads[i])
		require.NoError(t, err)
		assert.Equal(t, "app", r.Tag)
		assert.Equal(t, map[string]any{"msg": want}, r.Data)
	}
}

func TestCatBatches(t *testing.T) {
	cfg := testConfig("forward")
	sr := gochan.New()
	client := fluent.NewWithConfig(cfg.Address, cfg.Tag, cfg.retryConfig(),
		append(cfg.clientOptions(logrus.New()), fluent.WithTransport(sr))...)

	require.NoError(t, cat(context.Background(), client, strings.NewReader(input), cfg))

	payloads := drain(t, sr)
	require.Len(t, payloads, 2)

	first, err := wire.DecodeForward(payloads[0])
	require.NoError(t, err)
	assert.Len(t, first.Entries, 2)

	second, err := wire.DecodeForward(payloads[1])
	require.NoError(t, err)
	require.Len(t, second.Entries, 1)
	assert.Equal(t, map[string]any{"msg": "three"}, second.Entries[0].Data)
}

func TestCatRejectsInvalidJSON(t *testing.T) {
	cfg := testConfig("msgpack")
	sr := gochan.New()
	client := fluent.New(cfg.Address, cfg.Tag, fluent.WithTransport(sr))

	err := cat(context.Background(), client, strings.NewReader("{\"ok\":true}\nnot json\n"), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := defaultConfig()
	cfg.LogLevel = "warn"

	logger := newLogger(cfg, &buf)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
