package tracing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termstats/pkg/logger"
)

func TestSpanTreeSharesRequestID(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-42")
	ctx, root := Start(ctx, "score")
	_, child := Start(ctx, "compute")
	child.SetAttr("method", "tf_idf")
	child.End(errors.New("unknown algorithm"))
	root.End(nil)

	if root.TraceID != "req-42" || child.TraceID != "req-42" {
		t.Errorf("trace ids = %q, %q", root.TraceID, child.TraceID)
	}
	if kids := root.Children(); len(kids) != 1 || kids[0] != child {
		t.Fatalf("children = %v", kids)
	}
	if FromContext(ctx) != root {
		t.Error("FromContext did not return the root span")
	}
}

func TestLogWritesOnlyAtDebug(t *testing.T) {
	ctx, root := Start(context.Background(), "score")
	_, child := Start(ctx, "cache")
	child.End(nil)
	root.End(nil)

	var buf bytes.Buffer
	root.Log(ctx, logger.New(&buf, config.LoggingConfig{Level: "info", Format: "json"}))
	if buf.Len() != 0 {
		t.Errorf("info logger wrote %q", buf.String())
	}

	root.Log(ctx, logger.New(&buf, config.LoggingConfig{Level: "debug", Format: "json"}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d records: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], `"span":"cache"`) || !strings.Contains(lines[1], `"depth":1`) {
		t.Errorf("child record = %s", lines[1])
	}
}
