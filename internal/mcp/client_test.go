package mcpclient

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tg-forum-migrator/internal/httpserver"
	"tg-forum-migrator/internal/stats"
	"tg-forum-migrator/internal/statusmcp"
)

func TestCallStatusTool(t *testing.T) {
	tracker := stats.NewTracker(time.Unix(0, 0).UTC())
	tracker.Update(func(s *stats.Snapshot) {
		s.State = "running"
		s.CurrentPostID = 321
		s.TopicsCreated = 4
	})

	h := statusmcp.NewHandler(statusmcp.NewServer(tracker), "/mcp")
	srv := httptest.NewServer(httpserver.NewServer("", tracker, h).Handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := Call(ctx, srv.URL+"/mcp", statusmcp.ToolStatus, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	var snap stats.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}
	if snap.CurrentPostID != 321 || snap.TopicsCreated != 4 || snap.State != "running" {
		t.Fatalf("snapshot=%+v", snap)
	}

	report, err := Call(ctx, srv.URL+"/mcp", statusmcp.ToolReport, nil)
	if err != nil {
		t.Fatalf("Call report: %v", err)
	}
	if !strings.Contains(report, "#321") {
		t.Fatalf("report=%q", report)
	}
}
