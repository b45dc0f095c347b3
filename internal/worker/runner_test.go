package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/flowtap/flowtap/internal/tap"
	"github.com/flowtap/flowtap/pkg/logging"
	"github.com/flowtap/flowtap/pkg/models"
)

// writeSpool materializes a spool file the way the launcher would
func writeSpool(t *testing.T, workdir, engine, cellID string, addrs ChannelAddrs) string {
	t.Helper()

	spool := SpoolFile{
		Submission: models.Submission{
			CellID: cellID,
			RunID:  "run-" + cellID,
			Code:   "print(1)\n",
			Config: models.ExecConfig{
				Workdir: workdir,
				RunMode: "interactive",
			},
			SubmittedAt: time.Now(),
		},
		Engine:   engine,
		Channels: addrs,
	}
	data, err := json.Marshal(spool)
	if err != nil {
		t.Fatalf("failed to marshal spool: %v", err)
	}
	path := filepath.Join(workdir, "spool.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write spool: %v", err)
	}
	return path
}

func startCapture(t *testing.T) (ChannelAddrs, chan tap.StreamChunk, chan tap.StatusMessage) {
	t.Helper()

	chunks := make(chan tap.StreamChunk, 64)
	statuses := make(chan tap.StatusMessage, 8)

	srv := tap.NewServer(logging.NewLogger("tap-test", logging.ERROR, false))
	srv.SetHandlers(
		func(c tap.StreamChunk) { chunks <- c },
		func(m tap.StatusMessage) { statuses <- m },
	)
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start tap server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	return ChannelAddrs{
		Stream:  srv.StreamAddr(),
		Status:  srv.StatusAddr(),
		Control: "127.0.0.1:0",
	}, chunks, statuses
}

func waitTerminal(t *testing.T, statuses chan tap.StatusMessage) tap.StatusMessage {
	t.Helper()
	select {
	case msg := <-statuses:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no terminal event received")
		return tap.StatusMessage{}
	}
}

func TestRunSpooledRelaysOutputAndCompletes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses unix tooling as the engine")
	}

	workdir := t.TempDir()
	addrs, chunks, statuses := startCapture(t)

	// echo stands in for the engine: prints its command line and exits 0
	spoolPath := writeSpool(t, workdir, "echo", "X", addrs)

	if code := RunSpooled(spoolPath); code != 0 {
		t.Errorf("exit code = %d, expected 0", code)
	}

	msg := waitTerminal(t, statuses)
	if msg.Data.Status != models.CellStatusCompleted {
		t.Errorf("terminal = %s (%s), expected completed", msg.Data.Status, msg.Data.Exception)
	}
	if msg.Data.CellID != "X" {
		t.Errorf("terminal cell = %q, expected X", msg.Data.CellID)
	}
	if msg.Data.RunID != "run-X" {
		t.Errorf("terminal run id = %q, expected run-X", msg.Data.RunID)
	}

	select {
	case chunk := <-chunks:
		if chunk.CellID != "X" {
			t.Errorf("chunk cell = %q, expected X", chunk.CellID)
		}
		if !strings.Contains(chunk.Text, "tapping slave X") {
			t.Errorf("chunk text = %q, expected the echoed command line", chunk.Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no stream chunk received")
	}

	// exactly one terminal event
	select {
	case extra := <-statuses:
		t.Errorf("second terminal event received: %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}

	// the script file was materialized in the exec directory
	script := filepath.Join(workdir, ".flowtap", "cell-X.wf")
	content, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("script not written: %v", err)
	}
	if string(content) != "print(1)\n" {
		t.Errorf("script content = %q", content)
	}
}

func TestRunSpooledReportsEngineFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses unix tooling as the engine")
	}

	workdir := t.TempDir()
	addrs, _, statuses := startCapture(t)

	// false exits non-zero no matter the arguments
	spoolPath := writeSpool(t, workdir, "false", "X", addrs)

	if code := RunSpooled(spoolPath); code == 0 {
		t.Error("exit code = 0, expected failure")
	}

	msg := waitTerminal(t, statuses)
	if msg.Data.Status != models.CellStatusFailed {
		t.Errorf("terminal = %s, expected failed", msg.Data.Status)
	}
	if !strings.Contains(msg.Data.Exception, "exited with status") {
		t.Errorf("exception = %q, expected engine exit reason", msg.Data.Exception)
	}
}

func TestRunSpooledReportsMissingEngine(t *testing.T) {
	workdir := t.TempDir()
	addrs, chunks, statuses := startCapture(t)

	spoolPath := writeSpool(t, workdir, filepath.Join(workdir, "no-such-engine"), "X", addrs)

	if code := RunSpooled(spoolPath); code == 0 {
		t.Error("exit code = 0, expected failure")
	}

	msg := waitTerminal(t, statuses)
	if msg.Data.Status != models.CellStatusFailed {
		t.Errorf("terminal = %s, expected failed", msg.Data.Status)
	}

	// the stream channel carries a distinguished error record
	select {
	case chunk := <-chunks:
		if chunk.Error == "" {
			t.Errorf("chunk = %+v, expected an error record", chunk)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no error record on the stream channel")
	}
}

func TestReportRunConvertsPanicToFailed(t *testing.T) {
	addrs, chunks, statuses := startCapture(t)
	client := tap.NewClient(addrs.Stream, addrs.Status)

	err := reportRun(client, "X", "run-X", func() error {
		panic("spool gone sideways")
	})
	if err == nil || !strings.Contains(err.Error(), "spool gone sideways") {
		t.Errorf("error = %v, expected the panic text", err)
	}

	msg := waitTerminal(t, statuses)
	if msg.Data.Status != models.CellStatusFailed {
		t.Errorf("terminal = %s, expected failed", msg.Data.Status)
	}
	if msg.Data.RunID != "run-X" {
		t.Errorf("terminal run id = %q, expected run-X", msg.Data.RunID)
	}
	if !strings.Contains(msg.Data.Exception, "worker panic") {
		t.Errorf("exception = %q, expected a panic report", msg.Data.Exception)
	}

	select {
	case chunk := <-chunks:
		if chunk.Error == "" {
			t.Errorf("chunk = %+v, expected an error record", chunk)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no error record on the stream channel")
	}

	// exactly one terminal event even on the panic path
	select {
	case extra := <-statuses:
		t.Errorf("second terminal event received: %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}
