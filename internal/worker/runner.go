package worker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/flowtap/flowtap/internal/tap"
	"github.com/flowtap/flowtap/pkg/models"
)

// RunSpooled is the entry point of the worker process. It executes one
// spooled submission through the external engine and reports back over
// the push channels. Exactly one terminal event is always emitted: any
// internal error is converted into a failed status rather than a crash.
func RunSpooled(spoolPath string) int {
	data, err := os.ReadFile(spoolPath)
	if err != nil {
		// no channel addresses known yet, exit code is all we have
		fmt.Fprintf(os.Stderr, "flowtap worker: %v\n", err)
		return 1
	}
	var spool SpoolFile
	if err := json.Unmarshal(data, &spool); err != nil {
		fmt.Fprintf(os.Stderr, "flowtap worker: %v\n", err)
		return 1
	}

	client := tap.NewClient(spool.Channels.Stream, spool.Channels.Status)
	sub := &spool.Submission

	err = reportRun(client, sub.CellID, sub.RunID, func() error {
		return runEngine(&spool, client)
	})
	if err != nil {
		return 1
	}
	return 0
}

// reportRun invokes fn and pushes the single terminal event for the
// run. A panic inside fn becomes a failed status rather than a crash
// that would leave the supervisor without an event.
func reportRun(client *tap.Client, cellID, runID string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
		if err != nil {
			client.PushChunk(tap.StreamChunk{CellID: cellID, Error: err.Error()})
			client.PushStatus(tap.NewFailed(cellID, runID, err.Error()))
			return
		}
		client.PushStatus(tap.NewCompleted(cellID, runID))
	}()
	return fn()
}

// runEngine materializes the submission into a script file, invokes the
// engine and relays its output line-buffered on the stream channel
func runEngine(spool *SpoolFile, client *tap.Client) error {
	sub := &spool.Submission

	scriptDir := filepath.Join(sub.Config.Workdir, ".flowtap")
	if err := os.MkdirAll(scriptDir, 0o755); err != nil {
		return fmt.Errorf("failed to create script directory: %w", err)
	}
	scriptPath := filepath.Join(scriptDir, fmt.Sprintf("cell-%s.wf", sub.CellID))
	if err := os.WriteFile(scriptPath, []byte(sub.Code), 0o644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}

	argv, err := BuildEngineCommand(spool.Engine, scriptPath, sub.Args, sub.CellID, spool.Channels)
	if err != nil {
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = sub.Config.Workdir
	cmd.Env = append(os.Environ(), configEnv(sub)...)

	// stdout and stderr share one pipe so relayed output keeps the
	// engine's interleaving
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return fmt.Errorf("failed to start engine: %w", err)
	}

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			client.PushChunk(tap.StreamChunk{
				CellID: sub.CellID,
				Text:   scanner.Text(),
			})
		}
	}()

	waitErr := cmd.Wait()
	pw.Close()
	<-relayDone
	pr.Close()

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			return fmt.Errorf("engine exited with status %d", exitErr.ExitCode())
		}
		return fmt.Errorf("engine run failed: %w", waitErr)
	}
	return nil
}

// configEnv threads the submission's configuration snapshot into the
// engine environment unchanged; interpreting it is the engine's business
func configEnv(sub *models.Submission) []string {
	snapshot, err := json.Marshal(sub.Config)
	if err != nil {
		return nil
	}
	return []string{
		"FLOWTAP_CONFIG=" + string(snapshot),
		"FLOWTAP_CELL_ID=" + sub.CellID,
	}
}
