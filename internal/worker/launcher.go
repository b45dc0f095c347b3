package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/flowtap/flowtap/pkg/logging"
	"github.com/flowtap/flowtap/pkg/models"
)

// SpoolFile is the submission handed from the supervisor to the worker
// process through a file, so the worker needs no connection back other
// than the two push channels
type SpoolFile struct {
	Submission models.Submission `json:"submission"`
	Engine     string            `json:"engine"`
	Channels   ChannelAddrs      `json:"channels"`
}

// ProcessLauncher spawns workers by re-executing the flowtap binary in
// worker mode, each in its own process group so a tree kill reaches the
// engine and everything the engine fans out
type ProcessLauncher struct {
	binPath string
	engine  string
	addrs   ChannelAddrs
	logger  *logging.Logger
}

// NewProcessLauncher creates a launcher. binPath may be empty, in which
// case the running executable is used.
func NewProcessLauncher(binPath, engine string, addrs ChannelAddrs, logger *logging.Logger) (*ProcessLauncher, error) {
	if binPath == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate own binary: %w", err)
		}
		binPath = self
	}
	return &ProcessLauncher{
		binPath: binPath,
		engine:  engine,
		addrs:   addrs,
		logger:  logger,
	}, nil
}

// Start spawns one worker for the submission and returns once the OS
// process exists. Completion is reported over the informer channel, not
// through this call.
func (l *ProcessLauncher) Start(sub *models.Submission) (Handle, error) {
	spoolDir := filepath.Join(sub.Config.Workdir, ".flowtap")
	if err := os.MkdirAll(spoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	spool := SpoolFile{
		Submission: *sub,
		Engine:     l.engine,
		Channels:   l.addrs,
	}
	data, err := json.Marshal(spool)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	spoolPath := filepath.Join(spoolDir, fmt.Sprintf("cell-%s.json", sub.CellID))
	if err := os.WriteFile(spoolPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write spool file: %w", err)
	}

	cmd := exec.Command(l.binPath, "worker", "--spool", spoolPath)
	cmd.Dir = sub.Config.Workdir
	// Own process group: the tree kill targets the group without
	// touching the supervisor, and the worker survives supervisor
	// restarts until explicitly cancelled.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}

	// Reap on exit so liveness checks see the pid disappear instead of
	// a zombie.
	go cmd.Wait()

	l.logger.Info("worker started", map[string]interface{}{
		"cell_id": sub.CellID,
		"pid":     cmd.Process.Pid,
	})
	return NewProcHandle(cmd.Process.Pid, sub.CellID), nil
}
