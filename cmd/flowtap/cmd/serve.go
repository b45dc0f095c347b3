package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowtap/flowtap/internal/api"
	"github.com/flowtap/flowtap/internal/config"
	"github.com/flowtap/flowtap/internal/metrics"
	"github.com/flowtap/flowtap/internal/queue"
	"github.com/flowtap/flowtap/internal/store"
	"github.com/flowtap/flowtap/internal/tap"
	"github.com/flowtap/flowtap/internal/worker"
	"github.com/flowtap/flowtap/pkg/logging"
	"github.com/flowtap/flowtap/pkg/shutdown"
)

var serveListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the supervisor daemon",
	Long: `Starts the supervisor: the submission queue, the tap channels the
workers report back on, and the HTTP API the frontend talks to.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", "", "API listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if serveListenAddr != "" {
		cfg.ListenAddr = serveListenAddr
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewLogger("supervisor", level, cfg.LogJSON)

	m := metrics.New()
	st := store.NewMemoryStore()

	tapSrv := tap.NewServer(logging.NewLogger("tap", level, cfg.LogJSON))
	if err := tapSrv.Start(); err != nil {
		return err
	}

	launcher, err := worker.NewProcessLauncher("", cfg.Engine, worker.ChannelAddrs{
		Stream:  tapSrv.StreamAddr(),
		Status:  tapSrv.StatusAddr(),
		Control: cfg.ControlAddr,
	}, logging.NewLogger("launcher", level, cfg.LogJSON))
	if err != nil {
		return err
	}

	sup := queue.New(queue.Options{
		Launcher: launcher,
		Notifier: queue.NewLogNotifier(logging.NewLogger("frontend", level, cfg.LogJSON)),
		Store:    st,
		Config:   cfg.Exec,
		Logger:   logger,
		Metrics:  m,
	})

	// no worker can connect back before the launcher spawns one, so the
	// handlers are in place before any message can arrive
	tapSrv.SetHandlers(sup.HandleChunk, sup.HandleStatus)

	apiSrv := api.NewServer(sup, st, m, logging.NewLogger("api", level, cfg.LogJSON))

	mgr := shutdown.New(30 * time.Second)
	mgr.OnError(func(err error) {
		logger.Error("shutdown hook failed", map[string]interface{}{"error": err.Error()})
	})
	mgr.Register(func(ctx context.Context) error { return tapSrv.Shutdown(ctx) })
	mgr.Register(func(ctx context.Context) error { return sup.Close() })
	mgr.Register(func(ctx context.Context) error { return apiSrv.Shutdown(ctx) })

	go func() {
		if err := apiSrv.Start(cfg.ListenAddr); err != nil {
			logger.Error("API server failed", map[string]interface{}{"error": err.Error()})
			mgr.Trigger()
		}
	}()

	logger.Info("supervisor ready", map[string]interface{}{
		"listen": cfg.ListenAddr,
		"engine": cfg.Engine,
	})

	mgr.Wait()
	logger.Info("shutting down")
	mgr.Shutdown()
	return nil
}
