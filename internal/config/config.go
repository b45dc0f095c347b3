package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/flowtap/flowtap/pkg/models"
)

// Config is the effective supervisor configuration, assembled from the
// config file, environment and flags
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	Engine      string `yaml:"engine"`
	ControlAddr string `yaml:"control_addr"`
	LogLevel    string `yaml:"log_level"`
	LogJSON     bool   `yaml:"log_json"`

	Exec models.ExecConfig `yaml:"exec"`
}

// SetDefaults registers defaults on the given viper instance
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", "127.0.0.1:9640")
	v.SetDefault("engine", "workflow")
	v.SetDefault("control_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("exec.run_mode", "interactive")
	v.SetDefault("exec.max_procs", 0)
	v.SetDefault("exec.max_running_jobs", 0)
	v.SetDefault("exec.workdir", "")
}

// Load builds the effective config from a viper instance
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ListenAddr:  v.GetString("listen_addr"),
		Engine:      v.GetString("engine"),
		ControlAddr: v.GetString("control_addr"),
		LogLevel:    v.GetString("log_level"),
		LogJSON:     v.GetBool("log_json"),
		Exec: models.ExecConfig{
			RunMode:        v.GetString("exec.run_mode"),
			MaxProcs:       v.GetInt("exec.max_procs"),
			MaxRunningJobs: v.GetInt("exec.max_running_jobs"),
			Workdir:        v.GetString("exec.workdir"),
			Targets:        v.GetStringSlice("exec.targets"),
			WorkflowArgs:   v.GetStringSlice("exec.workflow_args"),
		},
	}

	if cfg.Exec.Workdir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cfg.Exec.Workdir = wd
	}
	return cfg, nil
}
