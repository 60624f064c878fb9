package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr    string `envconfig:"LISTEN_ADDR" default:":8000"`
	DataPath      string `envconfig:"DATA_PATH" default:"/app/data"`
	DatabasePath  string `envconfig:"DATABASE_PATH" default:"/app/data/hostdeck.db"`
	LogPath       string `envconfig:"LOG_PATH" default:"/app/data/hostdeck.log"`
	DockerHost    string `envconfig:"DOCKER_HOST" default:""`
	AuthDisabled  bool   `envconfig:"AUTH_DISABLED" default:"false"`
	BootstrapFile string `envconfig:"BOOTSTRAP_FILE" default:""`

	// Backup settings
	BackupDir      string `envconfig:"BACKUP_DIR" default:"/app/data/backups"`
	BackupSchedule string `envconfig:"BACKUP_SCHEDULE" default:"@daily"`

	// Terminal session settings
	TerminalShell         string `envconfig:"TERMINAL_SHELL" default:"/bin/sh"`
	TerminalMaxSessions   int    `envconfig:"TERMINAL_MAX_SESSIONS" default:"5"`
	TerminalIdleTimeout   string `envconfig:"TERMINAL_IDLE_TIMEOUT" default:"30m"`
	TerminalSweepInterval string `envconfig:"TERMINAL_SWEEP_INTERVAL" default:"5m"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("HOSTDECK", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
