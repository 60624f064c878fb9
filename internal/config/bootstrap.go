package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bootstrap declares projects and databases to register on first start, so a
// fresh server can be provisioned from one YAML file.
type Bootstrap struct {
	Projects  []BootstrapProject  `yaml:"projects"`
	Databases []BootstrapDatabase `yaml:"databases"`
}

type BootstrapProject struct {
	Name         string `yaml:"name"`
	DisplayName  string `yaml:"display_name"`
	ContainerRef string `yaml:"container_ref"`
	Image        string `yaml:"image"`
	Domain       string `yaml:"domain"`
}

type BootstrapDatabase struct {
	Name       string `yaml:"name"`
	Engine     string `yaml:"engine"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	AutoBackup bool   `yaml:"auto_backup"`
	Project    string `yaml:"project"`
}

// LoadBootstrap reads the bootstrap file named by BOOTSTRAP_FILE. Returns nil
// when no file is configured.
func LoadBootstrap() (*Bootstrap, error) {
	path := Cfg.BootstrapFile
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap file: %w", err)
	}

	var b Bootstrap
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bootstrap file: %w", err)
	}

	for i := range b.Databases {
		if b.Databases[i].Engine == "" {
			b.Databases[i].Engine = "postgres"
		}
		if b.Databases[i].Port == 0 {
			b.Databases[i].Port = 5432
		}
		if b.Databases[i].Host == "" {
			b.Databases[i].Host = "localhost"
		}
	}
	return &b, nil
}
