package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConnectionDef describes one named storage connection.
type ConnectionDef struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	Database string `yaml:"database"`
}

// DSN renders the definition as a MySQL data source name.
func (d ConnectionDef) DSN() string {
	port := d.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", d.User, d.Password, d.Host, port, d.Database)
}

// ServiceConfig carries process-wide service settings.
type ServiceConfig struct {
	Name        string         `yaml:"name"`
	Environment string         `yaml:"environment,omitempty"`
	Settings    map[string]any `yaml:"settings,omitempty"`
}

// Controller is the shared, read-only view of service config plus the named
// connection table. It is borrowed by every request context in the process
// and must never be mutated after load.
type Controller struct {
	Service     ServiceConfig            `yaml:"service"`
	Connections map[string]ConnectionDef `yaml:"connections"`
}

// Connection looks up a named connection definition.
func (c *Controller) Connection(name string) (ConnectionDef, bool) {
	if c == nil || c.Connections == nil {
		return ConnectionDef{}, false
	}
	def, ok := c.Connections[name]
	return def, ok
}

// ParseController parses controller data from YAML bytes.
func ParseController(data []byte) (*Controller, error) {
	if len(data) == 0 {
		return nil, errors.New("service config is empty")
	}
	var ctrl Controller
	if err := yaml.Unmarshal(data, &ctrl); err != nil {
		return nil, fmt.Errorf("parse service config: %w", err)
	}
	if ctrl.Service.Name == "" {
		return nil, errors.New("service config has no service name")
	}
	if ctrl.Connections == nil {
		ctrl.Connections = map[string]ConnectionDef{}
	}
	return &ctrl, nil
}

// LoadController reads a YAML file containing the service block and the
// connection table.
func LoadController(path string) (*Controller, error) {
	if path == "" {
		return nil, errors.New("service config path is empty")
	}

	// #nosec G304 -- service config path is operator-provided.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service config %s: %w", path, err)
	}

	ctrl, err := ParseController(data)
	if err != nil {
		return nil, fmt.Errorf("load service config %s: %w", path, err)
	}
	return ctrl, nil
}
