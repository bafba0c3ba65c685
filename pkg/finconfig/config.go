package finconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"
)

func loadOrEmpty(path string) (*ini.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ini.Empty(), nil
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

func save(cfg *ini.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir for %s: %w", path, err)
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// ClientConfig is the per-user client.ini: [client] port=<int>, the last
// port a local client bound, read by the driver on reattach.
type ClientConfig struct {
	path string
}

// NewClientConfig builds a ClientConfig reading/writing the file at path.
func NewClientConfig(path string) *ClientConfig {
	return &ClientConfig{path: path}
}

// GetPort returns the stored port and true, or ok=false if none is stored
// yet (matching the original's get_port() returning None).
func (c *ClientConfig) GetPort() (port int, ok bool, err error) {
	cfg, err := loadOrEmpty(c.path)
	if err != nil {
		return 0, false, err
	}
	key, err := cfg.Section("client").GetKey("port")
	if err != nil {
		return 0, false, nil
	}
	port, err = key.Int()
	if err != nil {
		return 0, false, fmt.Errorf("parse client port: %w", err)
	}
	return port, true, nil
}

// SetPort persists port, rewriting the whole file.
func (c *ClientConfig) SetPort(port int) error {
	cfg, err := loadOrEmpty(c.path)
	if err != nil {
		return err
	}
	cfg.Section("client").Key("port").SetValue(strconv.Itoa(port))
	return save(cfg, c.path)
}

// WrapperConfig is wrapper.ini: [wrapper] port=<int>, written by the client
// before launching a wrapper so the wrapper knows where to dial back.
type WrapperConfig struct {
	path string
}

// NewWrapperConfig builds a WrapperConfig reading/writing the file at path.
func NewWrapperConfig(path string) *WrapperConfig {
	return &WrapperConfig{path: path}
}

// GetPort returns the stored port and true, or ok=false if none is stored.
func (w *WrapperConfig) GetPort() (port int, ok bool, err error) {
	cfg, err := loadOrEmpty(w.path)
	if err != nil {
		return 0, false, err
	}
	key, err := cfg.Section("wrapper").GetKey("port")
	if err != nil {
		return 0, false, nil
	}
	port, err = key.Int()
	if err != nil {
		return 0, false, fmt.Errorf("parse wrapper port: %w", err)
	}
	return port, true, nil
}

// SetPort persists port, rewriting the whole file.
func (w *WrapperConfig) SetPort(port int) error {
	cfg, err := loadOrEmpty(w.path)
	if err != nil {
		return err
	}
	cfg.Section("wrapper").Key("port").SetValue(strconv.Itoa(port))
	return save(cfg, w.path)
}

// APIConfig is api.ini: per-session SSH keys keyed as
// [<callsign-or-host>] <key-name>=<pem>. A named site session (e.g.
// "ozstar") stores its key under its own section as key="key"; a
// free-form "ssh <host>" session stores it in the shared "ssh" section
// keyed by hostname. cmd/finorch-keys drives both forms through Get/Set.
type APIConfig struct {
	path string
}

// NewAPIConfig builds an APIConfig reading/writing the file at path.
func NewAPIConfig(path string) *APIConfig {
	return &APIConfig{path: path}
}

// Get returns the PEM key stored at section/name, or ok=false if absent or
// empty (an empty value is treated the same as absent, matching
// remove_ssh_key's "set the value to the empty string").
func (a *APIConfig) Get(section, name string) (key string, ok bool, err error) {
	cfg, err := loadOrEmpty(a.path)
	if err != nil {
		return "", false, err
	}
	if !cfg.HasSection(section) {
		return "", false, nil
	}
	k, err := cfg.Section(section).GetKey(name)
	if err != nil || k.Value() == "" {
		return "", false, nil
	}
	return k.Value(), true, nil
}

// Set writes value under section/name. Passing an empty value is how
// remove_ssh_key clears a key without deleting the section entirely.
func (a *APIConfig) Set(section, name, value string) error {
	cfg, err := loadOrEmpty(a.path)
	if err != nil {
		return err
	}
	cfg.Section(section).Key(name).SetValue(value)
	return save(cfg, a.path)
}
