package config

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Live holds the current configuration snapshot and refreshes it when the
// config file changes on disk. Readers always get a consistent *Config.
type Live struct {
	v       *viper.Viper
	current atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []func(*Config)
}

// LoadLive loads the configuration like Load and, when a config file was
// found, watches it for changes. An invalid edit keeps the previous snapshot.
func LoadLive(configFile string) (*Live, error) {
	v := newViper(configFile)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
		watch = false
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	l := &Live{v: v}
	l.current.Store(cfg)

	if watch {
		v.OnConfigChange(l.reload)
		v.WatchConfig()
	}
	return l, nil
}

// Current returns the latest configuration snapshot.
func (l *Live) Current() *Config {
	return l.current.Load()
}

// OnChange registers fn to run after every successful reload.
func (l *Live) OnChange(fn func(*Config)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

func (l *Live) reload(e fsnotify.Event) {
	cfg, err := decode(l.v)
	if err != nil {
		slog.Error("config reload rejected, keeping previous config", "path", e.Name, "error", err)
		return
	}
	l.current.Store(cfg)
	slog.Info("config reloaded", "path", e.Name, "op", e.Op.String())

	l.mu.Lock()
	listeners := append([]func(*Config){}, l.listeners...)
	l.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}
