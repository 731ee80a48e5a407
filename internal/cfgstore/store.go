// Package cfgstore implements the middleware's named parameter store:
// grouped configuration values loaded, in order, from environment
// variables, an explicit config file, and well-known fallback paths, with
// change-notification callbacks for components that must react to a
// reload.
package cfgstore

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Group partitions parameter names, so e.g. RTPS_HB_TIME and
// TCP_HB_TIME remain distinct environment variables (TDDS_RTPS_HB_TIME,
// TDDS_TCP_HB_TIME).
type Group string

const (
	GroupCommon Group = ""
	GroupPool   Group = "POOL"
	GroupRTPS   Group = "RTPS"
	GroupIP     Group = "IP"
	GroupUDP    Group = "UDP"
	GroupTCP    Group = "TCP"
	GroupIPv6   Group = "IPV6"
)

// Kind identifies the shape of a parameter's value: free string, number,
// lo-hi range, or enumerated mode.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindRange
	KindMode
)

// NotifyFunc is called after a parameter's value changes.
type NotifyFunc func(name string, store *Store)

// Param describes one named, grouped configuration parameter.
type Param struct {
	Name    string
	Group   Group
	Kind    Kind
	Default string
	notify  NotifyFunc
}

// EnvName returns the TDDS_[GROUP_]NAME environment variable this
// parameter is read from.
func (p Param) EnvName() string {
	if p.Group == GroupCommon {
		return "TDDS_" + strings.ToUpper(p.Name)
	}
	return "TDDS_" + string(p.Group) + "_" + strings.ToUpper(p.Name)
}

// Key returns the group-qualified lookup key a parameter is registered and
// read under. Bare names recur across groups (MODE exists in
// RTPS, IP, UDP and TCP), so the bare name alone cannot index the catalog.
func (p Param) Key() string {
	if p.Group == GroupCommon {
		return strings.ToLower(p.Name)
	}
	return strings.ToLower(string(p.Group)) + "_" + strings.ToLower(p.Name)
}

// Store holds the resolved value of every registered Param, re-read on
// Load from (in ascending precedence) the fallback file paths, $TDDS_CONFIG,
// and TDDS_[GROUP_]NAME environment variables.
type Store struct {
	mu     sync.RWMutex
	v      *viper.Viper
	params map[string]*Param
	watch  *fsnotify.Watcher
}

// New builds an empty Store; register parameters with Register before
// calling Load.
func New() *Store {
	return &Store{
		v:      viper.New(),
		params: make(map[string]*Param),
	}
}

// Register adds p to the catalog under its group-qualified Key.
// Re-registering the same key overwrites the prior definition.
func (s *Store) Register(p Param) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.params[p.Key()] = &cp
	return s
}

// Notify attaches fct to be called whenever the keyed parameter's resolved
// value changes across a Load.
func (s *Store) Notify(key string, fct NotifyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.params[key]; ok {
		p.notify = fct
	}
}

// configFileCandidates returns the fallback search path used when no
// explicit filename is set: tdds.conf in the working directory, then
// ~/.tddsconf, then /etc/tdds.conf.
func configFileCandidates() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"tdds.conf",
		filepath.Join(home, ".tddsconf"),
		"/etc/tdds.conf",
	}
}

// Load (re)resolves every registered parameter: defaults, then the first
// readable file among $TDDS_CONFIG / ./tdds.conf / ~/.tddsconf /
// /etc/tdds.conf, then TDDS_[GROUP_]NAME environment overrides. Callbacks
// registered via Notify fire for every parameter whose value changed.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := make(map[string]string, len(s.params))
	for name := range s.params {
		prior[name] = s.v.GetString(name)
	}

	nv := viper.New()
	nv.SetConfigType("ini")
	for name, p := range s.params {
		nv.SetDefault(name, p.Default)
	}

	if f := os.Getenv("TDDS_CONFIG"); f != "" {
		nv.SetConfigFile(f)
		_ = nv.ReadInConfig()
	} else {
		for _, c := range configFileCandidates() {
			if _, err := os.Stat(c); err == nil {
				nv.SetConfigFile(c)
				if err := nv.ReadInConfig(); err == nil {
					break
				}
			}
		}
	}

	for name, p := range s.params {
		if raw := os.Getenv(p.EnvName()); raw != "" {
			nv.Set(name, raw)
		}
	}

	s.v = nv

	var changed []*Param
	for name, p := range s.params {
		if nv.GetString(name) != prior[name] {
			changed = append(changed, p)
		}
	}
	for _, p := range changed {
		if p.notify != nil {
			p.notify(p.Key(), s)
		}
	}
	return nil
}

// WatchFile arms an fsnotify watch on path so that writes to an explicit
// config file trigger a Load automatically, the same viper+fsnotify
// reload idiom golib's config component uses instead of a poll loop.
func (s *Store) WatchFile(path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return err
	}
	s.mu.Lock()
	s.watch = w
	s.mu.Unlock()

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					_ = s.Load()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Close stops any active file watch.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watch != nil {
		return s.watch.Close()
	}
	return nil
}

// String returns the resolved value of a KindString parameter.
func (s *Store) String(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(name)
}

// Number returns the resolved value of a KindNumber parameter.
func (s *Store) Number(name string) (uint64, error) {
	s.mu.RLock()
	raw := s.v.GetString(name)
	s.mu.RUnlock()
	return strconv.ParseUint(raw, 10, 64)
}

// Range returns the resolved (min, max) of a KindRange parameter, stored
// as "min-max".
func (s *Store) Range(name string) (min, max uint64, err error) {
	s.mu.RLock()
	raw := s.v.GetString(name)
	s.mu.RUnlock()
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, errNotARange(name)
	}
	if min, err = strconv.ParseUint(parts[0], 10, 64); err != nil {
		return 0, 0, err
	}
	if max, err = strconv.ParseUint(parts[1], 10, 64); err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

// Mode returns the resolved value of a KindMode parameter (an enumerated
// string: "disabled", "enabled" or "preferred").
func (s *Store) Mode(name string) string { return s.String(name) }
