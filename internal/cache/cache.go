// Package cache persists carbon intensities keyed by public IP address so
// repeated runs from the same network skip geolocation.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Store is an on-disk map from IP address to carbon intensity
// (gCO2eq/kWh). Entries never expire. The file is read at Open and
// rewritten by Close only when an entry was added.
//
// A Store is not safe for concurrent use, and two processes closing the
// same file race with last-writer-wins semantics.
type Store struct {
	fs      afero.Fs
	path    string
	entries map[string]float64
	dirty   bool
	closed  bool
	logger  zerolog.Logger
}

// Open reads the cache at path. A missing file yields an empty store. A
// corrupt file is logged and treated as empty; it is replaced on Close.
func Open(fsys afero.Fs, path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		fs:      fsys,
		path:    path,
		entries: make(map[string]float64),
		logger:  logger.With().Str("component", "cache").Str("path", path).Logger(),
	}

	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug().Msg("no cache file yet")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache %s: %w", path, err)
	}

	var entries map[string]float64
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn().Err(err).Msg("ignoring corrupt cache file")
		s.dirty = true
		return s, nil
	}
	for ip, v := range entries {
		if !validIntensity(v) {
			s.logger.Warn().Str("ip", ip).Float64("intensity", v).Msg("dropping invalid cache entry")
			s.dirty = true
			continue
		}
		s.entries[ip] = v
	}

	s.logger.Debug().Int("entries", len(s.entries)).Msg("loaded cache")
	return s, nil
}

// Get returns the cached intensity for ip.
func (s *Store) Get(ip string) (float64, bool) {
	v, ok := s.entries[ip]
	return v, ok
}

// Put records the intensity for ip.
func (s *Store) Put(ip string, intensity float64) error {
	if s.closed {
		return fmt.Errorf("cache %s is closed", s.path)
	}
	if !validIntensity(intensity) {
		return fmt.Errorf("invalid intensity %v for %s", intensity, ip)
	}
	if old, ok := s.entries[ip]; ok && old == intensity {
		return nil
	}
	s.entries[ip] = intensity
	s.dirty = true
	return nil
}

// GetOrCompute returns the cached intensity for ip, or calls compute and
// stores its result. Errors from compute are returned unchanged and
// nothing is stored.
func (s *Store) GetOrCompute(ip string, compute func() (float64, error)) (float64, error) {
	if v, ok := s.Get(ip); ok {
		s.logger.Debug().Str("ip", ip).Float64("intensity", v).Msg("cache hit")
		return v, nil
	}

	v, err := compute()
	if err != nil {
		return 0, err
	}
	if err := s.Put(ip, v); err != nil {
		return 0, err
	}
	s.logger.Debug().Str("ip", ip).Float64("intensity", v).Msg("cache miss, stored")
	return v, nil
}

// Len reports the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Close persists the store if it changed. Calling Close more than once is
// a no-op.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.dirty {
		return nil
	}
	return s.flush()
}

// flush writes the entries to a temp file in the same directory and
// renames it over the cache file.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(append(data, '\n'))
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("writing cache %s: %w", tmpName, errors.Join(werr, cerr))
	}

	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("replacing cache %s: %w", s.path, err)
	}

	s.dirty = false
	s.logger.Debug().Int("entries", len(s.entries)).Msg("saved cache")
	return nil
}

// With opens the cache at path, calls fn, and always closes the store. An
// error from fn takes precedence over an error from Close.
func With(fsys afero.Fs, path string, logger zerolog.Logger, fn func(*Store) error) (err error) {
	s, err := Open(fsys, path, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			if err == nil {
				err = cerr
				return
			}
			logger.Warn().Err(cerr).Str("path", path).Msg("failed to save cache")
		}
	}()
	return fn(s)
}

func validIntensity(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
