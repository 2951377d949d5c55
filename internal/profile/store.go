package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store is a directory of one HCL file per profile, spec §4.1. Reads may
// run concurrently with reads; writes (create/delete) are serialized by mu,
// the same "single mutex held only across create/delete" discipline spec §5
// asks for.
type Store struct {
	dir    string
	ext    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore opens a profile store rooted at dir. dir is created if absent.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profiles dir: %w", err)
	}
	return &Store{dir: dir, ext: "hcl", logger: logger}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+"."+s.ext)
}

// List returns every valid profile, sorted by name (case-sensitive
// lexicographic), spec §4.1. A profile file that fails to parse or
// validate is skipped with a warning, not treated as a failure of List.
func (s *Store) List() ([]Profile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "."+s.ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), "."+s.ext))
	}
	sort.Strings(names)

	profiles := make([]Profile, 0, len(names))
	for _, name := range names {
		p, err := s.load(name)
		if err != nil {
			s.logger.Warn("skipping invalid profile", "name", name, "error", err)
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *Store) load(name string) (Profile, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("read profile %s: %w", name, err)
	}
	p, err := decodeHCL(name, data)
	if err != nil {
		return Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Get loads and validates a single profile by name.
func (s *Store) Get(name string) (Profile, error) {
	return s.load(name)
}

// Create writes a new profile, failing with ErrConflict if name is taken
// and ErrInvalid on a constraint violation. The write is atomic: serialize
// to a sibling temp file, then rename — the pattern the teacher uses in
// SaveTunnelState.
func (s *Store) Create(p Profile) (Profile, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(p.Name)
	if _, err := os.Stat(target); err == nil {
		return Profile{}, fmt.Errorf("%w: %s", ErrConflict, p.Name)
	} else if !os.IsNotExist(err) {
		return Profile{}, fmt.Errorf("stat profile %s: %w", p.Name, err)
	}

	if err := s.writeAtomic(target, encodeHCL(p)); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (s *Store) writeAtomic(target string, data []byte) error {
	tmp := target + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp profile file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp profile file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync temp profile file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp profile file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp profile file: %w", err)
	}
	return nil
}

// Delete removes a profile by name. Never removes the store directory
// itself, spec §4.1.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete profile %s: %w", name, err)
	}
	return nil
}
