package rating

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type fileProfile struct {
	Username string `yaml:"username"`
	Rating   int    `yaml:"rating"`
}

type profileFile struct {
	Identity string                 `yaml:"identity"`
	Profiles map[string]fileProfile `yaml:"profiles"`
}

// FileStore keeps profiles in a yaml file keyed by identity. The identity
// field names the profile that is in use on this device.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the current profile, creating a fresh identity on first use.
func (s *FileStore) Load() (Profile, error) {
	f, err := s.read()
	if err != nil {
		return Profile{}, err
	}
	if f.Identity == "" {
		p := Profile{Identity: uuid.NewString(), Rating: Initial}
		return p, s.Save(p)
	}
	fp, ok := f.Profiles[f.Identity]
	if !ok {
		return Profile{Identity: f.Identity, Rating: Initial}, nil
	}
	return Profile{Identity: f.Identity, Username: fp.Username, Rating: fp.Rating}, nil
}

func (s *FileStore) Save(p Profile) error {
	f, err := s.read()
	if err != nil {
		return err
	}
	f.Identity = p.Identity
	f.Profiles[p.Identity] = fileProfile{Username: p.Username, Rating: p.Rating}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) read() (profileFile, error) {
	f := profileFile{Profiles: map[string]fileProfile{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse profile: %w", err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]fileProfile{}
	}
	return f, nil
}
