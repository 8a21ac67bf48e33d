// Package identity persists the device's participant record between runs.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/huddle/go/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoIdentity  = errors.New("no saved identity")
	ErrInvalidName = errors.New("display name is required")
	ErrInvalidSide = errors.New("side must be home or away")
)

// Store loads and saves the participant for one device.
type Store interface {
	Load() (models.Participant, error)
	Save(p models.Participant) error
}

// NewParticipant validates the join form and generates a fresh id.
func NewParticipant(name string, side models.Side) (models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Participant{}, ErrInvalidName
	}
	if !side.Valid() {
		return models.Participant{}, fmt.Errorf("%q: %w", side, ErrInvalidSide)
	}
	return models.Participant{ID: uuid.NewString(), DisplayName: name, Side: side}, nil
}

// FileStore keeps the participant in a YAML file.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is ~/.huddle/identity.yaml, or the working directory when there is no home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "huddle-identity.yaml"
	}
	return filepath.Join(home, ".huddle", "identity.yaml")
}

func (s *FileStore) Load() (models.Participant, error) {
	var p models.Participant
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, ErrNoIdentity
		}
		return p, fmt.Errorf("failed to read identity: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse identity: %w", err)
	}
	if p.ID == "" {
		return p, ErrNoIdentity
	}
	return p, nil
}

func (s *FileStore) Save(p models.Participant) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create identity dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	return nil
}

// MemoryStore keeps the participant in memory. Websocket sessions use it.
type MemoryStore struct {
	mu sync.Mutex
	p  *models.Participant
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Load() (models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return models.Participant{}, ErrNoIdentity
	}
	return *s.p, nil
}

func (s *MemoryStore) Save(p models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = &p
	return nil
}
