package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bloom-client/internal/session"
	"gopkg.in/yaml.v3"
)

// SessionStore keeps session values in a YAML file so a login survives between CLI runs.
// Values live under their namespace; expired entries are ignored on read and dropped on the
// next write.
type SessionStore struct {
	path      string
	namespace string
	clock     func() time.Time

	mu sync.Mutex
}

type document struct {
	Namespaces map[string]map[string]record `yaml:"namespaces"`
}

type record struct {
	Value     string     `yaml:"value"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty"`
}

// DefaultPath is session.yaml under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "bloom", "session.yaml"), nil
}

func NewSessionStore(path, namespace string) *SessionStore {
	return NewSessionStoreWithClock(path, namespace, time.Now)
}

func NewSessionStoreWithClock(path, namespace string, clock func() time.Time) *SessionStore {
	if namespace == "" {
		namespace = "default"
	}
	return &SessionStore{path: path, namespace: namespace, clock: clock}
}

func (s *SessionStore) Get(_ context.Context, key session.Key) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", false
	}
	r, ok := doc.Namespaces[s.namespace][string(key)]
	if !ok || s.expired(r) {
		return "", false
	}
	return r.Value, true
}

// Set stores value; a non-positive ttl keeps it until deleted.
func (s *SessionStore) Set(_ context.Context, key session.Key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	r := record{Value: value}
	if ttl > 0 {
		at := s.clock().Add(ttl).UTC()
		r.ExpiresAt = &at
	}
	values := doc.Namespaces[s.namespace]
	if values == nil {
		values = make(map[string]record)
		doc.Namespaces[s.namespace] = values
	}
	values[string(key)] = r
	return s.write(doc)
}

func (s *SessionStore) Delete(_ context.Context, keys ...session.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	values := doc.Namespaces[s.namespace]
	for _, k := range keys {
		delete(values, string(k))
	}
	if len(values) == 0 {
		delete(doc.Namespaces, s.namespace)
	}
	return s.write(doc)
}

func (s *SessionStore) expired(r record) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(s.clock())
}

func (s *SessionStore) read() (document, error) {
	doc := document{Namespaces: make(map[string]map[string]record)}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read session file: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode session file %s: %w", s.path, err)
	}
	if doc.Namespaces == nil {
		doc.Namespaces = make(map[string]map[string]record)
	}
	return doc, nil
}

// write prunes expired entries and replaces the file atomically with owner-only permissions.
func (s *SessionStore) write(doc document) error {
	for ns, values := range doc.Namespaces {
		for k, r := range values {
			if s.expired(r) {
				delete(values, k)
			}
		}
		if len(values) == 0 {
			delete(doc.Namespaces, ns)
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
