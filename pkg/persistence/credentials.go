package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrInvalidCredentials is returned when saving an incomplete entry.
var ErrInvalidCredentials = errors.New("identity and key are required")

// Credentials is the provisioned identity of one gateway.
type Credentials struct {
	Identity string `json:"identity"`
	Key      string `json:"key"`
}

// Valid reports whether both fields are set.
func (c Credentials) Valid() bool {
	return c.Identity != "" && c.Key != ""
}

// CredentialStore manages the credential file.
type CredentialStore struct {
	mu   sync.Mutex
	path string
}

// NewCredentialStore creates a store backed by path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Path returns the backing file.
func (s *CredentialStore) Path() string {
	return s.path
}

// Load returns the credentials for host. ok is false when none are stored.
func (s *CredentialStore) Load(host string) (creds Credentials, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return Credentials{}, false, err
	}
	creds, ok = all[host]
	return creds, ok, nil
}

// Save stores creds for host, keeping the entries of other hosts.
func (s *CredentialStore) Save(host string, creds Credentials) error {
	if host == "" || !creds.Valid() {
		return ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	all[host] = creds
	return s.write(all)
}

// Remove deletes the entry for host. Removing an unknown host is not an error.
func (s *CredentialStore) Remove(host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := all[host]; !ok {
		return nil
	}
	delete(all, host)
	return s.write(all)
}

// Hosts returns the stored hosts in sorted order.
func (s *CredentialStore) Hosts() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	hosts := make([]string, 0, len(all))
	for h := range all {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts, nil
}

// Clear removes the credential file.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *CredentialStore) read() (map[string]Credentials, error) {
	all := make(map[string]Credentials)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return all, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return all, nil
}

func (s *CredentialStore) write(all map[string]Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	// The key grants full control of the gateway.
	return os.WriteFile(s.path, data, 0600)
}
