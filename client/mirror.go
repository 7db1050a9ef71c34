package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Mirror is durable storage for the session so it survives restarts.
type Mirror interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

// MemoryMirror keeps the session in process memory.
type MemoryMirror struct {
	mu    sync.Mutex
	creds Credentials
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

func (m *MemoryMirror) Load() (Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, nil
}

func (m *MemoryMirror) Save(c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = c
	return nil
}

func (m *MemoryMirror) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}

// FileMirror stores the session as a JSON file readable only by its owner.
// Writes go to a temporary file that is renamed over the target.
type FileMirror struct {
	path string
}

func NewFileMirror(path string) *FileMirror {
	return &FileMirror{path: path}
}

// Load returns empty credentials when the file does not exist.
func (f *FileMirror) Load() (Credentials, error) {
	var c Credentials
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, errors.Wrap(err, "FileMirror.Load")
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, errors.Wrap(err, "FileMirror.Load decode")
	}
	return c, nil
}

func (f *FileMirror) Save(c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "FileMirror.Save encode")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "FileMirror.Save mkdir")
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return errors.Wrap(err, "FileMirror.Save create")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "FileMirror.Save chmod")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "FileMirror.Save write")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "FileMirror.Save close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.path), "FileMirror.Save rename")
}

func (f *FileMirror) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "FileMirror.Clear")
	}
	return nil
}
