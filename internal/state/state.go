// Package state persists what the CLI remembers between invocations: the
// login info written by "cephtool config" and the last working directory.
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// UserInfoFile holds the persisted login info.
	UserInfoFile = "user.info"

	// LastWorkDirFile holds the remote working directory left by "cd".
	LastWorkDirFile = "last_work_dir"
)

// ErrNoUserInfo is returned by LoadUserInfo when nothing was configured yet.
var ErrNoUserInfo = errors.New("no login info configured")

// UserInfo is the login info recorded by a successful "cephtool config".
type UserInfo struct {
	ConfFile string `yaml:"conf_file,omitempty"`
	MonHost  string `yaml:"mon_host,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Root     string `yaml:"root,omitempty"`
}

// Store reads and writes the state files in one directory.
type Store struct {
	dir      string
	userInfo string
}

// Option configures a Store.
type Option func(*Store)

// WithUserInfoPath keeps the login info at path instead of the state
// directory.
func WithUserInfoPath(path string) Option {
	return func(s *Store) {
		if path != "" {
			s.userInfo = path
		}
	}
}

// New returns a Store rooted at dir. Nothing is created until a write.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, userInfo: filepath.Join(dir, UserInfoFile)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the state directory.
func (s *Store) Dir() string { return s.dir }

// UserInfoPath returns where the login info is kept.
func (s *Store) UserInfoPath() string { return s.userInfo }

// LoadUserInfo reads the persisted login info.
func (s *Store) LoadUserInfo() (*UserInfo, error) {
	data, err := os.ReadFile(s.userInfo)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoUserInfo
	}
	if err != nil {
		return nil, fmt.Errorf("read user info: %w", err)
	}

	var info UserInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse user info %s: %w", s.userInfo, err)
	}
	return &info, nil
}

// SaveUserInfo replaces the persisted login info. The file is private to
// the user since it may carry a key.
func (s *Store) SaveUserInfo(info *UserInfo) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode user info: %w", err)
	}
	return writeFile(s.userInfo, data, 0o600)
}

// LastWorkDir returns the remembered working directory, or "" if none.
func (s *Store) LastWorkDir() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, LastWorkDirFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read last work dir: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetLastWorkDir remembers dir as the working directory for later commands.
func (s *Store) SetLastWorkDir(dir string) error {
	return writeFile(filepath.Join(s.dir, LastWorkDirFile), []byte(dir+"\n"), 0o644)
}

// writeFile replaces path through a temporary file so readers never see a
// partial write.
func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
