package kvfs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"

	"golang.org/x/sys/unix"
)

// Recognized configuration options, in normalized form.
const (
	optionMonHost = "mon host"
	optionKey     = "key"
	optionKeyFile = "keyfile"
)

type mount struct {
	d       *Driver
	id      string
	options map[string]string

	root     string // store path of the mount root
	cwd      string // working directory, relative to root
	mounted  bool
	released bool
}

// normalizeOption folds the spellings ceph accepts for one option
// ("mon_host", "mon-host", "mon host") into a single key.
func normalizeOption(option string) string {
	option = strings.ToLower(strings.TrimSpace(option))
	option = strings.NewReplacer("_", " ", "-", " ").Replace(option)
	return strings.Join(strings.Fields(option), " ")
}

func wrapErr(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return err
	}
	return &fs.PathError{Op: op, Path: p, Err: err}
}

func (m *mount) ReadConfigFile(p string) error {
	if m.released {
		return wrapErr("conf_read_file", p, unix.EBADF)
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	opts, err := parseConf(f, m.id)
	if err != nil {
		return wrapErr("conf_read_file", p, unix.EINVAL)
	}
	for k, v := range opts {
		m.options[k] = v
	}
	return nil
}

func (m *mount) SetConfigOption(option, value string) error {
	if m.released {
		return wrapErr("conf_set", option, unix.EBADF)
	}
	key := normalizeOption(option)
	if key == "" {
		return wrapErr("conf_set", option, unix.EINVAL)
	}
	m.options[key] = value
	return nil
}

func (m *mount) Mount(ctx context.Context, root string) error {
	switch {
	case m.released:
		return wrapErr("mount", root, unix.EBADF)
	case m.mounted:
		return wrapErr("mount", root, unix.EISCONN)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.authenticate(); err != nil {
		return wrapErr("mount", root, err)
	}

	if root == "" {
		root = "/"
	}
	root = path.Clean("/" + root)
	err := m.d.view(func(txn Txn) error {
		n, err := getNode(txn, root)
		if err != nil {
			return err
		}
		if !n.isDir() {
			return unix.ENOTDIR
		}
		return nil
	})
	if err != nil {
		return wrapErr("mount", root, err)
	}

	m.root = root
	m.cwd = "/"
	m.mounted = true
	return nil
}

// authenticate checks the configured secret against the driver keyring.
func (m *mount) authenticate() error {
	if len(m.d.keyring) == 0 {
		return nil
	}
	want, ok := m.d.keyring[m.id]
	if !ok {
		return unix.EACCES
	}

	secret := m.options[optionKey]
	if secret == "" && m.options[optionKeyFile] != "" {
		data, err := os.ReadFile(m.options[optionKeyFile])
		if err != nil {
			return err
		}
		secret = strings.TrimSpace(string(data))
	}
	if secret != want {
		return unix.EACCES
	}
	return nil
}

func (m *mount) IsMounted() bool { return m.mounted }

func (m *mount) Unmount() error {
	if !m.mounted {
		return wrapErr("unmount", m.root, unix.ENOTCONN)
	}
	m.mounted = false
	return nil
}

func (m *mount) Release() error {
	switch {
	case m.mounted:
		return wrapErr("release", m.root, unix.EISCONN)
	case m.released:
		return wrapErr("release", m.root, unix.EBADF)
	}
	m.released = true
	return nil
}

// resolve maps a caller path to its store path and its mount-relative form.
// ".." never climbs above the mount root.
func (m *mount) resolve(op, p string) (store, rel string, err error) {
	if !m.mounted {
		return "", "", wrapErr(op, p, unix.ENOTCONN)
	}
	if p == "" {
		return "", "", wrapErr(op, p, unix.ENOENT)
	}
	if !strings.HasPrefix(p, "/") {
		p = m.cwd + "/" + p
	}
	rel = path.Clean(p)
	return path.Join(m.root, rel), rel, nil
}

func (m *mount) ChangeDir(p string) error {
	storePath, rel, err := m.resolve("chdir", p)
	if err != nil {
		return err
	}
	err = m.d.view(func(txn Txn) error {
		n, err := getNode(txn, storePath)
		if err != nil {
			return err
		}
		if !n.isDir() {
			return unix.ENOTDIR
		}
		return nil
	})
	if err != nil {
		return wrapErr("chdir", p, err)
	}
	m.cwd = rel
	return nil
}

func (m *mount) CurrentDir() string { return m.cwd }
