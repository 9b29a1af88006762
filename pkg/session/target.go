package session

import (
	"github.com/marmos91/cephtool/pkg/remotefs"
)

// Config option names understood by every remotefs backend.
const (
	optionMonHost = "mon host"
	optionKey     = "key"
	optionKeyFile = "keyfile"
)

// Target selects how a session locates the cluster. It is one of
// ConfigFileTarget or MonitorTarget; a nil Target leaves the backend's
// built-in defaults in place.
type Target interface {
	apply(m remotefs.Mount) error
	String() string
}

// ConfigFileTarget loads a ceph.conf style file.
type ConfigFileTarget struct {
	Path string
}

func (t ConfigFileTarget) apply(m remotefs.Mount) error {
	return m.ReadConfigFile(t.Path)
}

func (t ConfigFileTarget) String() string { return "conf:" + t.Path }

// MonitorTarget connects to an explicit monitor address list.
type MonitorTarget struct {
	Addr string
}

func (t MonitorTarget) apply(m remotefs.Mount) error {
	return m.SetConfigOption(optionMonHost, t.Addr)
}

func (t MonitorTarget) String() string { return "mon:" + t.Addr }

// Secret supplies the client key at login. It is one of InlineKey, KeyFile
// or NoSecret.
type Secret interface {
	apply(m remotefs.Mount) error
}

// InlineKey passes the key itself.
type InlineKey string

func (k InlineKey) apply(m remotefs.Mount) error {
	return m.SetConfigOption(optionKey, string(k))
}

// KeyFile names a file holding the key.
type KeyFile string

func (k KeyFile) apply(m remotefs.Mount) error {
	return m.SetConfigOption(optionKeyFile, string(k))
}

// NoSecret relies on the key embedded in the configuration file, if any.
type NoSecret struct{}

func (NoSecret) apply(remotefs.Mount) error { return nil }

// Credentials holds both secret sources a caller may have configured.
type Credentials struct {
	Key     string
	KeyFile string
}

// Secret resolves the active source: the inline key wins over the key file.
func (c Credentials) Secret() Secret {
	switch {
	case c.Key != "":
		return InlineKey(c.Key)
	case c.KeyFile != "":
		return KeyFile(c.KeyFile)
	default:
		return NoSecret{}
	}
}
