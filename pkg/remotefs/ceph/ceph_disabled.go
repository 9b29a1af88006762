//go:build !ceph

package ceph

import (
	"errors"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// Available reports whether the binary was built with CephFS support.
const Available = false

// ErrUnavailable is returned by New when the binary was built without the
// "ceph" build tag.
var ErrUnavailable = errors.New("ceph: built without CephFS support (rebuild with -tags ceph)")

// New returns ErrUnavailable.
func New() (remotefs.Driver, error) { return nil, ErrUnavailable }
