package kvfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConf(t *testing.T) {
	conf := `
# cluster configuration
[global]
fsid = 1c5f1b4e-0000-0000-0000-000000000000
mon_host = 10.0.0.1:6789,10.0.0.2:6789

[osd]
key = not-for-clients

[client.admin]
key = AQBadminkey==
; inline comment line
[client.backup]
key = AQBbackupkey==
`
	opts, err := parseConf(strings.NewReader(conf), "admin")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:6789,10.0.0.2:6789", opts["mon host"])
	assert.Equal(t, "AQBadminkey==", opts["key"])
	assert.Contains(t, opts, "fsid")
}

func TestParseConfMalformed(t *testing.T) {
	_, err := parseConf(strings.NewReader("[global\n"), "admin")
	assert.Error(t, err)

	_, err = parseConf(strings.NewReader("[global]\njust words\n"), "admin")
	assert.Error(t, err)
}

func TestNormalizeOption(t *testing.T) {
	for _, in := range []string{"mon host", "mon_host", "MON-HOST", "  mon   host "} {
		assert.Equal(t, "mon host", normalizeOption(in), in)
	}
}

func TestChildName(t *testing.T) {
	name, ok := childName("/", "n:/a")
	assert.True(t, ok)
	assert.Equal(t, "a", name)

	_, ok = childName("/", "n:/a/b")
	assert.False(t, ok)

	name, ok = childName("/a", "n:/a/b")
	assert.True(t, ok)
	assert.Equal(t, "b", name)
}

func TestInSubtree(t *testing.T) {
	assert.True(t, inSubtree(prefixNode, "/a", "n:/a"))
	assert.True(t, inSubtree(prefixNode, "/a", "n:/a/b/c"))
	assert.False(t, inSubtree(prefixNode, "/a", "n:/ab"))
	assert.False(t, inSubtree(prefixNode, "/a", "d:/a"))
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, "n;", PrefixEnd("n:"))
	assert.Equal(t, "b", PrefixEnd("a\xff"))
	assert.Equal(t, "", PrefixEnd("\xff\xff"))
}
