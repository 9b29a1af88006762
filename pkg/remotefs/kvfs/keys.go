package kvfs

import "strings"

// Key Namespace Design
// ====================
//
// Entries are keyed by their absolute path inside the store namespace (the
// mount root is already applied), which keeps directory listings and
// subtree renames to prefix scans.
//
// Data Type      Prefix   Key Format         Value Type
// ======================================================
// Node record    "n:"     n:<abs path>       node (XDR)
// File content   "d:"     d:<abs path>       raw bytes
// Inode counter  "meta:"  meta:ino           uint64 (XDR)
//
// Listing a directory scans "n:<dir>/" and keeps keys whose remainder has no
// further slash. A renamed directory moves every key under "n:<dir>" and
// "d:<dir>" whose remainder is empty or starts with a slash.

const (
	prefixNode = "n:"
	prefixData = "d:"
)

const keyInodeCounter = "meta:ino"

func keyNode(p string) string { return prefixNode + p }

func keyData(p string) string { return prefixData + p }

// childPrefix returns the node key prefix shared by the direct children of dir.
func childPrefix(dir string) string {
	if dir == "/" {
		return prefixNode + "/"
	}
	return prefixNode + dir + "/"
}

// childName extracts a direct child name from a key produced under
// childPrefix(dir). It returns false for deeper descendants.
func childName(dir, key string) (string, bool) {
	rest := strings.TrimPrefix(key, childPrefix(dir))
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// inSubtree reports whether key (under prefix+root) names root itself or
// something below it.
func inSubtree(prefix, root, key string) bool {
	rest, ok := strings.CutPrefix(key, prefix+root)
	if !ok {
		return false
	}
	return rest == "" || strings.HasPrefix(rest, "/") || root == "/"
}
