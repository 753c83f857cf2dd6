// Package kv promotes a minimal key-value store into a full hierarchical
// object-storage accessor. A store only needs get/set/delete plus an
// optional per-namespace scan; the adapter derives path segmentation,
// directory semantics and paginated listing on top.
package kv

import (
	"context"

	"github.com/stratum-storage/stratum/raw"
)

// ScanEntry is one key found while enumerating a namespace. Size is the
// stored value size where the store can report it cheaply, -1 otherwise.
type ScanEntry struct {
	Name string
	Size int64
}

// Store is the minimal contract a key-value engine implements to plug in.
//
// A namespace is the key-space of one directory's contents: the adapter
// splits every object path into (parent namespace, leaf name) and addresses
// the store with the pair. Root-level objects live in the "/" namespace.
type Store interface {
	// Metadata returns scheme, root and capability set. Stores typically
	// declare Read|Write|Blocking, plus List when Scan is usable.
	Metadata() raw.Metadata

	// Get returns the value stored under (namespace, name), or (nil, nil)
	// when absent. Absence is not an error.
	Get(ctx context.Context, namespace, name string) ([]byte, error)

	// Set stores value under (namespace, name), overwriting any previous
	// value.
	Set(ctx context.Context, namespace, name string, value []byte) error

	// Delete removes (namespace, name). Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, namespace, name string) error

	// Scan enumerates the keys of one namespace. Only called on stores
	// declaring CapList.
	Scan(ctx context.Context, namespace string) ([]ScanEntry, error)
}

// SplitPath splits an absolute object path into the namespace holding it and
// the leaf name within that namespace. "/dir1/dir2/file.txt" maps to
// ("/dir1/dir2", "file.txt"); root-level paths map to the "/" namespace.
func SplitPath(absPath string) (namespace, name string) {
	parent := raw.ParentDir(absPath)
	if parent != "/" {
		// Namespaces are parent directories without the trailing slash.
		parent = parent[:len(parent)-1]
	}
	return parent, raw.BaseName(absPath)
}

// JoinPath is the inverse of SplitPath.
func JoinPath(namespace, name string) string {
	if namespace == "/" {
		return "/" + name
	}
	return namespace + "/" + name
}
