package raw

import "time"

// ObjectMode discriminates directories from leaf objects.
type ObjectMode string

const (
	ModeFile ObjectMode = "file"
	ModeDir  ObjectMode = "dir"
)

func (m ObjectMode) IsFile() bool { return m == ModeFile }
func (m ObjectMode) IsDir() bool  { return m == ModeDir }

// ObjectMetadata describes one object. ContentLength is authoritative only
// once populated by a stat or list call.
type ObjectMetadata struct {
	mode          ObjectMode
	contentLength int64
	contentType   string
	lastModified  time.Time
}

// NewObjectMetadata creates metadata for an object of the given mode.
func NewObjectMetadata(mode ObjectMode) ObjectMetadata {
	return ObjectMetadata{mode: mode}
}

func (om ObjectMetadata) WithContentLength(n int64) ObjectMetadata {
	om.contentLength = n
	return om
}

func (om ObjectMetadata) WithContentType(ct string) ObjectMetadata {
	om.contentType = ct
	return om
}

func (om ObjectMetadata) WithLastModified(t time.Time) ObjectMetadata {
	om.lastModified = t
	return om
}

func (om ObjectMetadata) Mode() ObjectMode        { return om.mode }
func (om ObjectMetadata) ContentLength() int64    { return om.contentLength }
func (om ObjectMetadata) ContentType() string     { return om.contentType }
func (om ObjectMetadata) LastModified() time.Time { return om.lastModified }

// Entry is one listing result: a path plus the metadata known for it.
type Entry struct {
	Path string
	Meta ObjectMetadata
}

// NewEntry builds an entry. Directory entries carry slash-terminated paths.
func NewEntry(path string, meta ObjectMetadata) Entry {
	return Entry{Path: path, Meta: meta}
}
