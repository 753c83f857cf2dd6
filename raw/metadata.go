package raw

// Metadata identifies an accessor: its scheme, normalized root, optional
// backend name (bucket, database file, ...) and declared capability set.
// Immutable per accessor instance.
type Metadata struct {
	scheme       Scheme
	root         string
	name         string
	capabilities Capability
}

// NewMetadata builds accessor metadata. The root is normalized to an
// absolute, slash-terminated form.
func NewMetadata(scheme Scheme, root string, capabilities Capability) Metadata {
	return Metadata{
		scheme:       scheme,
		root:         NormalizeRoot(root),
		capabilities: capabilities,
	}
}

// WithName returns a copy of m carrying the backend name.
func (m Metadata) WithName(name string) Metadata {
	m.name = name
	return m
}

func (m Metadata) Scheme() Scheme             { return m.scheme }
func (m Metadata) Root() string               { return m.root }
func (m Metadata) Name() string               { return m.name }
func (m Metadata) Capabilities() Capability   { return m.capabilities }
func (m Metadata) Supports(c Capability) bool { return m.capabilities.Has(c) }
