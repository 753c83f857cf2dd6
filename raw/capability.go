package raw

// Capability is a bitset describing which operation classes a backend
// supports. It is immutable per accessor instance; callers and layers check
// it before dispatch, and an accessor must never silently succeed an
// operation outside its declared set.
type Capability uint32

const (
	CapRead Capability = 1 << iota
	CapWrite
	CapList
	CapPresign
	CapMultipart
	// CapBlocking declares that the backend never suspends on network I/O:
	// embedded engines and the local filesystem. Every operation still takes
	// a context; this bit only tells callers the work completes inline.
	CapBlocking
)

// Has reports whether all bits of c2 are present in c.
func (c Capability) Has(c2 Capability) bool { return c&c2 == c2 }

func (c Capability) String() string {
	names := []struct {
		bit  Capability
		name string
	}{
		{CapRead, "Read"},
		{CapWrite, "Write"},
		{CapList, "List"},
		{CapPresign, "Presign"},
		{CapMultipart, "Multipart"},
		{CapBlocking, "Blocking"},
	}
	s := ""
	for _, n := range names {
		if c.Has(n.bit) {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}
