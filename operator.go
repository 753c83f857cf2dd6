package stratum

import (
	"context"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/layers"
	"github.com/stratum-storage/stratum/raw"
)

// Operator is the user-facing handle over a fully composed accessor chain.
// It is immutable and safe to share across goroutines; all per-call state
// lives in the arguments and returned values.
type Operator struct {
	accessor raw.Accessor
}

// OperatorBuilder composes an accessor with layers before first use. The
// chain is built strictly inside-out and frozen by Finish.
type OperatorBuilder struct {
	accessor raw.Accessor
}

// NewOperator starts building an operator around acc. Error-context
// enrichment and read-completion normalization are always attached first so
// every other layer and the caller see consistent errors and streams.
func NewOperator(acc raw.Accessor) *OperatorBuilder {
	b := &OperatorBuilder{accessor: acc}
	return b.
		Layer(layers.ErrorContextLayer{}).
		Layer(layers.CompleteReadLayer{})
}

// Layer wraps the chain built so far with one more layer.
func (b *OperatorBuilder) Layer(l raw.Layer) *OperatorBuilder {
	b.accessor = l.Layer(b.accessor)
	return b
}

// Finish freezes the chain and returns the operator.
func (b *OperatorBuilder) Finish() *Operator {
	return &Operator{accessor: b.accessor}
}

// Layer returns a new operator with one more layer wrapped around the
// existing chain. Prefer composing via OperatorBuilder; this exists for
// callers that receive an already built operator.
func (o *Operator) Layer(l raw.Layer) *Operator {
	return &Operator{accessor: l.Layer(o.accessor)}
}

// Inner exposes the composed accessor. Intended for layer implementors and
// the walkers; regular callers use Object and Batch.
func (o *Operator) Inner() raw.Accessor { return o.accessor }

// Metadata describes the underlying accessor.
func (o *Operator) Metadata() OperatorMetadata {
	return OperatorMetadata{meta: o.accessor.Metadata()}
}

// Object returns a handle for operations on one path.
func (o *Operator) Object(path string) *Object {
	return &Object{op: o, path: path}
}

// Batch returns a handle for tree-wide operations: walks and recursive
// delete.
func (o *Operator) Batch() *BatchOperator {
	return &BatchOperator{op: o}
}

// Check probes the backend with a root listing and reports any error other
// than ObjectNotFound. Backends without List are assumed healthy if their
// metadata is readable.
func (o *Operator) Check(ctx context.Context) error {
	if !o.Metadata().CanList() {
		return nil
	}
	_, pager, err := o.accessor.List(ctx, "/", raw.ListArgs{})
	if err == nil {
		_, err = pager.NextPage(ctx)
	}
	if err != nil && !errs.IsObjectNotFound(err) {
		return err
	}
	return nil
}

// OperatorMetadata exposes the accessor identity and capability set as
// boolean queries.
type OperatorMetadata struct {
	meta raw.Metadata
}

// Scheme of the underlying backend.
func (m OperatorMetadata) Scheme() raw.Scheme { return m.meta.Scheme() }

// Root of the backend, always absolute and slash-terminated.
func (m OperatorMetadata) Root() string { return m.meta.Root() }

// Name of the backend: bucket for s3, database path for embedded engines.
// Empty when the backend has no namespace concept.
func (m OperatorMetadata) Name() string { return m.meta.Name() }

func (m OperatorMetadata) CanRead() bool      { return m.meta.Supports(raw.CapRead) }
func (m OperatorMetadata) CanWrite() bool     { return m.meta.Supports(raw.CapWrite) }
func (m OperatorMetadata) CanList() bool      { return m.meta.Supports(raw.CapList) }
func (m OperatorMetadata) CanPresign() bool   { return m.meta.Supports(raw.CapPresign) }
func (m OperatorMetadata) CanMultipart() bool { return m.meta.Supports(raw.CapMultipart) }
func (m OperatorMetadata) CanBlocking() bool  { return m.meta.Supports(raw.CapBlocking) }
