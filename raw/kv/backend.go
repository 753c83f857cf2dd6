package kv

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

const listPageSize = 256

// Backend adapts a Store into a raw.Accessor. The store's own concurrency
// guarantees carry through; the adapter adds no locking.
type Backend struct {
	raw.UnsupportedAccessor
	store Store
}

// NewBackend wraps a Store in the generic adapter.
func NewBackend(store Store) *Backend {
	return &Backend{
		UnsupportedAccessor: raw.UnsupportedAccessor{Meta: store.Metadata()},
		store:               store,
	}
}

func (b *Backend) Metadata() raw.Metadata { return b.store.Metadata() }

// Close releases the underlying store when it holds resources (embedded
// engines keep file locks). Closing is not part of the accessor contract;
// owners of the backend call it at teardown.
func (b *Backend) Close() error {
	if c, ok := b.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// split resolves a root-relative path into the store's (namespace, name)
// pair.
func (b *Backend) split(path string) (string, string) {
	abs := raw.BuildAbsPath(b.Metadata().Root(), path)
	return SplitPath(abs)
}

func (b *Backend) Create(ctx context.Context, path string, args raw.CreateArgs) (raw.CreateResult, error) {
	if args.Mode.IsDir() {
		// Namespaces exist implicitly; a directory marker has nothing to
		// store.
		return raw.CreateResult{}, nil
	}
	ns, name := b.split(path)
	if err := b.store.Set(ctx, ns, name, []byte{}); err != nil {
		return raw.CreateResult{}, err
	}
	return raw.CreateResult{}, nil
}

func (b *Backend) Read(ctx context.Context, path string, args raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	if err := args.Validate(); err != nil {
		return raw.ReadResult{}, nil, err
	}
	ns, name := b.split(path)
	value, err := b.store.Get(ctx, ns, name)
	if err != nil {
		return raw.ReadResult{}, nil, err
	}
	if value == nil {
		return raw.ReadResult{}, nil, errs.New(errs.KindObjectNotFound, "key is not found in store")
	}

	// The store always hands back the whole value; the range is applied in
	// memory.
	offset, length := args.Range.Resolve(int64(len(value)))
	window := value[offset : offset+length]

	meta := raw.NewObjectMetadata(raw.ModeFile).WithContentLength(length)
	return raw.ReadResult{Meta: meta}, io.NopCloser(bytes.NewReader(window)), nil
}

func (b *Backend) Write(ctx context.Context, path string, args raw.WriteArgs, r io.Reader) (raw.WriteResult, error) {
	// Size is a capacity hint only; negative means the caller does not know
	// the length (chunked HTTP uploads).
	hint := args.Size
	if hint < 0 {
		hint = 0
	}
	buf := bytes.NewBuffer(make([]byte, 0, hint))
	n, err := io.Copy(buf, r)
	if err != nil {
		return raw.WriteResult{}, errs.New(errs.KindUnexpected, "read from source").WithSource(err)
	}
	ns, name := b.split(path)
	if err := b.store.Set(ctx, ns, name, buf.Bytes()); err != nil {
		return raw.WriteResult{}, err
	}
	return raw.WriteResult{Written: n}, nil
}

func (b *Backend) Stat(ctx context.Context, path string, args raw.StatArgs) (raw.StatResult, error) {
	if raw.IsDirPath(path) {
		return raw.StatResult{Meta: raw.NewObjectMetadata(raw.ModeDir)}, nil
	}
	ns, name := b.split(path)
	value, err := b.store.Get(ctx, ns, name)
	if err != nil {
		return raw.StatResult{}, err
	}
	if value == nil {
		return raw.StatResult{}, errs.New(errs.KindObjectNotFound, "key is not found in store")
	}
	meta := raw.NewObjectMetadata(raw.ModeFile).WithContentLength(int64(len(value)))
	return raw.StatResult{Meta: meta}, nil
}

func (b *Backend) Delete(ctx context.Context, path string, args raw.DeleteArgs) (raw.DeleteResult, error) {
	if raw.IsDirPath(path) {
		return raw.DeleteResult{}, nil
	}
	ns, name := b.split(path)
	if err := b.store.Delete(ctx, ns, name); err != nil {
		return raw.DeleteResult{}, err
	}
	return raw.DeleteResult{}, nil
}

func (b *Backend) List(ctx context.Context, path string, args raw.ListArgs) (raw.ListResult, raw.Pager, error) {
	if !b.Metadata().Supports(raw.CapList) {
		return raw.ListResult{}, nil, raw.ErrUnsupported(b.Metadata().Scheme(), raw.OpList)
	}

	abs := raw.BuildAbsPath(b.Metadata().Root(), path)
	ns := strings.TrimSuffix(abs, "/")
	if ns == "" {
		ns = "/"
	}

	scanned, err := b.store.Scan(ctx, ns)
	if err != nil {
		return raw.ListResult{}, nil, err
	}

	root := b.Metadata().Root()
	entries := make([]raw.Entry, 0, len(scanned))
	for _, se := range scanned {
		meta := raw.NewObjectMetadata(raw.ModeFile)
		if se.Size >= 0 {
			meta = meta.WithContentLength(se.Size)
		}
		entries = append(entries, raw.NewEntry(raw.BuildRelPath(root, JoinPath(ns, se.Name)), meta))
	}

	// A page is either non-empty or the nil exhaustion marker; the pager
	// never emits an empty intermediate page.
	return raw.ListResult{}, raw.NewSlicePager(entries, listPageSize), nil
}
