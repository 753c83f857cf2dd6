package stratum

import (
	"bytes"
	"context"
	"io"

	"github.com/stratum-storage/stratum/raw"
)

// Object is a handle for operations on one path. Handles are cheap; create
// them per call site rather than caching.
type Object struct {
	op   *Operator
	path string
}

// Path returns the handle's path as given.
func (o *Object) Path() string { return o.path }

// require gates an operation on the backend's declared capability set. The
// check happens before any dispatch, so an unsupported operation never
// reaches the backend.
func (o *Object) require(c raw.Capability, op raw.Operation) error {
	md := o.op.accessor.Metadata()
	if !md.Supports(c) {
		return raw.ErrUnsupported(md.Scheme(), op)
	}
	return nil
}

// Stat resolves the object's metadata.
func (o *Object) Stat(ctx context.Context) (raw.ObjectMetadata, error) {
	res, err := o.op.accessor.Stat(ctx, o.path, raw.StatArgs{})
	if err != nil {
		return raw.ObjectMetadata{}, err
	}
	return res.Meta, nil
}

// Exists reports whether the object exists.
func (o *Object) Exists(ctx context.Context) (bool, error) {
	_, err := o.Stat(ctx)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Create makes an empty file, or a directory when the path is
// slash-terminated.
func (o *Object) Create(ctx context.Context) error {
	if err := o.require(raw.CapWrite, raw.OpCreate); err != nil {
		return err
	}
	mode := raw.ModeFile
	if raw.IsDirPath(o.path) {
		mode = raw.ModeDir
	}
	_, err := o.op.accessor.Create(ctx, o.path, raw.CreateArgs{Mode: mode})
	return err
}

// Read opens the whole object. The caller must close the stream.
func (o *Object) Read(ctx context.Context) (io.ReadCloser, error) {
	return o.ReadRange(ctx, raw.FullRange())
}

// ReadRange opens a byte window of the object.
func (o *Object) ReadRange(ctx context.Context, rng raw.BytesRange) (io.ReadCloser, error) {
	if err := o.require(raw.CapRead, raw.OpRead); err != nil {
		return nil, err
	}
	args := raw.ReadArgs{Range: rng}
	if err := args.Validate(); err != nil {
		return nil, err
	}
	_, r, err := o.op.accessor.Read(ctx, o.path, args)
	return r, err
}

// ReadAll reads the whole object into memory.
func (o *Object) ReadAll(ctx context.Context) ([]byte, error) {
	r, err := o.Read(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Write stores size bytes from r at the object's path.
func (o *Object) Write(ctx context.Context, r io.Reader, size int64) error {
	if err := o.require(raw.CapWrite, raw.OpWrite); err != nil {
		return err
	}
	_, err := o.op.accessor.Write(ctx, o.path, raw.WriteArgs{Size: size}, r)
	return err
}

// WriteBytes stores data at the object's path.
func (o *Object) WriteBytes(ctx context.Context, data []byte) error {
	return o.Write(ctx, bytes.NewReader(data), int64(len(data)))
}

// Delete removes the object. Deleting an absent object is not an error.
func (o *Object) Delete(ctx context.Context) error {
	if err := o.require(raw.CapWrite, raw.OpDelete); err != nil {
		return err
	}
	_, err := o.op.accessor.Delete(ctx, o.path, raw.DeleteArgs{})
	return err
}

// List opens a paginated cursor over the directory addressed by this handle.
func (o *Object) List(ctx context.Context) (raw.Pager, error) {
	if err := o.require(raw.CapList, raw.OpList); err != nil {
		return nil, err
	}
	_, pager, err := o.op.accessor.List(ctx, o.path, raw.ListArgs{})
	return pager, err
}

// Presign builds a signed request for the object.
func (o *Object) Presign(args raw.PresignArgs) (raw.PresignResult, error) {
	if err := o.require(raw.CapPresign, raw.OpPresign); err != nil {
		return raw.PresignResult{}, err
	}
	return o.op.accessor.Presign(o.path, args)
}

// CreateMultipart starts a staged upload for the object.
func (o *Object) CreateMultipart(ctx context.Context) (*MultipartUpload, error) {
	if err := o.require(raw.CapMultipart, raw.OpCreateMultipart); err != nil {
		return nil, err
	}
	res, err := o.op.accessor.CreateMultipart(ctx, o.path, raw.CreateMultipartArgs{})
	if err != nil {
		return nil, err
	}
	return &MultipartUpload{obj: o, uploadID: res.UploadID}, nil
}

// MultipartUpload drives one staged upload: write parts, then complete or
// abort exactly once.
type MultipartUpload struct {
	obj      *Object
	uploadID string
}

// UploadID identifies the staged upload at the backend.
func (m *MultipartUpload) UploadID() string { return m.uploadID }

// WritePart uploads one part and returns its identity for Complete.
func (m *MultipartUpload) WritePart(ctx context.Context, partNumber int, size int64, r io.Reader) (raw.Part, error) {
	args := raw.WriteMultipartArgs{UploadID: m.uploadID, PartNumber: partNumber, Size: size}
	if err := args.Validate(); err != nil {
		return raw.Part{}, err
	}
	res, err := m.obj.op.accessor.WriteMultipart(ctx, m.obj.path, args, r)
	if err != nil {
		return raw.Part{}, err
	}
	return raw.Part{PartNumber: partNumber, ETag: res.ETag}, nil
}

// Complete assembles the written parts into the object.
func (m *MultipartUpload) Complete(ctx context.Context, parts []raw.Part) error {
	_, err := m.obj.op.accessor.CompleteMultipart(ctx, m.obj.path, raw.CompleteMultipartArgs{
		UploadID: m.uploadID,
		Parts:    parts,
	})
	return err
}

// Abort discards the staged upload.
func (m *MultipartUpload) Abort(ctx context.Context) error {
	_, err := m.obj.op.accessor.AbortMultipart(ctx, m.obj.path, raw.AbortMultipartArgs{
		UploadID: m.uploadID,
	})
	return err
}
