// Package fs provides a storage service on top of a local filesystem
// directory. Writes go through a temporary file and an atomic rename,
// multipart uploads stage their parts in a hidden directory under the root.
package fs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

// uploadsDir holds in-flight multipart uploads. It lives under the
// service root and is hidden from listings.
const uploadsDir = ".stratum-multipart"

const listPageSize = 256

// Builder configures a fs service.
type Builder struct {
	root string
}

// New starts building a fs service.
func New() *Builder { return &Builder{} }

// Root sets the directory all operations happen under. Required. It is
// created if it does not exist.
func (b *Builder) Root(root string) *Builder {
	b.root = root
	return b
}

// Build prepares the root directory and returns the accessor.
func (b *Builder) Build() (raw.Accessor, error) {
	if b.root == "" {
		return nil, errs.New(errs.KindConfigInvalid, "root is required but not set").
			WithContext("service", string(raw.SchemeFs))
	}
	if err := os.MkdirAll(b.root, 0755); err != nil {
		return nil, errs.New(errs.KindConfigInvalid, "create root directory").
			WithContext("service", string(raw.SchemeFs)).
			WithContext("root", b.root).
			WithSource(err)
	}

	return &backend{
		UnsupportedAccessor: raw.UnsupportedAccessor{
			Meta: raw.NewMetadata(
				raw.SchemeFs,
				b.root,
				raw.CapRead|raw.CapWrite|raw.CapList|raw.CapMultipart|raw.CapBlocking,
			),
		},
		root: b.root,
	}, nil
}

type backend struct {
	raw.UnsupportedAccessor
	root string
}

func (b *backend) absPath(path string) string {
	return filepath.Join(b.root, filepath.FromSlash(path))
}

func (b *backend) uploadDir(uploadID string) string {
	return filepath.Join(b.root, uploadsDir, uploadID)
}

func mapError(err error, path string) error {
	if os.IsNotExist(err) {
		return errs.New(errs.KindObjectNotFound, "path not found").
			WithContext("path", path).
			WithSource(err)
	}
	return errs.New(errs.KindUnexpected, "filesystem operation failed").
		WithContext("path", path).
		WithSource(err)
}

func (b *backend) Create(ctx context.Context, path string, args raw.CreateArgs) (raw.CreateResult, error) {
	abs := b.absPath(path)
	if args.Mode == raw.ModeDir {
		if err := os.MkdirAll(abs, 0755); err != nil {
			return raw.CreateResult{}, mapError(err, path)
		}
		return raw.CreateResult{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return raw.CreateResult{}, mapError(err, path)
	}
	// Truncates an existing object, same as writing zero bytes.
	f, err := os.Create(abs)
	if err != nil {
		return raw.CreateResult{}, mapError(err, path)
	}
	if err := f.Close(); err != nil {
		return raw.CreateResult{}, mapError(err, path)
	}
	return raw.CreateResult{}, nil
}

func (b *backend) Read(ctx context.Context, path string, args raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	f, err := os.Open(b.absPath(path))
	if err != nil {
		return raw.ReadResult{}, nil, mapError(err, path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return raw.ReadResult{}, nil, mapError(err, path)
	}
	if fi.IsDir() {
		f.Close()
		return raw.ReadResult{}, nil, errs.New(errs.KindRequestInvalid, "cannot read a directory").
			WithContext("path", path)
	}

	offset, length := args.Range.Resolve(fi.Size())
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return raw.ReadResult{}, nil, mapError(err, path)
		}
	}

	meta := raw.NewObjectMetadata(raw.ModeFile).
		WithContentLength(length).
		WithLastModified(fi.ModTime())
	return raw.ReadResult{Meta: meta}, &rangeReader{
		Reader: io.LimitReader(f, length),
		file:   f,
	}, nil
}

// rangeReader bounds the stream to the selected window while Close still
// releases the underlying file.
type rangeReader struct {
	io.Reader
	file *os.File
}

func (r *rangeReader) Close() error { return r.file.Close() }

func (b *backend) Write(ctx context.Context, path string, args raw.WriteArgs, r io.Reader) (raw.WriteResult, error) {
	abs := b.absPath(path)
	n, err := b.writeAtomic(abs, r)
	if err != nil {
		return raw.WriteResult{}, mapError(err, path)
	}
	return raw.WriteResult{Written: n}, nil
}

// writeAtomic streams into a temporary file in the destination directory
// and renames it into place, so readers never observe a partial object.
func (b *backend) writeAtomic(abs string, r io.Reader) (int64, error) {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, ".tmp_")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		return 0, err
	}
	return n, nil
}

func (b *backend) Stat(ctx context.Context, path string, args raw.StatArgs) (raw.StatResult, error) {
	fi, err := os.Stat(b.absPath(path))
	if err != nil {
		return raw.StatResult{}, mapError(err, path)
	}
	if fi.IsDir() {
		meta := raw.NewObjectMetadata(raw.ModeDir).WithLastModified(fi.ModTime())
		return raw.StatResult{Meta: meta}, nil
	}
	if raw.IsDirPath(path) {
		// The caller asked for a directory but a regular file sits there.
		return raw.StatResult{}, errs.New(errs.KindObjectNotFound, "path not found").
			WithContext("path", path)
	}
	meta := raw.NewObjectMetadata(raw.ModeFile).
		WithContentLength(fi.Size()).
		WithLastModified(fi.ModTime())
	return raw.StatResult{Meta: meta}, nil
}

func (b *backend) Delete(ctx context.Context, path string, args raw.DeleteArgs) (raw.DeleteResult, error) {
	err := os.Remove(b.absPath(path))
	if err != nil && !os.IsNotExist(err) {
		return raw.DeleteResult{}, mapError(err, path)
	}
	return raw.DeleteResult{}, nil
}

func (b *backend) List(ctx context.Context, path string, args raw.ListArgs) (raw.ListResult, raw.Pager, error) {
	dirents, err := os.ReadDir(b.absPath(path))
	if err != nil {
		return raw.ListResult{}, nil, mapError(err, path)
	}

	// Entry paths extend the listed directory, whether or not the caller
	// spelled it with a trailing slash.
	dir := path
	if dir != "" && dir != "/" && !raw.IsDirPath(dir) {
		dir += "/"
	}
	if dir == "/" {
		dir = ""
	}

	atRoot := dir == ""
	entries := make([]raw.Entry, 0, len(dirents))
	for _, de := range dirents {
		name := de.Name()
		if atRoot && name == uploadsDir {
			continue
		}
		if strings.HasPrefix(name, ".tmp_") {
			continue
		}
		if de.IsDir() {
			meta := raw.NewObjectMetadata(raw.ModeDir)
			entries = append(entries, raw.NewEntry(dir+name+"/", meta))
			continue
		}
		meta := raw.NewObjectMetadata(raw.ModeFile)
		if fi, err := de.Info(); err == nil {
			meta = meta.WithContentLength(fi.Size()).WithLastModified(fi.ModTime())
		}
		entries = append(entries, raw.NewEntry(dir+name, meta))
	}

	return raw.ListResult{}, raw.NewSlicePager(entries, listPageSize), nil
}

func (b *backend) CreateMultipart(ctx context.Context, path string, args raw.CreateMultipartArgs) (raw.CreateMultipartResult, error) {
	uploadID := uuid.New().String()
	if err := os.MkdirAll(b.uploadDir(uploadID), 0755); err != nil {
		return raw.CreateMultipartResult{}, mapError(err, path)
	}
	return raw.CreateMultipartResult{UploadID: uploadID}, nil
}

func (b *backend) WriteMultipart(ctx context.Context, path string, args raw.WriteMultipartArgs, r io.Reader) (raw.WriteMultipartResult, error) {
	dir := b.uploadDir(args.UploadID)
	if _, err := os.Stat(dir); err != nil {
		return raw.WriteMultipartResult{}, uploadError(err, args.UploadID)
	}

	hasher := md5.New()
	part := filepath.Join(dir, strconv.Itoa(args.PartNumber))
	if _, err := b.writeAtomic(part, io.TeeReader(r, hasher)); err != nil {
		return raw.WriteMultipartResult{}, mapError(err, path)
	}
	return raw.WriteMultipartResult{ETag: hex.EncodeToString(hasher.Sum(nil))}, nil
}

func (b *backend) CompleteMultipart(ctx context.Context, path string, args raw.CompleteMultipartArgs) (raw.CompleteMultipartResult, error) {
	dir := b.uploadDir(args.UploadID)
	if _, err := os.Stat(dir); err != nil {
		return raw.CompleteMultipartResult{}, uploadError(err, args.UploadID)
	}

	if _, err := b.writeAtomic(b.absPath(path), &partConcat{dir: dir, parts: args.Parts}); err != nil {
		return raw.CompleteMultipartResult{}, mapError(err, path)
	}
	if err := os.RemoveAll(dir); err != nil {
		return raw.CompleteMultipartResult{}, mapError(err, path)
	}
	return raw.CompleteMultipartResult{}, nil
}

func (b *backend) AbortMultipart(ctx context.Context, path string, args raw.AbortMultipartArgs) (raw.AbortMultipartResult, error) {
	if err := os.RemoveAll(b.uploadDir(args.UploadID)); err != nil {
		return raw.AbortMultipartResult{}, mapError(err, path)
	}
	return raw.AbortMultipartResult{}, nil
}

func uploadError(err error, uploadID string) error {
	if os.IsNotExist(err) {
		return errs.New(errs.KindRequestInvalid, "upload id not found").
			WithContext("upload_id", uploadID)
	}
	return errs.New(errs.KindUnexpected, "filesystem operation failed").
		WithContext("upload_id", uploadID).
		WithSource(err)
}

// partConcat streams the staged parts back to back in the order the
// caller listed them.
type partConcat struct {
	dir     string
	parts   []raw.Part
	current io.ReadCloser
	next    int
}

func (pc *partConcat) Read(p []byte) (int, error) {
	for {
		if pc.current == nil {
			if pc.next >= len(pc.parts) {
				return 0, io.EOF
			}
			part := pc.parts[pc.next]
			f, err := os.Open(filepath.Join(pc.dir, strconv.Itoa(part.PartNumber)))
			if err != nil {
				if os.IsNotExist(err) {
					return 0, errs.New(errs.KindRequestInvalid,
						fmt.Sprintf("part %d was never uploaded", part.PartNumber))
				}
				return 0, err
			}
			pc.current = f
			pc.next++
		}
		n, err := pc.current.Read(p)
		if err == io.EOF {
			if cerr := pc.current.Close(); cerr != nil {
				return n, cerr
			}
			pc.current = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}
