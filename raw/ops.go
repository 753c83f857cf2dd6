package raw

import (
	"fmt"
	"net/http"
	"time"

	"github.com/stratum-storage/stratum/errs"
)

// BytesRange selects a byte window of an object. Both bounds are optional:
//
//   - offset and size set: size bytes starting at offset
//   - only offset set: everything from offset to the end
//   - only size set: the last size bytes
//   - neither set: the whole object
type BytesRange struct {
	offset *int64
	size   *int64
}

// FullRange selects the whole object.
func FullRange() BytesRange { return BytesRange{} }

// RangeFrom selects everything starting at offset.
func RangeFrom(offset int64) BytesRange { return BytesRange{offset: &offset} }

// RangeOf selects size bytes starting at offset.
func RangeOf(offset, size int64) BytesRange {
	return BytesRange{offset: &offset, size: &size}
}

// RangeSuffix selects the last size bytes of the object.
func RangeSuffix(size int64) BytesRange { return BytesRange{size: &size} }

func (r BytesRange) Offset() (int64, bool) {
	if r.offset == nil {
		return 0, false
	}
	return *r.offset, true
}

func (r BytesRange) Size() (int64, bool) {
	if r.size == nil {
		return 0, false
	}
	return *r.size, true
}

// IsFull reports whether the range selects the whole object.
func (r BytesRange) IsFull() bool { return r.offset == nil && r.size == nil }

// Validate rejects negative bounds.
func (r BytesRange) Validate() error {
	if r.offset != nil && *r.offset < 0 {
		return errs.Newf(errs.KindRequestInvalid, "range offset %d is negative", *r.offset)
	}
	if r.size != nil && *r.size < 0 {
		return errs.Newf(errs.KindRequestInvalid, "range size %d is negative", *r.size)
	}
	return nil
}

// Resolve turns the range into a concrete (offset, length) window for an
// object of totalSize bytes. A suffix range larger than the object resolves
// to the whole object.
func (r BytesRange) Resolve(totalSize int64) (offset, length int64) {
	switch {
	case r.offset == nil && r.size == nil:
		return 0, totalSize
	case r.offset == nil:
		n := *r.size
		if n > totalSize {
			n = totalSize
		}
		return totalSize - n, n
	case r.size == nil:
		if *r.offset > totalSize {
			return totalSize, 0
		}
		return *r.offset, totalSize - *r.offset
	default:
		off := *r.offset
		if off > totalSize {
			return totalSize, 0
		}
		n := *r.size
		if off+n > totalSize {
			n = totalSize - off
		}
		return off, n
	}
}

func (r BytesRange) String() string {
	switch {
	case r.offset == nil && r.size == nil:
		return "full"
	case r.offset == nil:
		return fmt.Sprintf("-%d", *r.size)
	case r.size == nil:
		return fmt.Sprintf("%d-", *r.offset)
	default:
		return fmt.Sprintf("%d-%d", *r.offset, *r.offset+*r.size-1)
	}
}

// CreateArgs carries the arguments of a create call.
type CreateArgs struct {
	Mode ObjectMode
}

// CreateResult is the receipt of a create call.
type CreateResult struct{}

// ReadArgs carries the arguments of a read call.
type ReadArgs struct {
	Range BytesRange
}

// Validate checks the range at construction time.
func (a ReadArgs) Validate() error { return a.Range.Validate() }

// ReadResult is the receipt of a read call: the metadata resolved for the
// returned stream. ContentLength is the length of the selected window, not
// of the whole object.
type ReadResult struct {
	Meta ObjectMetadata
}

// WriteArgs carries the arguments of a write call. Size is the declared
// length of the incoming stream; a negative size means the length is
// unknown (chunked HTTP uploads) and backends must size from the stream.
type WriteArgs struct {
	Size        int64
	ContentType string
}

// WriteResult is the receipt of a write call.
type WriteResult struct {
	Written int64
}

// StatArgs carries the arguments of a stat call.
type StatArgs struct{}

// StatResult carries the object metadata resolved by stat.
type StatResult struct {
	Meta ObjectMetadata
}

// DeleteArgs carries the arguments of a delete call.
type DeleteArgs struct{}

// DeleteResult is the receipt of a delete call.
type DeleteResult struct{}

// ListArgs carries the arguments of a list call.
type ListArgs struct{}

// ListResult is the receipt of a list call; entries arrive via the pager.
type ListResult struct{}

// PresignArgs carries the arguments of a presign call.
type PresignArgs struct {
	// Operation to presign; OpRead and OpWrite are the supported ones.
	Operation Operation
	Expire    time.Duration
}

// PresignResult describes a signed request callers can issue themselves.
type PresignResult struct {
	Method string
	URL    string
	Header http.Header
}

// CreateMultipartArgs carries the arguments of a create_multipart call.
type CreateMultipartArgs struct{}

// CreateMultipartResult carries the upload id of a started multipart upload.
type CreateMultipartResult struct {
	UploadID string
}

// WriteMultipartArgs carries the arguments of a write_multipart call.
type WriteMultipartArgs struct {
	UploadID   string
	PartNumber int
	Size       int64
}

// Validate rejects non-positive part numbers and negative sizes.
func (a WriteMultipartArgs) Validate() error {
	if a.PartNumber < 1 {
		return errs.Newf(errs.KindRequestInvalid, "part number %d must be >= 1", a.PartNumber)
	}
	if a.Size < 0 {
		return errs.Newf(errs.KindRequestInvalid, "part size %d is negative", a.Size)
	}
	return nil
}

// WriteMultipartResult carries the etag of a written part.
type WriteMultipartResult struct {
	ETag string
}

// Part identifies one uploaded part when completing a multipart upload.
type Part struct {
	PartNumber int
	ETag       string
}

// CompleteMultipartArgs carries the arguments of a complete_multipart call.
type CompleteMultipartArgs struct {
	UploadID string
	Parts    []Part
}

// CompleteMultipartResult is the receipt of a completed multipart upload.
type CompleteMultipartResult struct{}

// AbortMultipartArgs carries the arguments of an abort_multipart call.
type AbortMultipartArgs struct {
	UploadID string
}

// AbortMultipartResult is the receipt of an aborted multipart upload.
type AbortMultipartResult struct{}
