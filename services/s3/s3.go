// Package s3 provides a storage service backed by Amazon S3 or any
// S3-compatible endpoint.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

const listPageSize = 1000

// Builder configures an s3 service.
type Builder struct {
	bucket    string
	root      string
	endpoint  string
	region    string
	accessKey string
	secretKey string
}

// New starts building an s3 service.
func New() *Builder { return &Builder{region: "us-east-1"} }

// Bucket sets the bucket all operations target. Required.
func (b *Builder) Bucket(bucket string) *Builder {
	b.bucket = bucket
	return b
}

// Root sets the working directory inside the bucket.
func (b *Builder) Root(root string) *Builder {
	b.root = root
	return b
}

// Endpoint points the client at an S3-compatible server instead of AWS.
func (b *Builder) Endpoint(endpoint string) *Builder {
	b.endpoint = endpoint
	return b
}

// Region sets the signing region. Defaults to us-east-1.
func (b *Builder) Region(region string) *Builder {
	b.region = region
	return b
}

// Credentials sets a static access key pair. Required.
func (b *Builder) Credentials(accessKey, secretKey string) *Builder {
	b.accessKey = accessKey
	b.secretKey = secretKey
	return b
}

// Build constructs the client and returns the accessor.
func (b *Builder) Build() (raw.Accessor, error) {
	if b.bucket == "" {
		return nil, errs.New(errs.KindConfigInvalid, "bucket is required but not set").
			WithContext("service", string(raw.SchemeS3))
	}
	if b.accessKey == "" || b.secretKey == "" {
		return nil, errs.New(errs.KindConfigInvalid, "credentials are required but not set").
			WithContext("service", string(raw.SchemeS3)).
			WithContext("bucket", b.bucket)
	}

	cfg := aws.Config{
		Region:      b.region,
		Credentials: credentials.NewStaticCredentialsProvider(b.accessKey, b.secretKey, ""),
	}
	if b.endpoint != "" {
		endpoint := b.endpoint
		cfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               endpoint,
					HostnameImmutable: true,
					SigningRegion:     region,
				}, nil
			})
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Path-style URLs work against both AWS and self-hosted endpoints.
		o.UsePathStyle = true
	})

	return &backend{
		meta: raw.NewMetadata(
			raw.SchemeS3,
			b.root,
			raw.CapRead|raw.CapWrite|raw.CapList|raw.CapPresign|raw.CapMultipart,
		).WithName(b.bucket),
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  b.bucket,
	}, nil
}

type backend struct {
	meta    raw.Metadata
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func (b *backend) Metadata() raw.Metadata { return b.meta }

// key maps a relative path to the object key inside the bucket.
func (b *backend) key(path string) string {
	return strings.TrimPrefix(raw.BuildAbsPath(b.meta.Root(), path), "/")
}

// relPath maps an object key back to a path relative to the root.
func (b *backend) relPath(key string) string {
	return strings.TrimPrefix("/"+key, b.meta.Root())
}

func mapError(err error, path string) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return errs.New(errs.KindObjectNotFound, "object not found").
			WithContext("path", path).
			WithSource(err)
	}
	return errs.New(errs.KindUnexpected, "s3 request failed").
		WithContext("path", path).
		WithSource(err).
		Temporary()
}

func (b *backend) Create(ctx context.Context, path string, args raw.CreateArgs) (raw.CreateResult, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(path)),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return raw.CreateResult{}, mapError(err, path)
	}
	return raw.CreateResult{}, nil
}

// rangeHeader renders the range as an HTTP Range header value, empty for
// a full read.
func rangeHeader(r raw.BytesRange) string {
	offset, hasOffset := r.Offset()
	size, hasSize := r.Size()
	switch {
	case !hasOffset && !hasSize:
		return ""
	case !hasOffset:
		return fmt.Sprintf("bytes=-%d", size)
	case !hasSize:
		return fmt.Sprintf("bytes=%d-", offset)
	default:
		return fmt.Sprintf("bytes=%d-%d", offset, offset+size-1)
	}
}

func (b *backend) Read(ctx context.Context, path string, args raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	}
	if header := rangeHeader(args.Range); header != "" {
		input.Range = aws.String(header)
	}

	out, err := b.client.GetObject(ctx, input)
	if err != nil {
		return raw.ReadResult{}, nil, mapError(err, path)
	}

	meta := raw.NewObjectMetadata(raw.ModeFile)
	if out.ContentLength != nil {
		meta = meta.WithContentLength(*out.ContentLength)
	}
	if out.ContentType != nil {
		meta = meta.WithContentType(*out.ContentType)
	}
	if out.LastModified != nil {
		meta = meta.WithLastModified(*out.LastModified)
	}
	return raw.ReadResult{Meta: meta}, out.Body, nil
}

func (b *backend) Write(ctx context.Context, path string, args raw.WriteArgs, r io.Reader) (raw.WriteResult, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
		Body:   r,
	}
	// A negative size means the length is unknown; the SDK then works it
	// out from the body or streams chunked.
	if args.Size >= 0 {
		input.ContentLength = aws.Int64(args.Size)
	}
	if args.ContentType != "" {
		input.ContentType = aws.String(args.ContentType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return raw.WriteResult{}, mapError(err, path)
	}
	written := args.Size
	if written < 0 {
		written = 0
	}
	return raw.WriteResult{Written: written}, nil
}

func (b *backend) Stat(ctx context.Context, path string, args raw.StatArgs) (raw.StatResult, error) {
	key := b.key(path)
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		mode := raw.ModeFile
		if raw.IsDirPath(path) {
			mode = raw.ModeDir
		}
		meta := raw.NewObjectMetadata(mode)
		if out.ContentLength != nil {
			meta = meta.WithContentLength(*out.ContentLength)
		}
		if out.ContentType != nil {
			meta = meta.WithContentType(*out.ContentType)
		}
		if out.LastModified != nil {
			meta = meta.WithLastModified(*out.LastModified)
		}
		return raw.StatResult{Meta: meta}, nil
	}

	mapped := mapError(err, path)
	if !raw.IsDirPath(path) || !errs.IsObjectNotFound(mapped) {
		return raw.StatResult{}, mapped
	}

	// No marker object for the directory; it still exists if anything
	// lives under the prefix.
	listed, lerr := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if lerr != nil {
		return raw.StatResult{}, mapError(lerr, path)
	}
	if len(listed.Contents) == 0 {
		return raw.StatResult{}, mapped
	}
	return raw.StatResult{Meta: raw.NewObjectMetadata(raw.ModeDir)}, nil
}

func (b *backend) Delete(ctx context.Context, path string, args raw.DeleteArgs) (raw.DeleteResult, error) {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		return raw.DeleteResult{}, mapError(err, path)
	}
	return raw.DeleteResult{}, nil
}

func (b *backend) List(ctx context.Context, path string, args raw.ListArgs) (raw.ListResult, raw.Pager, error) {
	return raw.ListResult{}, &objectPager{
		backend: b,
		path:    path,
		prefix:  b.key(path),
	}, nil
}

// objectPager pages through ListObjectsV2 with a continuation token. It
// keeps fetching until it has a non-empty page or the listing is done, so
// callers never see an empty intermediate page.
type objectPager struct {
	backend *backend
	path    string
	prefix  string
	token   *string
	done    bool
}

func (p *objectPager) NextPage(ctx context.Context) ([]raw.Entry, error) {
	for !p.done {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(p.backend.bucket),
			Prefix:            aws.String(p.prefix),
			Delimiter:         aws.String("/"),
			MaxKeys:           aws.Int32(listPageSize),
			ContinuationToken: p.token,
		}
		out, err := p.backend.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, mapError(err, p.path)
		}
		if out.IsTruncated != nil && *out.IsTruncated {
			p.token = out.NextContinuationToken
		} else {
			p.done = true
		}

		entries := make([]raw.Entry, 0, len(out.CommonPrefixes)+len(out.Contents))
		for _, cp := range out.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			entries = append(entries, raw.NewEntry(
				p.backend.relPath(*cp.Prefix),
				raw.NewObjectMetadata(raw.ModeDir),
			))
		}
		for _, obj := range out.Contents {
			if obj.Key == nil || *obj.Key == p.prefix {
				// Skip the listed directory's own marker object.
				continue
			}
			meta := raw.NewObjectMetadata(raw.ModeFile)
			if obj.Size != nil {
				meta = meta.WithContentLength(*obj.Size)
			}
			if obj.LastModified != nil {
				meta = meta.WithLastModified(*obj.LastModified)
			}
			entries = append(entries, raw.NewEntry(p.backend.relPath(*obj.Key), meta))
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}
	return nil, nil
}

func (b *backend) Presign(path string, args raw.PresignArgs) (raw.PresignResult, error) {
	ctx := context.Background()
	expires := func(o *s3.PresignOptions) { o.Expires = args.Expire }

	var req *v4PresignedRequest
	switch args.Operation {
	case raw.OpRead:
		out, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(path)),
		}, expires)
		if err != nil {
			return raw.PresignResult{}, mapError(err, path)
		}
		req = &v4PresignedRequest{out.Method, out.URL, out.SignedHeader}
	case raw.OpWrite:
		out, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(path)),
		}, expires)
		if err != nil {
			return raw.PresignResult{}, mapError(err, path)
		}
		req = &v4PresignedRequest{out.Method, out.URL, out.SignedHeader}
	default:
		return raw.PresignResult{}, errs.Newf(errs.KindUnsupported,
			"operation %s cannot be presigned", args.Operation)
	}

	return raw.PresignResult{Method: req.method, URL: req.url, Header: req.header}, nil
}

type v4PresignedRequest struct {
	method string
	url    string
	header map[string][]string
}

func (b *backend) CreateMultipart(ctx context.Context, path string, args raw.CreateMultipartArgs) (raw.CreateMultipartResult, error) {
	out, err := b.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(path)),
	})
	if err != nil {
		return raw.CreateMultipartResult{}, mapError(err, path)
	}
	return raw.CreateMultipartResult{UploadID: aws.ToString(out.UploadId)}, nil
}

func (b *backend) WriteMultipart(ctx context.Context, path string, args raw.WriteMultipartArgs, r io.Reader) (raw.WriteMultipartResult, error) {
	out, err := b.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(path)),
		UploadId:      aws.String(args.UploadID),
		PartNumber:    aws.Int32(int32(args.PartNumber)),
		Body:          r,
		ContentLength: aws.Int64(args.Size),
	})
	if err != nil {
		return raw.WriteMultipartResult{}, mapError(err, path)
	}
	return raw.WriteMultipartResult{ETag: aws.ToString(out.ETag)}, nil
}

func (b *backend) CompleteMultipart(ctx context.Context, path string, args raw.CompleteMultipartArgs) (raw.CompleteMultipartResult, error) {
	parts := make([]types.CompletedPart, 0, len(args.Parts))
	for _, part := range args.Parts {
		parts = append(parts, types.CompletedPart{
			PartNumber: aws.Int32(int32(part.PartNumber)),
			ETag:       aws.String(part.ETag),
		})
	}

	_, err := b.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(b.bucket),
		Key:             aws.String(b.key(path)),
		UploadId:        aws.String(args.UploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return raw.CompleteMultipartResult{}, mapError(err, path)
	}
	return raw.CompleteMultipartResult{}, nil
}

func (b *backend) AbortMultipart(ctx context.Context, path string, args raw.AbortMultipartArgs) (raw.AbortMultipartResult, error) {
	_, err := b.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(b.bucket),
		Key:      aws.String(b.key(path)),
		UploadId: aws.String(args.UploadID),
	})
	if err != nil {
		return raw.AbortMultipartResult{}, mapError(err, path)
	}
	return raw.AbortMultipartResult{}, nil
}
