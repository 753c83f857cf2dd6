// Package webhdfs provides a storage service speaking the WebHDFS REST
// protocol of an HDFS namenode.
package webhdfs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

// Builder configures a webhdfs service.
type Builder struct {
	endpoint string
	root     string
	username string
	client   *http.Client
}

// New starts building a webhdfs service.
func New() *Builder { return &Builder{} }

// Endpoint sets the namenode address, e.g. "http://namenode:9870". Required.
func (b *Builder) Endpoint(endpoint string) *Builder {
	b.endpoint = endpoint
	return b
}

// Root sets the working directory; all operations happen under it.
func (b *Builder) Root(root string) *Builder {
	b.root = root
	return b
}

// Username sets the user.name query parameter sent with every request.
func (b *Builder) Username(username string) *Builder {
	b.username = username
	return b
}

// HTTPClient overrides the default client, mainly for tests.
func (b *Builder) HTTPClient(client *http.Client) *Builder {
	b.client = client
	return b
}

// Build validates the endpoint and returns the accessor.
func (b *Builder) Build() (raw.Accessor, error) {
	if b.endpoint == "" {
		return nil, errs.New(errs.KindConfigInvalid, "endpoint is required but not set").
			WithContext("service", string(raw.SchemeWebhdfs))
	}
	if _, err := url.Parse(b.endpoint); err != nil {
		return nil, errs.New(errs.KindConfigInvalid, "endpoint is not a valid url").
			WithContext("service", string(raw.SchemeWebhdfs)).
			WithContext("endpoint", b.endpoint).
			WithSource(err)
	}
	client := b.client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &backend{
		UnsupportedAccessor: raw.UnsupportedAccessor{
			Meta: raw.NewMetadata(
				raw.SchemeWebhdfs,
				b.root,
				raw.CapRead|raw.CapWrite|raw.CapList,
			).WithName(b.endpoint),
		},
		endpoint: b.endpoint,
		username: b.username,
		client:   client,
	}, nil
}

type backend struct {
	raw.UnsupportedAccessor
	endpoint string
	username string
	client   *http.Client
}

// opURL builds the request url for one WebHDFS operation against path.
func (b *backend) opURL(path, op string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("op", op)
	if b.username != "" {
		params.Set("user.name", b.username)
	}
	abs := raw.BuildAbsPath(b.Meta.Root(), path)
	return b.endpoint + "/webhdfs/v1" + abs + "?" + params.Encode()
}

// remoteException is the error envelope the namenode returns.
type remoteException struct {
	RemoteException struct {
		Exception string `json:"exception"`
		Message   string `json:"message"`
	} `json:"RemoteException"`
}

func (b *backend) statusError(resp *http.Response, path string) error {
	var envelope remoteException
	_ = json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode == http.StatusNotFound {
		return errs.New(errs.KindObjectNotFound, "path not found").
			WithContext("path", path)
	}
	err := errs.Newf(errs.KindUnexpected, "namenode returned status %d", resp.StatusCode).
		WithContext("path", path)
	if envelope.RemoteException.Exception != "" {
		err = err.WithContext("exception", envelope.RemoteException.Exception).
			WithContext("message", envelope.RemoteException.Message)
	}
	if resp.StatusCode >= 500 {
		err = err.Temporary()
	}
	return err
}

func transportError(err error, path string) error {
	return errs.New(errs.KindUnexpected, "webhdfs request failed").
		WithContext("path", path).
		WithSource(err).
		Temporary()
}

func (b *backend) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errs.New(errs.KindUnexpected, "build webhdfs request").WithSource(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	return b.client.Do(req)
}

func (b *backend) Create(ctx context.Context, path string, args raw.CreateArgs) (raw.CreateResult, error) {
	if args.Mode == raw.ModeDir {
		resp, err := b.do(ctx, http.MethodPut, b.opURL(path, "MKDIRS", nil), nil)
		if err != nil {
			return raw.CreateResult{}, transportError(err, path)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return raw.CreateResult{}, b.statusError(resp, path)
		}
		return raw.CreateResult{}, nil
	}

	if err := b.upload(ctx, path, nil); err != nil {
		return raw.CreateResult{}, err
	}
	return raw.CreateResult{}, nil
}

// upload runs the two-step CREATE dance: ask the namenode for a datanode
// location without redirecting, then put the data there.
func (b *backend) upload(ctx context.Context, path string, body io.Reader) error {
	params := url.Values{}
	params.Set("overwrite", "true")
	params.Set("noredirect", "true")

	resp, err := b.do(ctx, http.MethodPut, b.opURL(path, "CREATE", params), nil)
	if err != nil {
		return transportError(err, path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return b.statusError(resp, path)
	}

	var redirect struct {
		Location string `json:"Location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&redirect); err != nil {
		return errs.New(errs.KindUnexpected, "decode create redirect").
			WithContext("path", path).
			WithSource(err)
	}

	dataResp, err := b.do(ctx, http.MethodPut, redirect.Location, body)
	if err != nil {
		return transportError(err, path)
	}
	defer dataResp.Body.Close()
	if dataResp.StatusCode != http.StatusCreated {
		return b.statusError(dataResp, path)
	}
	return nil
}

func (b *backend) Read(ctx context.Context, path string, args raw.ReadArgs) (raw.ReadResult, io.ReadCloser, error) {
	params := url.Values{}
	offset, hasOffset := args.Range.Offset()
	size, hasSize := args.Range.Size()
	if !hasOffset && hasSize {
		// OPEN has no suffix addressing; resolve the tail against the
		// current length first.
		stat, err := b.Stat(ctx, path, raw.StatArgs{})
		if err != nil {
			return raw.ReadResult{}, nil, err
		}
		offset, size = args.Range.Resolve(stat.Meta.ContentLength())
		hasOffset, hasSize = true, true
	}
	if hasOffset {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}
	if hasSize {
		params.Set("length", strconv.FormatInt(size, 10))
	}

	resp, err := b.do(ctx, http.MethodGet, b.opURL(path, "OPEN", params), nil)
	if err != nil {
		return raw.ReadResult{}, nil, transportError(err, path)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		defer resp.Body.Close()
		return raw.ReadResult{}, nil, b.statusError(resp, path)
	}

	meta := raw.NewObjectMetadata(raw.ModeFile)
	if resp.ContentLength >= 0 {
		meta = meta.WithContentLength(resp.ContentLength)
	}
	return raw.ReadResult{Meta: meta}, resp.Body, nil
}

func (b *backend) Write(ctx context.Context, path string, args raw.WriteArgs, r io.Reader) (raw.WriteResult, error) {
	if err := b.upload(ctx, path, r); err != nil {
		return raw.WriteResult{}, err
	}
	return raw.WriteResult{Written: args.Size}, nil
}

// fileStatus is the subset of the FileStatus JSON object we consume.
type fileStatus struct {
	PathSuffix       string `json:"pathSuffix"`
	Type             string `json:"type"`
	Length           int64  `json:"length"`
	ModificationTime int64  `json:"modificationTime"`
}

func (fs fileStatus) toObjectMetadata() raw.ObjectMetadata {
	if fs.Type == "DIRECTORY" {
		return raw.NewObjectMetadata(raw.ModeDir).
			WithLastModified(time.UnixMilli(fs.ModificationTime))
	}
	return raw.NewObjectMetadata(raw.ModeFile).
		WithContentLength(fs.Length).
		WithLastModified(time.UnixMilli(fs.ModificationTime))
}

func (b *backend) Stat(ctx context.Context, path string, args raw.StatArgs) (raw.StatResult, error) {
	resp, err := b.do(ctx, http.MethodGet, b.opURL(path, "GETFILESTATUS", nil), nil)
	if err != nil {
		return raw.StatResult{}, transportError(err, path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return raw.StatResult{}, b.statusError(resp, path)
	}

	var out struct {
		FileStatus fileStatus `json:"FileStatus"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return raw.StatResult{}, errs.New(errs.KindUnexpected, "decode file status").
			WithContext("path", path).
			WithSource(err)
	}
	if raw.IsDirPath(path) && out.FileStatus.Type != "DIRECTORY" {
		return raw.StatResult{}, errs.New(errs.KindObjectNotFound, "path not found").
			WithContext("path", path)
	}
	return raw.StatResult{Meta: out.FileStatus.toObjectMetadata()}, nil
}

func (b *backend) Delete(ctx context.Context, path string, args raw.DeleteArgs) (raw.DeleteResult, error) {
	resp, err := b.do(ctx, http.MethodDelete, b.opURL(path, "DELETE", nil), nil)
	if err != nil {
		return raw.DeleteResult{}, transportError(err, path)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return raw.DeleteResult{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return raw.DeleteResult{}, b.statusError(resp, path)
	}
	return raw.DeleteResult{}, nil
}

func (b *backend) List(ctx context.Context, path string, args raw.ListArgs) (raw.ListResult, raw.Pager, error) {
	resp, err := b.do(ctx, http.MethodGet, b.opURL(path, "LISTSTATUS", nil), nil)
	if err != nil {
		return raw.ListResult{}, nil, transportError(err, path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return raw.ListResult{}, nil, b.statusError(resp, path)
	}

	var out struct {
		FileStatuses struct {
			FileStatus []fileStatus `json:"FileStatus"`
		} `json:"FileStatuses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return raw.ListResult{}, nil, errs.New(errs.KindUnexpected, "decode list statuses").
			WithContext("path", path).
			WithSource(err)
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

	statuses := out.FileStatuses.FileStatus
	entries := make([]raw.Entry, 0, len(statuses))
	for _, fs := range statuses {
		entryPath := dir + fs.PathSuffix
		if fs.Type == "DIRECTORY" {
			entryPath += "/"
		}
		entries = append(entries, raw.NewEntry(entryPath, fs.toObjectMetadata()))
	}
	// LISTSTATUS is not paginated; the whole listing arrives at once.
	return raw.ListResult{}, raw.NewSlicePager(entries, 256), nil
}
