// Package gateway exposes an operator over a small HTTP API: object
// reads, writes, stats, deletes and listings, plus health and metrics
// endpoints.
package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/stratum-storage/stratum"
	"github.com/stratum-storage/stratum/errs"
	"github.com/stratum-storage/stratum/raw"
)

// Server serves one operator's namespace over HTTP.
type Server struct {
	op     *stratum.Operator
	logger *logrus.Logger
}

// NewServer builds a server around op. A nil logger falls back to the
// standard one.
func NewServer(op *stratum.Operator, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{op: op, logger: logger}
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/objects/{path:.*}", s.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/objects/{path:.*}", s.handlePut).Methods(http.MethodPut)
	router.HandleFunc("/objects/{path:.*}", s.handleHead).Methods(http.MethodHead)
	router.HandleFunc("/objects/{path:.*}", s.handleDelete).Methods(http.MethodDelete)
	router.HandleFunc("/list/{path:.*}", s.handleList).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	logged := handlers.CombinedLoggingHandler(s.logger.Writer(), router)
	return handlers.RecoveryHandler()(logged)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindObjectNotFound:
		status = http.StatusNotFound
	case errs.KindRequestInvalid:
		status = http.StatusBadRequest
	case errs.KindUnsupported:
		status = http.StatusNotImplemented
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// rangeFromQuery reads the optional offset/size window parameters.
func rangeFromQuery(r *http.Request) (raw.BytesRange, error) {
	offsetParam := r.URL.Query().Get("offset")
	sizeParam := r.URL.Query().Get("size")
	if offsetParam == "" && sizeParam == "" {
		return raw.FullRange(), nil
	}

	switch {
	case offsetParam == "":
		size, err := strconv.ParseInt(sizeParam, 10, 64)
		if err != nil {
			return raw.BytesRange{}, errs.New(errs.KindRequestInvalid, "size is not an integer").WithSource(err)
		}
		return raw.RangeSuffix(size), nil
	case sizeParam == "":
		offset, err := strconv.ParseInt(offsetParam, 10, 64)
		if err != nil {
			return raw.BytesRange{}, errs.New(errs.KindRequestInvalid, "offset is not an integer").WithSource(err)
		}
		return raw.RangeFrom(offset), nil
	default:
		offset, err := strconv.ParseInt(offsetParam, 10, 64)
		if err != nil {
			return raw.BytesRange{}, errs.New(errs.KindRequestInvalid, "offset is not an integer").WithSource(err)
		}
		size, err := strconv.ParseInt(sizeParam, 10, 64)
		if err != nil {
			return raw.BytesRange{}, errs.New(errs.KindRequestInvalid, "size is not an integer").WithSource(err)
		}
		return raw.RangeOf(offset, size), nil
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	rng, err := rangeFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rc, err := s.op.Object(path).ReadRange(r.Context(), rng)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("aborted object download")
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	defer r.Body.Close()

	if err := s.op.Object(path).Write(r.Context(), r.Body, r.ContentLength); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	meta, err := s.op.Object(path).Stat(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	if meta.Mode() == raw.ModeDir {
		w.Header().Set("X-Object-Mode", "dir")
	} else {
		w.Header().Set("X-Object-Mode", "file")
		w.Header().Set("Content-Length", strconv.FormatInt(meta.ContentLength(), 10))
	}
	if !meta.LastModified().IsZero() {
		w.Header().Set("Last-Modified", meta.LastModified().UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	var err error
	if r.URL.Query().Get("recursive") == "true" {
		err = s.op.Batch().RemoveAll(r.Context(), path)
	} else {
		err = s.op.Object(path).Delete(r.Context())
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listedEntry is the JSON shape of one listing entry.
type listedEntry struct {
	Path         string    `json:"path"`
	Mode         string    `json:"mode"`
	Size         int64     `json:"size,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	pager, err := s.op.Object(path).List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	var entries []listedEntry
	for {
		page, err := pager.NextPage(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		if page == nil {
			break
		}
		for _, entry := range page {
			mode := "file"
			if entry.Meta.Mode() == raw.ModeDir {
				mode = "dir"
			}
			entries = append(entries, listedEntry{
				Path:         entry.Path,
				Mode:         mode,
				Size:         entry.Meta.ContentLength(),
				LastModified: entry.Meta.LastModified(),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"entries": entries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.op.Check(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
