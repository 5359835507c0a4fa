// Package elastictest provides an in-memory Elasticsearch stand-in for tests.
//
// It understands the subset of the REST API the indexing pipeline uses:
// cluster info, index create/delete/exists, get-mapping, single-document
// index, refresh and count.
package elastictest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// Index is the state of one fake index.
type Index struct {
	Settings map[string]any
	Mappings map[string]any
	Docs     []map[string]any
}

// Server is a fake Elasticsearch cluster backed by httptest.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	indices map[string]*Index
	nextID  int
	reqs    []string

	// FailIndexAt makes the n-th document write (1-based, across all
	// indices) fail with a 500. Zero disables the failure.
	FailIndexAt int
	writes      int
}

// NewServer starts a fake cluster. Close it with Server.Close.
func NewServer() *Server {
	s := &Server{indices: make(map[string]*Index)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Index returns a snapshot of the named index, or nil when it does not exist.
func (s *Server) Index(name string) *Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indices[name]
	if !ok {
		return nil
	}
	cp := *idx
	cp.Docs = append([]map[string]any(nil), idx.Docs...)
	return &cp
}

// Requests returns "METHOD /path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reqs...)
}

// AddIndex seeds an index with the given document count.
func (s *Server) AddIndex(name string, docs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := &Index{Mappings: map[string]any{"properties": map[string]any{}}}
	for i := 0; i < docs; i++ {
		idx.Docs = append(idx.Docs, map[string]any{"seed": i})
	}
	s.indices[name] = idx
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, r.Method+" "+r.URL.Path)

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/":
		writeJSON(w, http.StatusOK, map[string]any{
			"name":         "fake",
			"cluster_name": "elastictest",
			"version":      map[string]any{"number": "9.0.0", "build_flavor": "default"},
			"tagline":      "You Know, for Search",
		})
	case len(parts) == 1:
		s.handleIndex(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "_mapping":
		s.handleMapping(w, parts[0])
	case len(parts) == 2 && parts[1] == "_doc" && r.Method == http.MethodPost:
		s.handleDoc(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "_refresh":
		if _, ok := s.indices[parts[0]]; !ok {
			writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+parts[0]+"]")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"_shards": map[string]any{"failed": 0}})
	case len(parts) == 2 && parts[1] == "_count":
		idx, ok := s.indices[parts[0]]
		if !ok {
			writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+parts[0]+"]")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(idx.Docs)})
	default:
		writeError(w, http.StatusBadRequest, "illegal_argument_exception", "unsupported path "+r.URL.Path)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, name string) {
	_, exists := s.indices[name]
	switch r.Method {
	case http.MethodHead:
		if exists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodDelete:
		if !exists {
			writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+name+"]")
			return
		}
		delete(s.indices, name)
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
	case http.MethodPut:
		if exists {
			writeError(w, http.StatusBadRequest, "resource_already_exists_exception",
				"index ["+name+"] already exists")
			return
		}
		var body struct {
			Settings map[string]any `json:"settings"`
			Mappings map[string]any `json:"mappings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
			writeError(w, http.StatusBadRequest, "parse_exception", err.Error())
			return
		}
		if err := validateMappings(body.Mappings); err != nil {
			writeError(w, http.StatusBadRequest, "mapper_parsing_exception", err.Error())
			return
		}
		if body.Mappings == nil {
			body.Mappings = map[string]any{"properties": map[string]any{}}
		}
		s.indices[name] = &Index{Settings: body.Settings, Mappings: body.Mappings}
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true, "index": name})
	default:
		writeError(w, http.StatusMethodNotAllowed, "illegal_argument_exception", "unsupported method "+r.Method)
	}
}

func (s *Server) handleMapping(w http.ResponseWriter, name string) {
	idx, ok := s.indices[name]
	if !ok {
		writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+name+"]")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{name: map[string]any{"mappings": idx.Mappings}})
}

func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request, name string) {
	idx, ok := s.indices[name]
	if !ok {
		writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+name+"]")
		return
	}

	s.writes++
	if s.FailIndexAt > 0 && s.writes == s.FailIndexAt {
		writeError(w, http.StatusInternalServerError, "es_rejected_execution_exception", "injected failure")
		return
	}

	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "document_parsing_exception", err.Error())
		return
	}
	if err := checkVectorDims(idx.Mappings, doc); err != nil {
		writeError(w, http.StatusBadRequest, "document_parsing_exception", err.Error())
		return
	}

	s.nextID++
	id := "doc-" + strconv.Itoa(s.nextID)
	idx.Docs = append(idx.Docs, doc)
	writeJSON(w, http.StatusCreated, map[string]any{"_index": name, "_id": id, "result": "created"})
}

func validateMappings(m map[string]any) error {
	props, _ := m["properties"].(map[string]any)
	for name, raw := range props {
		p, _ := raw.(map[string]any)
		switch p["type"] {
		case "text", "keyword":
		case "dense_vector":
			dims, _ := p["dims"].(float64)
			if dims <= 0 || dims > 4096 {
				return fmt.Errorf("field [%s]: dims must be in [1, 4096]", name)
			}
		default:
			return fmt.Errorf("no handler for type [%v] declared on field [%s]", p["type"], name)
		}
	}
	return nil
}

func checkVectorDims(m, doc map[string]any) error {
	props, _ := m["properties"].(map[string]any)
	for name, raw := range props {
		p, _ := raw.(map[string]any)
		if p["type"] != "dense_vector" {
			continue
		}
		v, ok := doc[name].([]any)
		if !ok {
			continue
		}
		dims, _ := p["dims"].(float64)
		if len(v) != int(dims) {
			return fmt.Errorf("field [%s]: expected %d dimensions, got %d", name, int(dims), len(v))
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, reason string) {
	writeJSON(w, status, map[string]any{
		"error":  map[string]any{"type": typ, "reason": reason},
		"status": status,
	})
}
