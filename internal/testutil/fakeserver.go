// Package testutil provides testing utilities.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"todo/internal/backend/rest"
	"todo/internal/server"
	"todo/internal/service"
)

// Drop makes a failing operation close the connection without a response,
// which the client sees as a transport error.
const Drop = -1

// FakeServer is the in-memory collection behind an httptest server, with
// per-operation fault injection. Faults are matched before the request
// reaches the store, so a failed request never changes stored state.
type FakeServer struct {
	*server.Server
	HTTP *httptest.Server

	mu           sync.Mutex
	listStatus   int
	createStatus int
	toggleStatus int
	editStatus   int
	deleteStatus map[int]int // id -> status
	editRewrite  func(service.Draft) service.Draft
	deleteGate   chan struct{}
	requests     []string
}

// NewFakeServer starts a fake collection and closes it when t ends.
func NewFakeServer(t *testing.T) *FakeServer {
	t.Helper()
	f := &FakeServer{
		Server:       server.New(nil),
		deleteStatus: make(map[int]int),
	}
	f.HTTP = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(func() {
		f.Release()
		f.HTTP.Close()
	})
	return f
}

// Client returns a REST client pointed at the fake.
func (f *FakeServer) Client(t *testing.T) *rest.Client {
	t.Helper()
	c, err := rest.NewWithOptions(rest.Options{BaseURL: f.HTTP.URL, HTTPClient: f.HTTP.Client()})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

// FailList makes GET /todos/ answer with status.
func (f *FakeServer) FailList(status int) { f.set(&f.listStatus, status) }

// FailCreate makes POST /todos/ answer with status.
func (f *FakeServer) FailCreate(status int) { f.set(&f.createStatus, status) }

// FailToggle makes PATCH answer with status.
func (f *FakeServer) FailToggle(status int) { f.set(&f.toggleStatus, status) }

// FailEdit makes PUT answer with status.
func (f *FakeServer) FailEdit(status int) { f.set(&f.editStatus, status) }

// FailDelete makes DELETE of id answer with status.
func (f *FakeServer) FailDelete(id, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteStatus[id] = status
}

// RewriteEdit transforms PUT bodies before they are stored, so the stored
// record differs from what the client sent.
func (f *FakeServer) RewriteEdit(fn func(service.Draft) service.Draft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editRewrite = fn
}

// HoldDeletes blocks every DELETE until Release is called.
func (f *FakeServer) HoldDeletes() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteGate == nil {
		f.deleteGate = make(chan struct{})
	}
}

// Release unblocks held deletes.
func (f *FakeServer) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteGate != nil {
		close(f.deleteGate)
		f.deleteGate = nil
	}
}

// Requests returns "METHOD /path" for every request received, in arrival order.
func (f *FakeServer) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	copy(out, f.requests)
	return out
}

// CountRequests returns how many requests used method.
func (f *FakeServer) CountRequests(method string) int {
	n := 0
	for _, r := range f.Requests() {
		if strings.HasPrefix(r, method+" ") {
			n++
		}
	}
	return n
}

func (f *FakeServer) set(field *int, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*field = status
}

func (f *FakeServer) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	status := f.faultLocked(r)
	gate := f.deleteGate
	rewrite := f.editRewrite
	f.mu.Unlock()

	if r.Method == http.MethodDelete && gate != nil {
		<-gate
	}

	switch {
	case status == Drop:
		drop(w)
		return
	case status != 0:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"detail":"injected failure"}`)
		return
	}

	if r.Method == http.MethodPut && rewrite != nil {
		var d service.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err == nil {
			encoded, _ := json.Marshal(rewrite(d))
			r.Body = io.NopCloser(bytes.NewReader(encoded))
		}
	}
	f.Server.ServeHTTP(w, r)
}

func (f *FakeServer) faultLocked(r *http.Request) int {
	switch r.Method {
	case http.MethodGet:
		return f.listStatus
	case http.MethodPost:
		return f.createStatus
	case http.MethodPatch:
		return f.toggleStatus
	case http.MethodPut:
		return f.editStatus
	case http.MethodDelete:
		tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/todos/"), "/")
		id, err := strconv.Atoi(tail)
		if err != nil {
			return 0
		}
		return f.deleteStatus[id]
	}
	return 0
}

func drop(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}
