// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package fakejellyfin

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/venkyr77/jellarr/internal/jellyfin"
)

// DefaultToken is the API key the server accepts unless configured otherwise.
const DefaultToken = "0123456789abcdef0123456789abcdef"

// Request is one captured request.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// Route returns "METHOD /path".
func (r Request) Route() string {
	return r.Method + " " + r.Path
}

type library struct {
	Name           string
	CollectionType string
	ItemID         string
	Locations      []string
}

type user struct {
	ID       string
	Name     string
	Password string
	Policy   jellyfin.Record
}

type plugin struct {
	ID      string
	Name    string
	Version string
	Status  string
	Config  jellyfin.Record
}

// Server is an in-memory Jellyfin that serves the endpoints the agent uses.
// It is safe for concurrent use.
type Server struct {
	srv *httptest.Server

	mu              sync.Mutex
	tokens          map[string]bool
	down            bool
	system          jellyfin.Record
	named           map[string]jellyfin.Record
	libraries       []*library
	users           []*user
	plugins         []*plugin
	wizardCompleted bool
	requests        []Request
	failures        map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithToken replaces the accepted API keys. With no tokens the server
// rejects every authenticated call until AddAPIKey is called.
func WithToken(tokens ...string) Option {
	return func(s *Server) {
		s.tokens = map[string]bool{}
		for _, t := range tokens {
			s.tokens[t] = true
		}
	}
}

// WithWizardCompleted sets the initial startup wizard state.
func WithWizardCompleted(done bool) Option {
	return func(s *Server) {
		s.wizardCompleted = done
	}
}

// New starts a fresh server with default configuration records and no
// libraries, users or plugins. It is closed when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		tokens:   map[string]bool{DefaultToken: true},
		system:   defaultSystemConfiguration(),
		named:    map[string]jellyfin.Record{jellyfin.SectionEncoding: defaultEncoding(), jellyfin.SectionBranding: defaultBranding()},
		failures: map[string]int{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.capture)
	r.Use(s.reachable)
	r.Use(s.injectFailures)

	r.Get(jellyfin.PathPublicSystemInfo, s.publicInfo)
	r.Post(jellyfin.PathAuthenticateByName, s.authenticate)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticated)

		r.Get(jellyfin.PathSystemConfiguration, s.getSystem)
		r.Post(jellyfin.PathSystemConfiguration, s.postSystem)
		r.Get(jellyfin.PathSystemConfiguration+"/{key}", s.getNamed)
		r.Post(jellyfin.PathSystemConfiguration+"/{key}", s.postNamed)

		r.Get(jellyfin.PathVirtualFolders, s.listLibraries)
		r.Post(jellyfin.PathVirtualFolders, s.addLibrary)
		r.Post(jellyfin.PathVirtualFolderPaths, s.addLibraryPath)

		r.Get(jellyfin.PathUsers, s.listUsers)
		r.Post(jellyfin.PathNewUser, s.createUser)
		r.Get(jellyfin.PathUsers+"/{id}", s.getUser)
		r.Post(jellyfin.PathUsers+"/{id}/Policy", s.updatePolicy)

		r.Get(jellyfin.PathPlugins, s.listPlugins)
		r.Post("/Packages/Installed/{name}", s.installPackage)
		r.Get(jellyfin.PathPlugins+"/{id}/Configuration", s.getPluginConfig)
		r.Post(jellyfin.PathPlugins+"/{id}/Configuration", s.postPluginConfig)

		r.Post(jellyfin.PathStartupComplete, s.completeStartup)
	})
	return r
}

// Middleware

func (s *Server) capture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readBody(r)
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// reachable answers like a reverse proxy in front of a stopped server: a
// non-JSON 503.
func (s *Server) reachable(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		down := s.down
		s.mu.Unlock()
		if down {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var tokenInHeader = regexp.MustCompile(`Token="([^"]*)"`)

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Emby-Token")
		if token == "" {
			if m := tokenInHeader.FindStringSubmatch(r.Header.Get("Authorization")); m != nil {
				token = m[1]
			}
		}
		s.mu.Lock()
		ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handlers

func (s *Server) publicInfo(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, jellyfin.PublicSystemInfo{
		ID:                     "fake-server",
		ServerName:             s.system.String("ServerName"),
		Version:                "10.10.7",
		ProductName:            "Jellyfin Server",
		StartupWizardCompleted: s.wizardCompleted,
	})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	var req jellyfin.AuthenticateRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findUser(req.Username)
	if u == nil || u.Password != req.Pw {
		http.Error(w, "invalid username or password", http.StatusUnauthorized)
		return
	}
	token := newID("session", u.Name)
	writeJSON(w, jellyfin.AuthenticationResult{User: u.dto(), AccessToken: token, ServerID: "fake-server"})
}

func (s *Server) getSystem(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.system)
}

func (s *Server) postSystem(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.system = rec
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getNamed(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.named[chi.URLParam(r, "key")]
	if !ok {
		http.Error(w, "configuration not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) postNamed(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rec, err := decodeRecord(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.named[key]; !ok {
		http.Error(w, "configuration not found", http.StatusNotFound)
		return
	}
	s.named[key] = rec
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listLibraries(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]jellyfin.VirtualFolder, 0, len(s.libraries))
	for _, l := range s.libraries {
		out = append(out, jellyfin.VirtualFolder{
			Name:           l.Name,
			CollectionType: l.CollectionType,
			ItemID:         l.ItemID,
			Locations:      append([]string{}, l.Locations...),
		})
	}
	writeJSON(w, out)
}

func (s *Server) addLibrary(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	collectionType := r.URL.Query().Get("collectionType")
	var req jellyfin.AddVirtualFolderRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLibrary(name) != nil {
		http.Error(w, "A library with the name "+name+" already exists", http.StatusBadRequest)
		return
	}
	lib := &library{Name: name, CollectionType: collectionTypeOnServer(collectionType), ItemID: newID("library", name)}
	for _, p := range req.LibraryOptions.PathInfos {
		lib.Locations = append(lib.Locations, p.Path)
	}
	s.libraries = append(s.libraries, lib)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addLibraryPath(w http.ResponseWriter, r *http.Request) {
	var req jellyfin.AddMediaPathRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lib := s.findLibrary(req.Name)
	if lib == nil {
		http.Error(w, "library not found", http.StatusNotFound)
		return
	}
	for _, p := range lib.Locations {
		if p == req.PathInfo.Path {
			http.Error(w, "path already exists", http.StatusBadRequest)
			return
		}
	}
	lib.Locations = append(lib.Locations, req.PathInfo.Path)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*jellyfin.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.dto())
	}
	writeJSON(w, out)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findUserByID(chi.URLParam(r, "id"))
	if u == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, u.dto())
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req jellyfin.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findUser(req.Name) != nil {
		http.Error(w, "A user with the name '"+req.Name+"' already exists.", http.StatusBadRequest)
		return
	}
	u := &user{ID: newID("user", req.Name), Name: req.Name, Password: req.Password, Policy: defaultPolicy()}
	s.users = append(s.users, u)
	writeJSON(w, u.dto())
}

func (s *Server) updatePolicy(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findUserByID(chi.URLParam(r, "id"))
	if u == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	u.Policy = rec
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listPlugins(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]jellyfin.PluginInfo, 0, len(s.plugins))
	for _, p := range s.plugins {
		out = append(out, jellyfin.PluginInfo{ID: p.ID, Name: p.Name, Version: p.Version, Status: p.Status})
	}
	writeJSON(w, out)
}

// installPackage registers the plugin as pending a restart, like a real
// server does after downloading it.
func (s *Server) installPackage(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findPlugin(name) == nil {
		s.plugins = append(s.plugins, &plugin{ID: newID("plugin", name), Name: name, Version: "1.0.0.0", Status: "Restart", Config: jellyfin.Record{}})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPluginConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPluginByID(chi.URLParam(r, "id"))
	if p == nil || p.Status != jellyfin.PluginStatusActive {
		http.Error(w, "plugin not found", http.StatusNotFound)
		return
	}
	writeJSON(w, p.Config)
}

func (s *Server) postPluginConfig(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findPluginByID(chi.URLParam(r, "id"))
	if p == nil || p.Status != jellyfin.PluginStatusActive {
		http.Error(w, "plugin not found", http.StatusNotFound)
		return
	}
	p.Config = rec
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeStartup(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.wizardCompleted = true
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// Lookups; callers hold s.mu.

func (s *Server) findLibrary(name string) *library {
	for _, l := range s.libraries {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func (s *Server) findUser(name string) *user {
	for _, u := range s.users {
		if strings.EqualFold(u.Name, name) {
			return u
		}
	}
	return nil
}

func (s *Server) findUserByID(id string) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) findPlugin(name string) *plugin {
	for _, p := range s.plugins {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (s *Server) findPluginByID(id string) *plugin {
	for _, p := range s.plugins {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (u *user) dto() *jellyfin.User {
	return &jellyfin.User{ID: u.ID, Name: u.Name, Policy: u.Policy.Clone()}
}

// collectionTypeOnServer maps "mixed" to the empty type a real server
// reports.
func collectionTypeOnServer(t string) string {
	if t == "mixed" {
		return ""
	}
	return t
}

// newID derives a stable dashless GUID, the form Jellyfin uses for ids, so
// repeated runs see the same ids.
func newID(kind, name string) string {
	return strings.ReplaceAll(uuid.NewMD5(uuid.NameSpaceURL, []byte(kind+"/"+name)).String(), "-", "")
}

// readBody reads the body and leaves a fresh reader in its place.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, err
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func decodeRecord(r *http.Request) (jellyfin.Record, error) {
	data, err := readBody(r)
	if err != nil {
		return nil, err
	}
	return jellyfin.DecodeRecord(data)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
