// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/venkyr77/jellarr/internal/bootstrap"
	"github.com/venkyr77/jellarr/internal/config"
	"github.com/venkyr77/jellarr/internal/jellyfin"
	"github.com/venkyr77/jellarr/internal/manifest"
	"github.com/venkyr77/jellarr/internal/readiness"
	"github.com/venkyr77/jellarr/internal/reconcile"
	"github.com/venkyr77/jellarr/internal/state"
	"github.com/venkyr77/jellarr/internal/testinfra/fakejellyfin"
	"github.com/venkyr77/jellarr/internal/verify"
)

const fullManifest = `
version: 1
base_url: "http://unused.invalid"
system:
  enableMetrics: true
  pluginRepositories:
    - name: "Jellyfin Stable"
      url: "https://repo.jellyfin.org/files/plugin/manifest.json"
      enabled: true
  trickplayOptions:
    enableHwAcceleration: true
encoding:
  enableHardwareEncoding: true
  hardwareAccelerationType: vaapi
  vaapiDevice: /dev/dri/renderD128
  hardwareDecodingCodecs: [h264, hevc]
branding:
  loginDisclaimer: "Authorized users only"
  splashscreenEnabled: true
library:
  virtualFolders:
    - name: Movies
      collectionType: movies
      libraryOptions:
        pathInfos:
          - path: /media/movies
    - name: Shows
      collectionType: tvshows
      libraryOptions:
        pathInfos:
          - path: /media/shows
          - path: /media/anime
users:
  - name: alice
    password: wonderland
    policy:
      isAdministrator: true
      loginAttemptsBeforeLockout: 3
  - name: bob
    password: builder
plugins:
  - name: Trakt
    configuration:
      TraktUsers: []
startup:
  completeStartupWizard: true
`

func mustParse(t *testing.T, doc string) *manifest.DesiredState {
	t.Helper()
	desired, err := manifest.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return desired
}

func testConfig(srv *fakejellyfin.Server) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			BaseURL:     srv.URL(),
			APIKey:      fakejellyfin.DefaultToken,
			Timeout:     5 * time.Second,
			Concurrency: 2,
		},
		Bootstrap:  config.BootstrapConfig{TokenName: "jellarr", SettleDelay: time.Second},
		Readiness:  config.ReadinessConfig{MaxAttempts: 3, Interval: 2 * time.Second},
		Verify:     config.VerifyConfig{Enabled: true, Passwords: true},
		RunTimeout: 30 * time.Second,
	}
}

func newAgent(t *testing.T, cfg *config.Config, doc string, opts ...func(*Options)) (*Agent, *readiness.FakeSleeper) {
	t.Helper()
	sleeper := &readiness.FakeSleeper{}
	o := Options{Config: cfg, Manifest: mustParse(t, doc), Sleeper: sleeper, Version: "test"}
	for _, opt := range opts {
		opt(&o)
	}
	return New(o), sleeper
}

func runOK(t *testing.T, a *Agent) Report {
	t.Helper()
	report, err := a.Run(context.Background())
	if err != nil {
		var buf bytes.Buffer
		_ = report.WriteSummary(&buf)
		t.Fatalf("Run() error = %v\n%s", err, buf.String())
	}
	return report
}

func TestRun_ColdStart(t *testing.T) {
	srv := fakejellyfin.New(t)
	a, _ := newAgent(t, testConfig(srv), fullManifest)

	report := runOK(t, a)
	if report.ExitCode != ExitOK || report.Outcome != OutcomeConverged {
		t.Errorf("report = %+v", report)
	}
	if len(report.Domains) != len(state.Domains) {
		t.Errorf("got %d domain summaries, want %d", len(report.Domains), len(state.Domains))
	}
	if report.Compliance == nil || !report.Compliance.Compliant() {
		t.Errorf("compliance = %+v", report.Compliance)
	}

	sys := srv.SystemConfiguration()
	if !sys.Bool("EnableMetrics") || !sys.Object("TrickplayOptions").Bool("EnableHwAcceleration") {
		t.Errorf("system configuration = %v", sys)
	}
	if sys.String("ServerName") != "fake-jellyfin" || sys.Object("TrickplayOptions").Bool("EnableHwEncoding") {
		t.Errorf("unmanaged system keys changed: %v", sys)
	}
	if enc := srv.NamedConfiguration(jellyfin.SectionEncoding); enc.String("HardwareAccelerationType") != "vaapi" || enc.String("EncoderPreset") != "auto" {
		t.Errorf("encoding = %v", enc)
	}
	if b := srv.NamedConfiguration(jellyfin.SectionBranding); b.String("LoginDisclaimer") != "Authorized users only" {
		t.Errorf("branding = %v", b)
	}

	if got := strings.Join(srv.LibraryNames(), ","); got != "Movies,Shows" {
		t.Errorf("libraries = %s", got)
	}
	if paths, _ := srv.LibraryPaths("Shows"); len(paths) != 2 {
		t.Errorf("Shows paths = %v", paths)
	}

	if got := strings.Join(srv.UserNames(), ","); got != "alice,bob" {
		t.Errorf("users = %s", got)
	}
	policy, _ := srv.UserPolicy("alice")
	if !policy.Bool("IsAdministrator") {
		t.Errorf("alice policy = %v", policy)
	}
	if n, _ := policy.Int("LoginAttemptsBeforeLockout"); n != 3 {
		t.Errorf("alice LoginAttemptsBeforeLockout = %d", n)
	}
	if pw, _ := srv.UserPassword("bob"); pw != "builder" {
		t.Errorf("bob password = %q", pw)
	}

	if got := strings.Join(srv.PluginNames(), ","); got != "Trakt" {
		t.Errorf("plugins = %s", got)
	}
	if !srv.WizardCompleted() {
		t.Error("startup wizard not completed")
	}
}

// After a cold start and a server restart that loads the new plugin, a
// further run writes nothing.
const coldStartManifest = `
version: 1
base_url: "http://unused.invalid"
system:
  enableMetrics: true
  pluginRepositories:
    - name: "Jellyfin Official"
      url: "https://repo.jellyfin.org/releases/plugin/manifest-stable.json"
      enabled: true
encoding:
  hardwareAccelerationType: vaapi
branding:
  loginDisclaimer: "Welcome to the home server"
  customCss: "body { background: #101010; }"
  splashscreenEnabled: true
library:
  virtualFolders:
    - name: Movies
      collectionType: movies
      libraryOptions:
        pathInfos:
          - path: /mnt/movies/English
users:
  - name: alice
    password: alice-pw
    policy:
      isAdministrator: true
      loginAttemptsBeforeLockout: 3
  - name: bob
    password: bob-pw
    policy:
      isAdministrator: false
      loginAttemptsBeforeLockout: 5
`

func TestRun_ColdStartScenario(t *testing.T) {
	srv := fakejellyfin.New(t)
	a, _ := newAgent(t, testConfig(srv), coldStartManifest)

	report := runOK(t, a)
	if report.Compliance == nil || !report.Compliance.Compliant() {
		t.Fatalf("compliance = %+v", report.Compliance)
	}

	if names := srv.LibraryNames(); len(names) != 1 || names[0] != "Movies" {
		t.Errorf("libraries = %v", names)
	}
	if paths, _ := srv.LibraryPaths("Movies"); len(paths) != 1 || paths[0] != "/mnt/movies/English" {
		t.Errorf("Movies paths = %v", paths)
	}

	users := srv.UserNames()
	if len(users) != 2 {
		t.Fatalf("users = %v", users)
	}
	for _, tt := range []struct {
		name    string
		admin   bool
		lockout int
	}{
		{"alice", true, 3},
		{"bob", false, 5},
	} {
		policy, ok := srv.UserPolicy(tt.name)
		lockout, _ := policy.Int("LoginAttemptsBeforeLockout")
		if !ok || policy.Bool("IsAdministrator") != tt.admin || lockout != tt.lockout {
			t.Errorf("%s policy = %v", tt.name, policy)
		}
	}

	sys := srv.SystemConfiguration()
	if !sys.Bool("EnableMetrics") {
		t.Errorf("EnableMetrics = false")
	}
	if enc := srv.NamedConfiguration(jellyfin.SectionEncoding); enc.String("HardwareAccelerationType") != "vaapi" {
		t.Errorf("HardwareAccelerationType = %q", enc.String("HardwareAccelerationType"))
	}

	repos := sys.Objects("PluginRepositories")
	if len(repos) != 1 {
		t.Fatalf("PluginRepositories = %v, want the declared list only", sys["PluginRepositories"])
	}
	if repos[0].String("Name") != "Jellyfin Official" ||
		repos[0].String("Url") != "https://repo.jellyfin.org/releases/plugin/manifest-stable.json" ||
		!repos[0].Bool("Enabled") {
		t.Errorf("plugin repository = %v", repos[0])
	}

	branding := srv.NamedConfiguration(jellyfin.SectionBranding)
	if branding.String("LoginDisclaimer") != "Welcome to the home server" ||
		branding.String("CustomCss") != "body { background: #101010; }" ||
		!branding.Bool("SplashscreenEnabled") {
		t.Errorf("branding = %v", branding)
	}
}

func TestRun_WarmRerunIsIdempotent(t *testing.T) {
	srv := fakejellyfin.New(t)
	a, _ := newAgent(t, testConfig(srv), fullManifest)

	runOK(t, a)
	srv.Restart()

	report := runOK(t, a)
	if d, _ := report.Result.Domain(state.DomainPlugins); len(d.Applied) != 1 {
		t.Errorf("plugin configuration not applied after restart: %+v", d)
	}
	if cfg, _ := srv.PluginConfiguration("Trakt"); cfg == nil {
		t.Error("Trakt configuration missing")
	} else if _, ok := cfg["TraktUsers"]; !ok {
		t.Errorf("Trakt configuration = %v", cfg)
	}

	srv.ResetRequests()
	report = runOK(t, a)

	if writes := srv.Writes(); len(writes) != 0 {
		routes := make([]string, 0, len(writes))
		for _, w := range writes {
			routes = append(routes, w.Route())
		}
		t.Errorf("warm re-run wrote: %v", routes)
	}
	if len(report.Result.Plan.Operations) == 0 || report.Result.Plan.Changes() != 0 {
		t.Errorf("warm re-run plan = %d operations, %d changes", len(report.Result.Plan.Operations), report.Result.Plan.Changes())
	}
	for _, d := range report.Domains {
		if d.Status != string(reconcile.StatusConverged) || len(d.Applied) != 0 {
			t.Errorf("domain %s = %+v", d.Domain, d)
		}
	}
}

func TestRun_LibrariesAreNonDestructive(t *testing.T) {
	srv := fakejellyfin.New(t)
	srv.SeedLibrary("Movies", "movies", "/media/old-movies")
	srv.SeedLibrary("Home Videos", "homevideos", "/media/home")

	a, _ := newAgent(t, testConfig(srv), `
version: 1
base_url: "http://unused.invalid"
library:
  virtualFolders:
    - name: Movies
      collectionType: movies
      libraryOptions:
        pathInfos:
          - path: /media/movies
`)
	runOK(t, a)

	paths, _ := srv.LibraryPaths("Movies")
	if strings.Join(paths, ",") != "/media/movies,/media/old-movies" {
		t.Errorf("Movies paths = %v, want the declared path added and the old one kept", paths)
	}
	if got := strings.Join(srv.LibraryNames(), ","); got != "Home Videos,Movies" {
		t.Errorf("libraries = %s, want the undeclared library kept", got)
	}
}

func TestRun_CollectionTypeDriftReportedNotEnforced(t *testing.T) {
	srv := fakejellyfin.New(t)
	srv.SeedLibrary("Movies", "tvshows", "/media/movies")

	a, _ := newAgent(t, testConfig(srv), `
version: 1
base_url: "http://unused.invalid"
library:
  virtualFolders:
    - name: Movies
      collectionType: movies
      libraryOptions:
        pathInfos:
          - path: /media/movies
`)
	report := runOK(t, a)

	if report.Compliance == nil || len(report.Compliance.Observations()) != 1 {
		t.Fatalf("compliance = %+v, want one observation", report.Compliance)
	}
	var buf bytes.Buffer
	if err := report.WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	summary := buf.String()
	if !strings.Contains(summary, "  not enforced:\n    libraries.Movies.collectionType: expected movies, observed tvshows") {
		t.Errorf("summary:\n%s", summary)
	}
	if strings.Contains(summary, "compliance mismatches:") {
		t.Errorf("collection type drift reported as a mismatch:\n%s", summary)
	}
}

func TestRun_PartialFailureIsolated(t *testing.T) {
	srv := fakejellyfin.New(t)
	srv.Fail(http.MethodPost, jellyfin.PathNewUser, http.StatusInternalServerError)
	a, _ := newAgent(t, testConfig(srv), fullManifest)

	report, err := a.Run(context.Background())
	if !errors.Is(err, ErrDomainsFailed) {
		t.Fatalf("Run() error = %v, want ErrDomainsFailed", err)
	}
	if ExitCode(err) != ExitFailed || report.ExitCode != ExitFailed {
		t.Errorf("exit code = %d", report.ExitCode)
	}

	for _, d := range report.Domains {
		want := string(reconcile.StatusConverged)
		if d.Domain == string(state.DomainUsers) {
			want = string(reconcile.StatusFailed)
		}
		if d.Status != want {
			t.Errorf("domain %s status = %s, want %s", d.Domain, d.Status, want)
		}
	}
	if !srv.WizardCompleted() || len(srv.LibraryNames()) != 2 {
		t.Error("domains after the failing one did not run")
	}

	var buf bytes.Buffer
	if err := report.WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "attempted but failed:\n    users") || !strings.Contains(out, "converged:") {
		t.Errorf("summary:\n%s", out)
	}
}

func TestRun_ReadinessTimeout(t *testing.T) {
	srv := fakejellyfin.New(t)
	srv.SetDown(true)
	cfg := testConfig(srv)
	cfg.Readiness = config.ReadinessConfig{MaxAttempts: 30, Interval: 2 * time.Second}
	a, sleeper := newAgent(t, cfg, fullManifest)

	report, err := a.Run(context.Background())
	if !errors.Is(err, readiness.ErrReadinessTimeout) {
		t.Fatalf("Run() error = %v, want ErrReadinessTimeout", err)
	}
	if report.ExitCode != ExitReadiness || report.Outcome != OutcomeReadinessTimeout {
		t.Errorf("report = %+v", report)
	}
	if sleeper.Elapsed() != 60*time.Second {
		t.Errorf("probed for %s, want 60s", sleeper.Elapsed())
	}
	if len(srv.Writes()) != 0 {
		t.Error("wrote to a server that never became ready")
	}
	assertAllSkipped(t, report, readiness.ErrReadinessTimeout)
}

// assertAllSkipped checks that a run stopped by a fatal precondition still
// reports every managed domain, as skipped with that cause.
func assertAllSkipped(t *testing.T, report Report, cause error) {
	t.Helper()

	if got := len(report.Result.Skipped()); got != len(state.Domains) {
		t.Errorf("Result.Skipped() = %d, want %d", got, len(state.Domains))
	}
	for _, d := range report.Result.Domains {
		if !errors.Is(d.Err, cause) {
			t.Errorf("%s error = %v, want %v", d.Domain, d.Err, cause)
		}
	}
	if len(report.Domains) != len(state.Domains) {
		t.Fatalf("Domains = %d, want %d", len(report.Domains), len(state.Domains))
	}
	for i, d := range report.Domains {
		if d.Domain != string(state.Domains[i]) || d.Status != string(reconcile.StatusSkipped) || d.Error == "" {
			t.Errorf("Domains[%d] = %+v, want %s skipped with the cause", i, d, state.Domains[i])
		}
	}

	var buf bytes.Buffer
	if err := report.WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	summary := buf.String()
	if !strings.Contains(summary, "  skipped:\n") {
		t.Errorf("summary has no skipped section:\n%s", summary)
	}
	for _, d := range state.Domains {
		if !strings.Contains(summary, "    "+string(d)+": ") {
			t.Errorf("summary does not list %s:\n%s", d, summary)
		}
	}
	if strings.Contains(summary, "converged:") || strings.Contains(summary, "attempted but failed:") {
		t.Errorf("summary claims work was attempted:\n%s", summary)
	}
}

func TestRun_InvalidTokenWithoutBootstrap(t *testing.T) {
	srv := fakejellyfin.New(t, fakejellyfin.WithToken())
	a, _ := newAgent(t, testConfig(srv), fullManifest)

	if _, err := a.Run(context.Background()); ExitCode(err) != ExitReadiness {
		t.Errorf("Run() error = %v, want a readiness timeout at the auth level", err)
	}
}

// fakeStore stands in for jellyfin.db: an insert makes the token valid on
// the fake server.
type fakeStore struct {
	srv          *fakejellyfin.Server
	availableErr error

	mu     sync.Mutex
	tokens map[string]string
}

func (s *fakeStore) Available(context.Context) error { return s.availableErr }

func (s *fakeStore) InsertAPIKey(_ context.Context, token, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = map[string]string{}
	}
	if _, ok := s.tokens[token]; ok {
		return false, nil
	}
	s.tokens[token] = name
	s.srv.AddAPIKey(token)
	return true, nil
}

type fakeServices struct {
	srv *fakejellyfin.Server

	mu     sync.Mutex
	stops  int
	starts int
}

func (f *fakeServices) Stop(context.Context) error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	f.srv.SetDown(true)
	return nil
}

func (f *fakeServices) Start(context.Context) error {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	f.srv.SetDown(false)
	return nil
}

func bootstrapAgent(t *testing.T, srv *fakejellyfin.Server, store *fakeStore, services *fakeServices) *Agent {
	cfg := testConfig(srv)
	cfg.Bootstrap.Enabled = true
	a, _ := newAgent(t, cfg, fullManifest, func(o *Options) {
		o.Store = store
		o.Services = services
	})
	return a
}

func TestRun_BootstrapThenConverge(t *testing.T) {
	srv := fakejellyfin.New(t, fakejellyfin.WithToken())
	store := &fakeStore{srv: srv}
	services := &fakeServices{srv: srv}
	a := bootstrapAgent(t, srv, store, services)

	runOK(t, a)
	if services.stops != 1 || services.starts != 1 || len(store.tokens) != 1 {
		t.Errorf("stops=%d starts=%d tokens=%d, want one restart and one key", services.stops, services.starts, len(store.tokens))
	}
	if store.tokens[fakejellyfin.DefaultToken] != "jellarr" {
		t.Errorf("stored tokens = %v", store.tokens)
	}
	if !srv.WizardCompleted() {
		t.Error("run did not continue after bootstrap")
	}

	// The key now works, so a second run does not restart the server.
	runOK(t, a)
	if services.stops != 1 {
		t.Errorf("second run restarted the server (stops=%d)", services.stops)
	}
}

func TestRun_BootstrapFailure(t *testing.T) {
	srv := fakejellyfin.New(t, fakejellyfin.WithToken())
	store := &fakeStore{srv: srv, availableErr: fmt.Errorf("%w: /var/lib/jellyfin/data/jellyfin.db", bootstrap.ErrStoreNotFound)}
	services := &fakeServices{srv: srv}

	report, err := bootstrapAgent(t, srv, store, services).Run(context.Background())
	if !errors.Is(err, bootstrap.ErrBootstrapFailed) || !errors.Is(err, bootstrap.ErrStoreNotFound) {
		t.Fatalf("Run() error = %v", err)
	}
	if report.ExitCode != ExitBootstrap || services.stops != 0 {
		t.Errorf("exit=%d stops=%d", report.ExitCode, services.stops)
	}
	assertAllSkipped(t, report, bootstrap.ErrStoreNotFound)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	srv := fakejellyfin.New(t)
	cfg := testConfig(srv)
	cfg.DryRun = true
	a, _ := newAgent(t, cfg, fullManifest)

	report := runOK(t, a)
	if report.Outcome != OutcomeDryRun || report.Compliance != nil {
		t.Errorf("report = %+v", report)
	}
	if writes := srv.Writes(); len(writes) != 0 {
		t.Errorf("dry run wrote %d requests", len(writes))
	}

	var buf bytes.Buffer
	_ = report.WriteSummary(&buf)
	if !strings.Contains(buf.String(), "pending (dry run)") || !strings.Contains(buf.String(), `"Movies"`) {
		t.Errorf("summary:\n%s", buf.String())
	}
}

func TestRun_ComplianceMismatchExitsOne(t *testing.T) {
	srv := fakejellyfin.New(t)
	srv.SeedUser("alice", "something-else", nil)
	a, _ := newAgent(t, testConfig(srv), fullManifest)

	report, err := a.Run(context.Background())
	if !errors.Is(err, verify.ErrComplianceMismatch) {
		t.Fatalf("Run() error = %v, want ErrComplianceMismatch", err)
	}
	if report.ExitCode != ExitFailed || report.Outcome != OutcomeNoncompliant {
		t.Errorf("report = %+v", report)
	}
	if pw, _ := srv.UserPassword("alice"); pw != "something-else" {
		t.Error("existing user's password was overwritten")
	}
}

func TestRun_InvalidManifestFile(t *testing.T) {
	srv := fakejellyfin.New(t)
	cfg := testConfig(srv)
	cfg.Manifest.Path = filepath.Join(t.TempDir(), "missing.yml")

	a := New(Options{Config: cfg, Sleeper: &readiness.FakeSleeper{}})
	report, err := a.Run(context.Background())
	if ExitCode(err) != ExitInvalidInput || report.Outcome != OutcomeInvalidInput {
		t.Errorf("Run() error = %v, report = %+v", err, report)
	}
	if len(srv.Requests()) != 0 {
		t.Error("contacted the server with an unreadable manifest")
	}
}

func TestRun_LastReport(t *testing.T) {
	srv := fakejellyfin.New(t)
	a, _ := newAgent(t, testConfig(srv), "version: 1\nbase_url: http://unused.invalid\n")

	if _, ok := a.LastReport(); ok {
		t.Fatal("LastReport() before any run")
	}
	report := runOK(t, a)
	last, ok := a.LastReport()
	if !ok || last.RunID != report.RunID || last.RunID == "" {
		t.Errorf("LastReport() = %+v, %v", last, ok)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"domain failure", ErrDomainsFailed, ExitFailed},
		{"noncompliant", verify.ErrComplianceMismatch, ExitFailed},
		{"deadline", fmt.Errorf("%w: %w", ErrRunDeadline, context.DeadlineExceeded), ExitFailed},
		{"readiness", fmt.Errorf("wait: %w", readiness.ErrReadinessTimeout), ExitReadiness},
		{"bootstrap", fmt.Errorf("%w: %w", bootstrap.ErrBootstrapFailed, readiness.ErrReadinessTimeout), ExitBootstrap},
		{"manifest", manifest.ErrInvalidManifest, ExitInvalidInput},
		{"config", config.ErrInvalidConfig, ExitInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
