// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/venkyr77/jellarr/internal/jellyfin"
)

const (
	// DefaultJellyfinImage is the official Jellyfin image the agent is tested against.
	DefaultJellyfinImage = "jellyfin/jellyfin:10.10.7"

	// DefaultJellyfinPort is the HTTP port inside the container.
	DefaultJellyfinPort = "8096"

	// DefaultAdminUser and DefaultAdminPassword are set through the first-run wizard.
	DefaultAdminUser     = "admin"
	DefaultAdminPassword = "jellarr-test"

	// MediaRoot is a directory inside the container that library paths can
	// point at.
	MediaRoot = "/media"
)

// JellyfinContainer represents a running Jellyfin container for testing.
type JellyfinContainer struct {
	testcontainers.Container
	URL   string
	Token string
}

// JellyfinOption configures the Jellyfin container.
type JellyfinOption func(*jellyfinConfig)

type jellyfinConfig struct {
	image        string
	adminUser    string
	adminPass    string
	startTimeout time.Duration
}

// WithJellyfinImage sets a custom Jellyfin image.
func WithJellyfinImage(image string) JellyfinOption {
	return func(c *jellyfinConfig) {
		c.image = image
	}
}

// WithAdmin sets the administrator created through the wizard.
func WithAdmin(user, password string) JellyfinOption {
	return func(c *jellyfinConfig) {
		c.adminUser = user
		c.adminPass = password
	}
}

// WithStartTimeout sets the timeout for waiting for Jellyfin to start.
func WithStartTimeout(timeout time.Duration) JellyfinOption {
	return func(c *jellyfinConfig) {
		c.startTimeout = timeout
	}
}

// NewJellyfinContainer starts a Jellyfin container, creates the
// administrator and returns a session token for it.
func NewJellyfinContainer(ctx context.Context, opts ...JellyfinOption) (*JellyfinContainer, error) {
	cfg := &jellyfinConfig{
		image:        DefaultJellyfinImage,
		adminUser:    DefaultAdminUser,
		adminPass:    DefaultAdminPassword,
		startTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultJellyfinPort + "/tcp"},
		Env:          map[string]string{"TZ": "UTC"},
		Tmpfs:        map[string]string{MediaRoot: "rw"},
		WaitingFor: wait.ForHTTP(jellyfin.PathPublicSystemInfo).
			WithPort(DefaultJellyfinPort + "/tcp").
			WithStatusCodeMatcher(func(status int) bool { return status == http.StatusOK }).
			WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create jellyfin container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, DefaultJellyfinPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}
	baseURL := fmt.Sprintf("http://%s:%s", host, port.Port())

	if _, _, err := container.Exec(ctx, []string{"mkdir", "-p", MediaRoot + "/movies", MediaRoot + "/shows", MediaRoot + "/music"}); err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("create media directories: %w", err)
	}

	token, err := createAdmin(ctx, baseURL, cfg.adminUser, cfg.adminPass)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("create administrator: %w", err)
	}

	return &JellyfinContainer{Container: container, URL: baseURL, Token: token}, nil
}

// createAdmin walks the wizard up to the user step and logs in. The server
// answers the wizard endpoints with 5xx for a few seconds after it starts
// listening, so each step is retried.
func createAdmin(ctx context.Context, baseURL, user, password string) (string, error) {
	client := jellyfin.New(jellyfin.Options{BaseURL: baseURL, Version: "integration"})

	steps := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/Startup/Configuration", map[string]string{
			"UICulture":                 "en-US",
			"MetadataCountryCode":       "US",
			"PreferredMetadataLanguage": "en",
		}},
		{http.MethodGet, "/Startup/User", nil},
		{http.MethodPost, "/Startup/User", map[string]string{"Name": user, "Password": password}},
	}
	for _, step := range steps {
		if err := retry(ctx, func() error {
			return client.Request(ctx, step.method, step.path, step.body, nil)
		}); err != nil {
			return "", fmt.Errorf("%s %s: %w", step.method, step.path, err)
		}
	}

	var token string
	err := retry(ctx, func() error {
		res, err := client.AuthenticateByName(ctx, user, password)
		if err != nil {
			return err
		}
		token = res.AccessToken
		return nil
	})
	return token, err
}

func retry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i < 30; i++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return err
}

// Logs returns the container logs for debugging.
func (c *JellyfinContainer) Logs(ctx context.Context) (string, error) {
	return ContainerLogs(ctx, c.Container)
}
