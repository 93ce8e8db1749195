// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

//go:build integration

package testinfra

import (
	"context"
	"testing"
	"time"

	"github.com/venkyr77/jellarr/internal/jellyfin"
)

// TestJellyfinContainer_Integration checks that the container comes up with
// a usable token and an incomplete wizard.
func TestJellyfinContainer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	jf, err := NewJellyfinContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create Jellyfin container: %v", err)
	}
	CleanupContainer(t, jf.Container)
	t.Logf("Jellyfin container started at: %s", jf.URL)

	client := jellyfin.New(jellyfin.Options{BaseURL: jf.URL, Token: jf.Token})

	info, err := client.GetPublicSystemInfo(ctx)
	if err != nil {
		logs, _ := jf.Logs(ctx)
		t.Fatalf("GetPublicSystemInfo() error = %v\nContainer logs:\n%s", err, logs)
	}
	if info.StartupWizardCompleted {
		t.Error("wizard should still be incomplete")
	}

	sys, err := client.GetSystemConfiguration(ctx)
	if err != nil {
		t.Fatalf("GetSystemConfiguration() error = %v", err)
	}
	if _, ok := sys["PluginRepositories"]; !ok {
		t.Errorf("system configuration missing PluginRepositories: %v", sys)
	}

	users, err := client.GetUsers(ctx)
	if err != nil || len(users) != 1 || users[0].Name != DefaultAdminUser {
		t.Errorf("GetUsers() = %+v, %v", users, err)
	}

	if info, err := GetContainerInfo(ctx, jf.Container); err == nil {
		t.Logf("Container ID: %s, State: %s, Ports: %v", info.ID, info.State, info.Ports)
	}
}
