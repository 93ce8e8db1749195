// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package supervisor runs jellarr in daemon mode under a suture v4 tree.

	jellarr
	├── reconcile-layer
	│   └── ReconcileService (one run per daemon.interval)
	└── api-layer
	    └── HTTPServerService (if daemon.metrics_addr is set)

Each layer restarts its own services with exponential backoff. Supervisor
events are logged through sutureslog into the zerolog pipeline:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddReconcileService(services.NewReconcileService(a, cfg.Daemon.Interval))
	return tree.Serve(ctx)

Cancelling ctx stops every service within TreeConfig.ShutdownTimeout;
UnstoppedServiceReport names any that hung.
*/
package supervisor
