// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

/*
Package supervisor provides process supervision for Watchly using suture v4.

Long-running services are grouped into layers so that a failure in one
layer restarts only that layer:

	RootSupervisor ("watchly")
	├── DataSupervisor ("data-layer")
	│   └── StoreGCService
	├── RefreshSupervisor ("refresh-layer")
	│   └── RefreshService (if refresh.enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff. Supervisor events are
logged through sutureslog, bridged to zerolog by logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewStoreGCService(db, cfg.Store.GCInterval, logger))
	tree.AddRefreshService(services.NewRefreshService(refresher, cfg.Refresh, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

The service wrappers live in the services subpackage.
*/
package supervisor
