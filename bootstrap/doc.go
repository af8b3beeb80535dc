// Package bootstrap runs the bridge process lifecycle.
//
// An App owns a typed config, the component registry and the lifecycle
// hooks. Components start in registration order, hooks run around them,
// and the process blocks until SIGINT/SIGTERM or context cancellation
// before stopping components in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(sessionComponent)
//	app.RegisterComponent(serverComponent)
//	if err := app.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
