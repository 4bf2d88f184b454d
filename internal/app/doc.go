// Package app wires the dashboard web service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from .env, environment and config.yaml
//  2. Initialize logging and OpenTelemetry
//  3. Load the admissions dataset (startup fails if it cannot be read)
//  4. Create the dashboard, health and WebSocket services
//  5. Build the chi router and middleware chain
//  6. Serve until SIGINT/SIGTERM, then shut down gracefully
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package app
