// Package app wires the dashboard together and owns its lifecycle.
//
// NewApplication loads the configuration and logger; New builds the rest
// from them:
//
//	1. Resolve and create the working directories
//	2. Initialize OpenTelemetry and the dashboard metrics
//	3. Build the workbook source, local or routed to S3, and the cache
//	4. Create the websocket hub, the dashboard and health services
//	5. Parse the reload schedule
//	6. Set up the router and HTTP server
//
// Run starts everything, waits for SIGINT or SIGTERM and shuts down
// gracefully:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
package app
