// Package zscaler is a native Go client for the Zscaler Internet Access
// (ZIA), Private Access (ZPA), Client Connector (ZCC) and Cloud & Branch
// Connector (ZTW) REST APIs.
//
// # Features
//
//   - OneAPI OAuth2 client credentials (secret or private key JWT)
//   - Legacy per-product sessions: ZIA/ZTW JSESSIONID, ZPA bearer, ZCC auth-token
//   - Proactive session refresh and one re-authentication on 401
//   - Client-side rate limiting per verb class, shareable through redis
//   - Retry of 429 responses honouring Retry-After
//   - Go 1.25+ iterators for pagination
//   - Optional response cache (memory, redis or SQLite)
//   - Typed errors, zap logging and OpenTelemetry spans
//
// # Quick Start
//
//	client, err := zscaler.NewClient(
//	    zscaler.WithOneAPI(clientID, clientSecret, "acme"),
//	    zscaler.WithZPACustomerID("216196257331281920"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	for group, err := range client.ZPA.SegmentGroups.List(ctx, "", nil) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(group.Name)
//	}
//
// Legacy credentials are configured per product and may be combined:
//
//	client, err := zscaler.NewClient(
//	    zscaler.WithZIALegacy(username, password, apiKey),
//	    zscaler.WithCloud("zscalertwo"),
//	)
//
// Or read the standard environment variables:
//
//	client, err := zscaler.NewClient(zscaler.WithEnv())
//
// # Error Handling
//
// The package uses typed errors that can be inspected with errors.As:
//
//	loc, err := client.ZIA.Locations.Get(ctx, 42)
//	if err != nil {
//	    var notFound *zscaler.NotFoundError
//	    if errors.As(err, &notFound) {
//	        // Handle not found
//	    }
//	}
//
// # Pagination
//
// List methods return iterators that fetch pages lazily:
//
//	// Stop after 500 items
//	locs, err := zscaler.Collect(client.ZIA.Locations.List(ctx, nil, &zscaler.PageOptions{
//	    PageSize: 200,
//	    MaxItems: 500,
//	}))
//
//	// Or use manual pagination
//	page, err := client.ZIA.Locations.ListPage(ctx, nil, &zscaler.PageOptions{Page: 2})
package zscaler
