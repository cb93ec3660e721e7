// Package rantly provides a Go client for the unofficial Rantly social
// network HTTP API with cookie-backed token refresh.
//
// # Overview
//
// This package enables Go applications to interact with Rantly's private
// HTTP API through a clean, type-safe interface. Rantly publishes no
// official client credentials; instead the API trusts a short-lived bearer
// access token minted by a cookie-authenticated refresh endpoint. The
// client manages that whole lifecycle: it loads persisted credentials,
// stamps every request, reacts to an expired token by refreshing and
// retrying once, and writes the rotated credentials back to disk.
//
// # Features
//
//   - Bearer-token authentication with automatic refresh on 401
//   - Cookie jar scoped to the refresh endpoint, persisted across restarts
//   - Typed API methods for posts, comments, users, notifications, search,
//     hashtags, file uploads and reports
//   - Built-in rate limiting that honors Retry-After and rate headers
//   - Multi-account MirrorPool with strict round-robin dispatch
//   - Live notification streaming over server-sent events
//   - Structured logging support via Go's slog package
//
// # Quick Start
//
// Basic setup points the client at the two credential files:
//
//	config := &rantly.Config{
//		TokenFile:  ".env",
//		CookieFile: "cookies.txt",
//		UserAgent:  "myapp/1.0",
//	}
//
//	client, err := rantly.NewClient(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := client.Authenticate(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	feed, err := client.GetFeed(ctx, &types.FeedRequest{Sort: "hot"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Credential Files
//
// The token file is an ordinary KEY=value file; only the RANTLY_TOKEN line
// is read and rewritten, every other line is preserved. The token file must
// already exist for persistence to succeed: the client never creates it,
// since a missing file usually means the caller pointed at the wrong path.
// The cookie file holds one Cookie header line and is created on demand.
//
// # Mirror Pools
//
// A MirrorPool spreads calls across several fully independent accounts:
//
//	pool, err := rantly.NewMirrorPoolFromFile("accounts.json", stateDir, config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	feed, err := pool.GetFeed(ctx, nil) // next account in strict rotation
//
// Every call through the pool advances a single shared counter by exactly
// one. Pin an account with Mirror or MirrorFor when a flow must stay on one
// session; pinned calls never advance the counter.
//
// # Streaming
//
// StreamNotifications opens a long-lived server-sent-events subscription:
//
//	stream, err := client.StreamNotifications(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer stream.Close()
//
//	for event := range stream.Events() {
//		if n, ok := event.Notification(); ok {
//			log.Printf("%s from %s", n.Type, n.FromUser)
//		}
//	}
//
// # Error Handling
//
// Errors are typed for programmatic inspection: ConfigError for
// construction mistakes, AuthRequiredError for calls attempted without a
// session, RefreshError when the token exchange fails, APIError for
// upstream rejections and TransportError for network failures. Getters
// report a missing resource as (nil, nil) rather than an error.
package rantly
