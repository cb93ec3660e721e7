package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	rantly "github.com/rantly-unofficial/go-rantly"
	"github.com/rantly-unofficial/go-rantly/pkg/types"
)

func main() {
	// Credential files are provisioned out of band; RANTLY_TOKEN lives in
	// the token file, refresh cookies in the cookie file.
	tokenFile := os.Getenv("RANTLY_TOKEN_FILE")
	cookieFile := os.Getenv("RANTLY_COOKIE_FILE")

	if tokenFile == "" && cookieFile == "" {
		log.Fatal("RANTLY_TOKEN_FILE or RANTLY_COOKIE_FILE environment variable is required")
	}

	// Route structured logs to stdout; adjust the level as needed.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	config := &rantly.Config{
		TokenFile:  tokenFile,
		CookieFile: cookieFile,
		UserAgent:  "example-bot/1.0",
		Logger:     logger,
	}

	client, err := rantly.NewClient(config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	// Make sure there is an access token; with only cookies on disk this
	// performs the refresh exchange.
	if err := client.Authenticate(ctx); err != nil {
		log.Fatalf("Failed to authenticate: %v", err)
	}

	me, err := client.Me(ctx)
	if err != nil {
		log.Printf("Failed to get user info: %v", err)
	} else {
		fmt.Printf("Authenticated as: %s\n", me.Username)
	}

	// Get the hot feed
	feed, err := client.GetFeed(ctx, &types.FeedRequest{
		Sort:       "hot",
		Pagination: types.Pagination{Limit: 5},
	})
	if err != nil {
		log.Printf("Failed to get feed: %v", err)
	} else {
		fmt.Println("\nHot posts:")
		for i, post := range feed.Posts {
			fmt.Printf("%d. %s (score: %d, comments: %d)\n",
				i+1, post.Text, post.Score, post.CommentCount)
		}
	}

	// Stream notifications until interrupted
	stream, err := client.StreamNotifications(ctx)
	if err != nil {
		log.Printf("Failed to open notification stream: %v", err)
		return
	}
	defer stream.Close()

	fmt.Println("\nListening for notifications (Ctrl+C to stop)...")
	for event := range stream.Events() {
		if n, ok := event.Notification(); ok {
			fmt.Printf("notification: %s from %s\n", n.Type, n.FromUser)
		} else {
			fmt.Printf("event: %s\n", event.Raw)
		}
	}
	if err := stream.Err(); err != nil {
		log.Printf("Notification stream ended with error: %v", err)
	}
}
