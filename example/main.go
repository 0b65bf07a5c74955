// Command example demonstrates the pathstore SDK: subscriptions, batched
// writes, and the async lifecycle with supersession.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pathstore"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := pathstore.New(
		pathstore.WithInitialState(map[string]any{
			"user": map[string]any{"name": "Alice"},
		}),
		pathstore.WithLogger(logger),
		pathstore.WithCancelStatus("cancelled"),
	)
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	defer st.Destroy()

	// exact subscription: fires only for this concrete path
	unsubName := st.Subscribe("user.name", func() {
		fmt.Println("user.name is now", st.Get("user.name"))
	})
	defer unsubName()

	// wildcard subscription: fires once per direct-child write under user
	events, stopWatch := st.Watch("user.*")
	defer stopWatch()
	go func() {
		for e := range events {
			fmt.Printf("changed: %s = %v\n", e.Path, e.Value)
		}
	}()

	st.Set("user.name", "Bob")

	// batched writes: each path notifies once, with the final value
	st.Batch(func() {
		st.Set("user.name", "Carol")
		st.Set("user.email", "carol@example.com")
	})

	// async lifecycle: the envelope lands under orders.{status,data,error}
	if err := st.SetAsync(context.Background(), "orders", func(ctx context.Context) (any, error) {
		time.Sleep(50 * time.Millisecond) // simulated fetch
		return []any{map[string]any{"id": 1, "total": 42}}, nil
	}); err != nil {
		logger.Error("fetch failed", "error", err)
	}
	fmt.Println("orders.status:", st.Get("orders.status"))

	// supersession: the slow first fetch is discarded by the second
	slow := func(ctx context.Context) (any, error) {
		select {
		case <-time.After(time.Second):
			return "slow", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	go func() {
		if err := st.SetAsync(context.Background(), "quote", slow); errors.Is(err, pathstore.ErrSuperseded) {
			fmt.Println("first quote fetch superseded, result discarded")
		}
	}()
	time.Sleep(10 * time.Millisecond)
	if err := st.SetAsync(context.Background(), "quote", func(ctx context.Context) (any, error) {
		return "fast", nil
	}); err != nil {
		logger.Error("fetch failed", "error", err)
	}
	fmt.Println("quote.data:", st.Get("quote.data"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	fmt.Println("press Ctrl+C to exit")
	<-ctx.Done()
}
