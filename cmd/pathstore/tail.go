package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/fatih/color"
	"github.com/jpalmerr/pathstore"
	"github.com/jpalmerr/pathstore/internal/tree"
	"github.com/spf13/cobra"
)

// maxEventSize bounds a single SSE line; the initial snapshot can be large.
const maxEventSize = 1 << 20

// tailCmd follows the change event stream of a running serve instance.
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow change events from a running server",
	Long: `Connect to a serve instance's SSE endpoint and print change events.

Events can be filtered with an expression over {path, parent, value}, using
expr-lang syntax. Output is colorized when stdout is a terminal.

Examples:
  pathstore tail --url http://localhost:8080
  pathstore tail --url http://localhost:8080 --filter 'hasPrefix(path, "user.")'
  pathstore tail --url http://localhost:8080 --filter 'parent == "session"'`,
	RunE: runTail,
}

func init() {
	rootCmd.AddCommand(tailCmd)

	tailCmd.Flags().String("url", "", "base URL of a running serve instance (required)")
	tailCmd.Flags().String("filter", "", "boolean expr filter over {path, parent, value}")
	_ = tailCmd.MarkFlagRequired("url")
}

func runTail(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	filterSrc, _ := cmd.Flags().GetString("filter")

	var program *vm.Program
	if filterSrc != "" {
		var err error
		program, err = expr.Compile(filterSrc, expr.AsBool())
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(url, "/")+"/api/events", nil)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var (
		timeColor = color.New(color.FgHiBlack)
		pathColor = color.New(color.FgCyan, color.Bold)
		snapColor = color.New(color.FgGreen)
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event pathstore.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		keep, err := matchesFilter(program, event)
		if err != nil {
			return fmt.Errorf("filter evaluation failed: %w", err)
		}
		if !keep {
			continue
		}

		value, err := json.Marshal(event.Value)
		if err != nil {
			value = []byte(fmt.Sprintf("%v", event.Value))
		}

		ts := timeColor.Sprint(time.Now().Format("15:04:05.000"))
		if event.Path == "" {
			// the stream opens with a snapshot of the whole tree
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ts, snapColor.Sprint("(snapshot)"), value)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", ts, pathColor.Sprint(event.Path), value)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

// matchesFilter evaluates the compiled filter against one event. A nil
// program matches everything; the snapshot event is never filtered out.
func matchesFilter(program *vm.Program, event pathstore.Event) (bool, error) {
	if program == nil || event.Path == "" {
		return true, nil
	}

	parent, _ := tree.Parent(event.Path)
	out, err := expr.Run(program, map[string]any{
		"path":   event.Path,
		"parent": parent,
		"value":  event.Value,
	})
	if err != nil {
		return false, err
	}
	keep, ok := out.(bool)
	return ok && keep, nil
}
