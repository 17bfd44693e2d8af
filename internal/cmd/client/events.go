package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// NewEventsCommand constructs the `events` command group.
func NewEventsCommand(baseURL BaseURLFunc) *cobra.Command {
	eventsCmd := &cobra.Command{Use: "events", Short: "Event operations"}
	eventsCmd.AddCommand(
		newEventsTailCommand(baseURL),
		newEventsListCommand(baseURL),
	)
	return eventsCmd
}

// newEventsTailCommand constructs the `events tail` subcommand. It consumes
// the SSE stream: replayed events first, then live ones.
func newEventsTailCommand(baseURL BaseURLFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the live event stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lastSeen, _ := cmd.Flags().GetInt64("last-seen-id")
			filter, _ := cmd.Flags().GetString("filter")

			q := url.Values{}
			if lastSeen > 0 {
				q.Set("last_seen_id", strconv.FormatInt(lastSeen, 10))
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			u := baseURL() + "/v1/events/stream"
			if len(q) > 0 {
				u += "?" + q.Encode()
			}
			req, err := newRequest(http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			req = req.WithContext(cmd.Context())
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %s", resp.Status)
			}

			out := cmd.OutOrStdout()
			err = readSSE(resp.Body, func(event, data string) error {
				switch event {
				case "replay_complete":
					_, _ = fmt.Fprintf(out, "-- live (%s)\n", data)
				case "error":
					return fmt.Errorf("stream error: %s", data)
				default:
					_, _ = fmt.Fprintln(out, data)
				}
				return nil
			})
			if err != nil && !errors.Is(err, cmd.Context().Err()) {
				return err
			}
			return nil
		},
	}
	tailCmd.Flags().Int64("last-seen-id", 0, "Replay events after this id before going live (0 = live only)")
	tailCmd.Flags().String("filter", "", "CEL filter (server-side)")
	return tailCmd
}

// newEventsListCommand constructs the `events list` subcommand.
func newEventsListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			beforeID, _ := cmd.Flags().GetInt64("before-id")
			limit, _ := cmd.Flags().GetInt("limit")
			filter, _ := cmd.Flags().GetString("filter")

			q := url.Values{}
			if beforeID > 0 {
				q.Set("before_id", strconv.FormatInt(beforeID, 10))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			u := baseURL() + "/v1/events"
			if len(q) > 0 {
				u += "?" + q.Encode()
			}
			req, err := newRequest(http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			req = req.WithContext(cmd.Context())

			var out struct {
				Events []json.RawMessage `json:"events"`
			}
			if err := doJSON(req, &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ev := range out.Events {
				_ = enc.Encode(ev)
			}
			return nil
		},
	}
	listCmd.Flags().Int64("before-id", 0, "Page before this id (0 = from the tail)")
	listCmd.Flags().Int("limit", 100, "Max events to return")
	listCmd.Flags().String("filter", "", "CEL filter (server-side)")
	return listCmd
}
