package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// NewBlockCommand constructs the `block` command.
func NewBlockCommand(baseURL BaseURLFunc) *cobra.Command {
	blockCmd := &cobra.Command{
		Use:   "block <who>",
		Short: "Block an address and record the action in the audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			actor, _ := cmd.Flags().GetString("actor")

			req, err := newRequest(http.MethodPost, baseURL()+"/v1/actions/block", map[string]string{
				"who":    args[0],
				"reason": reason,
				"actor":  actor,
			})
			if err != nil {
				return err
			}
			req = req.WithContext(cmd.Context())

			var out struct {
				OK    bool `json:"ok"`
				Audit struct {
					ID     string `json:"id"`
					Who    string `json:"who"`
					WhenTS int64  `json:"when_ts"`
				} `json:"audit"`
			}
			if err := doJSON(req, &out); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "blocked %s (audit %s at %s)\n",
				out.Audit.Who, out.Audit.ID, time.Unix(out.Audit.WhenTS, 0).Format(time.RFC3339))
			return nil
		},
	}
	blockCmd.Flags().String("reason", "", "Reason recorded in the audit trail")
	blockCmd.Flags().String("actor", "cli", "Actor recorded in the audit trail")
	return blockCmd
}

// NewPurgeCommand constructs the `purge` command.
func NewPurgeCommand(baseURL BaseURLFunc) *cobra.Command {
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Bulk-delete stored events by timestamp or id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			beforeTS, _ := cmd.Flags().GetInt64("before-ts")
			beforeID, _ := cmd.Flags().GetInt64("before-id")
			if (beforeTS == 0) == (beforeID == 0) {
				return fmt.Errorf("exactly one of --before-ts or --before-id is required")
			}

			req, err := newRequest(http.MethodPost, baseURL()+"/v1/events/purge", map[string]int64{
				"before_ts": beforeTS,
				"before_id": beforeID,
			})
			if err != nil {
				return err
			}
			req = req.WithContext(cmd.Context())

			var out struct {
				Deleted int    `json:"deleted"`
				Method  string `json:"method"`
			}
			if err := doJSON(req, &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(out)
		},
	}
	purgeCmd.Flags().Int64("before-ts", 0, "Delete events with ts older than this unix timestamp")
	purgeCmd.Flags().Int64("before-id", 0, "Delete events with id lower than this")
	return purgeCmd
}
