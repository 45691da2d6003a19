package arg

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Manage saved work-session snapshots",
}

var recoverSaveCmd = &cobra.Command{
	Use:   "save <username>",
	Short: "Checkpoint all of a worker's open sessions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := call("POST", "/api/recovery/save/"+args[0], nil, &out); err != nil {
			log.Fatal("failed to save sessions: ", err)
		}
		fmt.Printf("saved %v session(s)\n", out["saved"])
	},
}

var recoverListCmd = &cobra.Command{
	Use:   "list <username>",
	Short: "List a worker's pending snapshots",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := call("GET", "/api/recovery/check/"+args[0], nil, &out); err != nil {
			log.Fatal("failed to list snapshots: ", err)
		}
		fmt.Println(pretty(out["snapshots"]))
	},
}

var recoverRestoreCmd = &cobra.Command{
	Use:   "restore <save-id>",
	Short: "Restore a snapshot into a running timer",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var sess map[string]any
		if err := call("POST", "/api/recovery/restore/"+args[0], nil, &sess); err != nil {
			log.Fatal("failed to restore snapshot: ", err)
		}
		fmt.Printf("restored into session %s with %.2f minutes committed\n",
			sess["session_id"], sess["accumulated_minutes"])
	},
}

var recoverDiscardCmd = &cobra.Command{
	Use:   "discard <save-id>",
	Short: "Discard a snapshot without restoring (irreversible)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := call("DELETE", "/api/recovery/"+args[0], nil, nil); err != nil {
			log.Fatal("failed to discard snapshot: ", err)
		}
		fmt.Println("snapshot discarded")
	},
}

var recoverDiscardAllCmd = &cobra.Command{
	Use:   "discard-all <username>",
	Short: "Discard all of a worker's snapshots (irreversible)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := call("DELETE", "/api/recovery/user/"+args[0], nil, &out); err != nil {
			log.Fatal("failed to discard snapshots: ", err)
		}
		fmt.Printf("discarded %v snapshot(s)\n", out["discarded"])
	},
}

func init() {
	recoverCmd.AddCommand(recoverSaveCmd)
	recoverCmd.AddCommand(recoverListCmd)
	recoverCmd.AddCommand(recoverRestoreCmd)
	recoverCmd.AddCommand(recoverDiscardCmd)
	recoverCmd.AddCommand(recoverDiscardAllCmd)
	rootCmd.AddCommand(recoverCmd)
}
