package arg

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var (
	startWorkflow string
	startOrderID  string
	stopItems     int
	stopOrders    int
)

var startCmd = &cobra.Command{
	Use:   "start <username> <stage-or-batch-id>",
	Short: "Start a work-session timer for a worker",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var sess map[string]any
		err := call("POST", "/api/timers/start", map[string]any{
			"user_id":  args[0],
			"workflow": startWorkflow,
			"ref_id":   args[1],
			"order_id": startOrderID,
		}, &sess)
		if err != nil {
			log.Fatal("failed to start timer: ", err)
		}
		fmt.Printf("timer started: %s\n", sess["session_id"])
	},
}

var pauseCmd = &cobra.Command{
	Use:     "pause <session-id>",
	Aliases: []string{"p"},
	Short:   "Pause a running work-session timer",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var sess map[string]any
		if err := call("POST", "/api/timers/"+args[0]+"/pause", nil, &sess); err != nil {
			log.Fatal("failed to pause timer: ", err)
		}
		fmt.Printf("timer paused at %.2f minutes\n", sess["accumulated_minutes"])
	},
}

var resumeCmd = &cobra.Command{
	Use:     "resume <session-id>",
	Aliases: []string{"r"},
	Short:   "Resume a paused work-session timer",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var sess map[string]any
		if err := call("POST", "/api/timers/"+args[0]+"/resume", nil, &sess); err != nil {
			log.Fatal("failed to resume timer: ", err)
		}
		fmt.Println("timer resumed")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "Stop a work-session timer and emit its log",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var entry map[string]any
		err := call("POST", "/api/timers/"+args[0]+"/stop", map[string]any{
			"items_processed":  stopItems,
			"orders_processed": stopOrders,
		}, &entry)
		if err != nil {
			log.Fatal("failed to stop timer: ", err)
		}
		fmt.Printf("timer stopped: %.2f minutes logged\n", entry["duration_minutes"])
	},
}

func init() {
	startCmd.Flags().StringVarP(&startWorkflow, "workflow", "w", "production", "workflow: production, fulfillment, or batch")
	startCmd.Flags().StringVarP(&startOrderID, "order", "o", "", "order id for grouping")
	stopCmd.Flags().IntVar(&stopItems, "items", -1, "final items processed count")
	stopCmd.Flags().IntVar(&stopOrders, "orders", -1, "final orders processed count")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stopCmd)
}
