package arg

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var hoursDate string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if the floortimer daemon is running",
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := call("GET", "/api/status", nil, &out); err != nil {
			log.Fatal("daemon unreachable: ", err)
		}
		fmt.Println("floortimer status:", out["status"])
	},
}

var activeCmd = &cobra.Command{
	Use:   "active <username>",
	Short: "Show a worker's active timer, if any",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := call("GET", "/api/timers/active/"+args[0], nil, &out); err != nil {
			log.Fatal("failed to query active timer: ", err)
		}
		if out == nil {
			fmt.Printf("no active timer for %s\n", args[0])
			return
		}
		fmt.Println(pretty(out))
	},
}

var hoursCmd = &cobra.Command{
	Use:   "hours <username>",
	Short: "Show a worker's total hours for a day",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "/api/hours/" + args[0]
		if hoursDate != "" {
			path += "?date=" + hoursDate
		}
		var out map[string]any
		if err := call("GET", path, nil, &out); err != nil {
			log.Fatal("failed to query hours: ", err)
		}
		fmt.Printf("%s worked %.2f minutes on %s\n", args[0], out["minutes"], out["day"])
	},
}

var warningCmd = &cobra.Command{
	Use:   "warning <username>",
	Short: "Show a worker's live limit countdown, if any",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := call("GET", "/api/limit/warning/"+args[0], nil, &out); err != nil {
			log.Fatal("failed to query warning: ", err)
		}
		if out == nil {
			fmt.Printf("no limit warning open for %s\n", args[0])
			return
		}
		fmt.Printf("forced stop in %v seconds\n", out["seconds_remaining"])
	},
}

var ackCmd = &cobra.Command{
	Use:   "ack <username> <continue|stop>",
	Short: "Resolve a worker's limit countdown",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		err := call("POST", "/api/limit/ack", map[string]any{
			"user_id":    args[0],
			"resolution": args[1],
		}, &out)
		if err != nil {
			log.Fatal("failed to acknowledge: ", err)
		}
		fmt.Printf("warning resolved: %s\n", out["resolution"])
	},
}

func init() {
	hoursCmd.Flags().StringVarP(&hoursDate, "date", "d", "", "UTC date (2006-01-02), default today")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(activeCmd)
	rootCmd.AddCommand(hoursCmd)
	rootCmd.AddCommand(warningCmd)
	rootCmd.AddCommand(ackCmd)
}
