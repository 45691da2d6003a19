package arg

import (
	"fmt"
	"log"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	reportUser     string
	reportWorkflow string
	reportFrom     string
	reportTo       string
	reportTotal    string
)

func rangeQuery() string {
	q := url.Values{}
	if reportFrom != "" {
		q.Set("from", reportFrom)
	}
	if reportTo != "" {
		q.Set("to", reportTo)
	}
	if enc := q.Encode(); enc != "" {
		return "?" + enc
	}
	return ""
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Pull labor rollups from finalized timer logs",
}

var reportUserDateCmd = &cobra.Command{
	Use:   "user-date",
	Short: "Rollup by worker and day",
	Run: func(cmd *cobra.Command, args []string) {
		path := "/api/reports/user-date" + rangeQuery()
		if reportUser != "" {
			sep := "?"
			if len(path) > len("/api/reports/user-date") {
				sep = "&"
			}
			path += sep + "user=" + url.QueryEscape(reportUser)
		}
		var out map[string]any
		if err := call("GET", path, nil, &out); err != nil {
			log.Fatal("failed to pull report: ", err)
		}
		fmt.Println(pretty(out["rollups"]))
	},
}

var reportStageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Rollup by production or fulfillment stage",
	Run: func(cmd *cobra.Command, args []string) {
		path := "/api/reports/stage" + rangeQuery()
		sep := "?"
		if len(path) > len("/api/reports/stage") {
			sep = "&"
		}
		path += sep + "workflow=" + url.QueryEscape(reportWorkflow)
		var out map[string]any
		if err := call("GET", path, nil, &out); err != nil {
			log.Fatal("failed to pull report: ", err)
		}
		fmt.Println(pretty(out["rollups"]))
	},
}

var reportOrderCmd = &cobra.Command{
	Use:   "order <order-id>",
	Short: "Rollup of all labor booked against one order",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "/api/reports/order/" + url.PathEscape(args[0])
		if reportTotal != "" {
			path += "?order_total=" + url.QueryEscape(reportTotal)
		}
		var out map[string]any
		if err := call("GET", path, nil, &out); err != nil {
			log.Fatal("failed to pull report: ", err)
		}
		fmt.Println(pretty(out))
	},
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportFrom, "from", "", "start date (2006-01-02)")
	reportCmd.PersistentFlags().StringVar(&reportTo, "to", "", "end date (2006-01-02)")
	reportUserDateCmd.Flags().StringVarP(&reportUser, "user", "u", "", "restrict to one worker")
	reportStageCmd.Flags().StringVarP(&reportWorkflow, "workflow", "w", "production", "production, fulfillment, or batch")
	reportOrderCmd.Flags().StringVar(&reportTotal, "order-total", "", "order sale value for cost-percent")

	reportCmd.AddCommand(reportUserDateCmd)
	reportCmd.AddCommand(reportStageCmd)
	reportCmd.AddCommand(reportOrderCmd)
	rootCmd.AddCommand(reportCmd)
}
