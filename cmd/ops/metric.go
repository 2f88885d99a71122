package main

import (
	"context"
	"fmt"
	"time"

	"civic-api/pkg/metric"

	"github.com/spf13/cobra"
	"github.com/voxtechnica/tuid-go"
)

// initMetricCmd initializes the metric commands.
func initMetricCmd(root *cobra.Command) {
	metricCmd := &cobra.Command{
		Use:   "metric",
		Short: "Review ingestion metrics",
	}
	root.AddCommand(metricCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent metrics",
		Long:  `List the most recent metrics with a title, optionally limited to a tag (an outcome or a category).`,
		RunE:  listMetrics,
	}
	listCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	listCmd.Flags().StringP("title", "t", metric.IngestLatency, "Metric title")
	listCmd.Flags().String("tag", "", "Tag (e.g. created, rejected, upload_failed, or a category)")
	listCmd.Flags().IntP("limit", "l", 25, "Maximum number of metrics")
	_ = listCmd.MarkFlagRequired("env")
	metricCmd.AddCommand(listCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recent metrics",
		Long:  `Print descriptive statistics for the metrics with a title (and optional tag) over the last few days.`,
		RunE:  metricStats,
	}
	statsCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	statsCmd.Flags().StringP("title", "t", metric.IngestLatency, "Metric title")
	statsCmd.Flags().String("tag", "", "Tag (e.g. created, rejected, upload_failed, or a category)")
	statsCmd.Flags().IntP("days", "d", 7, "Number of days to summarize")
	_ = statsCmd.MarkFlagRequired("env")
	metricCmd.AddCommand(statsCmd)
}

// listMetrics lists recent metrics, most recent first.
func listMetrics(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	ctx := context.Background()
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("error getting limit flag: %w", err)
	}
	title := cmd.Flag("title").Value.String()
	var ms []metric.Metric
	if tag := cmd.Flag("tag").Value.String(); tag != "" {
		ms, err = ops.MetricService.ReadMetricsByTitleTag(ctx, title, tag, true, limit, tuid.MaxID)
	} else {
		ms, err = ops.MetricService.ReadMetricsByTitle(ctx, title, true, limit, tuid.MaxID)
	}
	if err != nil {
		return err
	}
	for _, m := range ms {
		fmt.Println(m)
	}
	return nil
}

// metricStats prints statistics for recent metrics.
func metricStats(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	days, err := cmd.Flags().GetInt("days")
	if err != nil {
		return fmt.Errorf("error getting days flag: %w", err)
	}
	since := time.Now().AddDate(0, 0, -days)
	stat, err := ops.MetricService.ReadStat(context.Background(), cmd.Flag("title").Value.String(), cmd.Flag("tag").Value.String(), since)
	if err != nil {
		return err
	}
	return printJSON("Stat", stat)
}
