package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"civic-api/pkg/event"
	"civic-api/pkg/fingerprint"
	"civic-api/pkg/metric"
	"civic-api/pkg/report"

	"github.com/spf13/cobra"
	"github.com/voxtechnica/versionary"
)

// initTableCmd initializes the "table" command.
func initTableCmd(root *cobra.Command) {
	tableCmd := &cobra.Command{
		Use:   "table [entityType...]",
		Short: "Ensure that DynamoDB table(s) exist",
		Long: `Check each specified DynamoDB table, creating them if they do not exist.
If no entity types are specified, all tables will be checked.`,
		RunE: checkTables,
	}
	tableCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	_ = tableCmd.MarkFlagRequired("env")
	root.AddCommand(tableCmd)
}

// checkTables checks each table in the specified environment.
func checkTables(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	ctx := context.Background()

	// Check each table
	var tables []string
	if len(args) > 0 {
		// If table names were specified, only check those.
		tables = args
	} else {
		// Otherwise, check all tables.
		tables = ops.EntityTypes
	}
	fmt.Printf("Checking %d Table(s) in %s: %s\n", len(tables), ops.Environment, strings.Join(tables, ", "))
	for _, entity := range tables {
		switch entity {
		case "Event":
			checkTable(ctx, event.NewTable(ops.DBClient, ops.Environment))
		case "Fingerprint":
			checkTable(ctx, fingerprint.NewTable(ops.DBClient, ops.Environment))
		case "Issue":
			checkTable(ctx, report.NewTable(ops.DBClient, ops.Environment))
		case "Metric":
			checkTable(ctx, metric.NewTable(ops.DBClient, ops.Environment))
		default:
			fmt.Println("Skipping unknown entity type:", entity)
		}
	}
	return nil
}

// checkTable creates a DynamoDB table if it does not already exist.
// Note that Versionary already logs its activity to the console.
func checkTable[T any](ctx context.Context, table versionary.Table[T]) {
	if !table.IsValid() {
		log.Println("table", table.TableName, "INVALID table definition - skipping")
		return
	}
	if !table.TableExists(ctx) {
		if err := table.CreateTable(ctx); err != nil {
			log.Println("table", table.TableName, "ERROR creating table:", err)
		}
	}
}
