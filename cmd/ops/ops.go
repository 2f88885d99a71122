package main

import (
	"encoding/json"
	"fmt"
	"os"

	"civic-api/pkg/app"

	"github.com/spf13/cobra"
)

// gitHash returns the git hash of the compiled application.
// It is embedded in the binary and is automatically updated by the build process.
// go build -ldflags "-X main.gitHash=`git rev-parse HEAD`"
var gitHash string

// ops is the application object, containing global configuration settings and initialized services.
var ops = app.Application{
	Name:       "Civic CLI",
	BaseDomain: "civic.example.org",
	Description: "Civic API accepts citizen reports of civic issues with photo evidence, flagging likely duplicates.\n\t" +
		"Ops provides commands for operational tasks, such as initializing tables and buckets or checking photos.",
	GitHash: gitHash,
}

// main is the entry point for the application.
func main() {
	// Root Command
	rootCmd := &cobra.Command{
		Use:     "ops",
		Short:   "ops is a command line tool for managing the Civic API",
		Long:    ops.Description,
		Version: ops.GitHash,
	}

	// About Command
	aboutCmd := &cobra.Command{
		Use:   "about",
		Short: "Print application information",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ops.InitMock("")
			if err != nil {
				return err
			}
			fmt.Println(ops.About())
			return nil
		},
	}
	rootCmd.AddCommand(aboutCmd)

	// Initialize the application commands:
	initBucketCmd(rootCmd)
	initConfigCmd(rootCmd)
	initFingerprintCmd(rootCmd)
	initIssueCmd(rootCmd)
	initMetricCmd(rootCmd)
	initTableCmd(rootCmd)

	// Execute the specified command:
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// initOps initializes the application for the environment named by the --env flag.
func initOps(cmd *cobra.Command) error {
	if err := ops.Init(cmd.Flag("env").Value.String()); err != nil {
		return fmt.Errorf("error initializing application: %w", err)
	}
	return nil
}

// printJSON prints an indented JSON rendition of the value.
func printJSON(label string, value any) error {
	j, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling JSON %s: %w", label, err)
	}
	fmt.Println(string(j))
	return nil
}
