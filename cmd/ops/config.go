package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"civic-api/pkg/app"
	"civic-api/pkg/client"

	"github.com/spf13/cobra"
)

// initConfigCmd initializes the ingest configuration commands.
func initConfigCmd(root *cobra.Command) {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ingest pipeline settings",
	}
	root.AddCommand(configCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved ingest settings",
		Long: `Print the ingest settings resolved from defaults, the environment (including .env),
and the SSM Parameter Store, followed by the setting names for each source.`,
		RunE: showConfig,
	}
	showCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	_ = showCmd.MarkFlagRequired("env")
	configCmd.AddCommand(showCmd)

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store an ingest setting in the SSM Parameter Store",
		Args:  cobra.ExactArgs(2),
		RunE:  setConfig,
	}
	setCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	_ = setCmd.MarkFlagRequired("env")
	configCmd.AddCommand(setCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove an ingest setting from the SSM Parameter Store",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteConfig,
	}
	deleteCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	_ = deleteCmd.MarkFlagRequired("env")
	configCmd.AddCommand(deleteCmd)
}

// showConfig prints the resolved settings and where each can be set.
func showConfig(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	if err := printJSON("IngestConfig", ops.IngestConfig); err != nil {
		return err
	}
	fmt.Println("Key\tEnvironment\tParameter")
	for _, key := range app.SettingKeys() {
		fmt.Printf("%s\t%s\t%s/%s\n", key, app.SettingEnvName(key), app.ParameterPath(ops.Environment), key)
	}
	return nil
}

// settingParameter returns the SSM parameter for a known setting key.
func settingParameter(key string) (client.Parameter, error) {
	if !slices.Contains(app.SettingKeys(), key) {
		return client.Parameter{}, fmt.Errorf("unknown setting %s; expected one of %v", key, app.SettingKeys())
	}
	return client.Parameter{Name: app.ParameterPath(ops.Environment) + "/" + key}, nil
}

// setConfig stores a setting, then verifies that the configuration still resolves.
func setConfig(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	ctx := context.Background()
	p, err := settingParameter(args[0])
	if err != nil {
		return err
	}
	p.Value = args[1]
	if err = ops.ParameterStore.SetParameter(ctx, p); err != nil {
		return err
	}
	fmt.Printf("Set %s = %s\n", p.Name, p.Value)
	if _, err = app.LoadIngestConfig(ctx, ops.Environment, ops.ParameterStore, os.LookupEnv); err != nil {
		return fmt.Errorf("warning: stored setting leaves the configuration unusable: %w", err)
	}
	return nil
}

// deleteConfig removes a stored setting, restoring the lower-precedence value.
func deleteConfig(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	p, err := settingParameter(args[0])
	if err != nil {
		return err
	}
	if err = ops.ParameterStore.DeleteParameter(context.Background(), p); err != nil {
		return err
	}
	fmt.Println("Deleted", p.Name)
	return nil
}
