package main

import (
	"context"
	"fmt"
	"strings"

	"civic-api/pkg/fingerprint"
	"civic-api/pkg/photo"

	"github.com/spf13/cobra"
)

// initFingerprintCmd initializes the photo fingerprint commands.
func initFingerprintCmd(root *cobra.Command) {
	fingerprintCmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Fingerprint photos and search for similar ones",
	}
	root.AddCommand(fingerprintCmd)

	hashCmd := &cobra.Command{
		Use:   "hash <path/filename|URL> [...]",
		Short: "Print photo hashes",
		Long:  `Decode each photo and print its average hash, difference hash, and content digest. No environment is needed.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  hashPhotos,
	}
	fingerprintCmd.AddCommand(hashCmd)

	similarCmd := &cobra.Command{
		Use:   "similar <path/filename|URL>",
		Short: "Find stored photos similar to a photo",
		Long: `Run the quality gate on a photo, fingerprint it, and list the stored fingerprints
within the configured similarity threshold. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: similarPhotos,
	}
	similarCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	_ = similarCmd.MarkFlagRequired("env")
	fingerprintCmd.AddCommand(similarCmd)

	listCmd := &cobra.Command{
		Use:   "list <issueID>",
		Short: "List the fingerprints of an Issue",
		Args:  cobra.ExactArgs(1),
		RunE:  listFingerprints,
	}
	listCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	_ = listCmd.MarkFlagRequired("env")
	fingerprintCmd.AddCommand(listCmd)
}

// fetchSource reads a photo from a local file or a remote URL.
func fetchSource(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return photo.FetchSourceURI(ctx, source)
	}
	return photo.FetchSourceFile(source)
}

// hashPhotos prints the hashes of each photo.
func hashPhotos(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	fmt.Println("Source\tAverageHash\tDifferenceHash\tDigest")
	for _, source := range args {
		blob, err := fetchSource(ctx, source)
		if err != nil {
			return err
		}
		h, err := fingerprint.Generate(blob)
		if err != nil {
			return fmt.Errorf("error fingerprinting %s: %w", source, err)
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", source, h.AverageHash, h.DifferenceHash, h.ExactDigest)
	}
	return nil
}

// similarPhotos lists the stored photos similar to the specified photo.
func similarPhotos(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	ctx := context.Background()
	blob, err := fetchSource(ctx, args[0])
	if err != nil {
		return err
	}
	check, err := ops.Ingest.CheckImage(ctx, blob)
	if err != nil {
		return fmt.Errorf("error checking %s: %w", args[0], err)
	}
	return printJSON("ImageCheck", check)
}

// listFingerprints lists the fingerprints stored for an Issue.
func listFingerprints(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	prints, err := ops.FingerprintService.ReadByReport(context.Background(), args[0])
	if err != nil {
		return err
	}
	for _, f := range prints {
		fmt.Printf("%s\t%s\t%s\n", f.ID, f.StorageRef.FileName, f.ExactDigest)
	}
	return nil
}
