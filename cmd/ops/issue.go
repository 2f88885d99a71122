package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"civic-api/pkg/ingest"
	"civic-api/pkg/report"

	"github.com/spf13/cobra"
	"github.com/voxtechnica/tuid-go"
)

// initIssueCmd initializes the issue commands.
func initIssueCmd(root *cobra.Command) {
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Manage civic issues",
	}
	root.AddCommand(issueCmd)

	createCmd := &cobra.Command{
		Use:   "create [path/filename|URL...]",
		Short: "Submit an issue",
		Long: `Submit an issue with optional photos through the ingestion pipeline.
A likely duplicate of a recent issue in the same category is reported instead of created.`,
		RunE: createIssue,
	}
	createCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	createCmd.Flags().StringP("title", "t", "", "Issue title")
	createCmd.Flags().StringP("description", "d", "", "Issue description")
	createCmd.Flags().StringP("category", "c", "", "Issue category (e.g. pothole)")
	createCmd.Flags().Float64("lat", 0, "Latitude")
	createCmd.Flags().Float64("lng", 0, "Longitude")
	createCmd.Flags().StringP("address", "a", "", "Street address")
	_ = createCmd.MarkFlagRequired("env")
	_ = createCmd.MarkFlagRequired("title")
	_ = createCmd.MarkFlagRequired("category")
	issueCmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		Long:  `List the most recent issues, optionally in a single category.`,
		RunE:  listIssues,
	}
	listCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	listCmd.Flags().StringP("category", "c", "", "Issue category")
	listCmd.Flags().IntP("limit", "l", 25, "Maximum number of issues")
	_ = listCmd.MarkFlagRequired("env")
	issueCmd.AddCommand(listCmd)

	readCmd := &cobra.Command{
		Use:   "read <issueID>",
		Short: "Read specified issue",
		Args:  cobra.ExactArgs(1),
		RunE:  readIssue,
	}
	readCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	readCmd.Flags().Bool("links", false, "Print time-limited photo download links")
	_ = readCmd.MarkFlagRequired("env")
	issueCmd.AddCommand(readCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <issueID>",
		Short: "Delete specified issue",
		Long:  `Delete an issue together with its fingerprints and stored photos.`,
		Args:  cobra.ExactArgs(1),
		RunE:  deleteIssue,
	}
	deleteCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	_ = deleteCmd.MarkFlagRequired("env")
	issueCmd.AddCommand(deleteCmd)
}

// createIssue submits an issue with photos read from local files or URLs.
func createIssue(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	defer ops.Wait()
	ctx := context.Background()

	lat, err := cmd.Flags().GetFloat64("lat")
	if err != nil {
		return fmt.Errorf("error getting lat flag: %w", err)
	}
	lng, err := cmd.Flags().GetFloat64("lng")
	if err != nil {
		return fmt.Errorf("error getting lng flag: %w", err)
	}
	req := ingest.Request{
		Issue: report.Issue{
			Title:       cmd.Flag("title").Value.String(),
			Description: cmd.Flag("description").Value.String(),
			Category:    cmd.Flag("category").Value.String(),
			Location: report.Location{
				Latitude:  lat,
				Longitude: lng,
				Address:   cmd.Flag("address").Value.String(),
			},
		},
	}
	// The pipeline removes temporary files, so sources are passed as bytes.
	for _, source := range args {
		blob, err := fetchSource(ctx, source)
		if err != nil {
			return err
		}
		req.Uploads = append(req.Uploads, ingest.Upload{FileName: filepath.Base(source), Blob: blob})
	}

	result, err := ops.Ingest.Ingest(ctx, req)
	var ve *ingest.ValidationError
	var qe *ingest.QualityError
	switch {
	case errors.As(err, &ve):
		return fmt.Errorf("invalid issue: %v", ve.Problems)
	case errors.As(err, &qe):
		return fmt.Errorf("photo rejected: %v", qe.Problems)
	case err != nil:
		return err
	}
	if result.Outcome == ingest.DuplicateFound {
		fmt.Printf("Likely duplicate of Issue %s (score %.2f)\n", result.Duplicate.ReportID, result.Duplicate.Score)
	} else {
		fmt.Printf("Created Issue %s with %d photo(s)\n", result.Issue.ID, len(result.Issue.Photos))
	}
	for _, s := range result.Skipped {
		fmt.Println("Warning:", s)
	}
	return printJSON("Result", result)
}

// listIssues lists recent issues.
func listIssues(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	ctx := context.Background()
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("error getting limit flag: %w", err)
	}
	var issues []report.Issue
	if category := cmd.Flag("category").Value.String(); category != "" {
		issues, err = ops.IssueService.ReadIssuesByCategory(ctx, category, true, limit, tuid.MaxID)
		if err != nil {
			return err
		}
	} else {
		issues = ops.IssueService.ReadIssues(ctx, true, limit, tuid.MaxID)
	}
	for _, i := range issues {
		fmt.Printf("%s\t%s\t%s\t%s\n", i.ID, i.Category, i.Status, i.Title)
	}
	return nil
}

// readIssue reads the specified issue.
func readIssue(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	ctx := context.Background()
	i, err := ops.IssueService.Read(ctx, args[0])
	if err != nil {
		return err
	}
	if err = printJSON("Issue "+i.ID, i); err != nil {
		return err
	}
	if links, _ := cmd.Flags().GetBool("links"); links {
		for _, ref := range i.Photos {
			u, err := ops.PhotoService.DownloadURL(ctx, ref, time.Hour)
			if err != nil {
				return fmt.Errorf("photo %s: %w", ref.FileName, err)
			}
			fmt.Printf("%s expires %s\n%s\n", ref.FileName, u.ExpiresAt.Format(time.RFC3339), u.URL)
		}
	}
	return nil
}

// deleteIssue deletes the specified issue with its fingerprints and photos.
func deleteIssue(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	defer ops.Wait()
	i, err := ops.Ingest.Remove(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Deleted Issue %s with %d photo(s)\n", i.ID, len(i.Photos))
	return nil
}
