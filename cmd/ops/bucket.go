package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"civic-api/pkg/bucket"
	"civic-api/pkg/photo"

	"github.com/spf13/cobra"
)

// initBucketCmd initializes the bucket commands.
func initBucketCmd(root *cobra.Command) {
	bucketCmd := &cobra.Command{
		Use:   "bucket",
		Short: "Manage S3 buckets",
	}
	root.AddCommand(bucketCmd)

	checkCmd := &cobra.Command{
		Use:   "check [entityType...]",
		Short: "Ensure that S3 bucket(s) exist",
		Long: `Check each specified S3 bucket, creating them if they do not exist.
If no entity types are specified, all buckets in the specified environment will be checked.`,
		RunE: checkBuckets,
	}
	checkCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	_ = checkCmd.MarkFlagRequired("env")
	bucketCmd.AddCommand(checkCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored photos",
		Long:  `List the photos stored in the Photo bucket, optionally limited to a folder.`,
		RunE:  listPhotos,
	}
	listCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging | prod")
	listCmd.Flags().StringP("folder", "f", "", "Folder (key prefix), defaulting to the configured photo folder")
	_ = listCmd.MarkFlagRequired("env")
	bucketCmd.AddCommand(listCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete [entityType...]",
		Short: "Delete S3 bucket(s)",
		Long: `Delete each specified S3 bucket in a non-production environment.
If no entity types are specified, all buckets in the specified environment will be deleted.
Note that the buckets will be emptied before they are deleted.`,
		RunE: deleteBuckets,
	}
	deleteCmd.Flags().StringP("env", "e", "", "Operating environment: dev | test | staging")
	_ = deleteCmd.MarkFlagRequired("env")
	bucketCmd.AddCommand(deleteCmd)
}

// bucketsFor returns the buckets for the specified entity types, or all of them.
func bucketsFor(args []string) map[string]bucket.Bucket {
	names := args
	if len(names) == 0 {
		names = ops.BucketTypes
	}
	buckets := make(map[string]bucket.Bucket, len(names))
	for _, entity := range names {
		switch entity {
		case "Photo":
			buckets[entity] = photo.NewBucket(ops.S3Client, ops.Environment)
		default:
			fmt.Println("Skipping unknown entity type:", entity)
		}
	}
	return buckets
}

// checkBuckets checks each bucket in the specified environment.
func checkBuckets(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	ctx := context.Background()
	buckets := bucketsFor(args)
	fmt.Printf("Checking %d Bucket(s) in %s: %s\n", len(buckets), ops.Environment, strings.Join(bucketNames(buckets), ", "))
	for _, b := range buckets {
		checkBucket(ctx, b)
	}
	return nil
}

// checkBucket creates a S3 bucket if it does not already exist.
func checkBucket(ctx context.Context, b bucket.Bucket) {
	if !b.IsValid() {
		log.Println("bucket", b.BucketName, "INVALID bucket definition - skipping")
		return
	}
	exists, err := b.BucketExists(ctx)
	if err != nil {
		log.Println("bucket", b.BucketName, "ERROR checking bucket:", err)
		return
	}
	if exists {
		log.Println("bucket", b.BucketName, "EXISTS")
	} else {
		if err := b.CreateBucket(ctx); err != nil {
			log.Println("bucket", b.BucketName, "ERROR creating bucket:", err)
		}
	}
}

// listPhotos lists the stored photos in a folder.
func listPhotos(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	ctx := context.Background()
	folder := cmd.Flag("folder").Value.String()
	if folder == "" {
		folder = ops.IngestConfig.PhotoFolder
	}
	files, err := ops.PhotoService.ListFolder(ctx, folder)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Printf("%s\t%d\t%s\n", f.FileName, f.ContentLength, f.LastModified.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// deleteBuckets deletes each bucket in the specified environment.
func deleteBuckets(cmd *cobra.Command, args []string) error {
	if err := initOps(cmd); err != nil {
		return err
	}
	ctx := context.Background()

	// Not for use in production!
	if ops.Environment == "prod" {
		return errors.New("delete buckets in production? Really? Use the AWS console instead")
	}

	buckets := bucketsFor(args)
	fmt.Printf("Deleting %d Bucket(s) in %s: %s\n", len(buckets), ops.Environment, strings.Join(bucketNames(buckets), ", "))
	for _, b := range buckets {
		deleteBucket(ctx, b)
	}
	return nil
}

// deleteBucket empties and deletes an S3 bucket.
func deleteBucket(ctx context.Context, b bucket.Bucket) {
	exists, err := b.BucketExists(ctx)
	if err != nil {
		log.Println("bucket", b.BucketName, "ERROR checking bucket:", err)
		return
	}
	if !exists {
		log.Println("bucket", b.BucketName, "MISSING - skipping")
		return
	}
	if err := b.EmptyBucket(ctx); err != nil {
		log.Println("bucket", b.BucketName, "ERROR emptying bucket:", err)
		return
	}
	if err := b.DeleteBucket(ctx); err != nil {
		log.Println("bucket", b.BucketName, "ERROR deleting bucket:", err)
	}
}

// bucketNames returns the sorted S3 bucket names.
func bucketNames(buckets map[string]bucket.Bucket) []string {
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.BucketName)
	}
	sort.Strings(names)
	return names
}
