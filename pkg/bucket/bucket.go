package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ErrBucketNotConfigured is returned when the bucket is not configured.
var ErrBucketNotConfigured = errors.New("bucket not configured")

// ErrFileNotFound is returned when the file is not found.
var ErrFileNotFound = errors.New("file not found")

// ErrTooManyFiles is returned when there are too many files in the request.
var ErrTooManyFiles = errors.New("too many files")

// BucketWriter is the interface for making changes to the contents of an S3 bucket.
type BucketWriter interface {
	UploadFile(ctx context.Context, info FileInfo, file io.Reader) (FileInfo, error)
	DeleteFile(ctx context.Context, fileName string) error
	DeleteFiles(ctx context.Context, fileNames []string) error
}

// BucketReader is the interface for reading the contents of an S3 bucket.
type BucketReader interface {
	IsValid() bool
	FileURL(fileName string) string
	FileExists(ctx context.Context, fileName string) (bool, error)
	FileInfo(ctx context.Context, fileName string) (FileInfo, error)
	DownloadFile(ctx context.Context, fileName string) (FileInfo, io.ReadCloser, error)
	GetDownloadURL(ctx context.Context, fileName string, expires time.Duration) (PreSignedURL, error)
	ListFiles(ctx context.Context, prefix string) ([]FileInfo, error)
}

// BucketReadWriter is the interface for reading and writing the contents of an S3 bucket.
type BucketReadWriter interface {
	BucketReader
	BucketWriter
}

// FileInfo provides basic information about a file in a bucket.
type FileInfo struct {
	BucketName    string    `json:"bucketName"`
	FileName      string    `json:"fileName"`
	ContentType   string    `json:"contentType,omitempty"`
	ContentLength int64     `json:"contentLength,omitempty"`
	ETag          string    `json:"etag,omitempty"`
	LastModified  time.Time `json:"lastModified,omitempty"`
}

// PreSignedURL provides information for downloading a file.
type PreSignedURL struct {
	BucketName    string    `json:"bucketName"`
	FileName      string    `json:"fileName"`
	ContentType   string    `json:"contentType,omitempty"`
	ContentLength int64     `json:"contentLength,omitempty"`
	ETag          string    `json:"etag,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Method        string    `json:"method"`
	Host          string    `json:"host"`
	URL           string    `json:"url"`
}

// Bucket is a struct for interacting with S3 buckets.
type Bucket struct {
	Client     *s3.Client
	EntityType string // Entity that contains metadata about files in the bucket.
	BucketName string // Bucket name, including environment suffix.
	Region     string // AWS region, used for building object URLs (default: us-west-2).
	Public     bool   // If true, all files in the bucket are accessible by anonymous users.
}

// IsValid returns true if the bucket is configured properly.
func (b Bucket) IsValid() bool {
	return b.Client != nil && b.EntityType != "" && b.BucketName != ""
}

// BucketURL returns the base URL for the bucket, with a trailing slash.
func (b Bucket) BucketURL() string {
	if b.BucketName == "" {
		return ""
	}
	region := b.Region
	if region == "" {
		region = "us-west-2"
	}
	return "https://" + b.BucketName + ".s3." + region + ".amazonaws.com/"
}

// FileURL returns the durable object URL for the specified file.
func (b Bucket) FileURL(fileName string) string {
	if b.BucketName == "" || fileName == "" {
		return ""
	}
	return b.BucketURL() + fileName
}

// isNotFound reports whether an S3 error indicates a missing bucket or object.
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}

// BucketExists returns true if the bucket exists and the client has permission to access it.
func (b Bucket) BucketExists(ctx context.Context) (bool, error) {
	if b.Client == nil || b.BucketName == "" {
		return false, ErrBucketNotConfigured
	}
	output, err := b.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: &b.BucketName,
	})
	if err != nil {
		// Not Found is an expected error.
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("bucket %s exists: %w", b.BucketName, err)
	}
	return output != nil, nil
}

// CreateBucket creates the bucket if it does not already exist.
func (b Bucket) CreateBucket(ctx context.Context) error {
	startTime := time.Now()
	if b.Client == nil || b.BucketName == "" {
		return ErrBucketNotConfigured
	}
	exists, err := b.BucketExists(ctx)
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", b.BucketName, err)
	}
	if exists {
		log.Println("bucket", b.BucketName, "EXISTS", time.Since(startTime))
		return nil
	}
	req := s3.CreateBucketInput{
		Bucket: &b.BucketName,
		CreateBucketConfiguration: &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraintUsWest2,
		},
	}
	if b.Region != "" {
		req.CreateBucketConfiguration.LocationConstraint = types.BucketLocationConstraint(b.Region)
	}
	if b.Public {
		req.ACL = types.BucketCannedACLPublicRead
	} else {
		req.ACL = types.BucketCannedACLPrivate
	}
	_, err = b.Client.CreateBucket(ctx, &req)
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", b.BucketName, err)
	}
	// Wait for the bucket to be available
	waiter := s3.NewBucketExistsWaiter(b.Client, func(options *s3.BucketExistsWaiterOptions) {
		options.MinDelay = 3 * time.Second
		options.MaxDelay = 120 * time.Second
	})
	err = waiter.Wait(ctx, &s3.HeadBucketInput{Bucket: &b.BucketName}, 120*time.Second)
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", b.BucketName, err)
	}
	if b.Public {
		if _, err = b.SetPublicAccessPolicy(ctx); err != nil {
			return fmt.Errorf("create bucket %s: %w", b.BucketName, err)
		}
	}
	log.Println("bucket", b.BucketName, "CREATED", time.Since(startTime))
	return nil
}

// EmptyBucket deletes all files in the bucket. It does not delete the bucket itself.
// Caution: This is a destructive operation. Use with care.
func (b Bucket) EmptyBucket(ctx context.Context) error {
	startTime := time.Now()
	if b.Client == nil || b.BucketName == "" {
		return ErrBucketNotConfigured
	}
	files, err := b.ListFiles(ctx, "")
	if err != nil {
		return fmt.Errorf("empty bucket %s: %w", b.BucketName, err)
	}
	if len(files) == 0 {
		return nil
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.FileName
	}
	// S3 accepts a maximum of 1000 keys per DeleteObjects request
	for start := 0; start < len(names); start += 1000 {
		end := start + 1000
		if end > len(names) {
			end = len(names)
		}
		if err = b.DeleteFiles(ctx, names[start:end]); err != nil {
			return fmt.Errorf("empty bucket %s: %w", b.BucketName, err)
		}
	}
	log.Println("bucket", b.BucketName, "EMPTIED", time.Since(startTime), len(files), "file(s)")
	return nil
}

// DeleteBucket deletes the bucket if it exists.
// Note that the bucket must be empty before it can be deleted.
func (b Bucket) DeleteBucket(ctx context.Context) error {
	startTime := time.Now()
	if b.Client == nil || b.BucketName == "" {
		return ErrBucketNotConfigured
	}
	exists, err := b.BucketExists(ctx)
	if err != nil {
		return fmt.Errorf("delete bucket %s: %w", b.BucketName, err)
	}
	if !exists {
		log.Println("bucket", b.BucketName, "NOT FOUND", time.Since(startTime))
		return nil
	}
	_, err = b.Client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: &b.BucketName,
	})
	if err != nil {
		return fmt.Errorf("delete bucket %s: %w", b.BucketName, err)
	}
	waiter := s3.NewBucketNotExistsWaiter(b.Client, func(options *s3.BucketNotExistsWaiterOptions) {
		options.MinDelay = 3 * time.Second
		options.MaxDelay = 120 * time.Second
	})
	err = waiter.Wait(ctx, &s3.HeadBucketInput{Bucket: &b.BucketName}, 120*time.Second)
	if err != nil {
		return fmt.Errorf("delete bucket %s: %w", b.BucketName, err)
	}
	log.Println("bucket", b.BucketName, "DELETED", time.Since(startTime))
	return nil
}

// SetPublicAccessPolicy sets the bucket policy to public read access, so that
// photo URLs can be embedded in issue pages.
func (b Bucket) SetPublicAccessPolicy(ctx context.Context) (string, error) {
	if b.Client == nil || b.BucketName == "" {
		return "", ErrBucketNotConfigured
	}
	policy :=
		`{
			"Version": "2012-10-17",
			"Statement": [
				{
					"Sid": "` + b.BucketName + `-public-read",
					"Effect": "Allow",
					"Principal": "*",
					"Action": "s3:GetObject",
					"Resource": "arn:aws:s3:::` + b.BucketName + `/*"
				}
			]
		}`
	_, err := b.Client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: &b.BucketName,
		Policy: aws.String(policy),
	})
	if err != nil {
		return "", fmt.Errorf("set bucket %s policy: %w", b.BucketName, err)
	}
	return policy, nil
}

// FileExists returns true if the file exists in the bucket.
func (b Bucket) FileExists(ctx context.Context, fileName string) (bool, error) {
	if b.Client == nil || b.BucketName == "" {
		return false, ErrBucketNotConfigured
	}
	output, err := b.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &b.BucketName,
		Key:    &fileName,
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("file %s exists: %w", fileName, err)
	}
	return output != nil, nil
}

// FileInfo returns information about the file in the bucket.
func (b Bucket) FileInfo(ctx context.Context, fileName string) (FileInfo, error) {
	info := FileInfo{
		BucketName: b.BucketName,
		FileName:   fileName,
	}
	if b.Client == nil || b.BucketName == "" {
		return info, ErrBucketNotConfigured
	}
	output, err := b.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &b.BucketName,
		Key:    &fileName,
	})
	if err != nil {
		if isNotFound(err) {
			return info, ErrFileNotFound
		}
		return info, fmt.Errorf("file %s info in %s: %w", fileName, b.BucketName, err)
	}
	info.ETag = strings.Trim(aws.ToString(output.ETag), "\"")
	info.ContentType = aws.ToString(output.ContentType)
	info.ContentLength = output.ContentLength
	info.LastModified = aws.ToTime(output.LastModified)
	return info, nil
}

// UploadFile uploads a file to the bucket.
func (b Bucket) UploadFile(ctx context.Context, info FileInfo, file io.Reader) (FileInfo, error) {
	if b.Client == nil || b.BucketName == "" {
		return info, ErrBucketNotConfigured
	}
	info.BucketName = b.BucketName
	req := s3.PutObjectInput{
		Bucket: &b.BucketName,
		Key:    &info.FileName,
		Body:   file,
	}
	if info.ContentType != "" {
		req.ContentType = &info.ContentType
	}
	if info.ContentLength != 0 {
		req.ContentLength = info.ContentLength
	}
	res, err := b.Client.PutObject(ctx, &req)
	if err != nil {
		return info, fmt.Errorf("upload %s to %s: %w", info.FileName, b.BucketName, err)
	}
	info.ETag = strings.Trim(aws.ToString(res.ETag), "\"")
	info.LastModified = time.Now()
	return info, nil
}

// DownloadFile downloads a file from the bucket. The caller must close the returned reader.
func (b Bucket) DownloadFile(ctx context.Context, fileName string) (FileInfo, io.ReadCloser, error) {
	info := FileInfo{
		BucketName: b.BucketName,
		FileName:   fileName,
	}
	if b.Client == nil || b.BucketName == "" {
		return info, nil, ErrBucketNotConfigured
	}
	res, err := b.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.BucketName,
		Key:    &fileName,
	})
	if err != nil {
		if isNotFound(err) {
			return info, nil, ErrFileNotFound
		}
		return info, nil, fmt.Errorf("download %s from %s: %w", fileName, b.BucketName, err)
	}
	info.ContentLength = res.ContentLength
	info.ETag = strings.Trim(aws.ToString(res.ETag), "\"")
	info.ContentType = aws.ToString(res.ContentType)
	info.LastModified = aws.ToTime(res.LastModified)
	return info, res.Body, nil
}

// GetDownloadURL returns a pre-signed URL for downloading a file from the bucket.
// The maximum duration before expiration is 6 hours for an IAM instance profile.
func (b Bucket) GetDownloadURL(ctx context.Context, fileName string, expires time.Duration) (PreSignedURL, error) {
	psu := PreSignedURL{
		BucketName: b.BucketName,
		FileName:   fileName,
		ExpiresAt:  time.Now().Add(expires),
	}
	info, err := b.FileInfo(ctx, fileName)
	if err != nil {
		return psu, err
	}
	psu.ContentType = info.ContentType
	psu.ContentLength = info.ContentLength
	psu.ETag = info.ETag
	psClient := s3.NewPresignClient(b.Client)
	params := &s3.GetObjectInput{
		Bucket: &b.BucketName,
		Key:    &fileName,
	}
	url, err := psClient.PresignGetObject(ctx, params, func(po *s3.PresignOptions) { po.Expires = expires })
	if err != nil {
		return psu, fmt.Errorf("download url for %s in %s: %w", fileName, b.BucketName, err)
	}
	psu.Method = url.Method
	psu.Host = url.SignedHeader.Get("Host")
	psu.URL = url.URL
	return psu, nil
}

// DeleteFile deletes a file from the bucket. No error occurs if the file does not exist.
func (b Bucket) DeleteFile(ctx context.Context, fileName string) error {
	if b.Client == nil || b.BucketName == "" {
		return ErrBucketNotConfigured
	}
	_, err := b.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &b.BucketName,
		Key:    &fileName,
	})
	if err != nil {
		return fmt.Errorf("delete file %s from %s: %w", fileName, b.BucketName, err)
	}
	return nil
}

// DeleteFiles deletes multiple (maximum 1000) files from the bucket.
func (b Bucket) DeleteFiles(ctx context.Context, fileNames []string) error {
	if b.Client == nil || b.BucketName == "" {
		return ErrBucketNotConfigured
	}
	if len(fileNames) > 1000 {
		return ErrTooManyFiles
	}
	objects := make([]types.ObjectIdentifier, len(fileNames))
	for i, fileName := range fileNames {
		objects[i] = types.ObjectIdentifier{Key: aws.String(fileName)}
	}
	res, err := b.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: &b.BucketName,
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   true,
		},
	})
	if err != nil {
		return fmt.Errorf("delete files from %s: %w", b.BucketName, err)
	}
	if len(res.Errors) > 0 {
		var errs []string
		for _, e := range res.Errors {
			errs = append(errs, errorString(e))
		}
		return fmt.Errorf("delete files from %s:\n%s", b.BucketName, strings.Join(errs, "\n"))
	}
	return nil
}

// errorString provides a string representation of an S3 Error.
func errorString(err types.Error) string {
	var msg string
	if err.Code != nil {
		msg += *err.Code + ": "
	}
	if err.Key != nil {
		msg += *err.Key + ": "
	}
	if err.Message != nil {
		msg += *err.Message
	}
	return msg
}

// ListFiles returns the files in the bucket whose names start with the prefix.
// An empty prefix lists the whole bucket, which may be a large list!
func (b Bucket) ListFiles(ctx context.Context, prefix string) ([]FileInfo, error) {
	if b.Client == nil || b.BucketName == "" {
		return nil, ErrBucketNotConfigured
	}
	input := &s3.ListObjectsV2Input{Bucket: &b.BucketName}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	var files []FileInfo
	p := s3.NewListObjectsV2Paginator(b.Client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return files, fmt.Errorf("list files in %s: %w", b.BucketName, err)
		}
		for _, f := range page.Contents {
			files = append(files, FileInfo{
				BucketName:    b.BucketName,
				FileName:      aws.ToString(f.Key),
				ContentLength: f.Size,
				ETag:          strings.Trim(aws.ToString(f.ETag), "\""),
				LastModified:  aws.ToTime(f.LastModified),
			})
		}
	}
	return files, nil
}
