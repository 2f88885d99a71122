package bucket

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"time"
)

// MemBucket is an in-memory bucket implementation used for managing a collection of files.
// It implements the BucketReadWriter interface, and is intended to be used for testing purposes only.
type MemBucket struct {
	FileSet    *MemFileSet
	EntityType string
	BucketName string
	Public     bool
}

// NewMemBucket returns a new MemBucket.
func NewMemBucket(b Bucket) MemBucket {
	return MemBucket{
		FileSet:    &MemFileSet{},
		EntityType: b.EntityType,
		BucketName: b.BucketName,
		Public:     b.Public,
	}
}

// IsValid returns true if the bucket is configured properly.
func (mb MemBucket) IsValid() bool {
	return mb.FileSet != nil && mb.EntityType != "" && mb.BucketName != ""
}

// BucketExists returns true if the bucket exists.
func (mb MemBucket) BucketExists() bool {
	return mb.FileSet != nil
}

// FileURL returns a localhost URL for the file. It is not dereferenceable.
func (mb MemBucket) FileURL(fileName string) string {
	if mb.BucketName == "" || fileName == "" {
		return ""
	}
	return "http://localhost/" + mb.BucketName + "/" + fileName
}

// FileExists returns true if the file exists in the bucket.
func (mb MemBucket) FileExists(ctx context.Context, fileName string) (bool, error) {
	if mb.FileSet == nil {
		return false, ErrBucketNotConfigured
	}
	return mb.FileSet.FileExists(fileName), nil
}

// FileInfo returns information about a file in the bucket.
func (mb MemBucket) FileInfo(ctx context.Context, fileName string) (FileInfo, error) {
	if mb.FileSet == nil {
		return FileInfo{}, ErrBucketNotConfigured
	}
	mf, ok := mb.FileSet.GetFile(fileName)
	if !ok {
		return FileInfo{BucketName: mb.BucketName, FileName: fileName}, ErrFileNotFound
	}
	return mf.FileInfo(mb.BucketName), nil
}

// UploadFile uploads a file to the bucket.
func (mb MemBucket) UploadFile(ctx context.Context, info FileInfo, file io.Reader) (FileInfo, error) {
	if mb.FileSet == nil {
		return info, ErrBucketNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return info, fmt.Errorf("upload %s to %s: %w", info.FileName, mb.BucketName, err)
	}
	blob, err := io.ReadAll(file)
	if err != nil {
		return info, fmt.Errorf("upload %s to %s: %w", info.FileName, mb.BucketName, err)
	}
	mf := MemFile{
		FileName:      info.FileName,
		ContentType:   info.ContentType,
		ContentLength: int64(len(blob)),
		ETag:          fmt.Sprintf("%x", md5.Sum(blob)),
		LastModified:  time.Now(),
		Blob:          blob,
	}
	mb.FileSet.AddFile(mf)
	return mf.FileInfo(mb.BucketName), nil
}

// DownloadFile downloads a file from the bucket.
func (mb MemBucket) DownloadFile(ctx context.Context, fileName string) (FileInfo, io.ReadCloser, error) {
	if mb.FileSet == nil {
		return FileInfo{}, nil, ErrBucketNotConfigured
	}
	mf, ok := mb.FileSet.GetFile(fileName)
	if !ok {
		return FileInfo{BucketName: mb.BucketName, FileName: fileName}, nil, ErrFileNotFound
	}
	return mf.FileInfo(mb.BucketName), io.NopCloser(bytes.NewReader(mf.Blob)), nil
}

// GetDownloadURL returns a pre-signed URL for downloading a file from the bucket.
// MemBucket does not support pre-signed URLs, so this function returns a localhost URL that will not work.
func (mb MemBucket) GetDownloadURL(ctx context.Context, fileName string, expires time.Duration) (PreSignedURL, error) {
	mf, ok := mb.FileSet.GetFile(fileName)
	if !ok {
		return PreSignedURL{}, ErrFileNotFound
	}
	return PreSignedURL{
		BucketName:    mb.BucketName,
		FileName:      fileName,
		ContentType:   mf.ContentType,
		ContentLength: mf.ContentLength,
		ETag:          mf.ETag,
		ExpiresAt:     time.Now().Add(expires),
		Method:        "GET",
		Host:          "localhost",
		URL:           mb.FileURL(fileName),
	}, nil
}

// DeleteFile deletes a file from the bucket. No error occurs if the file does not exist.
func (mb MemBucket) DeleteFile(ctx context.Context, fileName string) error {
	if mb.FileSet == nil {
		return ErrBucketNotConfigured
	}
	mb.FileSet.DeleteFile(fileName)
	return nil
}

// DeleteFiles deletes the specified files from the bucket.
func (mb MemBucket) DeleteFiles(ctx context.Context, fileNames []string) error {
	if len(fileNames) > 1000 {
		return ErrTooManyFiles
	}
	for _, fileName := range fileNames {
		if err := mb.DeleteFile(ctx, fileName); err != nil {
			return err
		}
	}
	return nil
}

// ListFiles returns the files in the bucket whose names start with the prefix.
func (mb MemBucket) ListFiles(ctx context.Context, prefix string) ([]FileInfo, error) {
	if mb.FileSet == nil {
		return nil, ErrBucketNotConfigured
	}
	var files []FileInfo
	for _, mf := range mb.FileSet.ListFiles(prefix) {
		files = append(files, mf.FileInfo(mb.BucketName))
	}
	return files, nil
}
