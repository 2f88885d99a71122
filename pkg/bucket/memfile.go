package bucket

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// MemFile contains information for a file stored in a MemBucket.
type MemFile struct {
	FileName      string    `json:"fileName"`
	ContentType   string    `json:"contentType,omitempty"`
	ContentLength int64     `json:"contentLength,omitempty"`
	ETag          string    `json:"etag,omitempty"`
	LastModified  time.Time `json:"lastModified,omitempty"`
	Blob          []byte    `json:"-"`
}

// FileInfo converts a MemFile to a FileInfo.
func (mf MemFile) FileInfo(bucketName string) FileInfo {
	return FileInfo{
		BucketName:    bucketName,
		FileName:      mf.FileName,
		ContentType:   mf.ContentType,
		ContentLength: mf.ContentLength,
		ETag:          mf.ETag,
		LastModified:  mf.LastModified,
	}
}

// MemFileSet is a concurrency-safe, in-memory set of MemFiles keyed by file name.
// The zero value is ready to use.
type MemFileSet struct {
	mu    sync.RWMutex
	files map[string]MemFile
}

// AddFile adds (or replaces) a file in the set.
func (mfs *MemFileSet) AddFile(mf MemFile) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	if mfs.files == nil {
		mfs.files = make(map[string]MemFile)
	}
	mfs.files[mf.FileName] = mf
}

// FileExists returns true if the file exists in the set.
func (mfs *MemFileSet) FileExists(fileName string) bool {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	_, ok := mfs.files[fileName]
	return ok
}

// GetFile returns a file from the set.
func (mfs *MemFileSet) GetFile(fileName string) (MemFile, bool) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	mf, ok := mfs.files[fileName]
	return mf, ok
}

// DeleteFile deletes a file from the set.
func (mfs *MemFileSet) DeleteFile(fileName string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	delete(mfs.files, fileName)
}

// Len returns the number of files in the set.
func (mfs *MemFileSet) Len() int {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return len(mfs.files)
}

// ListFiles returns the files whose names start with prefix, sorted by FileName.
func (mfs *MemFileSet) ListFiles(prefix string) []MemFile {
	mfs.mu.RLock()
	var files []MemFile
	for name, mf := range mfs.files {
		if strings.HasPrefix(name, prefix) {
			files = append(files, mf)
		}
	}
	mfs.mu.RUnlock()
	sort.Slice(files, func(i, j int) bool {
		return files[i].FileName < files[j].FileName
	})
	return files
}
