package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"Melodix/logger"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
)

// BucketStats summarizes the objects under a prefix.
type BucketStats struct {
	Bucket       string
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByExtension  map[string]int64
}

// ListObjects collects the objects under prefix along with their statistics.
func (s *MinioStore) ListObjects(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		return nil, nil, fmt.Errorf("bucket %s does not exist", s.bucket)
	}

	var objects []ObjectInfo
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if object.Err != nil {
			logger.Warn("Error while listing objects", logger.ErrorField(object.Err))
			continue
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}

	stats := Summarize(objects)
	stats.Bucket = s.bucket
	return objects, stats, nil
}

// Summarize computes the statistics of a listing.
func Summarize(objects []ObjectInfo) *BucketStats {
	stats := &BucketStats{ByExtension: make(map[string]int64)}
	for _, o := range objects {
		stats.TotalObjects++
		stats.TotalSize += o.Size
		if o.LastModified.After(stats.LastModified) {
			stats.LastModified = o.LastModified
		}
		stats.ByExtension[extensionOf(o.Key)]++
	}
	return stats
}

func extensionOf(key string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}

// PrintStats writes a human readable summary.
func PrintStats(w io.Writer, stats *BucketStats) {
	fmt.Fprintf(w, "Bucket:        %s\n", stats.Bucket)
	fmt.Fprintf(w, "Objects:       %d\n", stats.TotalObjects)
	fmt.Fprintf(w, "Total size:    %s\n", humanize.Bytes(uint64(stats.TotalSize)))
	if !stats.LastModified.IsZero() {
		fmt.Fprintf(w, "Last modified: %s (%s)\n", stats.LastModified.Format(time.RFC3339), humanize.Time(stats.LastModified))
	}

	exts := make([]string, 0, len(stats.ByExtension))
	for ext := range stats.ByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(w, "  %-8s %d\n", ext, stats.ByExtension[ext])
	}
}

// PrintList writes one line per object.
func PrintList(w io.Writer, objects []ObjectInfo) {
	for _, o := range objects {
		fmt.Fprintf(w, "%-60s %10s  %s\n", o.Key, humanize.Bytes(uint64(o.Size)), o.LastModified.Format(time.RFC3339))
	}
}

// PrintTree writes the objects under prefix as an indented directory tree.
func PrintTree(w io.Writer, prefix string, objects []ObjectInfo) {
	dirs := make(map[string]bool)
	for _, o := range objects {
		parts := strings.Split(o.Key, "/")
		for i := 1; i < len(parts); i++ {
			dirs[strings.Join(parts[:i], "/")] = true
		}
	}

	var sortedDirs []string
	for dir := range dirs {
		if strings.HasPrefix(dir, strings.TrimSuffix(prefix, "/")) {
			sortedDirs = append(sortedDirs, dir)
		}
	}
	sort.Strings(sortedDirs)

	for _, dir := range sortedDirs {
		indent := strings.Repeat("  ", strings.Count(dir, "/"))
		fmt.Fprintf(w, "%s%s/\n", indent, path.Base(dir))
		for _, o := range objects {
			rest := strings.TrimPrefix(o.Key, dir+"/")
			if strings.HasPrefix(o.Key, dir+"/") && !strings.Contains(rest, "/") {
				fmt.Fprintf(w, "%s  %s (%s)\n", indent, rest, humanize.Bytes(uint64(o.Size)))
			}
		}
	}

	for _, o := range objects {
		if !strings.Contains(o.Key, "/") {
			fmt.Fprintf(w, "%s (%s)\n", o.Key, humanize.Bytes(uint64(o.Size)))
		}
	}
}

// DeletePrefix removes every object under prefix and returns how many were
// removed.
func (s *MinioStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if strings.Trim(prefix, "/") == "" {
		return 0, fmt.Errorf("refusing to delete the whole bucket")
	}

	objects, _, err := s.ListObjects(ctx, prefix, true)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, fmt.Errorf("prefix %s is empty or does not exist", prefix)
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	for _, o := range objects {
		objectsCh <- minio.ObjectInfo{Key: o.Key}
	}
	close(objectsCh)

	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, fmt.Errorf("failed to delete %s: %w", rerr.ObjectName, rerr.Err)
		}
	}

	return len(objects), nil
}
