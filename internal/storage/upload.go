package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// DefaultSegmentSize is the split threshold and segment size for large
// object uploads. Swift caps single PUTs at 5 GiB; staying well below
// that keeps segment retries cheap.
const DefaultSegmentSize = 256 << 20 // 256 MiB

// defaultUploadWorkers bounds the parallel directory upload pool.
const defaultUploadWorkers = 8

// segmentsContainerSuffix names the container holding large-object
// segments, following the Swift convention of a shadow container.
const segmentsContainerSuffix = "_segments"

// UploadLarge stores a large object as individually uploaded segments
// under a unique prefix in a shadow container, then publishes a manifest
// object pointing at them (Swift dynamic large object convention).
// size is the total object size; segments of segmentSize bytes are read
// sequentially from r. segmentSize <= 0 uses DefaultSegmentSize.
func (c *Client) UploadLarge(ctx context.Context, container, name string, r io.Reader, size int64, segmentSize int64) error {
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}

	segContainer := container + segmentsContainerSuffix
	if err := c.CreateContainer(ctx, segContainer, ContainerPrivate); err != nil {
		return fmt.Errorf("preparing segments container: %w", err)
	}

	prefix := fmt.Sprintf("%s/%s", name, uuid.NewString())

	var uploaded int64

	for seg := 0; uploaded < size; seg++ {
		n := segmentSize
		if remaining := size - uploaded; remaining < n {
			n = remaining
		}

		segName := fmt.Sprintf("%s/%08d", prefix, seg)

		if err := c.Upload(ctx, segContainer, segName, io.LimitReader(r, n), ""); err != nil {
			return fmt.Errorf("uploading segment %d: %w", seg, err)
		}

		uploaded += n

		c.logger.Debug("segment uploaded",
			slog.String("segment", segName),
			slog.Int64("uploaded", uploaded),
			slog.Int64("total", size),
		)
	}

	// Zero-byte manifest with X-Object-Manifest ties the segments together.
	headers := http.Header{}
	headers.Set("X-Object-Manifest", segContainer+"/"+prefix)
	headers.Set("Content-Length", "0")

	resp, err := c.DoWithHeaders(ctx, http.MethodPut, "/"+container+"/"+name, nil, nil, headers)
	if err != nil {
		return err
	}

	if err := Error(resp); err != nil {
		return fmt.Errorf("publishing manifest for %s/%s: %w", container, name, err)
	}

	drainBody(resp)

	c.logger.Info("large object uploaded",
		slog.String("object", container+"/"+name),
		slog.Int64("size", size),
		slog.String("segment_prefix", segContainer+"/"+prefix),
	)

	return nil
}

// UploadDirOptions configures a directory upload.
type UploadDirOptions struct {
	// Prefix is prepended to every object name.
	Prefix string
	// Workers bounds the parallel upload pool; <= 0 means the default.
	Workers int
	// SegmentThreshold routes files larger than this through UploadLarge;
	// <= 0 means DefaultSegmentSize.
	SegmentThreshold int64
}

// UploadDir walks a local directory tree and uploads every regular file
// into the container through a bounded parallel pool. Object names are the
// slash-separated paths relative to dir, NFC-normalized so visually
// identical local names map to one remote object. The first failure
// cancels remaining workers.
func (c *Client) UploadDir(ctx context.Context, container, dir string, opts UploadDirOptions) (int, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultUploadWorkers
	}

	threshold := opts.SegmentThreshold
	if threshold <= 0 {
		threshold = DefaultSegmentSize
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var count int

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}

		objectName := opts.Prefix + norm.NFC.String(filepath.ToSlash(rel))
		count++

		g.Go(func() error {
			return c.uploadFile(gctx, container, objectName, path, threshold)
		})

		return nil
	})

	if walkErr != nil {
		// Let in-flight uploads finish before reporting the walk failure.
		_ = g.Wait()

		return 0, fmt.Errorf("walking %q: %w", dir, walkErr)
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	c.logger.Info("directory uploaded",
		slog.String("container", container),
		slog.String("dir", dir),
		slog.Int("objects", count),
	)

	return count, nil
}

// uploadFile uploads one local file, routing large files through the
// segmented path.
func (c *Client) uploadFile(ctx context.Context, container, objectName, path string, threshold int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stating %q: %w", path, err)
	}

	if fi.Size() > threshold {
		return c.UploadLarge(ctx, container, objectName, f, fi.Size(), threshold)
	}

	return c.Upload(ctx, container, objectName, f, "")
}

// NormalizeObjectName applies the same NFC normalization UploadDir uses,
// for callers constructing object names from user input.
func NormalizeObjectName(name string) string {
	return norm.NFC.String(strings.TrimPrefix(name, "/"))
}
