// Package storage maps trace and report locations to blob stores.
//
// A location is either a plain filesystem path, a file:// URL, or an object
// URL of the form s3://bucket/key or minio://bucket/key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/hupe1980/tracesim/blobstore"
	"github.com/hupe1980/tracesim/blobstore/minio"
	"github.com/hupe1980/tracesim/blobstore/s3"
)

// ErrUnsupportedScheme is returned for locations with an unknown URL scheme.
var ErrUnsupportedScheme = errors.New("unsupported storage scheme")

// Config holds backend settings for object-store locations.
type Config struct {
	S3    s3.Config
	MinIO minio.Config
}

// Location is a resolved blob: the store holding it and its name there.
type Location struct {
	Store blobstore.BlobStore
	Name  string
}

// Resolve parses loc and builds the store it refers to. The store is rooted
// at the directory (or key prefix) containing the blob.
func Resolve(ctx context.Context, loc string, cfg Config) (Location, error) {
	if loc == "" {
		return Location{}, errors.New("empty storage location")
	}

	scheme, rest, ok := strings.Cut(loc, "://")
	if !ok {
		return local(loc), nil
	}

	switch scheme {
	case "file":
		u, err := url.Parse(loc)
		if err != nil {
			return Location{}, fmt.Errorf("invalid location %q: %w", loc, err)
		}
		return local(filepath.FromSlash(u.Path)), nil
	case "s3", "minio":
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return Location{}, fmt.Errorf("invalid location %q: want %s://bucket/key", loc, scheme)
		}
		prefix, name := path.Split(key)
		prefix = strings.TrimSuffix(prefix, "/")

		if scheme == "s3" {
			store, err := s3.New(ctx, bucket, prefix, cfg.S3)
			if err != nil {
				return Location{}, err
			}
			return Location{Store: store, Name: name}, nil
		}

		store, err := minio.New(bucket, prefix, cfg.MinIO)
		if err != nil {
			return Location{}, fmt.Errorf("failed to create MinIO client: %w", err)
		}
		return Location{Store: store, Name: name}, nil
	default:
		return Location{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

func local(p string) Location {
	dir, name := filepath.Split(filepath.Clean(p))
	if dir == "" {
		dir = "."
	}
	return Location{Store: blobstore.NewLocalStore(dir), Name: name}
}
