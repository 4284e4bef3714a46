package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	minioclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/baajur/omikuji/blobstore"
	minioblob "github.com/baajur/omikuji/blobstore/minio"
	s3blob "github.com/baajur/omikuji/blobstore/s3"
)

// resolveStore maps a model location to a blob store and a blob name.
//
// Supported forms:
//
//	s3://bucket/path/to/model.bin
//	minio://host:port/bucket/path/to/model.bin
//	path/to/model.bin (local filesystem)
//
// MinIO credentials come from MINIO_ACCESS_KEY and MINIO_SECRET_KEY;
// set MINIO_SECURE=true for TLS endpoints.
func resolveStore(ctx context.Context, location string) (blobstore.Store, string, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		rest := strings.TrimPrefix(location, "s3://")
		bucket, name, ok := strings.Cut(rest, "/")
		if !ok || name == "" {
			return nil, "", fmt.Errorf("invalid s3 location %q: want s3://bucket/key", location)
		}
		store, err := s3blob.New(ctx, bucket, "")
		if err != nil {
			return nil, "", err
		}
		return store, name, nil

	case strings.HasPrefix(location, "minio://"):
		rest := strings.TrimPrefix(location, "minio://")
		endpoint, rest, ok := strings.Cut(rest, "/")
		if !ok {
			return nil, "", fmt.Errorf("invalid minio location %q: want minio://host/bucket/key", location)
		}
		bucket, name, ok := strings.Cut(rest, "/")
		if !ok || name == "" {
			return nil, "", fmt.Errorf("invalid minio location %q: want minio://host/bucket/key", location)
		}
		client, err := minioclient.New(endpoint, &minioclient.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
			Secure: os.Getenv("MINIO_SECURE") == "true",
		})
		if err != nil {
			return nil, "", err
		}
		return minioblob.NewStore(client, bucket, ""), name, nil

	default:
		dir := filepath.Dir(location)
		return blobstore.NewLocalStore(dir), filepath.Base(location), nil
	}
}

func openBlob(ctx context.Context, location string) (io.ReadCloser, error) {
	store, name, err := resolveStore(ctx, location)
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, name)
}

func putBlob(ctx context.Context, location string, write func(io.Writer) error) error {
	store, name, err := resolveStore(ctx, location)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	return store.Put(ctx, name, &buf, int64(buf.Len()))
}
