package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSOptions configures a GCSStore. When Bucket is empty the Firebase default
// buckets for ProjectID are tried in order.
type GCSOptions struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// GCSStore reads and writes artifacts in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewGCSStore connects with the credentials file if given, otherwise with
// application default credentials.
func NewGCSStore(ctx context.Context, opts GCSOptions) (*GCSStore, error) {
	candidates := bucketCandidates(opts.Bucket, opts.ProjectID)
	if len(candidates) == 0 {
		return nil, errors.New("gcs: bucket or project id is required")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}

	// An explicit bucket is used without probing.
	if opts.Bucket != "" {
		return &GCSStore{client: client, bucket: client.Bucket(opts.Bucket), name: opts.Bucket}, nil
	}
	for _, name := range candidates {
		b := client.Bucket(name)
		_, err := b.Attrs(ctx)
		if errors.Is(err, storage.ErrBucketNotExist) {
			continue
		}
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("gcs: bucket %s: %w", name, err)
		}
		return &GCSStore{client: client, bucket: b, name: name}, nil
	}
	client.Close()
	return nil, fmt.Errorf("gcs: %w: none of %v exist", ErrNotFound, candidates)
}

// bucketCandidates lists the bucket names to try, most specific first.
func bucketCandidates(bucket, projectID string) []string {
	if bucket != "" {
		return []string{bucket}
	}
	if projectID == "" {
		return nil
	}
	return []string{
		projectID + ".appspot.com",
		projectID + ".firebasestorage.app",
	}
}

// Bucket returns the resolved bucket name.
func (s *GCSStore) Bucket() string {
	return s.name
}

// List returns every object whose name starts with prefix.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var entries []Entry
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %s: %w", prefix, err)
		}
		entries = append(entries, Entry{Name: attrs.Name, Size: attrs.Size})
	}
	return entries, nil
}

// Download streams the named object to w.
func (s *GCSStore) Download(ctx context.Context, name string, w io.Writer) error {
	r, err := s.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: gs://%s/%s", ErrNotFound, s.name, name)
	}
	if err != nil {
		return fmt.Errorf("gcs: open %s: %w", name, err)
	}
	defer r.Close()
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("gcs: read %s: %w", name, err)
	}
	return nil
}

// Upload writes r to the named object.
func (s *GCSStore) Upload(ctx context.Context, name string, r io.Reader) error {
	w := s.bucket.Object(name).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("gcs: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: finalize %s: %w", name, err)
	}
	return nil
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
