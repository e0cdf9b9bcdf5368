package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSSink writes artifacts to a Cloud Storage bucket. Objects are created
// with a does-not-exist precondition so an earlier report is never replaced.
type GCSSink struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCSSink returns a sink writing to gs://bucket/prefix<name>.
func NewGCSSink(client *storage.Client, bucket, prefix string) *GCSSink {
	return &GCSSink{bucket: client.Bucket(bucket), name: bucket, prefix: prefix}
}

func (s *GCSSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	objectName := s.prefix + name
	w := s.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "text/csv; charset=utf-8"
	w.ContentDisposition = fmt.Sprintf(`attachment; filename="%s"`, name)

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", wrapGCSError(objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", wrapGCSError(objectName, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.name, objectName), nil
}

func wrapGCSError(object string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%s: %w", object, ErrExists)
	}
	return fmt.Errorf("write gcs object %s: %w", object, err)
}
