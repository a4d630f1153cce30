package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/brandonwu32/financedashboard/internal/core"
)

// Archiver keeps a copy of an uploaded document and returns its location.
type Archiver interface {
	Archive(ctx context.Context, owner string, f File) (string, error)
}

// GCSArchiver stores uploads in a Cloud Storage bucket. It uses
// Application Default Credentials.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket, now: time.Now}, nil
}

func (a *GCSArchiver) Archive(ctx context.Context, owner string, f File) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	name := ObjectName(owner, f.Name, a.now(), uuid.NewString())
	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = f.MIMEType
	if _, err := io.Copy(w, bytes.NewReader(f.Data)); err != nil {
		_ = w.Close()
		return "", core.E(core.ErrUpstreamTransient, "archive "+name, err)
	}
	if err := w.Close(); err != nil {
		return "", core.E(core.ErrUpstreamPermanent, "finalize "+name, err)
	}
	return "gs://" + a.bucket + "/" + name, nil
}

func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// ObjectName lays archived files out as statements/<owner>/<day>/<id>-<name>.
func ObjectName(owner, filename string, at time.Time, id string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return path.Join("statements", core.NormalizeEmail(owner), at.Format("2006-01-02"), id+"-"+base)
}
