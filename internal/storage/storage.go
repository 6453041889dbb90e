package storage

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"path/filepath"
	"strings"

	"bioscan/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

// Client wraps a storage backend and the bucket uploaded scans live in.
type Client struct {
	backend StorageProvider
	bucket  string
}

func New(cfg *config.Config) *Client {
	var backend StorageProvider

	if cfg.Storage.Provider == "local" {
		backend = NewLocalProvider(cfg.Storage.LocalRoot)
	} else {
		s3Config := &aws.Config{
			Credentials:      credentials.NewStaticCredentials(cfg.Storage.KeyID, cfg.Storage.AppKey, ""),
			Endpoint:         aws.String(cfg.Storage.Endpoint),
			Region:           aws.String(cfg.Storage.Region),
			S3ForcePathStyle: aws.Bool(true),
		}
		sess := session.Must(session.NewSession(s3Config))
		backend = NewS3Provider(sess)
	}

	return &Client{
		backend: backend,
		bucket:  cfg.Storage.Bucket,
	}
}

// NewClientWithProvider wires an explicit backend, used by tests.
func NewClientWithProvider(backend StorageProvider, bucket string) *Client {
	return &Client{backend: backend, bucket: bucket}
}

func (c *Client) UploadScan(key string, body io.ReadSeeker, contentType string) error {
	return c.backend.Put(c.bucket, key, body, contentType)
}

func (c *Client) DownloadScan(key string) (*FileObject, error) {
	return c.backend.Get(c.bucket, key)
}

func (c *Client) DeleteScan(key string) error {
	return c.backend.Delete(c.bucket, key)
}

// scanExts are the image extensions preserved on generated keys; anything
// else is normalized so client input never controls the stored path.
var scanExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// NewScanKey builds a collision-free storage key for an uploaded scan. The
// client filename only contributes its extension; the rest is random, so two
// uploads with the same name never overwrite each other.
func NewScanKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !scanExts[ext] {
		ext = ".img"
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// Extremely unlikely; fall back to a fixed marker rather than fail the upload.
		return "scans/fallback" + ext
	}
	return "scans/" + hex.EncodeToString(buf) + ext
}
