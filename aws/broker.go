package aws

import (
	"context"
	"errors"
	"time"

	"clipstash/clip-api/clip"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	// GrantTTL is how long a minted upload or download grant stays valid.
	GrantTTL = time.Hour

	// callTimeout bounds every individual S3 call
	callTimeout = 10 * time.Second
)

// Broker issues time-limited grants against the bucket. It never holds
// object bytes itself; clients talk to S3 directly with the grants.
type Broker struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  *string
}

var _ clip.ObjectBroker = (*Broker)(nil)

func NewBroker(c *S3Client) *Broker {
	return &Broker{
		client:  c.C,
		presign: s3.NewPresignClient(c.C),
		bucket:  c.Bucket,
	}
}

// MintUploadGrant returns a presigned POST authorization permitting one
// upload of at most maxSize bytes with the declared content type to key.
// The size bound rides in the policy's content-length-range condition, so
// the object store itself rejects oversized uploads.
func (b *Broker) MintUploadGrant(ctx context.Context, key, contentType string, maxSize int64) (*clip.UploadGrant, error) {
	if key == "" {
		return nil, &clip.ValidationError{Reason: "object key can't be empty"}
	}
	if contentType == "" {
		return nil, &clip.ValidationError{Reason: "content type can't be empty"}
	}
	if maxSize <= 0 {
		return nil, &clip.ValidationError{Reason: "max size must be bigger than 0"}
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := b.presign.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: b.bucket,
		Key:    &key,
	}, func(o *s3.PresignPostOptions) {
		o.Expires = GrantTTL
		o.Conditions = []interface{}{
			[]interface{}{"content-length-range", 1, maxSize},
			[]interface{}{"eq", "$Content-Type", contentType},
		}
	})
	if err != nil {
		return nil, &clip.StorageError{Op: "presign upload", Err: err}
	}

	fields := make(map[string]string, len(req.Values)+1)
	for k, v := range req.Values {
		fields[k] = v
	}
	fields["Content-Type"] = contentType

	return &clip.UploadGrant{
		URL:    req.URL,
		Fields: fields,
	}, nil
}

// MintDownloadURL returns a presigned GET URL for key.
func (b *Broker) MintDownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", &clip.ValidationError{Reason: "object key can't be empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: b.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(GrantTTL))
	if err != nil {
		return "", &clip.StorageError{Op: "presign download", Err: err}
	}

	return req.URL, nil
}

// DeleteObject removes key from the bucket. A missing object counts as
// success since the lazy-expiry path and the reaper may both delete the
// same key.
func (b *Broker) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return &clip.ValidationError{Reason: "object key can't be empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: b.bucket,
		Key:    &key,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			zap.L().Debug("Object already gone", zap.String("key", key))
			return nil
		}

		return &clip.StorageError{Op: "delete", Err: err}
	}

	return nil
}
