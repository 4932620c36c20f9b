package aws

import (
	"context"
	"testing"

	"clipstash/clip-api/clip"

	"github.com/stretchr/testify/require"
)

// Input validation happens before any S3 call, so a zero broker is enough
// to exercise it.

func TestMintUploadGrantValidation(t *testing.T) {
	b := &Broker{}

	var vErr *clip.ValidationError

	_, err := b.MintUploadGrant(context.Background(), "", "text/plain", 10)
	require.ErrorAs(t, err, &vErr)

	_, err = b.MintUploadGrant(context.Background(), "abc/a.txt", "", 10)
	require.ErrorAs(t, err, &vErr)

	_, err = b.MintUploadGrant(context.Background(), "abc/a.txt", "text/plain", 0)
	require.ErrorAs(t, err, &vErr)

	_, err = b.MintUploadGrant(context.Background(), "abc/a.txt", "text/plain", -1)
	require.ErrorAs(t, err, &vErr)
}

func TestMintDownloadURLValidation(t *testing.T) {
	b := &Broker{}

	var vErr *clip.ValidationError

	_, err := b.MintDownloadURL(context.Background(), "")
	require.ErrorAs(t, err, &vErr)
}

func TestDeleteObjectValidation(t *testing.T) {
	b := &Broker{}

	var vErr *clip.ValidationError

	err := b.DeleteObject(context.Background(), "")
	require.ErrorAs(t, err, &vErr)
}
