package storage_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"marketplace-service/storage"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(opts storage.Options) *storage.S3Storage {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	})
	return storage.NewWithPresigner(s3.NewPresignClient(client), opts)
}

func TestPresignUpload(t *testing.T) {
	st := newStorage(storage.Options{Bucket: "market-media", Prefix: "listings/"})

	up, err := st.PresignUpload(context.Background(), "sup123", "Photo.JPG", "image/jpeg", 5*time.Minute)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.Key, "listings/sup123/"))
	assert.True(t, strings.HasSuffix(up.Key, ".jpg"))
	assert.Contains(t, up.URL, "market-media")
	assert.Contains(t, up.URL, "X-Amz-Signature=")
	assert.Equal(t, "https://market-media.s3.amazonaws.com/"+up.Key, up.PublicURL)
	assert.Equal(t, 5*time.Minute, up.Expires)
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		opts storage.Options
		want string
	}{
		{"cdn", storage.Options{Bucket: "b", CDNDomain: "cdn.example.com/"}, "https://cdn.example.com/k.png"},
		{"endpoint", storage.Options{Bucket: "b", Endpoint: "http://localstack:4566"}, "http://localstack:4566/b/k.png"},
		{"default", storage.Options{Bucket: "b"}, "https://b.s3.amazonaws.com/k.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newStorage(tt.opts).PublicURL("k.png"))
		})
	}
}
