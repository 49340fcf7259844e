package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMediaKey(t *testing.T) {
	at := time.UnixMilli(1714557600123)
	assert.Equal(t, "chat_media/u1_u2/1714557600123", ChatMediaKey("u1_u2", at))
}

func TestPublicURL(t *testing.T) {
	aws := &S3Store{bucket: "media", region: "eu-west-1"}
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/chat_media/a_b/1", aws.PublicURL("chat_media/a_b/1"))

	minio := &S3Store{bucket: "media", endpoint: "http://localhost:9000"}
	assert.Equal(t, "http://localhost:9000/media/chat_media/a_b/1", minio.PublicURL("chat_media/a_b/1"))
}

func TestMemoryStoreUpload(t *testing.T) {
	m := NewMemoryStore("http://localhost:8083/media")
	url, err := m.Upload(context.Background(), "chat_media/a_b/1", "image/jpeg", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8083/media/chat_media/a_b/1", url)

	data, ct, ok := m.Get("chat_media/a_b/1")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, "image/jpeg", ct)
}
