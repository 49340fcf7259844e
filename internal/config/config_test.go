package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  env: production
  port: 9000
  instance_id: node-a
store:
  driver: memory
aws:
  bucket: chat-media
jwt:
  secret: s3cr3t
verification:
  otp_ttl_minutes: 10
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesFileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.App.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 25*time.Second, cfg.PingInterval)
	assert.Equal(t, "chat.events", cfg.Kafka.Topic)
	assert.Equal(t, "conversation-service-node-a", cfg.Kafka.GroupID)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9100")
	t.Setenv("AWS_BUCKET", "from-env")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.App.Port)
	assert.Equal(t, "from-env", cfg.AWS.Bucket)
}

func TestLoadRejectsMongoWithoutURI(t *testing.T) {
	_, err := Load(writeConfig(t, `
store:
  driver: mongo
aws:
  bucket: chat-media
jwt:
  secret: s3cr3t
`))
	assert.ErrorContains(t, err, "mongodb.uri")
}

func TestLoadRequiresJWTKey(t *testing.T) {
	_, err := Load(writeConfig(t, `
store:
  driver: memory
aws:
  bucket: chat-media
`))
	assert.ErrorContains(t, err, "jwt")
}

func TestLoadMemoryBlobsNeedNoBucket(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
store:
  driver: memory
s3:
  driver: memory
jwt:
  secret: s3cr3t
`))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.S3.Driver)
	assert.NotEmpty(t, cfg.App.InstanceID)

	_, err = Load(writeConfig(t, `
store:
  driver: memory
jwt:
  secret: s3cr3t
`))
	assert.ErrorContains(t, err, "aws.bucket")
}
