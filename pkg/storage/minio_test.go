package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	bucket, object, err := ParseReference("s3://functions/team/math_utils.py")
	require.NoError(t, err)
	assert.Equal(t, "functions", bucket)
	assert.Equal(t, "team/math_utils.py", object)

	for _, ref := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///object", "/local/path.py"} {
		_, _, err := ParseReference(ref)
		assert.ErrorIs(t, err, ErrInvalidReference, ref)
	}
}

func TestIsReference(t *testing.T) {
	assert.True(t, IsReference("s3://bucket/key"))
	assert.False(t, IsReference("functions/key.py"))
}

func TestNewStorageService(t *testing.T) {
	s, err := NewStorageService(Options{Endpoint: "localhost:9000", AccessKeyId: "key", SecretAccessKey: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}
