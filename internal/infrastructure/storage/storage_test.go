package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectNameExtensions(t *testing.T) {
	tests := map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"application/pdf": ".bin",
	}

	for contentType, ext := range tests {
		name := ObjectName("avatars", contentType)
		assert.True(t, strings.HasPrefix(name, "public/avatars/"), name)
		assert.True(t, strings.HasSuffix(name, ext), name)
	}
}

func TestObjectNameIsUnique(t *testing.T) {
	assert.NotEqual(t, ObjectName("avatars", "image/png"), ObjectName("avatars", "image/png"))
	assert.True(t, strings.HasPrefix(ObjectName("", "image/png"), "public/uploads/"))
}
