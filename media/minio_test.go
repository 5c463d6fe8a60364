// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package media

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		key, contentType, want string
	}{
		{"audits/v1/a1/snapshot", "image/jpeg", "audits/v1/a1/snapshot.jpg"},
		{"audits/v1/a1/video", "video/webm;codecs=vp8,opus", "audits/v1/a1/video.webm"},
		{"/audits/v1/a1/snapshot.png", "image/jpeg", "audits/v1/a1/snapshot.png"},
		{"audits/v1/a1/blob", "application/octet-stream", "audits/v1/a1/blob"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ObjectName(tt.key, tt.contentType), tt.key)
	}
}

func TestObjectURL(t *testing.T) {
	endpoint := &url.URL{Scheme: "http", Host: "minio.local:9000"}
	got := ObjectURL(endpoint, "pilrt-audit", "audits/v1/a1/snapshot.jpg")
	assert.Equal(t, "http://minio.local:9000/pilrt-audit/audits/v1/a1/snapshot.jpg", got)
	assert.Equal(t, "", endpoint.Path, "endpoint is not modified")
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Endpoint: "minio:9000"}.Enabled())
	assert.True(t, Config{Endpoint: "minio:9000", Bucket: "audit"}.Enabled())
}
