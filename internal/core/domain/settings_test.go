package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStorageBackend_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		backend  StorageBackend
		expected bool
	}{
		{name: "drive is valid", backend: BackendDrive, expected: true},
		{name: "local is valid", backend: BackendLocal, expected: true},
		{name: "empty is invalid", backend: StorageBackend(""), expected: false},
		{name: "unknown is invalid", backend: StorageBackend("s3"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.backend.IsValid())
		})
	}
}

func TestStorageBackend_RequiresAuth(t *testing.T) {
	assert.True(t, BackendDrive.RequiresAuth())
	assert.False(t, BackendLocal.RequiresAuth())
}

func TestStorageBackend_Description(t *testing.T) {
	assert.Equal(t, "Google Drive", BackendDrive.Description())
	assert.Equal(t, "Local directory", BackendLocal.Description())
	assert.Equal(t, "Unknown", StorageBackend("ftp").Description())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, BackendDrive, s.Storage.Backend)
	assert.Equal(t, "rolodex", s.Storage.RootFolder)
	assert.Equal(t, int64(100), s.Storage.PageSize)
	assert.Equal(t, 3, s.Retry.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, s.Retry.BaseDelay)
	assert.Equal(t, 8*time.Second, s.Retry.MaxDelay)
	assert.False(t, s.Retry.RetryAll)
	assert.False(t, s.Retry.BreakerEnabled)
	assert.Equal(t, 4, s.Load.Concurrency)
	assert.False(t, s.Load.VerifyIndex)
	assert.True(t, s.Cache.Enabled)
}

func TestAuthSettings_HasOAuthClient(t *testing.T) {
	assert.False(t, AuthSettings{}.HasOAuthClient())
	assert.False(t, AuthSettings{ClientID: "id"}.HasOAuthClient())
	assert.True(t, AuthSettings{ClientID: "id", ClientSecret: "secret"}.HasOAuthClient())
}

func TestAllStorageBackends(t *testing.T) {
	for _, b := range AllStorageBackends() {
		assert.True(t, b.IsValid())
	}
}
