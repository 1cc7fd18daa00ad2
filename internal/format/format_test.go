package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{-5, "0 Bytes"},
		{1, "1 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2048, "2 KB"},
		{1234567, "1.18 MB"},
		{5 * 1024 * 1024 * 1024, "5 GB"},
		{3 * 1024 * 1024 * 1024 * 1024, "3 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FileSize(tt.in), "FileSize(%d)", tt.in)
	}
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "-", Timestamp(time.Time{}, time.UTC))

	ts := time.Date(2025, time.March, 4, 9, 7, 0, 0, time.UTC)
	assert.Equal(t, "Mar 4, 2025 09:07", Timestamp(ts, time.UTC))

	plus2 := time.FixedZone("plus2", 2*60*60)
	assert.Equal(t, "Mar 4, 2025 11:07", Timestamp(ts, plus2))
}

func TestAge(t *testing.T) {
	now := time.Date(2025, time.March, 4, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "", Age(time.Time{}, now))
	assert.Equal(t, "3 minutes ago", Age(now.Add(-3*time.Minute), now))
}

func TestFileKind(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image/png", "Image"},
		{"application/pdf", "PDF"},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "Word"},
		{"application/vnd.ms-excel", "Excel"},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "Excel"},
		{"application/vnd.openxmlformats-officedocument.presentationml.presentation", "PowerPoint"},
		{"text/plain", "Text"},
		{"application/octet-stream", "Document"},
		{"", "Document"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FileKind(tt.in), "FileKind(%q)", tt.in)
	}
}
