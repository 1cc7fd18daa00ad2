package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"new_file","payload":{"id":"f1","folder_id":"d1","folder_name":"Invoices",
		"file_name":"a.pdf","file_size":2048,"file_type":"application/pdf","uploaded_at":"2025-03-04T10:00:00Z"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventFileAdded, ev.Kind)
	assert.Equal(t, "new_file", ev.Type)
	assert.Equal(t, "f1", ev.File.ID)
	assert.Equal(t, "a.pdf", ev.File.Name)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC), ev.File.UploadedAt)

	ev, err = DecodeEvent([]byte(`{"type":"file_deleted","payload":{"id":"f1"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventFileDeleted, ev.Kind)
	assert.Equal(t, "f1", ev.FileID)

	ev, err = DecodeEvent([]byte(`{"type":"folder_created","payload":{"id":"d2","name":"Receipts","created_at":"2025-03-04T10:00:00Z"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventFolderCreated, ev.Kind)
	assert.Equal(t, Folder{ID: "d2", Name: "Receipts"}, ev.Folder)

	ev, err = DecodeEvent([]byte(`  [{"id":"f1","original_name":"R.pdf","file_name":"x.pdf"}]`))
	require.NoError(t, err)
	assert.Equal(t, EventSnapshot, ev.Kind)
	require.Len(t, ev.Files, 1)
	assert.Equal(t, "R.pdf", ev.Files[0].Name)
}

func TestDecodeEvent_UnknownTypeIsNotAnError(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"stats_updated","payload":{"n":3}}`))
	require.NoError(t, err)
	assert.Equal(t, EventUnknown, ev.Kind)
	assert.Equal(t, "stats_updated", ev.Type)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	frames := []string{
		``,
		`{`,
		`[{"id":`,
		`{"type":"new_file","payload":"oops"}`,
		`{"type":"new_file","payload":{}}`,
		`{"type":"file_deleted","payload":{"id":""}}`,
		`{"type":"folder_created","payload":[]}`,
	}
	for _, f := range frames {
		_, err := DecodeEvent([]byte(f))
		assert.Error(t, err, "frame %q", f)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, EventFileAdded, KindOf("file_added"))
	assert.Equal(t, EventFileDeleted, KindOf("file_removed"))
	assert.Equal(t, EventFolderCreated, KindOf("new_folder"))
	assert.Equal(t, EventUnknown, KindOf("ping"))
	assert.Equal(t, "folder_created", EventFolderCreated.String())
}
