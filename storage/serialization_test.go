package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/poiesic/gist/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.Len(t, data, 8)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestDocumentRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &core.Document{
		Id:          7,
		WorkspaceID: "01HZY3J5QK8W9V2B6C4D0E1F2G",
		Name:        "notes.md",
		Content:     "héllo wörld",
		ContentHash: core.IDFromContent("héllo wörld"),
		Truncated:   true,
		InsertedAt:  now,
	}

	data, err := MarshalDocument(doc)
	require.NoError(t, err)

	decoded, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, decoded.Content)
	assert.Equal(t, doc.ContentHash, decoded.ContentHash)
	assert.True(t, decoded.InsertedAt.Equal(now))
}

func TestUnmarshal_Corrupt(t *testing.T) {
	_, err := UnmarshalDocument([]byte("{not json"))
	assert.True(t, errors.Is(err, ErrSerializationFailed))

	_, err = UnmarshalWorkspace([]byte{0xff})
	assert.True(t, errors.Is(err, ErrSerializationFailed))
}
