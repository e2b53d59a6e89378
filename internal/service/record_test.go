package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRecordDefaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

	record, err := BuildRecord("img-1", MetadataInput{UserID: "u1"}, now)
	require.NoError(t, err)

	assert.Equal(t, "img-1", record.ImageID)
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, "", record.Title)
	assert.Equal(t, "", record.Description)
	assert.NotNil(t, record.Tags)
	assert.Empty(t, record.Tags)
	assert.Equal(t, "image/jpeg", record.ContentType)
	assert.Equal(t, time.UTC, record.CreatedAt.Location())
	assert.True(t, record.CreatedAt.Equal(now))
	assert.Equal(t, "images/img-1", record.BlobKey)
}

func TestBuildRecordKeepsSuppliedFields(t *testing.T) {
	tags := []string{"a", "b"}
	record, err := BuildRecord("img-2", MetadataInput{
		UserID:      "u2",
		Title:       "Sunset",
		Description: "over the bay",
		Tags:        tags,
		ContentType: "image/png",
	}, time.Now())
	require.NoError(t, err)

	tags[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, record.Tags)
	assert.Equal(t, "Sunset", record.Title)
	assert.Equal(t, "over the bay", record.Description)
	assert.Equal(t, "image/png", record.ContentType)
}

func TestBuildRecordRequiresUser(t *testing.T) {
	for _, user := range []string{"", "   "} {
		_, err := BuildRecord("img-3", MetadataInput{UserID: user}, time.Now())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "metadata.user_id", verr.Field)
	}
}

func TestImageIDFromBlobKey(t *testing.T) {
	id, ok := ImageIDFromBlobKey(BlobKeyFor("abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	for _, key := range []string{"images/", "thumbs/abc", "images/a/b", "abc"} {
		_, ok := ImageIDFromBlobKey(key)
		assert.False(t, ok, key)
	}
}
