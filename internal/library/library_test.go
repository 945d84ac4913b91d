package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/zotsync/internal/remote"
)

func TestNewKey_FormatAndUniqueness(t *testing.T) {
	lib := New(newFakeServer(), nil)
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		d, err := lib.CreateDocument("book")
		require.NoError(t, err)
		key := d.Key()
		require.Len(t, key, keyLength)
		for _, r := range key {
			assert.Contains(t, keyAlphabet, string(r))
		}
		_, dup := seen[key]
		require.False(t, dup, "key %s issued twice", key)
		seen[key] = struct{}{}
	}
}

func TestCreateDocument_RejectsBadItemTypes(t *testing.T) {
	lib := New(newFakeServer(), nil)
	_, err := lib.CreateDocument("attachment")
	require.Error(t, err)
	_, err = lib.CreateDocument("noSuchType")
	require.Error(t, err)
}

func TestCreateAttachment_RejectsBadLinkModes(t *testing.T) {
	lib := New(newFakeServer(), nil)
	_, err := lib.CreateAttachment("carrier_pigeon", "")
	require.Error(t, err)

	a, err := lib.CreateAttachment(LinkModeImportedFile, "")
	require.NoError(t, err)
	assert.Equal(t, LinkModeImportedFile, a.LinkMode())
	assert.Equal(t, "attachment", a.Get("itemType"))
}

func TestCollectionMembership_TracksItemEdits(t *testing.T) {
	srv := newFakeServer()
	srv.colls["COLL0001"] = collPayload("COLL0001", 1, "papers")
	srv.addItem(itemPayload("AAAAAAAA", 1, "doc"))
	lib := setupSynced(t, srv)

	d := lib.Document("AAAAAAAA")
	c := lib.Collection("COLL0001")
	require.NotNil(t, c)

	require.NoError(t, d.AddToCollection("COLL0001"))
	assert.Equal(t, 1, c.Size())

	require.NoError(t, d.RemoveFromCollection("COLL0001"))
	assert.Zero(t, c.Size())
}

func TestCollectionMembership_StubsUnknownCollections(t *testing.T) {
	srv := newFakeServer()
	srv.addItem(remote.Payload{
		"key": "AAAAAAAA", "version": int64(1), "itemType": "journalArticle",
		"collections": []any{"GHOST001"},
	})
	lib := setupSynced(t, srv)

	stub := lib.Collection("GHOST001")
	require.NotNil(t, stub, "membership must create a placeholder")
	assert.Equal(t, int64(-1), stub.Version())
	assert.Equal(t, 1, stub.Size())

	// A later payload promotes the placeholder in place.
	_, err := lib.applyCollection(collPayload("GHOST001", 3, "found"))
	require.NoError(t, err)
	assert.Equal(t, "found", stub.Name())
	assert.Equal(t, 1, stub.Size())
}

func TestTagIndex_FollowsTagEdits(t *testing.T) {
	srv := newFakeServer()
	srv.addItem(itemPayload("AAAAAAAA", 1, "doc"))
	lib := setupSynced(t, srv)
	d := lib.Document("AAAAAAAA")

	require.NoError(t, d.AddTag("golang"))
	require.Equal(t, []string{"golang"}, lib.Tags())
	require.Len(t, lib.ItemsWithTag("golang"), 1)

	require.NoError(t, d.RemoveTag("golang"))
	assert.Empty(t, lib.Tags())
	assert.Empty(t, lib.ItemsWithTag("golang"))
}

func TestAttachmentParent_RegistersChild(t *testing.T) {
	srv := newFakeServer()
	srv.addItem(itemPayload("DOC00001", 1, "parent"))
	srv.addItem(remote.Payload{
		"key": "ATTACH01", "version": int64(1), "itemType": "attachment",
		"linkMode": LinkModeLinkedFile, "parentItem": "DOC00001",
	})
	lib := setupSynced(t, srv)

	d := lib.Document("DOC00001")
	a := lib.Attachment("ATTACH01")
	require.NotNil(t, a)
	assert.Equal(t, d, a.Parent())
	require.Len(t, d.Children(), 1)
	assert.Equal(t, a, d.Children()[0])
}

func TestMD5Index_FindsAttachmentsByDigest(t *testing.T) {
	srv := newFakeServer()
	srv.addItem(remote.Payload{
		"key": "ATTACH01", "version": int64(1), "itemType": "attachment",
		"linkMode": LinkModeImportedFile, "md5": "d41d8cd98f00b204e9800998ecf8427e",
	})
	lib := setupSynced(t, srv)

	a := lib.AttachmentByMD5("d41d8cd98f00b204e9800998ecf8427e")
	require.NotNil(t, a)
	assert.Equal(t, "ATTACH01", a.Key())
}

func TestDelete_FreshObjectIsDiscarded(t *testing.T) {
	lib := New(newFakeServer(), nil)
	d, err := lib.CreateDocument("book")
	require.NoError(t, err)

	d.Delete()
	assert.Empty(t, lib.Documents())
	assert.Zero(t, lib.DeletedCount())
	assert.Zero(t, lib.FreshCount())
}

func TestDelete_SyncedObjectIsTombstoned(t *testing.T) {
	srv := newFakeServer()
	srv.addItem(itemPayload("AAAAAAAA", 1, "doc"))
	lib := setupSynced(t, srv)

	d := lib.Document("AAAAAAAA")
	require.NoError(t, d.AddTag("stale"))
	d.Delete()

	assert.Nil(t, lib.Document("AAAAAAAA"))
	assert.Equal(t, 1, lib.DeletedCount())
	assert.Empty(t, lib.Tags(), "tombstoned objects leave the tag index")
}

func TestDeleteCollection_EjectsMembers(t *testing.T) {
	srv := newFakeServer()
	srv.colls["COLL0001"] = collPayload("COLL0001", 1, "papers")
	srv.addItem(remote.Payload{
		"key": "AAAAAAAA", "version": int64(1), "itemType": "journalArticle",
		"collections": []any{"COLL0001"},
	})
	lib := setupSynced(t, srv)

	lib.Collection("COLL0001").Delete()

	d := lib.Document("AAAAAAAA")
	assert.Empty(t, d.Collections())
	assert.True(t, d.Dirty(), "ejection is a local edit that must push")
	assert.Equal(t, 1, lib.DeletedCount())
}

func TestAttachment_NeedsUpload(t *testing.T) {
	srv := newFakeServer()
	srv.addItem(remote.Payload{
		"key": "IMPORTED", "version": int64(1), "itemType": "attachment",
		"linkMode": LinkModeImportedFile, "md5": "aaa",
	})
	srv.addItem(remote.Payload{
		"key": "LINKED01", "version": int64(1), "itemType": "attachment",
		"linkMode": LinkModeLinkedFile,
	})
	lib := setupSynced(t, srv)

	imported := lib.Attachment("IMPORTED")
	assert.False(t, imported.NeedsUpload())
	imported.SetLocalMD5("bbb")
	assert.True(t, imported.NeedsUpload())
	imported.SetLocalMD5("aaa")
	assert.False(t, imported.NeedsUpload())

	linked := lib.Attachment("LINKED01")
	linked.SetLocalMD5("ccc")
	assert.False(t, linked.NeedsUpload(), "linked files never upload")
}
