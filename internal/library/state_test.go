package library

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/zotsync/internal/remote"
)

func TestStateRoundTrip(t *testing.T) {
	srv := newFakeServer()
	srv.colls["COLL0001"] = collPayload("COLL0001", 1, "papers")
	srv.addItem(remote.Payload{
		"key": "DOC00001", "version": int64(1), "itemType": "journalArticle",
		"title": "original", "collections": []any{"COLL0001"},
		"tags": []any{map[string]any{"tag": "keep"}},
		"creators": []any{map[string]any{
			"creatorType": "author", "firstName": "Ken", "lastName": "Shirriff",
		}},
	})
	srv.addItem(remote.Payload{
		"key": "ATTACH01", "version": int64(1), "itemType": "attachment",
		"linkMode": LinkModeImportedFile, "parentItem": "DOC00001", "md5": "abc",
	})
	srv.addItem(itemPayload("DOOMED01", 1, "doomed"))
	lib := setupSynced(t, srv)

	d := lib.Document("DOC00001")
	require.NoError(t, d.Set("title", "edited"))
	lib.Attachment("ATTACH01").SetLocalMD5("def")
	lib.Document("DOOMED01").Delete()
	fresh, err := lib.CreateDocument("book")
	require.NoError(t, err)
	require.NoError(t, fresh.Set("title", "brand new"))

	// The snapshot must survive JSON, the store serializes through it.
	raw, err := json.Marshal(lib.ExportState())
	require.NoError(t, err)
	var state State
	require.NoError(t, json.Unmarshal(raw, &state))

	restored, err := Restore(&state, srv, nil)
	require.NoError(t, err)

	assert.Equal(t, lib.Version(), restored.Version())

	rd := restored.Document("DOC00001")
	require.NotNil(t, rd)
	assert.Equal(t, "edited", rd.Title())
	assert.True(t, rd.Dirty())
	assert.Equal(t, "original", rd.changedFrom["title"])
	assert.Equal(t, d.ModifiedData(), rd.ModifiedData())
	require.Len(t, rd.Creators(), 1)
	assert.Equal(t, NewCreator("Ken", "Shirriff", "author"), rd.Creators()[0])

	ra := restored.Attachment("ATTACH01")
	require.NotNil(t, ra)
	assert.Equal(t, "def", ra.LocalMD5())
	assert.Equal(t, rd, ra.Parent())
	assert.Equal(t, ra, restored.AttachmentByMD5("abc"))

	rc := restored.Collection("COLL0001")
	require.NotNil(t, rc)
	assert.Equal(t, 1, rc.Size())

	rf := restored.Document(fresh.Key())
	require.NotNil(t, rf)
	assert.True(t, rf.Fresh())
	assert.Equal(t, "brand new", rf.Title())

	assert.Nil(t, restored.Document("DOOMED01"))
	assert.Equal(t, 1, restored.DeletedCount())
	assert.Equal(t, []string{"keep"}, restored.Tags())
}

func TestRestore_EmptyState(t *testing.T) {
	restored, err := Restore(&State{Version: -1}, newFakeServer(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), restored.Version())
	assert.Empty(t, restored.Documents())
}
