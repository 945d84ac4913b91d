package library

// Attachment is a file or link child of a document. Its behavior varies
// with the link mode: imported variants own stored content, linked
// variants only point at it.
type Attachment struct {
	object

	// localMD5 tracks the digest of the file on disk, when known, so
	// upload needs can be detected without rereading the file.
	localMD5 string
}

func newAttachment(lib *Library, key string) *Attachment {
	a := &Attachment{object: object{
		lib:         lib,
		kind:        KindAttachment,
		key:         key,
		version:     -1,
		data:        map[string]any{"itemType": "attachment"},
		changedFrom: map[string]any{},
		children:    map[string]struct{}{},
	}}
	a.self = a
	return a
}

// LinkMode returns the attachment's link mode.
func (a *Attachment) LinkMode() string {
	return a.stringField("linkMode")
}

// Title returns the attachment title.
func (a *Attachment) Title() string {
	return a.stringField("title")
}

// MD5 returns the server-side content digest.
func (a *Attachment) MD5() string {
	return a.stringField("md5")
}

// SHA1 returns the server-side content digest, when published.
func (a *Attachment) SHA1() string {
	return a.stringField("sha1")
}

// URL returns the source URL for url-linked modes.
func (a *Attachment) URL() string {
	return a.stringField("url")
}

// Filename returns the stored file name for imported modes.
func (a *Attachment) Filename() string {
	return a.stringField("filename")
}

// ContentType returns the MIME type of the content.
func (a *Attachment) ContentType() string {
	return a.stringField("contentType")
}

// Parent returns the owning document, or nil for a standalone attachment.
func (a *Attachment) Parent() *Document {
	return a.lib.documents[a.ParentKey()]
}

// Tags returns the attachment's tags.
func (a *Attachment) Tags() []string {
	return toStringSlice(a.data["tags"])
}

// AddTag attaches a tag if not already present.
func (a *Attachment) AddTag(tag string) error {
	return a.Set("tags", addString(a.Tags(), tag))
}

// RemoveTag detaches a tag.
func (a *Attachment) RemoveTag(tag string) error {
	return a.Set("tags", removeString(a.Tags(), tag))
}

// SetLocalMD5 records the digest of the local copy of the content.
func (a *Attachment) SetLocalMD5(digest string) {
	a.localMD5 = digest
}

// LocalMD5 returns the recorded digest of the local copy, or "".
func (a *Attachment) LocalMD5() string {
	return a.localMD5
}

// NeedsUpload reports whether an imported attachment's local content is
// ahead of the server copy. Linked modes never upload.
func (a *Attachment) NeedsUpload() bool {
	switch a.LinkMode() {
	case LinkModeImportedFile, LinkModeImportedURL:
		return a.localMD5 != "" && a.localMD5 != a.MD5()
	default:
		return false
	}
}
