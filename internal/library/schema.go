package library

import (
	"context"
	"fmt"
)

// Built-in vocabulary so a library is usable without having talked to the
// server. RefreshSchema replaces it with the server's live copy.

var builtinItemTypes = []string{
	"artwork", "audioRecording", "bill", "blogPost", "book", "bookSection",
	"case", "computerProgram", "conferencePaper", "dictionaryEntry",
	"document", "email", "encyclopediaArticle", "film", "forumPost",
	"hearing", "instantMessage", "interview", "journalArticle", "letter",
	"magazineArticle", "manuscript", "map", "newspaperArticle", "note",
	"patent", "podcast", "presentation", "radioBroadcast", "report",
	"statute", "tvBroadcast", "thesis", "videoRecording", "webpage",
}

var builtinItemFields = map[string][]string{
	"artwork":             {"title", "abstractNote", "artworkMedium", "artworkSize", "date", "language", "shortTitle", "archive", "archiveLocation", "libraryCatalog", "callNumber", "url", "accessDate", "rights", "extra"},
	"audioRecording":      {"title", "abstractNote", "audioRecordingFormat", "seriesTitle", "volume", "numberOfVolumes", "place", "label", "date", "runningTime", "language", "ISBN", "shortTitle", "archive", "archiveLocation", "libraryCatalog", "callNumber", "url", "accessDate", "rights", "extra"},
	"bill":                {"title", "abstractNote", "billNumber", "code", "codeVolume", "section", "codePages", "legislativeBody", "session", "history", "date", "language", "url", "accessDate", "shortTitle", "rights", "extra"},
	"blogPost":            {"title", "abstractNote", "blogTitle", "websiteType", "date", "url", "accessDate", "language", "shortTitle", "rights", "extra"},
	"book":                {"title", "abstractNote", "series", "seriesNumber", "volume", "numberOfVolumes", "edition", "place", "publisher", "date", "numPages", "language", "ISBN", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"bookSection":         {"title", "abstractNote", "bookTitle", "series", "seriesNumber", "volume", "numberOfVolumes", "edition", "place", "publisher", "date", "pages", "language", "ISBN", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"case":                {"caseName", "abstractNote", "reporter", "reporterVolume", "court", "docketNumber", "firstPage", "history", "dateDecided", "language", "shortTitle", "url", "accessDate", "rights", "extra"},
	"computerProgram":     {"title", "abstractNote", "seriesTitle", "versionNumber", "date", "system", "place", "company", "programmingLanguage", "ISBN", "shortTitle", "url", "rights", "archive", "archiveLocation", "libraryCatalog", "callNumber", "accessDate", "extra"},
	"conferencePaper":     {"title", "abstractNote", "date", "proceedingsTitle", "conferenceName", "place", "publisher", "volume", "pages", "series", "language", "DOI", "ISBN", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"dictionaryEntry":     {"title", "abstractNote", "dictionaryTitle", "series", "seriesNumber", "volume", "numberOfVolumes", "edition", "place", "publisher", "date", "pages", "language", "ISBN", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"document":            {"title", "abstractNote", "publisher", "date", "language", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"email":               {"subject", "abstractNote", "date", "shortTitle", "url", "accessDate", "language", "rights", "extra"},
	"encyclopediaArticle": {"title", "abstractNote", "encyclopediaTitle", "series", "seriesNumber", "volume", "numberOfVolumes", "edition", "place", "publisher", "date", "pages", "ISBN", "shortTitle", "url", "accessDate", "language", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"film":                {"title", "abstractNote", "distributor", "date", "genre", "videoRecordingFormat", "runningTime", "language", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"forumPost":           {"title", "abstractNote", "forumTitle", "postType", "date", "language", "shortTitle", "url", "accessDate", "rights", "extra"},
	"hearing":             {"title", "abstractNote", "committee", "place", "publisher", "numberOfVolumes", "documentNumber", "pages", "legislativeBody", "session", "history", "date", "language", "shortTitle", "url", "accessDate", "rights", "extra"},
	"instantMessage":      {"title", "abstractNote", "date", "language", "shortTitle", "url", "accessDate", "rights", "extra"},
	"interview":           {"title", "abstractNote", "date", "interviewMedium", "language", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"journalArticle":      {"title", "abstractNote", "publicationTitle", "volume", "issue", "pages", "date", "series", "seriesTitle", "seriesText", "journalAbbreviation", "language", "DOI", "ISSN", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"letter":              {"title", "abstractNote", "letterType", "date", "language", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"magazineArticle":     {"title", "abstractNote", "publicationTitle", "volume", "issue", "date", "pages", "language", "ISSN", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"manuscript":          {"title", "abstractNote", "manuscriptType", "place", "date", "numPages", "language", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"map":                 {"title", "abstractNote", "mapType", "scale", "seriesTitle", "edition", "place", "publisher", "date", "language", "ISBN", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"newspaperArticle":    {"title", "abstractNote", "publicationTitle", "place", "edition", "date", "section", "pages", "language", "shortTitle", "ISSN", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"note":                {},
	"patent":              {"title", "abstractNote", "place", "country", "assignee", "issuingAuthority", "patentNumber", "filingDate", "pages", "applicationNumber", "priorityNumbers", "issueDate", "references", "legalStatus", "language", "shortTitle", "url", "accessDate", "rights", "extra"},
	"podcast":             {"title", "abstractNote", "seriesTitle", "episodeNumber", "audioFileType", "runningTime", "url", "accessDate", "language", "shortTitle", "rights", "extra"},
	"presentation":        {"title", "abstractNote", "presentationType", "date", "place", "meetingName", "url", "accessDate", "language", "shortTitle", "rights", "extra"},
	"radioBroadcast":      {"title", "abstractNote", "programTitle", "episodeNumber", "audioRecordingFormat", "place", "network", "date", "runningTime", "language", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"report":              {"title", "abstractNote", "reportNumber", "reportType", "seriesTitle", "place", "institution", "date", "pages", "language", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"statute":             {"nameOfAct", "abstractNote", "code", "codeNumber", "publicLawNumber", "dateEnacted", "pages", "section", "session", "history", "language", "shortTitle", "url", "accessDate", "rights", "extra"},
	"thesis":              {"title", "abstractNote", "thesisType", "university", "place", "date", "numPages", "language", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"tvBroadcast":         {"title", "abstractNote", "programTitle", "episodeNumber", "videoRecordingFormat", "place", "network", "date", "runningTime", "language", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"videoRecording":      {"title", "abstractNote", "videoRecordingFormat", "seriesTitle", "volume", "numberOfVolumes", "place", "studio", "date", "runningTime", "language", "ISBN", "shortTitle", "url", "accessDate", "archive", "archiveLocation", "libraryCatalog", "callNumber", "rights", "extra"},
	"webpage":             {"title", "abstractNote", "websiteTitle", "websiteType", "date", "shortTitle", "url", "accessDate", "language", "rights", "extra"},
}

var builtinCreatorTypes = map[string][]string{
	"artwork":             {"artist", "contributor"},
	"audioRecording":      {"performer", "composer", "contributor", "wordsBy"},
	"bill":                {"sponsor", "contributor", "cosponsor"},
	"blogPost":            {"author", "commenter", "contributor"},
	"book":                {"author", "contributor", "editor", "seriesEditor", "translator"},
	"bookSection":         {"author", "bookAuthor", "contributor", "editor", "seriesEditor", "translator"},
	"case":                {"author", "contributor", "counsel"},
	"computerProgram":     {"programmer", "contributor"},
	"conferencePaper":     {"author", "contributor", "editor", "seriesEditor", "translator"},
	"dictionaryEntry":     {"author", "contributor", "editor", "seriesEditor", "translator"},
	"document":            {"author", "contributor", "editor", "reviewedAuthor", "translator"},
	"email":               {"author", "contributor", "recipient"},
	"encyclopediaArticle": {"author", "contributor", "editor", "seriesEditor", "translator"},
	"film":                {"director", "contributor", "producer", "scriptwriter"},
	"forumPost":           {"author", "contributor"},
	"hearing":             {"contributor"},
	"instantMessage":      {"author", "contributor", "recipient"},
	"interview":           {"interviewee", "contributor", "interviewer", "translator"},
	"journalArticle":      {"author", "contributor", "editor", "reviewedAuthor", "translator"},
	"letter":              {"author", "contributor", "recipient"},
	"magazineArticle":     {"author", "contributor", "reviewedAuthor", "translator"},
	"manuscript":          {"author", "contributor", "translator"},
	"map":                 {"cartographer", "contributor", "seriesEditor"},
	"newspaperArticle":    {"author", "contributor", "reviewedAuthor", "translator"},
	"note":                {},
	"patent":              {"inventor", "attorneyAgent", "contributor"},
	"podcast":             {"podcaster", "contributor", "guest"},
	"presentation":        {"presenter", "contributor"},
	"radioBroadcast":      {"director", "castMember", "contributor", "guest", "producer", "scriptwriter"},
	"report":              {"author", "contributor", "seriesEditor", "translator"},
	"statute":             {"author", "contributor"},
	"thesis":              {"author", "contributor"},
	"tvBroadcast":         {"director", "castMember", "contributor", "guest", "producer", "scriptwriter"},
	"videoRecording":      {"director", "castMember", "contributor", "producer", "scriptwriter"},
	"webpage":             {"author", "contributor", "translator"},
}

func (l *Library) knownItemType(t string) bool {
	return containsString(l.itemTypes, t)
}

// ItemTypes returns the known item types.
func (l *Library) ItemTypes() []string {
	return append([]string(nil), l.itemTypes...)
}

// FieldsFor returns the ordinary data fields an item type accepts.
func (l *Library) FieldsFor(itemType string) []string {
	return append([]string(nil), l.itemFields[itemType]...)
}

// CreatorRolesFor returns the creator roles an item type accepts.
func (l *Library) CreatorRolesFor(itemType string) []string {
	return append([]string(nil), l.creatorTypes[itemType]...)
}

// RefreshSchema replaces the built-in vocabulary with the server's live
// copy, one round trip per item type.
func (l *Library) RefreshSchema(ctx context.Context) error {
	types, err := l.server.ItemTypes(ctx)
	if err != nil {
		return fmt.Errorf("fetch item types: %w", err)
	}
	fields := make(map[string][]string, len(types))
	roles := make(map[string][]string, len(types))
	for _, t := range types {
		if fields[t], err = l.server.ItemFields(ctx, t); err != nil {
			return fmt.Errorf("fetch fields for %s: %w", t, err)
		}
		if roles[t], err = l.server.ItemCreatorTypes(ctx, t); err != nil {
			return fmt.Errorf("fetch creator types for %s: %w", t, err)
		}
	}
	l.itemTypes = types
	l.itemFields = fields
	l.creatorTypes = roles
	l.log.Info(ctx, "schema refreshed", "item_types", len(types))
	return nil
}
