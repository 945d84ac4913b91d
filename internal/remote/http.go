package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// HTTPServer implements Server against a Zotero-style web API (v3).
type HTTPServer struct {
	base         string
	userID       int64
	apiKey       string
	client       *http.Client
	lastModified int64
}

// NewHTTPServer returns a Server speaking to the user library at
// endpoint (e.g. "https://api.zotero.org"). If client is nil,
// http.DefaultClient is used.
func NewHTTPServer(endpoint string, userID int64, apiKey string, client *http.Client) *HTTPServer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPServer{
		base:   strings.TrimRight(endpoint, "/"),
		userID: userID,
		apiKey: apiKey,
		client: client,
	}
}

// LastModifiedVersion implements Server.LastModifiedVersion.
func (s *HTTPServer) LastModifiedVersion() int64 {
	return s.lastModified
}

func (s *HTTPServer) userURL(path string, q url.Values) string {
	u := fmt.Sprintf("%s/users/%d%s", s.base, s.userID, path)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// do executes the request, records the Last-Modified-Version response
// header, and decodes a JSON body into out (when out is non-nil). Non-2xx
// statuses map onto the package sentinels where possible.
func (s *HTTPServer) do(req *http.Request, out any) error {
	req.Header.Set("Zotero-API-Version", "3")
	if s.apiKey != "" {
		req.Header.Set("Zotero-API-Key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if h := resp.Header.Get("Last-Modified-Version"); h != "" {
		if v, err := strconv.ParseInt(h, 10, 64); err == nil {
			s.lastModified = v
		}
	}

	switch {
	case resp.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrPreconditionFailed)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: unexpected status %d: %s", req.Method, req.URL.Path, resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (s *HTTPServer) getJSON(ctx context.Context, rawurl string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return err
	}
	return s.do(req, out)
}

func sinceParams(since int64) url.Values {
	q := url.Values{}
	if since >= 0 {
		q.Set("since", strconv.FormatInt(since, 10))
	}
	return q
}

// ItemVersions implements Server.ItemVersions.
func (s *HTTPServer) ItemVersions(ctx context.Context, since int64) (map[string]int64, error) {
	q := sinceParams(since)
	q.Set("format", "versions")
	var versions map[string]int64
	if err := s.getJSON(ctx, s.userURL("/items", q), &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// CollectionVersions implements Server.CollectionVersions.
func (s *HTTPServer) CollectionVersions(ctx context.Context, since int64) (map[string]int64, error) {
	q := sinceParams(since)
	q.Set("format", "versions")
	var versions map[string]int64
	if err := s.getJSON(ctx, s.userURL("/collections", q), &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// wireObject is the envelope the API wraps around every object payload.
type wireObject struct {
	Data Payload `json:"data"`
}

// Items implements Server.Items. The key list is sent comma-joined in a
// single itemKey parameter, so a call never needs a pagination cursor.
func (s *HTTPServer) Items(ctx context.Context, keys []string) ([]Payload, error) {
	if len(keys) > BatchLimit {
		return nil, fmt.Errorf("items: %d keys exceeds batch limit %d", len(keys), BatchLimit)
	}
	q := url.Values{}
	q.Set("itemKey", strings.Join(keys, ","))
	var objs []wireObject
	if err := s.getJSON(ctx, s.userURL("/items", q), &objs); err != nil {
		return nil, err
	}
	payloads := make([]Payload, 0, len(objs))
	for _, o := range objs {
		payloads = append(payloads, o.Data)
	}
	return payloads, nil
}

// Collection implements Server.Collection.
func (s *HTTPServer) Collection(ctx context.Context, key string) (Payload, error) {
	var obj wireObject
	if err := s.getJSON(ctx, s.userURL("/collections/"+key, nil), &obj); err != nil {
		return nil, err
	}
	return obj.Data, nil
}

// Deleted implements Server.Deleted.
func (s *HTTPServer) Deleted(ctx context.Context, since int64) (*Deletions, error) {
	var del Deletions
	if err := s.getJSON(ctx, s.userURL("/deleted", sinceParams(since)), &del); err != nil {
		return nil, err
	}
	return &del, nil
}

func (s *HTTPServer) write(ctx context.Context, path string, payloads []Payload, lastModified int64) (*WriteResult, error) {
	if len(payloads) > BatchLimit {
		return nil, fmt.Errorf("write %s: %d payloads exceeds batch limit %d", path, len(payloads), BatchLimit)
	}
	body, err := json.Marshal(payloads)
	if err != nil {
		return nil, fmt.Errorf("encode write batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.userURL(path, nil), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if lastModified >= 0 {
		req.Header.Set("If-Unmodified-Since-Version", strconv.FormatInt(lastModified, 10))
	}
	var result WriteResult
	if err := s.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateItems implements Server.CreateItems.
func (s *HTTPServer) CreateItems(ctx context.Context, items []Payload, lastModified int64) (*WriteResult, error) {
	return s.write(ctx, "/items", items, lastModified)
}

// CreateCollections implements Server.CreateCollections.
func (s *HTTPServer) CreateCollections(ctx context.Context, cols []Payload, lastModified int64) (*WriteResult, error) {
	return s.write(ctx, "/collections", cols, lastModified)
}

func (s *HTTPServer) delete(ctx context.Context, path, param string, keys []string, lastModified int64) error {
	if len(keys) > BatchLimit {
		return fmt.Errorf("delete %s: %d keys exceeds batch limit %d", path, len(keys), BatchLimit)
	}
	q := url.Values{}
	q.Set(param, strings.Join(keys, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.userURL(path, q), nil)
	if err != nil {
		return err
	}
	req.Header.Set("If-Unmodified-Since-Version", strconv.FormatInt(lastModified, 10))
	return s.do(req, nil)
}

// DeleteItems implements Server.DeleteItems.
func (s *HTTPServer) DeleteItems(ctx context.Context, keys []string, lastModified int64) error {
	return s.delete(ctx, "/items", "itemKey", keys, lastModified)
}

// DeleteCollections implements Server.DeleteCollections.
func (s *HTTPServer) DeleteCollections(ctx context.Context, keys []string, lastModified int64) error {
	return s.delete(ctx, "/collections", "collectionKey", keys, lastModified)
}

// ItemTypes implements Server.ItemTypes. Vocabulary endpoints live outside
// the user prefix.
func (s *HTTPServer) ItemTypes(ctx context.Context) ([]string, error) {
	var out []struct {
		ItemType string `json:"itemType"`
	}
	if err := s.getJSON(ctx, s.base+"/itemTypes", &out); err != nil {
		return nil, err
	}
	types := make([]string, 0, len(out))
	for _, t := range out {
		types = append(types, t.ItemType)
	}
	return types, nil
}

// ItemFields implements Server.ItemFields.
func (s *HTTPServer) ItemFields(ctx context.Context, itemType string) ([]string, error) {
	var out []struct {
		Field string `json:"field"`
	}
	u := s.base + "/itemTypeFields?itemType=" + url.QueryEscape(itemType)
	if err := s.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(out))
	for _, f := range out {
		fields = append(fields, f.Field)
	}
	return fields, nil
}

// ItemCreatorTypes implements Server.ItemCreatorTypes.
func (s *HTTPServer) ItemCreatorTypes(ctx context.Context, itemType string) ([]string, error) {
	var out []struct {
		CreatorType string `json:"creatorType"`
	}
	u := s.base + "/itemTypeCreatorTypes?itemType=" + url.QueryEscape(itemType)
	if err := s.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(out))
	for _, r := range out {
		roles = append(roles, r.CreatorType)
	}
	return roles, nil
}
