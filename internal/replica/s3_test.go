package replica

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movingbox/movingbox-migrator/internal/domain"
)

// fakeS3 is an in-memory S3 endpoint handling ListObjectsV2, GetObject and DeleteObject
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	denied  map[string]bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), denied: make(map[string]bool)}
}

func (f *fakeS3) putRecord(t *testing.T, zone string, rec Record) {
	t.Helper()
	body, err := json.Marshal(rec)
	require.NoError(t, err)
	f.objects[recordPrefix(zone, rec.RecordType)+rec.RecordName+".json"] = body
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/xml"}},
	}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	query := req.URL.Query()

	switch {
	case req.Method == http.MethodGet && query.Get("list-type") == "2":
		return f.list(query.Get("prefix"), query.Get("continuation-token"), query.Get("max-keys")), nil
	case req.Method == http.MethodGet:
		if f.denied[key] {
			return respond(http.StatusForbidden, "<Error><Code>AccessDenied</Code><Message>denied</Message></Error>"), nil
		}
		body, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, "<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>"), nil
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(body)),
			Header:     http.Header{"Content-Length": {strconv.Itoa(len(body))}},
		}, nil
	case req.Method == http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, ""), nil
	}
	return respond(http.StatusNotImplemented, ""), nil
}

func (f *fakeS3) list(prefix, token, maxKeys string) *http.Response {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	limit := 1000
	if n, err := strconv.Atoi(maxKeys); err == nil && n > 0 {
		limit = n
	}
	start := 0
	if token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := min(start+limit, len(keys))

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
	fmt.Fprintf(&b, "<KeyCount>%d</KeyCount>", end-start)
	if end < len(keys) {
		fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>%d</NextContinuationToken>", end)
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
	}
	for _, k := range keys[start:end] {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(f.objects[k]))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, b.String())
}

func newTestS3(t *testing.T, fake *fakeS3) *S3 {
	t.Helper()
	db, err := NewS3(context.Background(), S3Config{
		Bucket:          "replica",
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		MaxAttempts:     1,
		HTTPClient:      &http.Client{Transport: fake},
	})
	require.NoError(t, err)
	return db
}

func TestS3FetchPage(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	for i := 0; i < 5; i++ {
		fake.putRecord(t, domain.LEGACY_ZONE_NAME, Record{
			RecordName: fmt.Sprintf("item-%d", i),
			RecordType: RecordTypeItem,
			Fields:     map[string]Field{"CD_title": NewField(FieldString, fmt.Sprintf("Item %d", i))},
		})
	}
	fake.denied[recordPrefix(domain.LEGACY_ZONE_NAME, RecordTypeItem)+"item-3.json"] = true
	db := newTestS3(t, fake)

	var names []string
	var failures []RecordError
	cursor := ""
	pages := 0
	for {
		page, err := db.FetchPage(ctx, domain.LEGACY_ZONE_NAME, RecordTypeItem, cursor, 2)
		require.NoError(t, err)
		pages++
		for _, rec := range page.Records {
			names = append(names, rec.RecordName)
		}
		failures = append(failures, page.Failures...)
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"item-0", "item-1", "item-2", "item-4"}, names)
	require.Len(t, failures, 1)
	assert.Equal(t, "item-3", failures[0].RecordName)
}

func TestS3ZoneNotFound(t *testing.T) {
	db := newTestS3(t, newFakeS3())
	_, err := db.FetchPage(context.Background(), domain.LEGACY_ZONE_NAME, RecordTypeItem, "", 10)
	assert.ErrorIs(t, err, domain.ErrZoneNotFound)
}

func TestS3EmptyRecordTypeInExistingZone(t *testing.T) {
	fake := newFakeS3()
	fake.putRecord(t, domain.LEGACY_ZONE_NAME, Record{RecordName: "home-1", RecordType: RecordTypeHome})
	db := newTestS3(t, fake)

	page, err := db.FetchPage(context.Background(), domain.LEGACY_ZONE_NAME, RecordTypeItem, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Empty(t, page.Cursor)
}

func TestS3FetchAsset(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects[assetKey(domain.LEGACY_ZONE_NAME, "photo-list")] = []byte("payload")
	db := newTestS3(t, fake)

	data, err := db.FetchAsset(ctx, domain.LEGACY_ZONE_NAME, "photo-list")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	_, err = db.FetchAsset(ctx, domain.LEGACY_ZONE_NAME, "missing")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestS3DeleteZone(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.putRecord(t, domain.LEGACY_ZONE_NAME, Record{RecordName: "home-1", RecordType: RecordTypeHome})
	fake.objects[assetKey(domain.LEGACY_ZONE_NAME, "a")] = []byte("x")
	fake.objects["other-zone/CD_Home/h.json"] = []byte("{}")
	db := newTestS3(t, fake)

	require.NoError(t, db.DeleteZone(ctx, domain.LEGACY_ZONE_NAME))
	assert.Len(t, fake.objects, 1)
	assert.ErrorIs(t, db.DeleteZone(ctx, domain.LEGACY_ZONE_NAME), domain.ErrZoneNotFound)
}
