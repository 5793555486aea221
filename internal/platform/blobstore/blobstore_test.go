package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	obj, err := s.Put(ctx, "audit/2024-01-01.ndjson", "application/x-ndjson", []byte("{}\n"), nil)
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if obj.Size != 3 || obj.SHA256 == "" {
		t.Errorf("unexpected object: %+v", obj)
	}

	data, got, err := s.Get(ctx, "audit/2024-01-01.ndjson")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(data) != "{}\n" || got.ContentType != "application/x-ndjson" {
		t.Errorf("unexpected blob %q %+v", data, got)
	}
}

func TestMemoryStore_CreateOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Put(ctx, "k", "text/plain", []byte("a"), nil)
	if _, err := s.Put(ctx, "k", "text/plain", []byte("b"), nil); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "", "text/plain", nil, nil); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListByPrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, k := range []string{"audit/b", "audit/a", "other/c"} {
		_, _ = s.Put(ctx, k, "text/plain", []byte(k), nil)
	}
	objs, _ := s.List(ctx, "audit/")
	if len(objs) != 2 || objs[0].Key != "audit/a" {
		t.Errorf("unexpected list: %+v", objs)
	}
}

// fakeS3 answers the path-style requests the SDK makes for Put, Get and
// ListObjectsV2.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
	meta        http.Header
}

func response(code int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    code,
		Body:          io.NopCloser(strings.NewReader(body)),
		Header:        header,
		ContentLength: int64(len(body)),
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

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k].body))
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	switch req.Method {
	case http.MethodPut:
		if _, exists := f.objects[key]; exists && req.Header.Get("If-None-Match") == "*" {
			return response(http.StatusPreconditionFailed,
				`<Error><Code>PreconditionFailed</Code><Message>exists</Message></Error>`,
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		body, _ := io.ReadAll(req.Body)
		meta := http.Header{}
		for h, v := range req.Header {
			if strings.HasPrefix(strings.ToLower(h), "x-amz-meta-") {
				meta[h] = v
			}
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type"), meta: meta}
		return response(http.StatusOK, "", http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return response(http.StatusNotFound,
				`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`,
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		h := http.Header{
			"Content-Type":  {obj.contentType},
			"Last-Modified": {time.Now().UTC().Format(http.TimeFormat)},
		}
		for k, v := range obj.meta {
			h[k] = v
		}
		resp := response(http.StatusOK, "", h)
		resp.Body = io.NopCloser(bytes.NewReader(obj.body))
		resp.ContentLength = int64(len(obj.body))
		return resp, nil
	}
	return response(http.StatusNotImplemented, "", nil), nil
}

func newFakeS3Store(t *testing.T) *S3Store {
	t.Helper()
	s, err := NewS3Store(context.Background(), S3Config{
		Bucket:          "lims-archive",
		Region:          "us-east-1",
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: &fakeS3{objects: make(map[string]fakeObject)}},
	})
	if err != nil {
		t.Fatalf("NewS3Store() error: %v", err)
	}
	return s
}

func TestS3Store_PutGetList(t *testing.T) {
	s := newFakeS3Store(t)
	ctx := context.Background()

	body := []byte(`{"action":"CREATE"}` + "\n")
	obj, err := s.Put(ctx, "audit/export-1.ndjson", "application/x-ndjson", body, map[string]string{"entries": "1"})
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	data, got, err := s.Get(ctx, "audit/export-1.ndjson")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(data, body) {
		t.Errorf("expected %q, got %q", body, data)
	}
	if got.SHA256 != obj.SHA256 {
		t.Errorf("expected checksum %s from metadata, got %s", obj.SHA256, got.SHA256)
	}

	objs, err := s.List(ctx, "audit/")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(objs) != 1 || objs[0].Key != "audit/export-1.ndjson" {
		t.Errorf("unexpected list: %+v", objs)
	}
}

func TestS3Store_CreateOnlyAndMissing(t *testing.T) {
	s := newFakeS3Store(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, "k", "text/plain", []byte("a"), nil); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if _, err := s.Put(ctx, "k", "text/plain", []byte("b"), nil); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
	if _, _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}
