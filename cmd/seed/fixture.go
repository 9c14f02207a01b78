package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/goccy/go-json"

	"github.com/givers/learnerfund/internal/docstore"
)

// idKey is the fixture field that names a document explicitly.
const idKey = "_id"

// naturalKeys name the field used as the document id when _id is absent.
// Collections missing here get a random id.
var naturalKeys = map[string]string{
	"campaigns": "campaignID",
	"loc_ref":   "country",
}

// fixedIDs are collections holding a single well-known document.
var fixedIDs = map[string]string{
	"aggregate_data": "data",
}

var seedable = map[string]bool{
	"campaigns":        true,
	"loc_ref":          true,
	"user_pool":        true,
	"unassigned_users": true,
	"aggregate_data":   true,
}

// fixture maps a top-level collection to its documents.
type fixture map[string][]map[string]any

type seedDoc struct {
	path string
	data map[string]any
}

// readSource returns the fixture bytes from a local file or gs://bucket/object.
func readSource(ctx context.Context, src string) ([]byte, error) {
	rest, ok := strings.CutPrefix(src, "gs://")
	if !ok {
		return os.ReadFile(src)
	}
	sep := strings.IndexByte(rest, '/')
	if sep <= 0 || sep == len(rest)-1 {
		return nil, fmt.Errorf("invalid gs URL %q", src)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(rest[:sep]).Object(rest[sep+1:]).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func parseFixture(b []byte) (fixture, error) {
	var f fixture
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for col := range f {
		if !seedable[col] {
			return nil, fmt.Errorf("collection %q cannot be seeded", col)
		}
	}
	return f, nil
}

// documents flattens f into store writes, ordered by path.
func (f fixture) documents(newID func() string) ([]seedDoc, error) {
	var out []seedDoc
	seen := map[string]bool{}
	for col, items := range f {
		for i, item := range items {
			id, err := documentID(col, item, newID)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", col, i, err)
			}
			path := docstore.Join(col, id)
			if seen[path] {
				return nil, fmt.Errorf("%s[%d]: duplicate document %s", col, i, path)
			}
			seen[path] = true

			data := make(map[string]any, len(item))
			for k, v := range item {
				if k != idKey {
					data[k] = v
				}
			}
			out = append(out, seedDoc{path: path, data: data})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out, nil
}

func documentID(col string, item map[string]any, newID func() string) (string, error) {
	if v, ok := item[idKey]; ok {
		return idString(v)
	}
	if id, ok := fixedIDs[col]; ok {
		return id, nil
	}
	if field, ok := naturalKeys[col]; ok {
		v, ok := item[field]
		if !ok {
			return "", fmt.Errorf("missing %s", field)
		}
		return idString(v)
	}
	return newID(), nil
}

func idString(v any) (string, error) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" || strings.Contains(s, "/") {
		return "", errors.New("document id must be a non-empty string without '/'")
	}
	return s, nil
}
