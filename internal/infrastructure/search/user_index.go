package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-users-crud/internal/domain/entity"
)

const (
	defaultRequestTimeout = 3 * time.Second
	externalVersion       = "external"
)

// UserIndex keeps a searchable copy of users in Elasticsearch.
//
// Documents carry an external version: updatedAt in microseconds for
// writes and the removal time for deletes. Elasticsearch refuses any write
// whose version is not newer than the stored one, so a late or replayed
// write cannot replace a newer document or bring back a removed one.
type UserIndex struct {
	es      *elasticsearch.Client
	index   string
	timeout time.Duration
	now     func() time.Time
}

func NewUserIndex(es *elasticsearch.Client, index string, timeout time.Duration) *UserIndex {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &UserIndex{es: es, index: index, timeout: timeout, now: time.Now}
}

// Index writes u. A conflict means a newer version is already stored and
// is not an error.
func (i *UserIndex) Index(ctx context.Context, u *entity.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	version := int(u.UpdatedAt.UnixMicro())
	req := esapi.IndexRequest{
		Index:       i.index,
		DocumentID:  u.ID,
		Body:        bytes.NewReader(b),
		Refresh:     "false",
		Version:     &version,
		VersionType: externalVersion,
	}
	c, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	res, err := req.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusConflict {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// Remove deletes the user document. A missing document is not an error.
func (i *UserIndex) Remove(ctx context.Context, id string) error {
	version := int(i.now().UnixMicro())
	req := esapi.DeleteRequest{Index: i.index, DocumentID: id, Version: &version, VersionType: externalVersion}
	c, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	res, err := req.Do(c, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

// Search performs a simple multi_match search on email, name and bio.
func (i *UserIndex) Search(ctx context.Context, q string, size int) ([]entity.User, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name", "bio"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	res, err := i.es.Search(
		i.es.Search.WithContext(c),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string      `json:"_id"`
				Source entity.User `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.User, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
