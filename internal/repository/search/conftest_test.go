package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/freva-org/databrowser/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	selectFn func(ctx context.Context, core string, q db.Query) (*db.SelectResponse, error)
	fieldsFn func(ctx context.Context, core string) ([]string, error)

	calls   int
	queries []url.Values
}

func (m *mockStore) Select(ctx context.Context, core string, q db.Query) (*db.SelectResponse, error) {
	m.calls++
	vals, _ := url.ParseQuery(q.Encode())
	m.queries = append(m.queries, vals)
	if m.selectFn != nil {
		return m.selectFn(ctx, core, q)
	}
	return &db.SelectResponse{Response: &db.ResponseBody{}}, nil
}

func (m *mockStore) Fields(ctx context.Context, core string) ([]string, error) {
	if m.fieldsFn != nil {
		return m.fieldsFn(ctx, core)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

// pagedIndex serves numFound synthetic documents honoring start/rows.
func pagedIndex(numFound int) func(context.Context, string, db.Query) (*db.SelectResponse, error) {
	return func(_ context.Context, _ string, q db.Query) (*db.SelectResponse, error) {
		start, _ := strconv.Atoi(q.Param(db.ParamStart))
		rows, _ := strconv.Atoi(q.Param(db.ParamRows))
		resp := &db.SelectResponse{Response: &db.ResponseBody{NumFound: numFound, Start: start}}
		for i := start; i < start+rows && i < numFound; i++ {
			resp.Response.Docs = append(resp.Response.Docs, map[string]any{"file": fmt.Sprintf("/data/f%02d.nc", i)})
		}
		return resp, nil
	}
}
