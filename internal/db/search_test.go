package db

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/freva-org/databrowser/internal/domain"
)

func TestFacetCounts_Pairs(t *testing.T) {
	body := `{"response":{"numFound":3,"start":0,"docs":[]},
	  "facet_counts":{"facet_fields":{"model":["MPI-ESM-LR",2,"MPI-ESM-MR",1],"bad":["x"]}}}`
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var resp SelectResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatal(err)
	}

	pairs, err := resp.FacetCounts.Pairs("model")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 || pairs[0] != (FacetPair{"MPI-ESM-LR", 2}) || pairs[1] != (FacetPair{"MPI-ESM-MR", 1}) {
		t.Errorf("pairs = %+v", pairs)
	}

	if _, err := resp.FacetCounts.Pairs("bad"); err == nil {
		t.Error("expected error for odd entry count")
	}
	if got, _ := resp.FacetCounts.Pairs("missing"); len(got) != 0 {
		t.Errorf("missing field gave %v", got)
	}

	if m := resp.Metadata(); m.NumFound != 3 || m.Start != 0 {
		t.Errorf("metadata = %+v", m)
	}
}

func TestSelectResponse_BodyMissing(t *testing.T) {
	var resp SelectResponse
	if err := json.Unmarshal([]byte(`{"responseHeader":{"status":0}}`), &resp); err != nil {
		t.Fatal(err)
	}
	if _, err := resp.Body(); !errors.Is(err, ErrMalformedResponse) || !errors.Is(err, domain.ErrBackendCommunication) {
		t.Errorf("Body() error = %v", err)
	}
	if m := resp.Metadata(); m != (Metadata{}) {
		t.Errorf("metadata = %+v", m)
	}

	var nilResp *SelectResponse
	if _, err := nilResp.Body(); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("nil Body() error = %v", err)
	}
}
