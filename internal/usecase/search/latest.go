package search

import (
	"fmt"
	"iter"

	"github.com/freva-org/databrowser/internal/domain/drs"
	"github.com/freva-org/databrowser/internal/domain/search/result"
	"github.com/freva-org/databrowser/internal/metrics"
)

// resolveLatest wraps drs.Latest and records how many items it dropped.
func resolveLatest[T any](seq iter.Seq2[T, error], identify func(T) (drs.Identity, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		in, out := 0, 0
		counted := func(y func(T, error) bool) {
			for v, err := range seq {
				if err == nil {
					in++
				}
				if !y(v, err) {
					return
				}
			}
		}
		for v, err := range drs.Latest(counted, identify) {
			if err != nil {
				yield(v, err)
				return
			}
			out++
			if !yield(v, nil) {
				return
			}
		}
		metrics.LatestDroppedTotal.Add(float64(in - out))
	}
}

// latestDocuments reduces indexed documents to the latest version of each
// dataset. A metadata item is passed on as soon as it arrives.
func latestDocuments(seq iter.Seq2[result.Item, error]) iter.Seq2[result.Item, error] {
	return func(yield func(result.Item, error) bool) {
		stopped := false
		docs := func(y func(result.Item, error) bool) {
			for it, err := range seq {
				if err == nil && it.IsMetadata() {
					if !yield(it, nil) {
						stopped = true
						return
					}
					continue
				}
				if !y(it, err) {
					return
				}
			}
		}
		for it, err := range resolveLatest(docs, documentIdentity) {
			if stopped || !yield(it, err) {
				return
			}
		}
	}
}

// documentIdentity groups documents by their un-versioned path.
func documentIdentity(it result.Item) (drs.Identity, error) {
	ds := fieldString(it.Doc, fieldDataset)
	if ds == "" {
		ds = it.Doc.Path()
	}
	return drs.Identity{Dataset: ds, Version: drs.ParseVersion(fieldString(it.Doc, fieldVersion))}, nil
}

// fieldString renders a stored field; multi-valued fields yield their first value.
func fieldString(d result.Document, name string) string {
	v, ok := d.Field(name)
	if list, isList := v.([]any); isList {
		if len(list) == 0 {
			return ""
		}
		v = list[0]
	}
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
