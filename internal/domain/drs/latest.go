package drs

import "iter"

// Identity is what the latest-version resolver needs to know about an item.
type Identity struct {
	Dataset string
	Version Version
}

// Latest keeps, per dataset, only the items at the highest version. Items
// tied at the highest version are all kept.
//
// Unlike every other stream in this module, the returned sequence is not
// lazy: the first pull drains seq completely, because the latest version of
// a dataset is unknown until every item has been seen. Buffered memory is
// proportional to the number of datasets times the tie group size. An
// upstream or identify error is yielded as the only element; buffered
// items are discarded. Output follows the order in which datasets were
// first seen.
func Latest[T any](seq iter.Seq2[T, error], identify func(T) (Identity, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		type group struct {
			version Version
			items   []T
		}
		var zero T
		groups := make(map[string]*group)
		var order []string

		for item, err := range seq {
			if err != nil {
				yield(zero, err)
				return
			}
			id, err := identify(item)
			if err != nil {
				yield(zero, err)
				return
			}
			g, ok := groups[id.Dataset]
			if !ok {
				groups[id.Dataset] = &group{version: id.Version, items: []T{item}}
				order = append(order, id.Dataset)
				continue
			}
			switch c := id.Version.Compare(g.version); {
			case c > 0:
				g.version = id.Version
				g.items = append(g.items[:0:0], item)
			case c == 0:
				g.items = append(g.items, item)
			}
		}

		for _, ds := range order {
			for _, item := range groups[ds].items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// CandidateIdentity identifies a decoded candidate by its un-versioned dataset key.
func CandidateIdentity(c Candidate) (Identity, error) {
	ds, err := c.DatasetKey(false)
	if err != nil {
		return Identity{}, err
	}
	v, _ := c.Version()
	return Identity{Dataset: ds, Version: v}, nil
}
