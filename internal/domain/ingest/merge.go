package ingest

import "sort"

// MergeResult holds the outcome of a snapshot merge.
type MergeResult[R any] struct {
	// Merged is the deduplicated union, sorted by the family's date field.
	Merged []R
	// Added contains the incoming records whose natural key was absent
	// from the existing set (after intra-batch dedup, last one wins).
	Added []R
}

// Merge performs a last-write-wins merge of incoming into existing over the
// natural key. Incoming records win ties with existing ones; when incoming
// itself repeats a key, the last occurrence wins. The operation is
// idempotent: merging the same batch twice yields the same set and an
// empty diff.
func Merge[R any](existing, incoming []R, key func(R) string, less func(a, b R) bool) MergeResult[R] {
	byKey := make(map[string]R, len(existing)+len(incoming))
	order := make([]string, 0, len(existing)+len(incoming))

	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		k := key(r)
		if _, dup := byKey[k]; !dup {
			order = append(order, k)
		}
		byKey[k] = r
		seen[k] = struct{}{}
	}

	for _, r := range incoming {
		k := key(r)
		if _, dup := byKey[k]; !dup {
			order = append(order, k)
		}
		byKey[k] = r
	}

	res := MergeResult[R]{Merged: make([]R, 0, len(order))}
	for _, k := range order {
		r := byKey[k]
		res.Merged = append(res.Merged, r)
		if _, had := seen[k]; !had {
			res.Added = append(res.Added, r)
		}
	}
	sort.SliceStable(res.Merged, func(i, j int) bool {
		return less(res.Merged[i], res.Merged[j])
	})
	return res
}
