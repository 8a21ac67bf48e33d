package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Query describes a document, a collection, or an ordered and limited slice of one.
type Query struct {
	Collection string
	DocID      string
	OrderBy    string
	Descending bool
	Limit      int
	// LimitToLast keeps the last Limit documents in order instead of the first.
	LimitToLast bool
}

// Doc selects a single document.
func Doc(collection, docID string) Query {
	return Query{Collection: collection, DocID: docID}
}

// Collection selects every document of a collection.
func Collection(name string) Query {
	return Query{Collection: name}
}

// OrderedBy sorts ascending by a top-level field.
func (q Query) OrderedBy(field string) Query {
	q.OrderBy = field
	return q
}

// First keeps the first n documents.
func (q Query) First(n int) Query {
	q.Limit = n
	q.LimitToLast = false
	return q
}

// Last keeps the last n documents, still returned in query order.
func (q Query) Last(n int) Query {
	q.Limit = n
	q.LimitToLast = true
	return q
}

// Matches reports whether a write to collection/docID can change the query result.
func (q Query) Matches(collection, docID string) bool {
	if q.Collection != collection {
		return false
	}
	return q.DocID == "" || q.DocID == docID
}

func (q Query) String() string {
	if q.DocID != "" {
		return fmt.Sprintf("%s/%s", q.Collection, q.DocID)
	}
	s := q.Collection
	if q.OrderBy != "" {
		s += " order by " + q.OrderBy
	}
	if q.Limit > 0 {
		if q.LimitToLast {
			s += fmt.Sprintf(" last %d", q.Limit)
		} else {
			s += fmt.Sprintf(" first %d", q.Limit)
		}
	}
	return s
}

// apply filters, sorts and limits docs in place of a backend that cannot.
func (q Query) apply(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.DocID != "" && d.ID != q.DocID {
			continue
		}
		out = append(out, d)
	}

	if q.OrderBy != "" {
		keys := make(map[string]any, len(out))
		for _, d := range out {
			keys[d.ID] = fieldValue(d, q.OrderBy)
		}
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(keys[out[i].ID], keys[out[j].ID])
			if c == 0 {
				c = compareValues(out[i].ID, out[j].ID)
			}
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}

	if q.Limit > 0 && len(out) > q.Limit {
		if q.LimitToLast {
			out = out[len(out)-q.Limit:]
		} else {
			out = out[:q.Limit]
		}
	}
	return out
}

func fieldValue(d Document, field string) any {
	var fields map[string]any
	if err := json.Unmarshal(d.Data, &fields); err != nil {
		return nil
	}
	return fields[field]
}

// compareValues orders nil < bool < number < string.
func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}
