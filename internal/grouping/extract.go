package grouping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"duck-grouper/internal/domain"
)

// ExtractGroupMetadata strips domain.MetadataField from every record and
// returns the distinct groups it carried, sorted by group id.
//
// Records whose metadata is present get its group id folded into a copy of
// their Metadata map under domain.GroupIDKey; records without it are returned
// with Metadata untouched. The input slice and its maps are never modified.
//
// The returned group list is nil when no record carried metadata, and non-nil
// (possibly a single group) otherwise. Two groups are the same group when all
// of their fields are equal; numbers compare by value, so 10 and 10.0 match.
func ExtractGroupMetadata(records []domain.Record) ([]domain.Record, []domain.GroupMetadata, error) {
	out := make([]domain.Record, len(records))
	seen := newGroupSet()

	for i, rec := range records {
		raw, present := rec.Data[domain.MetadataField]
		out[i] = domain.Record{Data: withoutField(rec.Data, domain.MetadataField), Metadata: rec.Metadata}

		if !present {
			continue
		}
		meta, err := coerceMetadata(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		if meta.IsZero() {
			continue
		}

		if err := seen.add(meta); err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i].Metadata = withGroupID(rec.Metadata, meta.GroupID)
	}

	return out, seen.sorted(), nil
}

// DecodeMetadata parses the JSON metadata object produced by a plan. Numbers
// are kept as json.Number so integer ids and exact bounds survive decoding.
func DecodeMetadata(data []byte) (*domain.GroupMetadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var meta domain.GroupMetadata
	if err := dec.Decode(&meta); err != nil {
		return nil, domain.ErrValidation("decode group metadata: %v", err)
	}
	return &meta, nil
}

func withoutField(data map[string]any, field string) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k != field {
			out[k] = v
		}
	}
	return out
}

func withGroupID(metadata map[string]any, id int64) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out[domain.GroupIDKey] = id
	return out
}

// coerceMetadata accepts the shapes metadata takes on its way through the
// engine and the outer surfaces. A nil value yields a nil result.
func coerceMetadata(raw any) (*domain.GroupMetadata, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case *domain.GroupMetadata:
		return v, nil
	case domain.GroupMetadata:
		return &v, nil
	case string:
		return DecodeMetadata([]byte(v))
	case []byte:
		return DecodeMetadata(v)
	case map[string]any:
		return metadataFromMap(v)
	default:
		return nil, domain.ErrValidation("unsupported group metadata type %T", raw)
	}
}

func metadataFromMap(m map[string]any) (*domain.GroupMetadata, error) {
	meta := &domain.GroupMetadata{}
	var err error
	if meta.GroupID, err = int64Field(m, keyGroupID); err != nil {
		return nil, err
	}
	if meta.Count, err = int64Field(m, keyCount); err != nil {
		return nil, err
	}

	for key, dst := range map[string]*map[string]any{
		keyFirstValue:    &meta.FirstValue,
		keyLastValue:     &meta.LastValue,
		keyLessThanEq:    &meta.LessThanEq,
		keyGreaterThanEq: &meta.GreaterThanEq,
		keyLessThan:      &meta.LessThan,
		keyGreaterThan:   &meta.GreaterThan,
	} {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		obj, err := cast.ToStringMapE(v)
		if err != nil {
			return nil, domain.ErrValidation("group metadata field %s: %v", key, err)
		}
		*dst = obj
	}
	return meta, nil
}

func int64Field(m map[string]any, key string) (int64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, domain.ErrValidation("group metadata field %s: %v", key, err)
	}
	return n, nil
}

// groupSet deduplicates metadata by canonical key, bucketed by its hash.
type groupSet struct {
	buckets map[uint64][]keyedGroup
	groups  []domain.GroupMetadata
}

type keyedGroup struct {
	key   string
	index int
}

func newGroupSet() *groupSet {
	return &groupSet{buckets: make(map[uint64][]keyedGroup)}
}

func (s *groupSet) add(meta *domain.GroupMetadata) error {
	key, err := canonicalKey(meta)
	if err != nil {
		return err
	}
	h := xxhash.Sum64String(key)
	for _, kg := range s.buckets[h] {
		if kg.key == key {
			return nil
		}
	}
	s.buckets[h] = append(s.buckets[h], keyedGroup{key: key, index: len(s.groups)})
	s.groups = append(s.groups, *meta)
	return nil
}

// sorted returns groups ordered by id; groups sharing an id keep first-seen order.
func (s *groupSet) sorted() []domain.GroupMetadata {
	if s.groups == nil {
		return nil
	}
	out := slices.Clone(s.groups)
	slices.SortStableFunc(out, func(a, b domain.GroupMetadata) int {
		switch {
		case a.GroupID < b.GroupID:
			return -1
		case a.GroupID > b.GroupID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// canonicalKey renders meta with sorted keys and normalized scalars.
func canonicalKey(meta *domain.GroupMetadata) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d", meta.GroupID, meta.Count)
	for _, obj := range []map[string]any{
		meta.FirstValue, meta.LastValue,
		meta.LessThanEq, meta.GreaterThanEq,
		meta.LessThan, meta.GreaterThan,
	} {
		b.WriteByte('|')
		if err := writeCanonical(&b, obj); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case map[string]any:
		if x == nil {
			b.WriteString("null")
			return nil
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteKey(k))
			b.WriteByte(':')
			if err := writeCanonical(b, x[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case string:
		b.WriteString("$" + quoteKey(x))
	case bool:
		if x {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case time.Time:
		b.WriteString("@" + x.UTC().Format(time.RFC3339Nano))
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return domain.ErrValidation("group metadata number %q: %v", x.String(), err)
		}
		b.WriteString("#" + d.String())
	case float64:
		writeFloat(b, x)
	case float32:
		writeFloat(b, float64(x))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		b.WriteString("#" + decimal.NewFromInt(cast.ToInt64(x)).String())
	default:
		// Anything else (nested engine values, decimals) goes through JSON.
		raw, err := json.Marshal(x)
		if err != nil {
			return domain.ErrValidation("group metadata value of type %T: %v", x, err)
		}
		var generic any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return domain.ErrValidation("group metadata value of type %T: %v", x, err)
		}
		if _, isString := generic.(string); isString {
			b.WriteString("$" + string(raw))
			return nil
		}
		return writeCanonical(b, generic)
	}
	return nil
}

func writeFloat(b *strings.Builder, f float64) {
	switch {
	case math.IsNaN(f):
		b.WriteString("#NaN")
	case math.IsInf(f, 1):
		b.WriteString("#+Inf")
	case math.IsInf(f, -1):
		b.WriteString("#-Inf")
	default:
		b.WriteString("#" + decimal.NewFromFloat(f).String())
	}
}

func quoteKey(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
