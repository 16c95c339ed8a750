package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"datagrid/internal/core/apperror"
	"datagrid/internal/domain/filter"
)

// compressedPrefix marks a filter parameter holding base64url(zstd(json)).
const compressedPrefix = "z:"

// maxFilterPayload bounds the decompressed size of a filter parameter.
const maxFilterPayload = 1 << 20

// Catalog describes the columns whose state may be restored.
type Catalog interface {
	// Variant returns the filter variant of a filterable column.
	Variant(columnID string) (filter.Variant, bool)
	// Sortable reports whether rows may be ordered by the column.
	Sortable(columnID string) bool
}

// DropHook receives every persisted entry the codec discards.
type DropHook func(err *apperror.AppError)

// CodecConfig configures a Codec.
type CodecConfig struct {
	Keys     Keys
	Defaults Defaults
	// CompressAbove compresses the filters parameter when its JSON form is
	// longer than this many bytes. Zero disables compression.
	CompressAbove int
	OnDrop        DropHook
}

// Codec converts snapshots to and from flat string parameters.
// Decoding never fails: malformed entries are dropped one by one.
type Codec struct {
	cfg     CodecConfig
	catalog Catalog
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a Codec. A nil catalog accepts every column.
func NewCodec(catalog Catalog, cfg CodecConfig) (*Codec, error) {
	if cfg.Keys == (Keys{}) {
		cfg.Keys = DefaultKeys()
	}
	if cfg.Defaults.PageSize <= 0 {
		cfg.Defaults.PageSize = DefaultDefaults().PageSize
	}
	if cfg.Defaults.Join == "" {
		cfg.Defaults.Join = filter.JoinAnd
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxFilterPayload))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Codec{cfg: cfg, catalog: catalog, encoder: encoder, decoder: decoder}, nil
}

// Keys returns the parameter names in use.
func (c *Codec) Keys() Keys { return c.cfg.Keys }

// Defaults returns the default parameter values.
func (c *Codec) Defaults() Defaults { return c.cfg.Defaults }

func (c *Codec) drop(key, reason string, details ...any) {
	if c.cfg.OnDrop == nil {
		return
	}
	err := apperror.NewMalformedState(key, reason)
	for i := 0; i+1 < len(details); i += 2 {
		if k, ok := details[i].(string); ok {
			err.WithDetail(k, details[i+1])
		}
	}
	c.cfg.OnDrop(err)
}

// --- Filters ---

// EncodeFilters serializes a filter set into one parameter value.
// An empty set encodes to "".
func (c *Codec) EncodeFilters(set filter.Set) string {
	if len(set) == 0 {
		return ""
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return ""
	}
	if c.cfg.CompressAbove > 0 && len(raw) > c.cfg.CompressAbove {
		return compressedPrefix + base64.RawURLEncoding.EncodeToString(c.encoder.EncodeAll(raw, nil))
	}
	return string(raw)
}

// DecodeFilters restores a filter set, dropping entries that reference
// unknown columns, disagree with the column's variant, use an operator the
// variant does not list, carry no operand, or repeat a column.
func (c *Codec) DecodeFilters(value string) filter.Set {
	key := c.cfg.Keys.Filters
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	raw := []byte(value)
	if rest, ok := strings.CutPrefix(value, compressedPrefix); ok {
		packed, err := base64.RawURLEncoding.DecodeString(rest)
		if err != nil {
			c.drop(key, "filters parameter is not valid base64url")
			return nil
		}
		raw, err = c.decoder.DecodeAll(packed, nil)
		if err != nil {
			c.drop(key, "filters parameter cannot be decompressed")
			return nil
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		c.drop(key, "filters parameter is not a JSON array")
		return nil
	}

	set := make(filter.Set, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		var d filter.Descriptor
		if err := json.Unmarshal(item, &d); err != nil {
			c.drop(key, "filter entry is malformed", "index", i)
			continue
		}
		if reason := c.checkFilter(d); reason != "" {
			c.drop(key, reason, "index", i, "column", d.ID)
			continue
		}
		if _, dup := seen[d.ID]; dup {
			c.drop(key, "duplicate filter for column", "index", i, "column", d.ID)
			continue
		}
		seen[d.ID] = struct{}{}
		set = append(set, d)
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func (c *Codec) checkFilter(d filter.Descriptor) string {
	if c.catalog != nil {
		variant, ok := c.catalog.Variant(d.ID)
		if !ok {
			return "filter references an unknown column"
		}
		if variant != d.Variant {
			return "filter variant does not match the column"
		}
	}
	if err := filter.Validate(d); err != nil {
		return "filter operator is not valid for its variant"
	}
	if d.Empty() {
		return "filter has no value"
	}
	return ""
}

// SanitizeFilters applies the decode checks to an in-memory set.
func (c *Codec) SanitizeFilters(set filter.Set) filter.Set {
	out := make(filter.Set, 0, len(set))
	seen := make(map[string]struct{}, len(set))
	for _, d := range set {
		if c.checkFilter(d) != "" {
			continue
		}
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// --- Sorting ---

// EncodeSorts writes "-createdAt,name": a leading "-" means descending.
func (c *Codec) EncodeSorts(sorts []Sort) string {
	parts := make([]string, 0, len(sorts))
	for _, s := range sorts {
		if s.Desc {
			parts = append(parts, "-"+s.ID)
		} else {
			parts = append(parts, s.ID)
		}
	}
	return strings.Join(parts, ",")
}

// NoSorts is the sort value of an explicitly cleared sort set. It differs
// from a missing key, which restores the default sorts.
const NoSorts = "[]"

// DecodeSorts accepts the compact form and a JSON array of {id, desc}.
// Unknown, unsortable and repeated columns are dropped.
func (c *Codec) DecodeSorts(value string) []Sort {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	var candidates []Sort
	if strings.HasPrefix(value, "[") {
		if err := json.Unmarshal([]byte(value), &candidates); err != nil {
			c.drop(c.cfg.Keys.Sort, "sort parameter is not a JSON array")
			return nil
		}
	} else {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "":
				continue
			case strings.HasPrefix(part, "-"):
				candidates = append(candidates, Sort{ID: part[1:], Desc: true})
			default:
				candidates = append(candidates, Sort{ID: strings.TrimPrefix(part, "+")})
			}
		}
	}

	return c.sanitizeSorts(candidates, true)
}

func (c *Codec) sanitizeSorts(candidates []Sort, report bool) []Sort {
	out := make([]Sort, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, s := range candidates {
		if s.ID == "" || (c.catalog != nil && !c.catalog.Sortable(s.ID)) {
			if report {
				c.drop(c.cfg.Keys.Sort, "sort references an unknown or unsortable column", "column", s.ID)
			}
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SanitizeSorts drops unknown, unsortable and repeated columns.
func (c *Codec) SanitizeSorts(sorts []Sort) []Sort {
	return c.sanitizeSorts(sorts, false)
}

// --- Snapshot ---

// Encode returns the parameter value for every key. Values equal to their
// default are "", meaning the key should be removed from the store.
func (c *Codec) Encode(s Snapshot) map[string]string {
	k, def := c.cfg.Keys, c.cfg.Defaults
	out := make(map[string]string, 6)

	out[k.Filters] = c.EncodeFilters(s.Filters)

	out[k.Join] = ""
	if s.Join != "" && s.Join != def.Join {
		out[k.Join] = string(s.Join)
	}

	out[k.Sort] = ""
	switch sorts := c.EncodeSorts(s.Sorts); {
	case sorts == c.EncodeSorts(def.Sorts):
	case sorts == "":
		out[k.Sort] = NoSorts
	default:
		out[k.Sort] = sorts
	}

	out[k.Page] = ""
	if s.PageIndex > 0 {
		out[k.Page] = strconv.Itoa(s.PageIndex + 1)
	}

	out[k.PerPage] = ""
	if s.PageSize > 0 && s.PageSize != def.PageSize {
		out[k.PerPage] = strconv.Itoa(s.PageSize)
	}

	out[k.Search] = strings.TrimSpace(s.Search)
	return out
}

// Decode restores a snapshot. read returns the raw value of a key.
// Missing or invalid values fall back to defaults.
func (c *Codec) Decode(read func(key string) (string, bool)) Snapshot {
	k, def := c.cfg.Keys, c.cfg.Defaults
	s := def.Snapshot()

	if v, ok := read(k.Filters); ok {
		s.Filters = c.DecodeFilters(v)
	}

	if v, ok := read(k.Join); ok && v != "" {
		if j, valid := filter.ParseJoinOperator(v); valid {
			s.Join = j
		} else {
			c.drop(k.Join, "unknown join operator", "value", v)
		}
	}

	if v, ok := read(k.Sort); ok {
		// A value whose every entry was dropped keeps the defaults.
		if sorts := c.DecodeSorts(v); sorts != nil || strings.TrimSpace(v) == NoSorts {
			s.Sorts = sorts
		}
	}

	if v, ok := read(k.Page); ok && v != "" {
		if page, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && page >= 1 && page <= MaxPage {
			s.PageIndex = page - 1
		} else {
			c.drop(k.Page, "page must be a positive integer within MaxPage", "value", v)
		}
	}

	if v, ok := read(k.PerPage); ok && v != "" {
		size, err := strconv.Atoi(strings.TrimSpace(v))
		switch {
		case err != nil || size < 1:
			c.drop(k.PerPage, "perPage must be a positive integer", "value", v)
		case def.MaxPageSize > 0 && size > def.MaxPageSize:
			s.PageSize = def.MaxPageSize
		default:
			s.PageSize = size
		}
	}

	if v, ok := read(k.Search); ok {
		s.Search = strings.TrimSpace(v)
	}
	return s
}

// Sanitize applies the decode rules to an in-memory snapshot.
func (c *Codec) Sanitize(s Snapshot) Snapshot {
	def := c.cfg.Defaults
	s.Filters = c.SanitizeFilters(s.Filters)
	s.Sorts = c.SanitizeSorts(s.Sorts)
	if j, ok := filter.ParseJoinOperator(string(s.Join)); ok {
		s.Join = j
	} else {
		s.Join = def.Join
	}
	s.PageIndex = max(0, min(s.PageIndex, MaxPage-1))
	if s.PageSize <= 0 {
		s.PageSize = def.PageSize
	}
	if def.MaxPageSize > 0 && s.PageSize > def.MaxPageSize {
		s.PageSize = def.MaxPageSize
	}
	s.Search = strings.TrimSpace(s.Search)
	return s
}
