package query

import (
	"context"
	"slices"
	"sync"
	"time"

	"datagrid/internal/core/apperror"
	"datagrid/internal/domain/filter"
	"datagrid/pkg/logger"
)

// UpdateKind selects the write cadence of a state change.
type UpdateKind int

const (
	// UpdateValue is a free-text edit. Writes are debounced.
	UpdateValue UpdateKind = iota
	// UpdateStructure adds or removes filters or changes operators. Writes are throttled.
	UpdateStructure
	// UpdateImmediate is written at once (pagination, sorting).
	UpdateImmediate
	// UpdateHistory is written at once as a new history entry, whatever
	// the configured Mode.
	UpdateHistory
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateValue:
		return "value"
	case UpdateStructure:
		return "structure"
	case UpdateHistory:
		return "history"
	default:
		return "immediate"
	}
}

// SyncConfig configures a Synchronizer.
type SyncConfig struct {
	Debounce time.Duration // default 300ms
	Throttle time.Duration // default 1s
	Mode     Mode          // history mode of writes other than UpdateHistory
	Clock    Clock
	Logger   *logger.Logger
}

// DefaultSyncConfig returns the stock cadence.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Debounce: 300 * time.Millisecond,
		Throttle: time.Second,
		Mode:     Shallow,
	}
}

// Synchronizer owns the query state of one table and mirrors it into a
// ParamStore. All mutations go through Update, which serializes them.
//
// Writes are last-write-wins: every mutation bumps a version, a write always
// serializes the newest state, and a scheduled write whose version has
// already been written is skipped. A debounced value edit can therefore
// never overwrite a later structural change.
type Synchronizer struct {
	codec *Codec
	store ParamStore
	cfg   SyncConfig
	log   *logger.Logger

	debounce *Debouncer
	throttle *Throttler

	mu        sync.Mutex
	state     Snapshot
	version   uint64
	listeners []func(Snapshot)
	closed    bool

	writeMu sync.Mutex
	written uint64
	last    map[string]string
}

// NewSynchronizer creates a Synchronizer and restores state from store.
func NewSynchronizer(store ParamStore, codec *Codec, cfg SyncConfig) *Synchronizer {
	def := DefaultSyncConfig()
	if cfg.Debounce == 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.Throttle == 0 {
		cfg.Throttle = def.Throttle
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	s := &Synchronizer{
		codec:    codec,
		store:    store,
		cfg:      cfg,
		log:      log.WithComponent("query.sync"),
		debounce: NewDebouncer(cfg.Clock, cfg.Debounce),
		throttle: NewThrottler(cfg.Clock, cfg.Throttle),
	}
	s.Load()
	return s
}

// Load replaces the state with what the store currently holds, for example
// after back/forward navigation. Pending writes are dropped.
func (s *Synchronizer) Load() Snapshot {
	s.debounce.Cancel()
	s.throttle.Cancel()

	snap := s.codec.Decode(s.store.Read)
	current := make(map[string]string, 6)
	for _, k := range s.codec.Keys().All() {
		if v, ok := s.store.Read(k); ok {
			current[k] = v
		}
	}

	s.mu.Lock()
	s.state = snap
	s.version++
	v := s.version
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.writeMu.Lock()
	s.written = v
	s.last = current
	s.writeMu.Unlock()

	for _, fn := range listeners {
		fn(snap.Clone())
	}
	return snap.Clone()
}

// Snapshot returns a copy of the current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// OnChange registers fn to run after every state change.
func (s *Synchronizer) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update applies mutate to a copy of the state, sanitizes the result and
// schedules a write according to kind. Changing filters, join or search
// returns to the first page.
func (s *Synchronizer) Update(kind UpdateKind, mutate func(*Snapshot)) Snapshot {
	s.mu.Lock()
	if s.closed {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap
	}

	prev := s.state
	next := prev.Clone()
	mutate(&next)
	next = s.codec.Sanitize(next)
	if !next.Filters.Equal(prev.Filters) || next.Join != prev.Join || next.Search != prev.Search {
		next.PageIndex = 0
	}

	s.state = next
	s.version++
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next.Clone())
	}

	switch kind {
	case UpdateValue:
		s.debounce.Trigger(s.flushWrite)
	case UpdateStructure:
		s.throttle.Trigger(s.flushWrite)
	case UpdateHistory:
		s.write(Deep)
	default:
		s.write(s.cfg.Mode)
	}
	return next.Clone()
}

func (s *Synchronizer) flushWrite() { s.write(s.cfg.Mode) }

// write stores the newest state unless that version was already written.
func (s *Synchronizer) write(mode Mode) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	v, snap := s.version, s.state.Clone()
	s.mu.Unlock()
	if v <= s.written {
		return
	}

	values := s.codec.Encode(snap)
	changed := make(map[string]string, len(values))
	for k, val := range values {
		if prev, ok := s.last[k]; (ok && prev != val) || (!ok && val != "") {
			changed[k] = val
		}
	}
	s.written = v
	s.last = make(map[string]string, len(values))
	for k, val := range values {
		if val != "" {
			s.last[k] = val
		}
	}
	if len(changed) == 0 {
		return
	}

	s.put(changed, mode)
	s.log.Debugw("query state written", "version", v, "keys", len(changed), "mode", mode.String())
}

// put writes changed keys as one navigation step.
func (s *Synchronizer) put(changed map[string]string, mode Mode) {
	if bw, ok := s.store.(BatchWriter); ok {
		bw.WriteAll(changed, mode)
		return
	}
	for _, k := range s.codec.Keys().All() {
		val, ok := changed[k]
		if !ok {
			continue
		}
		s.store.Write(k, val, mode)
		mode = Shallow
	}
}

// Flush writes pending changes now.
func (s *Synchronizer) Flush() {
	s.debounce.Flush()
	s.throttle.Flush()
	s.write(s.cfg.Mode)
}

// Close flushes pending changes and stops accepting updates.
func (s *Synchronizer) Close() {
	s.Flush()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.debounce.Cancel()
	s.throttle.Cancel()
}

// --- Filters ---

// SetFilter adds or replaces the descriptor for d.ID. An empty descriptor
// removes the column's filter.
func (s *Synchronizer) SetFilter(d filter.Descriptor) error {
	if err := s.checkColumn(d.ID, d.Variant); err != nil {
		return err
	}
	if d.Operator == "" {
		d.Operator = filter.DefaultOperatorFor(d.Variant)
	}
	if err := filter.Validate(d); err != nil {
		return err
	}
	s.Update(UpdateStructure, func(snap *Snapshot) {
		snap.Filters = snap.Filters.Upsert(d)
	})
	return nil
}

// UpdateFilterValue edits the operand of a column's filter, creating the
// filter with the variant's default operator when absent. Typing is
// debounced; clearing the value removes the filter and is throttled.
func (s *Synchronizer) UpdateFilterValue(columnID string, value filter.Operand) error {
	variant, err := s.variantOf(columnID)
	if err != nil {
		return err
	}

	kind := UpdateValue
	if value.IsEmpty() {
		kind = UpdateStructure
	}
	s.Update(kind, func(snap *Snapshot) {
		d, ok := snap.Filters.Get(columnID)
		if !ok {
			d = filter.Descriptor{ID: columnID, Variant: variant, Operator: filter.DefaultOperatorFor(variant)}
		}
		if !d.Operator.NeedsOperand() && !value.IsEmpty() {
			d.Operator = filter.DefaultOperatorFor(variant)
		}
		d.Value = value
		snap.Filters = snap.Filters.Upsert(d)
	})
	return nil
}

// SetFilterOperator changes the operator of a column's filter. Switching to
// isEmpty or isNotEmpty creates the filter if needed; switching to an
// operator that needs a value drops a filter that has none.
func (s *Synchronizer) SetFilterOperator(columnID string, op filter.Operator) error {
	variant, err := s.variantOf(columnID)
	if err != nil {
		return err
	}
	if !filter.Supports(variant, op) {
		return apperror.NewUnsupportedOperator(string(variant), string(op)).WithDetail("column", columnID)
	}

	s.Update(UpdateStructure, func(snap *Snapshot) {
		d, ok := snap.Filters.Get(columnID)
		if !ok {
			d = filter.Descriptor{ID: columnID, Variant: variant}
		}
		d.Operator = op
		snap.Filters = snap.Filters.Upsert(d)
	})
	return nil
}

// RemoveFilter removes a column's filter.
func (s *Synchronizer) RemoveFilter(columnID string) {
	s.Update(UpdateStructure, func(snap *Snapshot) {
		snap.Filters = snap.Filters.Remove(columnID)
	})
}

// RemoveFilterByID removes the filter carrying filterID.
func (s *Synchronizer) RemoveFilterByID(filterID string) {
	s.Update(UpdateStructure, func(snap *Snapshot) {
		snap.Filters = snap.Filters.RemoveByFilterID(filterID)
	})
}

// ClearFilters removes every filter.
func (s *Synchronizer) ClearFilters() {
	s.Update(UpdateStructure, func(snap *Snapshot) {
		snap.Filters = nil
	})
}

// SetJoinOperator sets how filters combine.
func (s *Synchronizer) SetJoinOperator(j filter.JoinOperator) error {
	parsed, ok := filter.ParseJoinOperator(string(j))
	if !ok {
		return apperror.NewValidation("unknown join operator").WithDetail("joinOperator", string(j))
	}
	s.Update(UpdateStructure, func(snap *Snapshot) {
		snap.Join = parsed
	})
	return nil
}

// SetSearch sets the global search text. Writes are debounced.
func (s *Synchronizer) SetSearch(text string) {
	s.Update(UpdateValue, func(snap *Snapshot) {
		snap.Search = text
	})
}

// --- Sorting and pagination ---

// SetSorting replaces the sort set.
func (s *Synchronizer) SetSorting(sorts []Sort) {
	s.Update(UpdateImmediate, func(snap *Snapshot) {
		snap.Sorts = slices.Clone(sorts)
	})
}

// ToggleSort cycles a column through ascending, descending and unsorted.
// With multi, other sort keys are kept and the column is appended.
func (s *Synchronizer) ToggleSort(columnID string, multi bool) {
	s.Update(UpdateImmediate, func(snap *Snapshot) {
		i := slices.IndexFunc(snap.Sorts, func(x Sort) bool { return x.ID == columnID })
		switch {
		case i < 0 && multi:
			snap.Sorts = append(snap.Sorts, Sort{ID: columnID})
		case i < 0:
			snap.Sorts = []Sort{{ID: columnID}}
		case !snap.Sorts[i].Desc:
			snap.Sorts[i].Desc = true
			if !multi {
				snap.Sorts = []Sort{snap.Sorts[i]}
			}
		default:
			snap.Sorts = slices.Delete(snap.Sorts, i, i+1)
			if !multi {
				snap.Sorts = nil
			}
		}
	})
}

// RemoveSort drops columnID from the sort set.
func (s *Synchronizer) RemoveSort(columnID string) {
	s.Update(UpdateImmediate, func(snap *Snapshot) {
		snap.Sorts = slices.DeleteFunc(snap.Sorts, func(x Sort) bool { return x.ID == columnID })
	})
}

// SetPage moves to a 0-based page index.
func (s *Synchronizer) SetPage(index int) {
	s.Update(UpdateImmediate, func(snap *Snapshot) {
		snap.PageIndex = max(index, 0)
	})
}

// SetPageSize changes the page size and returns to the first page.
func (s *Synchronizer) SetPageSize(size int) {
	s.Update(UpdateImmediate, func(snap *Snapshot) {
		snap.PageSize = size
		snap.PageIndex = 0
	})
}

// Reset restores the defaults.
func (s *Synchronizer) Reset() {
	s.Update(UpdateStructure, func(snap *Snapshot) {
		*snap = s.codec.Defaults().Snapshot()
	})
}

func (s *Synchronizer) variantOf(columnID string) (filter.Variant, error) {
	if s.codec.catalog == nil {
		return "", apperror.NewValidation("column catalog is required to infer the filter variant").
			WithDetail("column", columnID)
	}
	v, ok := s.codec.catalog.Variant(columnID)
	if !ok {
		return "", apperror.NewNotFound("filterable column", columnID)
	}
	return v, nil
}

func (s *Synchronizer) checkColumn(columnID string, variant filter.Variant) error {
	if s.codec.catalog == nil {
		return nil
	}
	v, ok := s.codec.catalog.Variant(columnID)
	if !ok {
		return apperror.NewNotFound("filterable column", columnID)
	}
	if v != variant {
		return apperror.NewValidation("filter variant does not match the column").
			WithDetail("column", columnID).
			WithDetail("variant", string(variant))
	}
	return nil
}

// LogDrops returns a DropHook that reports discarded entries as warnings.
func LogDrops(ctx context.Context) DropHook {
	return func(err *apperror.AppError) {
		logger.Warn(ctx, "dropped persisted query state", "code", err.Code, "reason", err.Message, "details", err.Details)
	}
}
