package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/notifier"
	"github.com/jwalitptl/clinic-console/internal/resource"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

// ListState is the list view's lifecycle state.
type ListState string

const (
	ListIdle    ListState = "idle"
	ListLoading ListState = "loading"
	ListLoaded  ListState = "loaded"
	ListError   ListState = "error"
)

// ViewFilter is the view-side filter state. PageIndex is 1-based.
type ViewFilter struct {
	SearchText   string
	StatusFilter string
	DateFilter   string
	PageSize     int
	PageIndex    int
	SortKey      string
}

// FilterPatch is a sparse ViewFilter update; nil fields are left alone.
type FilterPatch struct {
	SearchText   *string
	StatusFilter *string
	DateFilter   *string
	PageSize     *int
	PageIndex    *int
	SortKey      *string
}

// touchesOnlyPage reports whether the patch changes nothing but PageIndex.
func (p FilterPatch) touchesOnlyPage() bool {
	return p.SearchText == nil && p.StatusFilter == nil && p.DateFilter == nil &&
		p.PageSize == nil && p.SortKey == nil
}

// touchesServerSide reports whether the patch changes a field the server
// evaluates. Pagination and sorting are always derived locally.
func (p FilterPatch) touchesServerSide() bool {
	return p.SearchText != nil || p.StatusFilter != nil || p.DateFilter != nil
}

type listClient[T model.Entity] interface {
	List(ctx context.Context, filter resource.ServerFilter) (resource.ListResult[T], error)
	Resource() string
}

// ListView owns the canonical collection for one screen and derives the
// visible page from it. Filter and page changes recompute the slice
// synchronously; only server-evaluated filter changes re-fetch.
type ListView[T model.Entity] struct {
	client   listClient[T]
	notify   notifier.Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics
	sortKeys map[string]func(T) string

	// serverSide marks search/status/date as server-evaluated; toServer
	// maps the view filter onto query parameters.
	serverSide bool
	toServer   func(ViewFilter) resource.ServerFilter
	// match is the local predicate used when filters are client-side.
	match func(T, ViewFilter) bool

	// guard enables the sequence check that drops responses arriving
	// after a newer one was applied. Off by default: the shipped UI is
	// last-response-wins, and some behavior depends on that.
	guard bool

	mu         sync.Mutex
	state      ListState
	filter     ViewFilter
	collection []T
	totalCount int
	lastErr    error
	inFlight   bool
	seq        uint64
	applied    uint64
}

type ListOption[T model.Entity] func(*ListView[T])

// WithLocalFilter installs the client-side predicate. Screens whose
// search runs over the already-fetched collection (medications, clinics)
// use this; no network call happens on filter changes.
func WithLocalFilter[T model.Entity](match func(T, ViewFilter) bool) ListOption[T] {
	return func(v *ListView[T]) { v.match = match }
}

// WithServerFilter marks search/status/date as server-evaluated and maps
// the view filter onto query parameters. Filter changes re-fetch.
func WithServerFilter[T model.Entity](toServer func(ViewFilter) resource.ServerFilter) ListOption[T] {
	return func(v *ListView[T]) {
		v.serverSide = true
		v.toServer = toServer
	}
}

// WithSortKeys registers the sortable fields; each accessor yields the
// string the collection is ordered by when that SortKey is active.
func WithSortKeys[T model.Entity](keys map[string]func(T) string) ListOption[T] {
	return func(v *ListView[T]) { v.sortKeys = keys }
}

// WithSequenceGuard discards list responses that complete after a
// later-issued one has been applied, so a slow stale fetch can no longer
// overwrite fresher data.
func WithSequenceGuard[T model.Entity]() ListOption[T] {
	return func(v *ListView[T]) { v.guard = true }
}

func WithListMetrics[T model.Entity](m *metrics.Metrics) ListOption[T] {
	return func(v *ListView[T]) { v.metrics = m }
}

func WithListLogger[T model.Entity](l *logger.Logger) ListOption[T] {
	return func(v *ListView[T]) { v.log = l }
}

func NewListView[T model.Entity](client listClient[T], notify notifier.Notifier, pageSize int, opts ...ListOption[T]) *ListView[T] {
	if pageSize <= 0 {
		pageSize = 10
	}
	v := &ListView[T]{
		client: client,
		notify: notify,
		log:    logger.Nop(),
		state:  ListIdle,
		filter: ViewFilter{PageSize: pageSize, PageIndex: 1},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load fetches the collection for the current filter. A failed fetch
// keeps the previously loaded collection so the view can render stale
// data behind an error banner instead of going blank.
func (v *ListView[T]) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state = ListLoading
	v.inFlight = true
	v.seq++
	seq := v.seq
	sf := v.serverFilterLocked()
	v.mu.Unlock()

	if v.metrics != nil {
		v.metrics.ListRefreshes.WithLabelValues(v.client.Resource()).Inc()
	}

	res, err := v.client.List(ctx, sf)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inFlight = false

	if v.guard && seq <= v.applied {
		if v.metrics != nil {
			v.metrics.StaleResponseDrops.Inc()
		}
		v.log.Debug("dropped stale list response", "resource", v.client.Resource())
		return nil
	}
	v.applied = seq

	if err != nil {
		v.state = ListError
		v.lastErr = err
		if v.notify != nil {
			v.notify.Notify(fmt.Sprintf("failed to load %s: %v", v.client.Resource(), err), notifier.KindError)
		}
		return err
	}

	v.collection = res.Items
	v.totalCount = res.TotalCount
	v.state = ListLoaded
	v.lastErr = nil
	v.clampPageLocked()
	return nil
}

func (v *ListView[T]) serverFilterLocked() resource.ServerFilter {
	if v.toServer != nil {
		return v.toServer(v.filter)
	}
	return resource.ServerFilter{}
}

// SetFilter merges the patch into the current filter. Any change other
// than PageIndex resets PageIndex to 1. Server-evaluated changes
// re-fetch; everything else re-derives the visible page synchronously.
func (v *ListView[T]) SetFilter(ctx context.Context, patch FilterPatch) error {
	v.mu.Lock()
	if patch.SearchText != nil {
		v.filter.SearchText = *patch.SearchText
	}
	if patch.StatusFilter != nil {
		v.filter.StatusFilter = *patch.StatusFilter
	}
	if patch.DateFilter != nil {
		v.filter.DateFilter = *patch.DateFilter
	}
	if patch.PageSize != nil && *patch.PageSize > 0 {
		v.filter.PageSize = *patch.PageSize
	}
	if patch.SortKey != nil {
		v.filter.SortKey = *patch.SortKey
	}
	if patch.PageIndex != nil {
		v.filter.PageIndex = *patch.PageIndex
	}
	if !patch.touchesOnlyPage() {
		v.filter.PageIndex = 1
	}
	v.clampPageLocked()
	refetch := v.serverSide && patch.touchesServerSide()
	v.mu.Unlock()

	if refetch {
		return v.Load(ctx)
	}
	return nil
}

// Filter returns a copy of the current view filter.
func (v *ListView[T]) Filter() ViewFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

func (v *ListView[T]) State() ListState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *ListView[T]) LastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

func (v *ListView[T]) InFlight() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inFlight
}

// Collection returns the canonical collection as last fetched or patched.
func (v *ListView[T]) Collection() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]T, len(v.collection))
	copy(out, v.collection)
	return out
}

// FilteredCount returns the number of entities passing the local filter.
func (v *ListView[T]) FilteredCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.filteredLocked())
}

// VisiblePage derives the rendered slice: local filter predicates, then
// the optional stable sort, then the page window. Collection order is
// preserved unless SortKey is set.
func (v *ListView[T]) VisiblePage() []T {
	v.mu.Lock()
	defer v.mu.Unlock()

	filtered := v.filteredLocked()
	if v.filter.SortKey != "" && v.sortKeys != nil {
		if keyOf, ok := v.sortKeys[v.filter.SortKey]; ok {
			sort.SliceStable(filtered, func(i, j int) bool {
				return keyOf(filtered[i]) < keyOf(filtered[j])
			})
		}
	}

	start := (v.filter.PageIndex - 1) * v.filter.PageSize
	if start >= len(filtered) {
		return nil
	}
	end := start + v.filter.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}

func (v *ListView[T]) filteredLocked() []T {
	if v.serverSide || v.match == nil {
		out := make([]T, len(v.collection))
		copy(out, v.collection)
		return out
	}
	out := make([]T, 0, len(v.collection))
	for _, item := range v.collection {
		if v.match(item, v.filter) {
			out = append(out, item)
		}
	}
	return out
}

// PatchEntity merges a sparse patch onto the entity in place, so the list
// reflects an edit without a re-fetch. Absent ids are a no-op: the entity
// may have been filtered out or deleted meanwhile.
func (v *ListView[T]) PatchEntity(id string, patch resource.Partial) {
	if len(patch) == 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.collection {
		if v.collection[i].EntityID() != id {
			continue
		}
		merged, err := mergeEntity(v.collection[i], patch)
		if err != nil {
			v.log.Error(err, "failed to patch entity in place", "id", id)
			return
		}
		v.collection[i] = merged
		v.clampPageLocked()
		return
	}
}

// ReplaceEntity swaps the server-confirmed copy in by id. No-op when the
// id is absent.
func (v *ListView[T]) ReplaceEntity(entity T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.collection {
		if v.collection[i].EntityID() == entity.EntityID() {
			v.collection[i] = entity
			return
		}
	}
}

// RemoveEntity prunes the entity from the collection in place. No-op when
// the id is absent.
func (v *ListView[T]) RemoveEntity(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.collection {
		if v.collection[i].EntityID() == id {
			v.collection = append(v.collection[:i], v.collection[i+1:]...)
			if v.totalCount > 0 {
				v.totalCount--
			}
			v.clampPageLocked()
			return
		}
	}
}

// clampPageLocked keeps PageIndex within [1, ceil(filtered/pageSize)] so
// a shrinking collection never strands the view past the last page.
func (v *ListView[T]) clampPageLocked() {
	count := len(v.filteredLocked())
	maxPage := (count + v.filter.PageSize - 1) / v.filter.PageSize
	if maxPage < 1 {
		maxPage = 1
	}
	if v.filter.PageIndex > maxPage {
		v.filter.PageIndex = maxPage
	}
	if v.filter.PageIndex < 1 {
		v.filter.PageIndex = 1
	}
}

// mergeEntity applies a sparse patch by round-tripping through the
// entity's JSON form, so patch keys use the same names the server does.
func mergeEntity[T any](entity T, patch resource.Partial) (T, error) {
	var out T
	raw, err := json.Marshal(entity)
	if err != nil {
		return out, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, err
	}
	for k, val := range patch {
		fields[k] = val
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, err
	}
	return out, nil
}
