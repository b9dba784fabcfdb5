package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/notifier"
	"github.com/jwalitptl/clinic-console/internal/resource"
	"github.com/jwalitptl/clinic-console/pkg/errors"
	"github.com/jwalitptl/clinic-console/pkg/logger"
)

// DetailState is the detail/edit view's lifecycle state.
type DetailState string

const (
	DetailEmpty   DetailState = "empty"
	DetailLoading DetailState = "loading"
	DetailViewing DetailState = "viewing"
	DetailEditing DetailState = "editing"
	DetailSaving  DetailState = "saving"
	// DetailLoadError displays the load failure but stays loadable.
	DetailLoadError DetailState = "load_error"
)

type detailClient[T model.Entity] interface {
	Get(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, id string, payload resource.Partial) (*T, error)
	Resource() string
}

// DetailEdit owns one entity's canonical server copy and a draft copy for
// editing, with dirty tracking and inline validation. A successful save
// reconciles the canonical copy and hands the confirmed entity (plus the
// sparse payload that was sent) to OnSaved, which is where the owning
// list's PatchEntity gets invoked.
type DetailEdit[T model.Entity] struct {
	client        detailClient[T]
	notify        notifier.Notifier
	log           *logger.Logger
	validateAll   func(*T) map[string]string
	validateField func(*T, string) string
	onSaved       func(entity T, sent resource.Partial)

	mu       sync.Mutex
	state    DetailState
	original *T
	draft    *T
	dirty    bool
	valErrs  map[string]string
	lastErr  error
	inFlight bool
}

type DetailOption[T model.Entity] func(*DetailEdit[T])

// WithOnSaved registers the post-save handoff callback.
func WithOnSaved[T model.Entity](fn func(entity T, sent resource.Partial)) DetailOption[T] {
	return func(c *DetailEdit[T]) { c.onSaved = fn }
}

// WithValidators overrides the per-entity validation hooks. The defaults
// run the model package's tag-driven rules.
func WithValidators[T model.Entity](all func(*T) map[string]string, field func(*T, string) string) DetailOption[T] {
	return func(c *DetailEdit[T]) {
		c.validateAll = all
		c.validateField = field
	}
}

func WithDetailLogger[T model.Entity](l *logger.Logger) DetailOption[T] {
	return func(c *DetailEdit[T]) { c.log = l }
}

func NewDetailEdit[T model.Entity](client detailClient[T], notify notifier.Notifier, opts ...DetailOption[T]) *DetailEdit[T] {
	c := &DetailEdit[T]{
		client: client,
		notify: notify,
		log:    logger.Nop(),
		state:  DetailEmpty,
		validateAll: func(entity *T) map[string]string {
			return model.Validate(entity)
		},
		validateField: func(entity *T, name string) string {
			return model.ValidateField(entity, name)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the entity and enters Viewing. A failure leaves the
// controller in a retryable error-display state.
func (c *DetailEdit[T]) Load(ctx context.Context, id string) error {
	c.mu.Lock()
	c.state = DetailLoading
	c.inFlight = true
	c.mu.Unlock()

	entity, err := c.client.Get(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		c.state = DetailLoadError
		c.lastErr = err
		if c.notify != nil {
			c.notify.Notify(fmt.Sprintf("failed to load %s: %v", c.client.Resource(), err), notifier.KindError)
		}
		return err
	}
	c.original = entity
	c.draft = nil
	c.dirty = false
	c.valErrs = nil
	c.lastErr = nil
	c.state = DetailViewing
	return nil
}

// BeginEdit deep-copies the canonical entity into a draft and enters
// Editing. Only valid from Viewing.
func (c *DetailEdit[T]) BeginEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != DetailViewing {
		return fmt.Errorf("cannot begin edit from state %s", c.state)
	}
	draft, err := clone(c.original)
	if err != nil {
		return err
	}
	c.draft = draft
	c.dirty = false
	c.valErrs = map[string]string{}
	c.state = DetailEditing
	return nil
}

// UpdateField mutates the draft, recomputes dirtiness, and re-validates
// the touched field inline. name is the field's json name. Only valid in
// Editing.
func (c *DetailEdit[T]) UpdateField(name string, mutate func(draft *T)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != DetailEditing {
		return fmt.Errorf("cannot update field from state %s", c.state)
	}
	mutate(c.draft)
	c.dirty = !jsonEqual(c.original, c.draft)
	if msg := c.validateField(c.draft, name); msg != "" {
		c.valErrs[name] = msg
	} else {
		delete(c.valErrs, name)
	}
	return nil
}

// Save validates the full draft, and only when every field passes does it
// send the sparse payload of changed fields. On success the canonical
// copy becomes the server's returned entity and OnSaved fires; on failure
// the draft survives so the user keeps their unsaved input.
func (c *DetailEdit[T]) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.state != DetailEditing {
		c.mu.Unlock()
		return fmt.Errorf("cannot save from state %s", c.state)
	}

	if errs := c.validateAll(c.draft); len(errs) > 0 {
		c.valErrs = errs
		c.mu.Unlock()
		err := errors.Validation(errs)
		if c.notify != nil {
			c.notify.Notify(err.Message, notifier.KindError)
		}
		return err
	}

	payload, err := diffPayload(c.original, c.draft)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if len(payload) == 0 {
		// Nothing changed; a save is a no-op, not an error.
		c.dirty = false
		c.draft = nil
		c.state = DetailViewing
		c.mu.Unlock()
		return nil
	}

	id := (*c.original).EntityID()
	c.state = DetailSaving
	c.inFlight = true
	c.mu.Unlock()

	saved, err := c.client.Update(ctx, id, payload)

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		// Draft stays intact: the user must not lose unsaved input.
		c.state = DetailEditing
		c.lastErr = err
		c.mu.Unlock()
		if c.notify != nil {
			c.notify.Notify(fmt.Sprintf("failed to save %s: %v", c.client.Resource(), err), notifier.KindError)
		}
		return err
	}
	c.original = saved
	c.draft = nil
	c.dirty = false
	c.valErrs = nil
	c.lastErr = nil
	c.state = DetailViewing
	onSaved := c.onSaved
	entity := *saved
	c.mu.Unlock()

	if onSaved != nil {
		onSaved(entity, payload)
	}
	if c.notify != nil {
		c.notify.Notify(fmt.Sprintf("%s saved", c.client.Resource()), notifier.KindSuccess)
	}
	return nil
}

// CancelEdit discards the draft and returns to Viewing with the canonical
// copy untouched. Only valid from Editing.
func (c *DetailEdit[T]) CancelEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != DetailEditing {
		return fmt.Errorf("cannot cancel edit from state %s", c.state)
	}
	c.draft = nil
	c.dirty = false
	c.valErrs = nil
	c.state = DetailViewing
	return nil
}

func (c *DetailEdit[T]) State() DetailState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Original returns the canonical server copy, or nil before a load.
func (c *DetailEdit[T]) Original() *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.original == nil {
		return nil
	}
	copied, err := clone(c.original)
	if err != nil {
		return nil
	}
	return copied
}

// Draft returns the working copy, or nil outside Editing.
func (c *DetailEdit[T]) Draft() *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return nil
	}
	copied, err := clone(c.draft)
	if err != nil {
		return nil
	}
	return copied
}

func (c *DetailEdit[T]) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// ValidationErrors returns the current json-field-name → message map.
func (c *DetailEdit[T]) ValidationErrors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.valErrs))
	for k, msg := range c.valErrs {
		out[k] = msg
	}
	return out
}

func (c *DetailEdit[T]) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *DetailEdit[T]) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// clone deep-copies an entity through its JSON form.
func clone[T any](entity *T) (*T, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func jsonEqual[T any](a, b *T) bool {
	ra, err := json.Marshal(a)
	if err != nil {
		return false
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

// diffPayload produces the sparse update body: only json fields whose
// values differ between original and draft. Fields the draft's JSON form
// omits entirely (a blank optional password pair) never appear, which is
// what makes "leave blank to keep the password" work.
func diffPayload[T any](original, draft *T) (resource.Partial, error) {
	origFields, err := jsonFields(original)
	if err != nil {
		return nil, err
	}
	draftFields, err := jsonFields(draft)
	if err != nil {
		return nil, err
	}
	payload := resource.Partial{}
	for key, draftVal := range draftFields {
		if origVal, ok := origFields[key]; !ok || !reflect.DeepEqual(origVal, draftVal) {
			payload[key] = draftVal
		}
	}
	return payload, nil
}

func jsonFields[T any](entity *T) (map[string]interface{}, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
