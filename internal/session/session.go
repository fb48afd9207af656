// ABOUTME: Editor session: one user's schema model and the engines that observe it.
// ABOUTME: Every event runs under the session lock; slow collaborator calls complete as later events.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/2389/dic/internal/components"
	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/render"
	"github.com/2389/dic/internal/reorder"
	"github.com/2389/dic/internal/results"
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/textsync"
	"github.com/2389/dic/internal/ui"
)

// DefaultNoticeTTL is how long a notice stays visible.
const DefaultNoticeTTL = 3 * time.Second

var (
	// ErrBusy is returned when a collaborator call is already outstanding.
	ErrBusy = errors.New("another request is in progress")
	// ErrEmptyPrompt is returned by Generate for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrNothingToExport is returned by Export for an empty schema.
	ErrNothingToExport = errors.New("no schema to export")
	// ErrUnavailable is returned when a collaborator is not configured.
	ErrUnavailable = errors.New("service not configured")
)

// Generator turns a prompt into a schema.
type Generator interface {
	Generate(ctx context.Context, prompt string) (schema.Schema, error)
}

// Config wires a session's collaborators.
type Config struct {
	Registry  *components.Registry
	Generator Generator
	Library   library.Service
	Clock     clock.Clock
	NoticeTTL time.Duration
	Logger    *zap.Logger
	Initial   schema.Schema
}

// Session is the state container for one editor.
type Session struct {
	ID string

	mu       sync.Mutex
	model    *schema.Model
	renderer *render.Renderer
	text     *textsync.Engine
	reorder  *reorder.Engine
	book     *results.Book

	gen    Generator
	lib    library.Service
	clock  clock.Clock
	ttl    time.Duration
	logger *zap.Logger

	busy        string
	idle        chan struct{}
	notices     []Notice
	timers      map[uint64]*clock.Timer
	nextNotice  uint64
	entries     []library.Entry
	libraryOpen bool
	dragPreview schema.Schema

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New returns a session holding cfg.Initial.
func New(id string, cfg Config) *Session {
	if cfg.Registry == nil {
		cfg.Registry = components.NewRegistry()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.NoticeTTL <= 0 {
		cfg.NoticeTTL = DefaultNoticeTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	model := schema.NewModel(cfg.Initial)
	book := results.NewBook()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:       id,
		model:    model,
		renderer: render.New(cfg.Registry),
		text:     textsync.New(model),
		reorder:  reorder.New(model, cfg.Registry, book),
		book:     book,
		gen:      cfg.Generator,
		lib:      cfg.Library,
		clock:    cfg.Clock,
		ttl:      cfg.NoticeTTL,
		logger:   cfg.Logger.With(zap.String("session", id)),
		timers:   map[uint64]*clock.Timer{},
		subs:     map[int]chan struct{}{},
		ctx:      ctx,
		cancel:   cancel,
	}
	model.Subscribe(func(c schema.Change) {
		s.dragPreview = nil
		s.logger.Debug("schema published",
			zap.String("source", string(c.Source)),
			zap.Uint64("version", c.Version),
			zap.Int("components", len(c.Schema)))
	})
	return s
}

// Model returns the session's schema model.
func (s *Session) Model() *schema.Model { return s.model }

// Renderer returns the session's renderer.
func (s *Session) Renderer() *render.Renderer { return s.renderer }

// Close cancels outstanding calls, waits for them and detaches the engines.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.text.Close()
	s.reorder.Close()

	s.subsMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subsMu.Unlock()
}

// Wait blocks until no collaborator call is outstanding.
func (s *Session) Wait() { s.wg.Wait() }

// Do runs fn as one event under the session lock and notifies subscribers.
func (s *Session) Do(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.broadcast()
}

func (s *Session) do(fn func() error) error {
	var err error
	s.Do(func() { err = fn() })
	return err
}

// Subscribe returns a channel signalled after every event, and a cancel
// function. Signals are coalesced for slow readers.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	ch := make(chan struct{}, 1)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

func (s *Session) subscriberCount() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

func (s *Session) broadcast() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// View is a consistent snapshot of the session for rendering.
type View struct {
	Version     uint64
	Schema      schema.Schema
	Buffer      string
	BufferError string
	Notices     []Notice
	Busy        string
	Library     []library.Entry
	LibraryOpen bool
	Dragging    bool
	Preview     ui.Node
}

// View snapshots the session, rendering the preview in mode.
func (s *Session) View(mode render.Mode) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.model.Get()
	shown := current
	if s.dragPreview != nil {
		shown = s.dragPreview
	}
	v := View{
		Version:     s.model.Version(),
		Schema:      current,
		Buffer:      s.text.Buffer(),
		Notices:     s.activeNoticesLocked(),
		Busy:        s.busy,
		Library:     append([]library.Entry(nil), s.entries...),
		LibraryOpen: s.libraryOpen,
		Dragging:    s.reorder.State() == reorder.Dragging,
		Preview:     s.renderer.Render(shown, mode, s.book),
	}
	if err := s.text.Err(); err != nil {
		v.BufferError = err.Error()
	}
	return v
}

// EditBuffer applies typed buffer text.
func (s *Session) EditBuffer(text string) error {
	return s.do(func() error {
		_, err := s.text.Edit(text)
		return err
	})
}

// Format canonicalizes the buffer.
func (s *Session) Format() error {
	return s.do(func() error {
		if _, err := s.text.Format(); err != nil {
			s.noticeLocked(LevelError, "Cannot format invalid JSON")
			return err
		}
		return nil
	})
}

// Clear empties the schema.
func (s *Session) Clear() {
	s.Do(func() {
		s.text.Clear()
		s.book.Clear()
	})
}

// Add appends the default instance of kind.
func (s *Session) Add(kind schema.Kind) error {
	return s.do(func() error {
		_, err := s.reorder.Add(kind)
		return s.reportLocked(err)
	})
}

// Delete removes the component with the given ID.
func (s *Session) Delete(id string) error {
	return s.do(func() error {
		_, err := s.reorder.Delete(id)
		return s.reportLocked(err)
	})
}

// EditContent commits an in-place content edit.
func (s *Session) EditContent(id, value string) error {
	return s.do(func() error {
		_, err := s.reorder.EditContent(id, value)
		return s.reportLocked(err)
	})
}

// UpdateProps merges patch into a component's props.
func (s *Session) UpdateProps(id string, patch schema.Props) error {
	return s.do(func() error {
		_, err := s.reorder.UpdateProps(id, patch)
		return s.reportLocked(err)
	})
}

// AddField appends a field to a form.
func (s *Session) AddField(id string, f schema.Field) error {
	return s.do(func() error {
		_, err := s.reorder.AddField(id, f)
		return s.reportLocked(err)
	})
}

// UpdateField edits one field of a form.
func (s *Session) UpdateField(id string, field int, patch map[string]any) error {
	return s.do(func() error {
		_, err := s.reorder.UpdateField(id, field, patch)
		return s.reportLocked(err)
	})
}

// RemoveField deletes one field of a form.
func (s *Session) RemoveField(id string, field int) error {
	return s.do(func() error {
		_, err := s.reorder.RemoveField(id, field)
		return s.reportLocked(err)
	})
}

// DragStart begins dragging the component at index.
func (s *Session) DragStart(index int) error {
	return s.do(func() error {
		s.dragPreview = nil
		return s.reorder.Start(index)
	})
}

// DragOver previews the dragged component at index.
func (s *Session) DragOver(index int) error {
	return s.do(func() error {
		preview, err := s.reorder.Over(index)
		if err != nil {
			s.dragPreview = nil
			return err
		}
		s.dragPreview = preview
		return nil
	})
}

// DragDrop commits the gesture at index; ok is false when there is no target.
func (s *Session) DragDrop(index int, ok bool) error {
	return s.do(func() error {
		s.dragPreview = nil
		_, err := s.reorder.Drop(index, ok)
		if errors.Is(err, reorder.ErrGestureCanceled) {
			s.noticeLocked(LevelInfo, "Drag canceled: the schema changed")
		}
		return err
	})
}

// DragCancel abandons the gesture.
func (s *Session) DragCancel() {
	s.Do(func() {
		s.dragPreview = nil
		s.reorder.Cancel()
	})
}

// Submit runs the submission of the component with the given ID and records
// its result.
func (s *Session) Submit(id string, values map[string]any) (results.Result, error) {
	var res results.Result
	err := s.do(func() error {
		current := s.model.Get()
		idx := current.IndexOf(id)
		if idx < 0 {
			return &reorder.NotFoundError{ID: id}
		}
		c, err := s.renderer.Registry().Lookup(current[idx].Kind)
		if err != nil {
			return err
		}
		sub, ok := c.(components.Submitter)
		if !ok {
			return fmt.Errorf("component type %s does not accept submissions", current[idx].Kind)
		}
		res = sub.Submit(current[idx].Props, values)
		s.renderer.Interaction(id, s.book).Report(res)
		return nil
	})
	return res, err
}

func (s *Session) reportLocked(err error) error {
	if err != nil {
		s.noticeLocked(LevelError, err.Error())
	}
	return err
}
