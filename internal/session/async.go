// ABOUTME: Collaborator calls (generation, library) and import/export for a session.
// ABOUTME: Calls run in goroutines guarded by a busy flag and complete as ordinary events.

package session

import (
	"context"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/schema"
)

// Busy returns the name of the outstanding call, or "".
func (s *Session) Busy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// checkIdle returns ErrBusy while a collaborator call is outstanding.
func (s *Session) checkIdle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy != "" {
		return ErrBusy
	}
	return nil
}

// start marks the session busy with op and runs call in a goroutine. The
// completion function runs as an event once call returns.
func (s *Session) start(op string, call func() func()) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrUnavailable
	}
	if s.busy != "" {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = op
	s.idle = make(chan struct{})
	idle := s.idle
	s.wg.Add(1)
	s.mu.Unlock()
	s.broadcast()

	go func() {
		defer s.wg.Done()
		complete := call()
		s.Do(func() {
			s.busy = ""
			defer close(idle)
			if s.closed {
				return
			}
			complete()
		})
	}()
	return nil
}

// Await blocks until no collaborator call is outstanding or ctx is done.
func (s *Session) Await(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	busy := s.busy != ""
	s.mu.Unlock()
	if !busy || idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Generate asks the generator for a schema built from prompt. The result
// replaces the current schema when it arrives.
func (s *Session) Generate(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}
	if err := s.checkIdle(); err != nil {
		return err
	}
	if s.gen == nil {
		return s.do(func() error {
			s.noticeLocked(LevelError, "Failed to connect to AI service")
			return ErrUnavailable
		})
	}
	return s.start("generate", func() func() {
		generated, err := s.gen.Generate(s.ctx, prompt)
		return func() {
			if err != nil {
				s.logger.Warn("generation failed", zap.Error(err))
				s.noticeLocked(LevelError, generateFailure(err))
				return
			}
			s.model.Replace(generated, schema.SourceGenerate)
			s.noticeLocked(LevelSuccess, "Schema generated successfully!")
		}
	})
}

func generateFailure(err error) string {
	var msg interface{ UserMessage() string }
	if errors.As(err, &msg) && msg.UserMessage() != "" {
		return msg.UserMessage()
	}
	return "Failed to generate schema"
}

// Save stores the current schema in the library under name.
func (s *Session) Save(name, description string) error {
	entry, err := library.Normalize(library.Entry{Name: name, Description: description, Schema: s.model.Get()})
	if err != nil {
		return err
	}
	if err := s.checkIdle(); err != nil {
		return err
	}
	if s.lib == nil {
		return s.do(func() error {
			s.noticeLocked(LevelError, "Failed to save schema")
			return ErrUnavailable
		})
	}
	return s.start("save", func() func() {
		_, err := s.lib.Save(s.ctx, entry)
		return func() {
			if err != nil {
				s.logger.Warn("save failed", zap.Error(err))
				s.noticeLocked(LevelError, "Failed to save schema")
				return
			}
			s.noticeLocked(LevelSuccess, "Schema saved successfully!")
		}
	})
}

// OpenLibrary fetches the saved schemas and opens the library listing.
func (s *Session) OpenLibrary() error {
	if err := s.checkIdle(); err != nil {
		return err
	}
	if s.lib == nil {
		return s.do(func() error {
			s.noticeLocked(LevelError, "Failed to load schemas")
			return ErrUnavailable
		})
	}
	return s.start("list", func() func() {
		entries, err := s.lib.List(s.ctx)
		return func() {
			if err != nil {
				s.logger.Warn("list failed", zap.Error(err))
				s.noticeLocked(LevelError, "Failed to load schemas")
				return
			}
			s.entries = entries
			s.libraryOpen = true
		}
	})
}

// CloseLibrary hides the library listing.
func (s *Session) CloseLibrary() {
	s.Do(func() { s.libraryOpen = false })
}

// Load replaces the current schema with a saved one. Entries from the open
// listing load immediately; others are fetched first.
func (s *Session) Load(id string) error {
	if err := s.checkIdle(); err != nil {
		return err
	}
	loaded := false
	s.Do(func() {
		for _, e := range s.entries {
			if e.ID == id {
				s.loadLocked(e)
				loaded = true
				return
			}
		}
	})
	if loaded {
		return nil
	}
	if s.lib == nil {
		return ErrUnavailable
	}
	return s.start("load", func() func() {
		entry, err := s.lib.Get(s.ctx, id)
		return func() {
			if err != nil {
				s.logger.Warn("load failed", zap.String("id", id), zap.Error(err))
				s.noticeLocked(LevelError, "Failed to load schemas")
				return
			}
			s.loadLocked(entry)
		}
	})
}

func (s *Session) loadLocked(e library.Entry) {
	s.model.Replace(e.Schema, schema.SourceLoad)
	s.libraryOpen = false
	s.noticeLocked(LevelSuccess, "Schema loaded successfully!")
}

// Import replaces the schema with an uploaded document, which must be a
// JSON array of components.
func (s *Session) Import(data []byte) error {
	return s.do(func() error {
		if !gjson.ValidBytes(data) {
			s.noticeLocked(LevelError, "Failed to parse JSON file")
			return &schema.ParseError{Msg: "Failed to parse JSON file"}
		}
		if !gjson.ParseBytes(data).IsArray() {
			s.noticeLocked(LevelError, "Invalid schema format")
			return &schema.ParseError{Msg: "Invalid schema format"}
		}
		parsed, err := schema.Parse(string(data))
		if err != nil {
			s.noticeLocked(LevelError, "Invalid schema format")
			return err
		}
		s.model.Replace(parsed, schema.SourceImport)
		s.noticeLocked(LevelSuccess, "Schema imported successfully!")
		return nil
	})
}

// Export returns the canonical document of the current schema.
func (s *Session) Export() ([]byte, error) {
	var data []byte
	err := s.do(func() error {
		current := s.model.Get()
		if len(current) == 0 {
			s.noticeLocked(LevelInfo, "No schema to export")
			return ErrNothingToExport
		}
		out, err := schema.Marshal(current)
		if err != nil {
			return err
		}
		data = out
		s.noticeLocked(LevelSuccess, "Schema exported successfully!")
		return nil
	})
	return data, err
}
