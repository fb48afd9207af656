// ABOUTME: File-backed buffer: a JSON file on disk kept in step with the schema model.
// ABOUTME: File writes feed the model; model changes from elsewhere rewrite the file.

package textsync

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/watch"
)

// FileSync mirrors a model into a file and back.
type FileSync struct {
	path   string
	model  *schema.Model
	logger *zap.Logger

	mu          sync.Mutex
	lastWritten string
	err         error
	unsubscribe func()
}

// NewFileSync returns a FileSync for path. Start attaches it to the model.
func NewFileSync(path string, model *schema.Model, logger *zap.Logger) *FileSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSync{path: path, model: model, logger: logger.With(zap.String("file", path))}
}

// Start loads the file into the model, or creates it from the model when it
// does not exist, then follows model changes.
func (f *FileSync) Start() error {
	_, err := os.Stat(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := f.write(f.model.Get()); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("stat %s: %w", f.path, err)
	default:
		if err := f.Load(); err != nil {
			var perr *schema.ParseError
			if !errors.As(err, &perr) {
				return err
			}
			f.logger.Warn("watched file does not parse", zap.Error(err))
		}
	}
	f.unsubscribe = f.model.Subscribe(f.observe)
	return nil
}

// Close stops following the model.
func (f *FileSync) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
	}
}

// Err returns the parse error of the file's last content, if any.
func (f *FileSync) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Load reads the file and publishes its schema when it differs from the model.
func (f *FileSync) Load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.path, err)
	}
	text := string(data)

	f.mu.Lock()
	if text == f.lastWritten {
		f.mu.Unlock()
		return nil
	}
	parsed, err := schema.Parse(text)
	f.err = err
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if schema.Equal(parsed, f.model.Get()) {
		return nil
	}
	f.model.Replace(parsed, schema.SourceFile)
	f.logger.Info("loaded schema from file", zap.Int("components", len(parsed)))
	return nil
}

// Handle reacts to one watcher event.
func (f *FileSync) Handle(ev watch.Event) {
	if ev.Op != watch.OpWrite {
		f.logger.Debug("ignoring file event", zap.Stringer("op", ev.Op))
		return
	}
	if err := f.Load(); err != nil {
		f.logger.Warn("file change not applied", zap.Error(err))
	}
}

func (f *FileSync) observe(c schema.Change) {
	if c.Source == schema.SourceFile {
		return
	}
	if err := f.write(c.Schema); err != nil {
		f.logger.Error("failed to write schema file", zap.Error(err))
	}
}

func (f *FileSync) write(s schema.Schema) error {
	data, err := schema.Marshal(s)
	if err != nil {
		return err
	}
	text := string(data) + "\n"

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.WriteFile(f.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	f.lastWritten = text
	f.err = nil
	return nil
}
