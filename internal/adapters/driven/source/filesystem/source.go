// Package filesystem provides a document source that loads plain
// text corpora from a local directory tree.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// Ensure Source implements the interfaces.
var (
	_ driven.DocumentSource = (*Source)(nil)
	_ driven.SourceWatcher  = (*Source)(nil)
)

// DefaultExtensions are the file extensions loaded as documents.
var DefaultExtensions = []string{".txt", ".md"}

// debounceWindow coalesces bursts of filesystem events into one
// notification.
const debounceWindow = 500 * time.Millisecond

// maxDocumentSize guards against accidentally ingesting huge binary
// blobs with a text extension.
const maxDocumentSize = 32 << 20 // 32 MiB

// Source loads documents from a directory tree.
type Source struct {
	extensions map[string]bool
}

// NewSource creates a filesystem source. With no extensions given,
// DefaultExtensions is used.
func NewSource(extensions ...string) *Source {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Source{extensions: exts}
}

// LoadAll walks dir and loads every matching file as a document.
// Files that cannot be read are reported as failures; only an
// unreadable root directory is an error. Documents are returned in
// sorted path order so runs are reproducible.
func (s *Source) LoadAll(ctx context.Context, dir string) ([]domain.Document, []domain.LoadFailure, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: source directory %s", domain.ErrNotFound, dir)
		}
		return nil, nil, fmt.Errorf("stat source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("source %s is not a directory", dir)
	}

	var paths []string
	var failures []domain.LoadFailure

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			failures = append(failures, domain.LoadFailure{URI: path, Err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if isHidden(d.Name()) && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) || !s.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk source directory: %w", err)
	}
	sort.Strings(paths)

	docs := make([]domain.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := s.loadFile(path)
		if err != nil {
			logger.Warn("Failed to load %s: %v", path, err)
			failures = append(failures, domain.LoadFailure{URI: path, Err: err})
			continue
		}
		docs = append(docs, doc)
	}

	logger.Debug("Filesystem source: %d documents, %d failures under %s", len(docs), len(failures), dir)
	return docs, failures, nil
}

// loadFile reads one file into a document. The document ID is
// derived from the path so re-ingesting the same corpus reproduces
// the same IDs.
func (s *Source) loadFile(path string) (domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, err
	}
	if info.Size() > maxDocumentSize {
		return domain.Document{}, fmt.Errorf("file exceeds %d bytes", maxDocumentSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, err
	}

	name := filepath.Base(path)
	return domain.Document{
		ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String(),
		URI:     path,
		Title:   strings.TrimSuffix(name, filepath.Ext(name)),
		Content: string(data),
		Metadata: map[string]string{
			"source": "filesystem",
			"ext":    strings.ToLower(filepath.Ext(path)),
		},
		IngestedAt: time.Now().UTC(),
	}, nil
}

// Watch emits on the returned channel whenever a matching file under
// dir changes, debounced. The channel is closed when ctx is
// cancelled.
func (s *Source) Watch(ctx context.Context, dir string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the whole tree; fsnotify does not recurse on its own.
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && !isHidden(d.Name()) {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch source directory: %w", err)
	}

	events := make(chan struct{}, 1)
	go s.watchLoop(ctx, watcher, events)
	return events, nil
}

// watchLoop forwards debounced change events until ctx is cancelled.
func (s *Source) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, events chan<- struct{}) {
	defer watcher.Close()
	defer close(events)

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.relevant(event) {
				continue
			}
			// New subdirectories must be added to the watch set.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			select {
			case events <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Source watcher error: %v", err)
		}
	}
}

// relevant reports whether the event concerns a file this source
// would load, or a directory change that may add such files.
func (s *Source) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if isHidden(name) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	if s.extensions[ext] {
		return true
	}
	// Directory creation and removal have no extension.
	return ext == ""
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
