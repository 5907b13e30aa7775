package validator

import (
	"sync"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/util"
)

type snapshot struct {
	version int
	content string
	doc     *parser.Document
}

// Overlay holds one versioned in-memory snapshot per virtual path. Versions
// start at 1 and grow by one on every bump; a dropped path starts over.
type Overlay struct {
	mu    sync.Mutex
	files map[string]*snapshot
}

func NewOverlay() *Overlay {
	return &Overlay{files: make(map[string]*snapshot)}
}

// BumpVersion advances the version of path, creating an empty snapshot when
// the path is unknown, and returns the new version.
func (o *Overlay) BumpVersion(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bumpLocked(path)
}

func (o *Overlay) bumpLocked(path string) int {
	snap, ok := o.files[path]
	if !ok {
		snap = &snapshot{}
		o.files[path] = snap
	}
	snap.version++
	return snap.version
}

// Set stores text as the next version of path.
func (o *Overlay) Set(path, text string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	version := o.bumpLocked(path)
	o.files[path].content = text
	return version
}

// Version returns the current version of path, 0 when absent.
func (o *Overlay) Version(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if snap, ok := o.files[path]; ok {
		return snap.version
	}
	return 0
}

func (o *Overlay) Content(path string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap, ok := o.files[path]
	if !ok {
		return "", false
	}
	return snap.content, true
}

// DropVirtualFile forgets path and releases its parse tree. It reports
// whether the path was present.
func (o *Overlay) DropVirtualFile(path string) bool {
	o.mu.Lock()
	snap, ok := o.files[path]
	delete(o.files, path)
	o.mu.Unlock()
	if ok && snap.doc != nil {
		snap.doc.Close()
	}
	return ok
}

// Paths returns the virtual paths in lexical order.
func (o *Overlay) Paths() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return util.SortedKeys(o.files)
}

// takeDocument detaches the parse tree of the current snapshot so it can be
// consumed by an incremental reparse.
func (o *Overlay) takeDocument(path string) *parser.Document {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap, ok := o.files[path]
	if !ok {
		return nil
	}
	doc := snap.doc
	snap.doc = nil
	return doc
}

// setDocument attaches doc to the snapshot of path. When the path was dropped
// in the meantime the document is released.
func (o *Overlay) setDocument(path string, doc *parser.Document) {
	o.mu.Lock()
	snap, ok := o.files[path]
	if ok {
		if snap.doc != nil && snap.doc != doc {
			snap.doc.Close()
		}
		snap.doc = doc
	}
	o.mu.Unlock()
	if !ok && doc != nil {
		doc.Close()
	}
}

// close releases every parse tree.
func (o *Overlay) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for path, snap := range o.files {
		if snap.doc != nil {
			snap.doc.Close()
		}
		delete(o.files, path)
	}
}
