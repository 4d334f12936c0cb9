package domain

import "sync"

// File is a reference-counted handle on a virtual file, shared by multiple
// FD-table entries and by any in-flight handler holding a reference. Its
// lifetime is the longest holder: the last Unref tears down the backend.
//
// Ref()/Unref() are the only mutators of refcount, per spec.md §3.
type File struct {
	mu       sync.Mutex
	refcount int
	Backend  Backend
}

// NewFile wraps backend in a File with an initial refcount of 1 (the
// reference the caller that is about to insert it into a FileTable holds).
func NewFile(b Backend) *File {
	return &File{refcount: 1, Backend: b}
}

// Ref increments the refcount and returns the same File, for callers that
// want a fluent acquire.
func (f *File) Ref() *File {
	f.mu.Lock()
	f.refcount++
	f.mu.Unlock()
	return f
}

// Unref decrements the refcount. When it reaches zero, the backend is
// closed exactly once. Returns the backend-close error, if any.
func (f *File) Unref() error {
	f.mu.Lock()
	f.refcount--
	last := f.refcount == 0
	f.mu.Unlock()
	if last {
		return f.Backend.Close()
	}
	return nil
}

// Refcount returns the current reference count (for tests and invariant
// checks only; production code should never branch on it directly).
func (f *File) Refcount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refcount
}

// fdEntry is a FileTable slot: a File reference plus its cloexec flag.
type fdEntry struct {
	file    *File
	cloexec bool
}

// FileTable maps a virtual FD to a fdEntry. vfd 0-2 are reserved for
// stdio passthrough and are never allocated by Insert, per spec.md §3/§6.
type FileTable struct {
	mu      sync.Mutex
	entries map[int32]fdEntry
}

// MinVfd is the lowest virtual FD Insert will ever hand out; 0-2 are
// reserved for host stdio passthrough.
const MinVfd int32 = 3

// NewFileTable allocates an empty FD table.
func NewFileTable() *FileTable {
	return &FileTable{entries: make(map[int32]fdEntry)}
}

// InsertOpts carries the per-entry flags Insert records alongside the File
// reference.
type InsertOpts struct {
	Cloexec bool
}

// Insert places file into the table at the lowest free vfd >= MinVfd and
// returns that vfd. The table takes ownership of the reference passed in
// (it does not call Ref(); callers that still need their own reference
// must Ref() before calling Insert).
func (t *FileTable) Insert(file *File, opts InsertOpts) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	vfd := MinVfd
	for {
		if _, taken := t.entries[vfd]; !taken {
			break
		}
		vfd++
	}
	t.entries[vfd] = fdEntry{file: file, cloexec: opts.Cloexec}
	return vfd
}

// Remove drops the entry at vfd, if present, and releases its reference
// (Unref). Returns false if vfd was not present.
func (t *FileTable) Remove(vfd int32) bool {
	t.mu.Lock()
	e, ok := t.entries[vfd]
	if ok {
		delete(t.entries, vfd)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	e.file.Unref()
	return true
}

// GetRef returns the File at vfd with an extra reference taken (the caller
// must Unref it when done), or nil if vfd is not present.
func (t *FileTable) GetRef(vfd int32) *File {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[vfd]
	if !ok {
		return nil
	}
	return e.file.Ref()
}

// GetCloexec reports the cloexec flag recorded for vfd. The bool return
// is false if vfd is not present.
func (t *FileTable) GetCloexec(vfd int32) (bool, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[vfd]
	if !ok {
		return false, false
	}
	return e.cloexec, true
}

// Rollback undoes a just-performed Insert: it removes the table entry and
// drops the reference the entry held. Because Insert takes over the
// caller's reference rather than adding one, the file's refcount ends one
// below its value before Insert (and the backend is closed if that was the
// last reference). Handlers call this on any error path after a
// successful Insert (spec.md §5/§9 errdefer discipline).
func (t *FileTable) Rollback(vfd int32) {
	t.Remove(vfd)
}
