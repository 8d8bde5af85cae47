// Package testing provides SSH mock utilities for testing.
// It simulates a remote POSIX account with an in-memory filesystem.
package testing

import (
	"errors"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

// Errors returned by MockFS. MockClient turns them into coreutils-style stderr.
var (
	ErrNotExist = errors.New("no such file or directory")
	ErrExist    = errors.New("file exists")
	ErrNotDir   = errors.New("not a directory")
	ErrIsDir    = errors.New("is a directory")
)

// MockFS simulates an in-memory remote filesystem.
// Paths are always slash separated, regardless of the local OS.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]os.FileMode
}

// NewMockFS creates a new mock filesystem containing only "/".
func NewMockFS() *MockFS {
	return &MockFS{
		files: make(map[string][]byte),
		dirs:  map[string]os.FileMode{"/": 0755},
	}
}

// Mkdir creates a single directory with the given mode.
// Like mkdir(1) without -p, the parent must already exist.
func (fs *MockFS) Mkdir(p string, mode os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	if fs.existsLocked(p) {
		return ErrExist
	}
	if _, ok := fs.dirs[path.Dir(p)]; !ok {
		return ErrNotExist
	}
	fs.dirs[p] = mode
	return nil
}

// MkdirAll creates a directory and all missing parents with mode 0755.
func (fs *MockFS) MkdirAll(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	current := "/"
	for _, part := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		if part == "" {
			continue
		}
		current = path.Join(current, part)
		if _, isFile := fs.files[current]; isFile {
			return ErrNotDir
		}
		if _, ok := fs.dirs[current]; !ok {
			fs.dirs[current] = 0755
		}
	}
	return nil
}

// WriteFile replaces a file's content, creating parent directories as needed.
func (fs *MockFS) WriteFile(p string, content []byte) error {
	if err := fs.MkdirAll(path.Dir(path.Clean(p))); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	if _, ok := fs.dirs[p]; ok {
		return ErrIsDir
	}
	fs.files[p] = append([]byte(nil), content...)
	return nil
}

// Append adds content to the end of a file, creating it when missing.
// The parent directory must exist.
func (fs *MockFS) Append(p string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	if err := fs.checkWritableLocked(p); err != nil {
		return err
	}
	fs.files[p] = append(fs.files[p], content...)
	return nil
}

// Touch creates an empty file if it doesn't exist. Existing content is kept.
func (fs *MockFS) Touch(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	if _, ok := fs.dirs[p]; ok {
		return nil
	}
	if err := fs.checkWritableLocked(p); err != nil {
		return err
	}
	if _, ok := fs.files[p]; !ok {
		fs.files[p] = []byte{}
	}
	return nil
}

// ReadFile reads the content of a file.
func (fs *MockFS) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	p = path.Clean(p)
	if _, ok := fs.dirs[p]; ok {
		return nil, ErrIsDir
	}
	content, ok := fs.files[p]
	if !ok {
		return nil, ErrNotExist
	}
	return append([]byte(nil), content...), nil
}

// List returns the names in a directory the way `ls -a` prints them:
// "." and ".." first, then entries in lexical order.
func (fs *MockFS) List(dir string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dir = path.Clean(dir)
	if _, ok := fs.dirs[dir]; !ok {
		if _, isFile := fs.files[dir]; isFile {
			return nil, ErrNotDir
		}
		return nil, ErrNotExist
	}

	var names []string
	add := func(p string) {
		if p != dir && path.Dir(p) == dir {
			names = append(names, path.Base(p))
		}
	}
	for p := range fs.dirs {
		add(p)
	}
	for p := range fs.files {
		add(p)
	}
	sort.Strings(names)

	return append([]string{".", ".."}, names...), nil
}

// Remove removes a file or directory and all its contents, like `rm -rf`.
func (fs *MockFS) Remove(p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	delete(fs.files, p)
	if p != "/" {
		delete(fs.dirs, p)
	}

	prefix := strings.TrimSuffix(p, "/") + "/"
	for f := range fs.files {
		if strings.HasPrefix(f, prefix) {
			delete(fs.files, f)
		}
	}
	for d := range fs.dirs {
		if strings.HasPrefix(d, prefix) {
			delete(fs.dirs, d)
		}
	}
	return nil
}

// Mode returns the permission bits a directory was created with.
func (fs *MockFS) Mode(p string) (os.FileMode, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	mode, ok := fs.dirs[path.Clean(p)]
	return mode, ok
}

// Exists returns true if the path exists (file or directory).
func (fs *MockFS) Exists(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.existsLocked(path.Clean(p))
}

// IsDir returns true if the path exists and is a directory.
func (fs *MockFS) IsDir(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.dirs[path.Clean(p)]
	return ok
}

// IsFile returns true if the path exists and is a file.
func (fs *MockFS) IsFile(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.files[path.Clean(p)]
	return ok
}

func (fs *MockFS) existsLocked(p string) bool {
	if _, ok := fs.dirs[p]; ok {
		return true
	}
	_, ok := fs.files[p]
	return ok
}

func (fs *MockFS) checkWritableLocked(p string) error {
	if _, ok := fs.dirs[p]; ok {
		return ErrIsDir
	}
	parent := path.Dir(p)
	if _, ok := fs.dirs[parent]; !ok {
		if _, isFile := fs.files[parent]; isFile {
			return ErrNotDir
		}
		return ErrNotExist
	}
	return nil
}
