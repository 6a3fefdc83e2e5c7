package printing

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// ErrTemplateNotFound is returned when neither a template nor its fallback exists
var ErrTemplateNotFound = errors.New("template not found")

// TemplateStore resolves template names to their source. Templates in the
// external directory take precedence over the embedded ones; sources are
// cached after the first lookup.
type TemplateStore struct {
	externalDir string
	mu          sync.RWMutex
	cache       map[string]string
}

// NewTemplateStore creates a store reading from externalDir, which may be empty
func NewTemplateStore(externalDir string) *TemplateStore {
	return &TemplateStore{externalDir: externalDir, cache: make(map[string]string)}
}

// Lookup returns the source of the named template. A missing name is
// retried with its last "_" segment removed, so "order_submitted" falls
// back to "order".
func (s *TemplateStore) Lookup(name string) (resolved, content string, err error) {
	for candidate := name; candidate != ""; {
		if content, ok := s.load(candidate); ok {
			return candidate, content, nil
		}
		i := strings.LastIndex(candidate, "_")
		if i < 0 {
			break
		}
		candidate = candidate[:i]
	}
	return "", "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// Reload drops the cached sources
func (s *TemplateStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]string)
}

// Names lists the embedded template names
func (s *TemplateStore) Names() []string {
	entries, _ := fs.ReadDir(embeddedTemplates, "templates")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".html"))
	}
	return names
}

func (s *TemplateStore) load(name string) (string, bool) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", false
	}

	s.mu.RLock()
	content, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return content, true
	}

	file := name + ".html"
	var data []byte
	var err error
	if s.externalDir != "" {
		data, err = os.ReadFile(filepath.Join(s.externalDir, file))
	}
	if s.externalDir == "" || err != nil {
		data, err = embeddedTemplates.ReadFile("templates/" + file)
	}
	if err != nil {
		return "", false
	}

	s.mu.Lock()
	s.cache[name] = string(data)
	s.mu.Unlock()
	return string(data), true
}
