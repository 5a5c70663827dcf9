package cv

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"
	"time"
)

var (
	// ErrTemplateMissing means the template file does not exist
	ErrTemplateMissing = errors.New("template missing")
	// ErrTemplateUnreadable means the template file exists but could not be decoded
	ErrTemplateUnreadable = errors.New("template unreadable")
)

// CachedTemplate holds a decoded template and the forms derived from it
type CachedTemplate struct {
	Path     string
	Color    *image.RGBA
	HasAlpha bool
	LoadedAt time.Time

	source   image.Image
	edgeOnce sync.Once
	edges    *image.Gray
	mask     *image.Gray
	variants []edgeVariant
}

// EdgeMask returns the template's edge map and validity mask, derived on first use
func (ct *CachedTemplate) EdgeMask() (edges, mask *image.Gray) {
	ct.prepareEdges()
	return ct.edges, ct.mask
}

func (ct *CachedTemplate) prepareEdges() {
	ct.edgeOnce.Do(func() {
		ct.edges, ct.mask = TemplateEdges(ct.source)
		ct.variants = prepareEdgeVariants(ct.edges, ct.mask)
	})
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits     int64 // served from memory
	Misses   int64 // had to read disk
	Loads    int64 // successful decodes
	Failures int64 // missing or undecodable files
}

// TemplateCache loads templates lazily and keeps them keyed by path. Failed
// loads are not remembered, so a template added later is picked up.
type TemplateCache struct {
	mu        sync.RWMutex
	templates map[string]*CachedTemplate
	stats     CacheStats
}

// NewTemplateCache creates an empty cache
func NewTemplateCache() *TemplateCache {
	return &TemplateCache{templates: make(map[string]*CachedTemplate)}
}

// Get returns the cached template for path, loading it if necessary
func (tc *TemplateCache) Get(path string) (*CachedTemplate, error) {
	tc.mu.RLock()
	ct, ok := tc.templates[path]
	tc.mu.RUnlock()
	if ok {
		tc.mu.Lock()
		tc.stats.Hits++
		tc.mu.Unlock()
		return ct, nil
	}

	ct, err := loadTemplate(path)

	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.stats.Misses++
	if err != nil {
		tc.stats.Failures++
		return nil, err
	}
	if existing, ok := tc.templates[path]; ok {
		return existing, nil
	}
	tc.stats.Loads++
	tc.templates[path] = ct
	return ct, nil
}

// Invalidate drops one path so the next Get reloads it from disk
func (tc *TemplateCache) Invalidate(path string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	delete(tc.templates, path)
}

// Clear drops every cached template
func (tc *TemplateCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.templates = make(map[string]*CachedTemplate)
}

// Len returns the number of cached templates
func (tc *TemplateCache) Len() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.templates)
}

// Stats returns cache statistics
func (tc *TemplateCache) Stats() CacheStats {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.stats
}

func loadTemplate(path string) (*CachedTemplate, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateUnreadable, path, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateUnreadable, path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s: empty image", ErrTemplateUnreadable, path)
	}

	return &CachedTemplate{
		Path:     path,
		Color:    toOpaqueRGBA(img),
		HasAlpha: alphaMask(img) != nil,
		LoadedAt: time.Now(),
		source:   img,
	}, nil
}
