// Package loader turns level manifests into scene node records and lights.
// Textures named by a level are decoded in parallel and shared by path.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/common"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/model"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
	"github.com/theswiftfox/sparkle/engine/scene"
)

// Level is a loaded manifest: one root record named after the level, and its lights.
type Level struct {
	Name   string
	Root   *scene.NodeRecord
	Lights []light.Light
}

// Drawables returns every drawable of the level in depth-first order.
func (lv *Level) Drawables() []*scene.Drawable {
	var out []*scene.Drawable
	var walk func(*scene.NodeRecord)
	walk = func(r *scene.NodeRecord) {
		out = append(out, r.Drawables...)
		for _, c := range r.Children {
			walk(c)
		}
	}
	if lv.Root != nil {
		walk(lv.Root)
	}
	return out
}

// Release frees the drawables of a level that was never handed to a scene.
func (lv *Level) Release() {
	for _, d := range lv.Drawables() {
		d.Release()
	}
	lv.Root = nil
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu *sync.Mutex

	pool                worker.DynamicWorkerPool
	workers             int
	maxTextureDimension int
	defaultLight        bool

	textures map[textureKey]*renderer.Texture2D
	backends map[string]levelBackend
}

// Loader reads level manifests (.yaml, .yml or .toml).
type Loader interface {
	// Load reads, validates and builds the level at path. Texture paths are
	// resolved relative to the manifest's directory.
	//
	// Parameters:
	//   - path: the manifest file
	//
	// Returns:
	//   - *Level: the level; the caller owns its drawables
	//   - error: a read, decode, ErrInvalidLevel or texture error
	Load(path string) (*Level, error)

	// LoadReader builds a level from a stream.
	//
	// Parameters:
	//   - r: the manifest text
	//   - ext: the format extension, such as ".yaml"
	//   - dir: the directory texture paths are relative to
	//
	// Returns:
	//   - *Level: the level
	//   - error: as for Load
	LoadReader(r io.Reader, ext, dir string) (*Level, error)

	// CachedTextures returns the number of textures the loader holds.
	CachedTextures() int

	// Prune drops the cache's reference to textures no level uses any more.
	//
	// Returns:
	//   - int: the number of textures released
	Prune() int

	// Release drops every cached texture reference.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a Loader with YAML and TOML manifest support.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:           &sync.Mutex{},
		workers:      runtime.NumCPU(),
		defaultLight: true,
		textures:     make(map[textureKey]*renderer.Texture2D),
		backends: map[string]levelBackend{
			".yaml": yamlBackend{},
			".yml":  yamlBackend{},
			".toml": tomlBackend{},
		},
	}
	for _, option := range options {
		option(l)
	}
	l.pool = worker.NewDynamicWorkerPool(max(l.workers, 1), 64, time.Second)
	return l
}

func (l *loader) Load(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	lv, err := l.LoadReader(bytes.NewReader(data), filepath.Ext(path), filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	if lv.Name == "" {
		lv.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		lv.Root.Name = lv.Name
	}
	return lv, nil
}

func (l *loader) LoadReader(r io.Reader, ext, dir string) (*Level, error) {
	backend, err := l.resolveBackend(ext)
	if err != nil {
		return nil, err
	}
	m, err := backend.Decode(r)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	keys := collectTextures(m.Nodes, dir, nil)
	if err := l.acquireTextures(slices.Collect(maps.Keys(keys))); err != nil {
		return nil, err
	}

	root := &scene.NodeRecord{Name: m.Name, Local: mgl32.Ident4()}
	for i := range m.Nodes {
		child, err := l.buildNode(&m.Nodes[i], dir)
		if err != nil {
			(&Level{Root: root}).Release()
			return nil, err
		}
		root.Children = append(root.Children, child)
	}

	lights := make([]light.Light, 0, max(len(m.Lights), 1))
	for _, spec := range m.Lights {
		lt, err := spec.Light()
		if err != nil {
			(&Level{Root: root}).Release()
			return nil, err
		}
		lights = append(lights, lt)
	}
	if len(lights) == 0 && l.defaultLight {
		lights = append(lights,
			light.NewLight(light.LightTypeAmbient, light.WithIntensity(DefaultAmbientIntensity)),
			light.NewLight(light.LightTypeDirectional),
		)
	}
	return &Level{Name: m.Name, Root: root, Lights: lights}, nil
}

// resolveBackend selects a manifest backend by file extension.
func (l *loader) resolveBackend(ext string) (levelBackend, error) {
	b, ok := l.backends[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("loader: unsupported level format %q", ext)
	}
	return b, nil
}

func collectTextures(nodes []NodeSpec, dir string, into map[textureKey]bool) map[textureKey]bool {
	if into == nil {
		into = make(map[textureKey]bool)
	}
	for _, n := range nodes {
		for name, path := range n.Textures {
			slot, _ := parseSlot(name)
			into[keyFor(slot, resolve(dir, path))] = true
		}
		collectTextures(n.Children, dir, into)
	}
	return into
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}

// buildNode converts a node spec and its subtree. On error everything built so
// far in the subtree is released.
func (l *loader) buildNode(n *NodeSpec, dir string) (*scene.NodeRecord, error) {
	rec := &scene.NodeRecord{Name: n.Name, Local: n.Local()}
	if mesh := n.mesh(); mesh != nil {
		d, err := l.buildDrawable(n, mesh, dir)
		if err != nil {
			return nil, err
		}
		rec.Drawables = append(rec.Drawables, d)
	}
	for i := range n.Children {
		child, err := l.buildNode(&n.Children[i], dir)
		if err != nil {
			(&Level{Root: rec}).Release()
			return nil, err
		}
		rec.Children = append(rec.Children, child)
	}
	return rec, nil
}

func (l *loader) buildDrawable(n *NodeSpec, mesh *model.Mesh, dir string) (*scene.Drawable, error) {
	class, _ := parseClass(n.Class)
	opts := []material.MaterialBuilderOption{
		material.WithName(common.Coalesce(n.Name, n.Mesh)),
		material.WithMetallic(n.Metallic),
	}
	if n.Color != nil {
		opts = append(opts, material.WithBaseColor(*n.Color))
	}
	if n.Roughness != nil {
		opts = append(opts, material.WithRoughness(*n.Roughness))
	}
	for name, path := range n.Textures {
		slot, _ := parseSlot(name)
		opts = append(opts, material.WithTexture(slot, l.texture(keyFor(slot, resolve(dir, path)))))
	}
	mat := material.NewMaterial(opts...)

	d, err := scene.NewMesh(common.Coalesce(n.Name, n.Mesh), mesh, mat, class)
	if err != nil {
		mat.Release()
		return nil, fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}
	return d, nil
}

func (l *loader) CachedTextures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.textures)
}

func (l *loader) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for k, t := range l.textures {
		if t.RefCount() <= 1 {
			t.Release()
			delete(l.textures, k)
			pruned++
		}
	}
	if pruned > 0 {
		log.Printf("loader: pruned %d unused textures", pruned)
	}
	return pruned
}

func (l *loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, t := range l.textures {
		t.Release()
		delete(l.textures, k)
	}
}
