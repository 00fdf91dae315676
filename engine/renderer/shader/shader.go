package shader

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrCompile is returned when WGSL source cannot be turned into a usable shader:
// a missing entry point, an unknown include, an unsupported resource declaration
// or a validation failure.
var ErrCompile = errors.New("shader: compilation failed")

func compileErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCompile, fmt.Sprintf(format, args...))
}

// Stage is a bit set of programmable pipeline stages.
type Stage uint32

const (
	// StageVertex is the vertex stage.
	StageVertex Stage = 1 << iota
	// StageFragment is the fragment stage.
	StageFragment
)

// BindingKind classifies a resource declared with @group/@binding.
type BindingKind int

const (
	BindingUniform BindingKind = iota
	BindingStorage
	BindingStorageReadWrite
	BindingTexture
	BindingUintTexture
	BindingSintTexture
	BindingDepthTexture
	BindingSampler
	BindingComparisonSampler
)

// IsBuffer reports whether the binding is backed by a buffer.
func (k BindingKind) IsBuffer() bool {
	return k == BindingUniform || k == BindingStorage || k == BindingStorageReadWrite
}

// IsTexture reports whether the binding is a sampled texture.
func (k BindingKind) IsTexture() bool {
	return k == BindingTexture || k == BindingUintTexture || k == BindingSintTexture || k == BindingDepthTexture
}

// IsSampler reports whether the binding is a sampler.
func (k BindingKind) IsSampler() bool {
	return k == BindingSampler || k == BindingComparisonSampler
}

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingStorage:
		return "storage"
	case BindingStorageReadWrite:
		return "storage_rw"
	case BindingTexture:
		return "texture"
	case BindingUintTexture:
		return "texture_u32"
	case BindingSintTexture:
		return "texture_i32"
	case BindingDepthTexture:
		return "texture_depth"
	case BindingSampler:
		return "sampler"
	case BindingComparisonSampler:
		return "sampler_comparison"
	}
	return fmt.Sprintf("BindingKind(%d)", int(k))
}

// Binding describes one resource slot of a shader.
type Binding struct {
	Group      int
	Binding    int
	Name       string
	Kind       BindingKind
	Visibility Stage
	// MinSize is the byte size of the bound type for buffer bindings, zero when unknown.
	MinSize uint64
}

// VertexFormat is the format of one vertex attribute.
type VertexFormat int

const (
	VertexFormatFloat32 VertexFormat = iota
	VertexFormatFloat32x2
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatUint32
	VertexFormatUint32x2
	VertexFormatUint32x4
	VertexFormatSint32
	VertexFormatSint32x4
)

// VertexAttribute is one attribute of an interleaved vertex.
type VertexAttribute struct {
	Format   VertexFormat
	Offset   uint64
	Location uint32
}

// VertexLayout describes the single interleaved vertex buffer a shader consumes.
type VertexLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	source        string
	vertexEntry   string
	fragmentEntry string
	bindings      []Binding
	vertexLayout  VertexLayout
	hasVertices   bool
}

// Shader is a pre-processed and reflected WGSL module holding a vertex entry
// point and, unless it is a depth-only shader, a fragment entry point.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for labels and caching.
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	Source() string

	// VertexEntryPoint returns the name of the @vertex function.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment function, or "" for depth-only shaders.
	FragmentEntryPoint() string

	// Bindings returns every resource declaration sorted by group and binding.
	Bindings() []Binding

	// Binding looks up a resource declaration by variable name.
	Binding(name string) (Binding, bool)

	// VertexLayout returns the vertex buffer layout consumed by the vertex entry point.
	// The boolean is false when the vertex stage reads no vertex buffer.
	VertexLayout() (VertexLayout, bool)
}

var _ Shader = &shader{}

// Option configures NewShader.
type Option func(*options)

type options struct {
	includes map[string]string
	validate bool
}

// WithIncludes registers named WGSL snippets that `// @sparkle:include <name>` lines expand to.
func WithIncludes(includes map[string]string) Option {
	return func(o *options) {
		for k, v := range includes {
			o.includes[k] = v
		}
	}
}

// WithValidation compiles the processed source with naga before reflection.
func WithValidation(enabled bool) Option {
	return func(o *options) {
		o.validate = enabled
	}
}

// NewShader pre-processes and reflects WGSL source. All failures wrap ErrCompile.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - code: raw WGSL source
//   - opts: include registry and validation options
//
// Returns:
//   - Shader: the reflected shader
//   - error: ErrCompile when the source is unusable
func NewShader(key, code string, opts ...Option) (Shader, error) {
	o := options{includes: make(map[string]string)}
	for _, opt := range opts {
		opt(&o)
	}

	processed, err := NewPreProcessor(o.includes).Process(code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if o.validate {
		if err := validate(processed); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	s := &shader{key: key, source: processed}
	s.vertexEntry, s.fragmentEntry = parseEntryPoints(processed)
	if s.vertexEntry == "" {
		return nil, fmt.Errorf("%s: %w", key, compileErrorf("no @vertex entry point"))
	}

	visibility := StageVertex
	if s.fragmentEntry != "" {
		visibility |= StageFragment
	}
	s.bindings, err = parseBindings(processed, visibility)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	s.vertexLayout, s.hasVertices = parseVertexLayout(processed)

	return s, nil
}

// LoadShader reads a WGSL file from fsys and passes it to NewShader, using the path as key.
func LoadShader(fsys fs.FS, path string, opts ...Option) (Shader, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrCompile, path, err)
	}
	return NewShader(path, string(data), opts...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntry
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntry
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) Binding(name string) (Binding, bool) {
	for _, b := range s.bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

func (s *shader) VertexLayout() (VertexLayout, bool) {
	return s.vertexLayout, s.hasVertices
}
