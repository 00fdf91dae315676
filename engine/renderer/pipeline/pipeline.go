package pipeline

import "fmt"

// TextureFormat is a driver-neutral pixel format for render targets and sampled textures.
type TextureFormat int

const (
	FormatUndefined TextureFormat = iota
	FormatRGBA8Unorm
	FormatRGBA8UnormSrgb
	FormatRGBA16Float
	FormatRGBA32Float
	FormatRGBA32Uint
	FormatR8Unorm
	FormatDepth24Plus
	FormatDepth32Float

	// FormatBackbuffer stands for whatever format the presentation surface was
	// configured with. Drivers resolve it when a pipeline is created.
	FormatBackbuffer
)

// IsDepth reports whether the format holds depth values.
func (f TextureFormat) IsDepth() bool {
	return f == FormatDepth24Plus || f == FormatDepth32Float
}

// BytesPerPixel returns the texel size of colour formats and zero for depth and backbuffer formats.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case FormatR8Unorm:
		return 1
	case FormatRGBA8Unorm, FormatRGBA8UnormSrgb:
		return 4
	case FormatRGBA16Float:
		return 8
	case FormatRGBA32Float, FormatRGBA32Uint:
		return 16
	}
	return 0
}

func (f TextureFormat) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatRGBA8Unorm:
		return "rgba8unorm"
	case FormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case FormatRGBA16Float:
		return "rgba16float"
	case FormatRGBA32Float:
		return "rgba32float"
	case FormatRGBA32Uint:
		return "rgba32uint"
	case FormatR8Unorm:
		return "r8unorm"
	case FormatDepth24Plus:
		return "depth24plus"
	case FormatDepth32Float:
		return "depth32float"
	case FormatBackbuffer:
		return "backbuffer"
	}
	return fmt.Sprintf("TextureFormat(%d)", int(f))
}

// BlendMode selects one of the colour blend equations used by the passes.
type BlendMode int

const (
	// BlendNone overwrites the target.
	BlendNone BlendMode = iota
	// BlendAlpha is src*a + dst*(1-a).
	BlendAlpha
	// BlendAdditive is src + dst, used to accumulate per-light contributions.
	BlendAdditive
	// BlendPremultiplied is src + dst*(1-a) for colour that is already multiplied by alpha.
	BlendPremultiplied
	// BlendAdditiveColor adds the colour and keeps the destination alpha, so
	// coverage written by an earlier pass is not counted again.
	BlendAdditiveColor
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullBack
	CullFront
)

// CompareFunc is the depth comparison used when depth testing is enabled.
type CompareFunc int

const (
	CompareLess CompareFunc = iota
	CompareLessEqual
	CompareEqual
	CompareGreater
	CompareAlways
)

// Topology is the primitive assembly mode.
type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
)

// ColorTarget is one colour output of a pipeline.
type ColorTarget struct {
	Format TextureFormat
	Blend  BlendMode
}

// state is the implementation of the State interface.
// It holds the fixed-function configuration that accompanies a shader when a
// program is created.
type state struct {
	colorTargets []ColorTarget

	depthFormat       TextureFormat
	depthTestEnabled  bool
	depthWriteEnabled bool
	depthCompare      CompareFunc

	depthBias           int32
	depthBiasSlopeScale float32

	cullMode    CullMode
	topology    Topology
	frontFaceCW bool
	sampleCount uint32
}

// State defines the fixed-function configuration of a render program: its
// output targets, depth handling, blending, rasterisation and primitive assembly.
// State values are immutable once built, so a driver may key caches on them.
type State interface {
	// ColorTargets returns the colour outputs in location order.
	//
	// Returns:
	//   - []ColorTarget: the colour outputs; empty for depth-only programs
	ColorTargets() []ColorTarget

	// DepthFormat returns the depth attachment format, or FormatUndefined when the program has none.
	DepthFormat() TextureFormat

	// DepthTestEnabled returns whether depth testing is enabled.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled.
	DepthWriteEnabled() bool

	// DepthCompare returns the comparison used when depth testing is enabled.
	DepthCompare() CompareFunc

	// DepthBias returns the constant depth bias.
	DepthBias() int32

	// DepthBiasSlopeScale returns the slope-scaled depth bias.
	DepthBiasSlopeScale() float32

	// CullMode returns the face culling mode.
	CullMode() CullMode

	// Topology returns the primitive topology.
	Topology() Topology

	// FrontFaceCW returns true when clockwise winding is front facing.
	FrontFaceCW() bool

	// SampleCount returns the multisample count, always at least 1.
	SampleCount() uint32

	// Validate reports configuration errors a driver would reject.
	//
	// Returns:
	//   - error: nil when the state is usable
	Validate() error
}

var _ State = &state{}

// NewState is the entry point to create a new State. Without options it describes
// a program with no colour targets, no depth attachment, back-face culling off and
// triangle list topology.
//
// Parameters:
//   - opts: a variadic list of StateBuilderOption functions to configure the state
//
// Returns:
//   - State: the configured fixed-function state
func NewState(opts ...StateBuilderOption) State {
	s := &state{
		depthFormat:  FormatUndefined,
		depthCompare: CompareLess,
		cullMode:     CullNone,
		topology:     TopologyTriangleList,
		sampleCount:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *state) ColorTargets() []ColorTarget {
	return s.colorTargets
}

func (s *state) DepthFormat() TextureFormat {
	return s.depthFormat
}

func (s *state) DepthTestEnabled() bool {
	return s.depthTestEnabled
}

func (s *state) DepthWriteEnabled() bool {
	return s.depthWriteEnabled
}

func (s *state) DepthCompare() CompareFunc {
	return s.depthCompare
}

func (s *state) DepthBias() int32 {
	return s.depthBias
}

func (s *state) DepthBiasSlopeScale() float32 {
	return s.depthBiasSlopeScale
}

func (s *state) CullMode() CullMode {
	return s.cullMode
}

func (s *state) Topology() Topology {
	return s.topology
}

func (s *state) FrontFaceCW() bool {
	return s.frontFaceCW
}

func (s *state) SampleCount() uint32 {
	return s.sampleCount
}

func (s *state) Validate() error {
	if len(s.colorTargets) == 0 && s.depthFormat == FormatUndefined {
		return fmt.Errorf("pipeline state has neither colour targets nor a depth attachment")
	}
	for i, t := range s.colorTargets {
		if t.Format == FormatUndefined || t.Format.IsDepth() {
			return fmt.Errorf("colour target %d has invalid format %s", i, t.Format)
		}
		if t.Format == FormatRGBA32Uint && t.Blend != BlendNone {
			return fmt.Errorf("colour target %d: integer format %s cannot be blended", i, t.Format)
		}
	}
	if s.depthFormat != FormatUndefined && !s.depthFormat.IsDepth() {
		return fmt.Errorf("depth attachment has non-depth format %s", s.depthFormat)
	}
	if s.depthFormat == FormatUndefined && (s.depthTestEnabled || s.depthWriteEnabled) {
		return fmt.Errorf("depth test or write enabled without a depth attachment")
	}
	return nil
}
