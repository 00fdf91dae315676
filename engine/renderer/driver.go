package renderer

import (
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/renderer/shader"
)

// BufferUsage is a bit set describing how a buffer is bound.
type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 1 << iota
	BufferUsageStorage
	BufferUsageVertex
	BufferUsageIndex
)

// TextureUsage is a bit set describing how a texture is bound.
type TextureUsage uint32

const (
	// TextureUsageSampled allows binding the texture to a shader.
	TextureUsageSampled TextureUsage = 1 << iota
	// TextureUsageRenderTarget allows attaching the texture to a pass.
	TextureUsageRenderTarget
	// TextureUsageCopyDst allows uploading pixels.
	TextureUsageCopyDst
)

// FilterMode selects texel filtering.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// AddressMode selects how coordinates outside [0, 1] are resolved.
type AddressMode int

const (
	AddressRepeat AddressMode = iota
	AddressClampToEdge
)

// LoadOp selects what happens to an attachment when a pass begins.
type LoadOp int

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
)

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

// TextureDescriptor describes a 2D texture to create.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format pipeline.TextureFormat
	Usage  TextureUsage
}

// SamplerDescriptor describes a sampler to create. Compare selects a depth
// comparison sampler using less-or-equal.
type SamplerDescriptor struct {
	Label   string
	Filter  FilterMode
	Address AddressMode
	Compare bool
}

// ProgramDescriptor pairs a reflected shader with the fixed-function state it runs under.
type ProgramDescriptor struct {
	Label  string
	Shader shader.Shader
	State  pipeline.State
}

// ColorAttachment is a colour target of a pass.
type ColorAttachment struct {
	Target Texture
	Load   LoadOp
	Clear  [4]float64
}

// DepthAttachment is the depth target of a pass. ReadOnly attachments are
// loaded and never written by the pass.
type DepthAttachment struct {
	Target   Texture
	Load     LoadOp
	Clear    float32
	ReadOnly bool
}

// PassDescriptor describes the attachments of one render pass.
type PassDescriptor struct {
	Label string
	Color []ColorAttachment
	Depth *DepthAttachment
}

// Buffer is a driver buffer handle.
type Buffer interface {
	Size() uint64
	Release()
}

// Texture is a driver texture handle, usable as a shader resource or pass attachment depending on its usage.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() pipeline.TextureFormat
	Release()
}

// Sampler is a driver sampler handle.
type Sampler interface {
	Release()
}

// Program is a driver render pipeline handle.
type Program interface {
	Release()
}

// PassEncoder records the draws of one render pass. Every pass starts with no
// bindings; resources bound in an earlier pass must be bound again.
type PassEncoder interface {
	// SetProgram selects the program for subsequent draws.
	SetProgram(p Program)
	// SetBuffer binds a uniform or storage buffer to @group(group) @binding(binding).
	SetBuffer(group, binding int, b Buffer)
	// SetTexture binds a sampled texture.
	SetTexture(group, binding int, t Texture)
	// SetSampler binds a sampler.
	SetSampler(group, binding int, s Sampler)
	// SetVertexBuffer binds the interleaved vertex buffer.
	SetVertexBuffer(b Buffer)
	// SetIndexBuffer binds a buffer of 32-bit indices.
	SetIndexBuffer(b Buffer)
	// DrawIndexed issues one indexed draw with the current bindings.
	DrawIndexed(indexCount uint32)
	// End finishes the pass. The encoder must not be used afterwards.
	End() error
}

// Driver is the device-level API the Backend is built on. One driver talks to
// one device; Close followed by Open creates a fresh device, invalidating every
// resource created before.
type Driver interface {
	// Name identifies the driver implementation.
	Name() string

	// Open creates the device and binds the presentation surface. Failures wrap
	// ErrDeviceCreation or ErrSurfaceCreation.
	Open(surface any, width, height uint32, mode PresentMode) error

	// Close releases the device and surface.
	Close()

	// Configure resizes the presentation surface.
	Configure(width, height uint32) error

	// AdapterInfo describes the opened adapter for logging.
	AdapterInfo() string

	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	CreateTexture(desc TextureDescriptor) (Texture, error)
	CreateSampler(desc SamplerDescriptor) (Sampler, error)
	CreateProgram(desc ProgramDescriptor) (Program, error)

	// WriteBuffer uploads data at offset.
	WriteBuffer(b Buffer, offset uint64, data []byte) error

	// WriteTexture uploads tightly packed pixels covering the whole texture.
	WriteTexture(t Texture, pixels []byte) error

	// BeginFrame acquires the next backbuffer. ErrDeviceLost means the surface
	// or device is gone and the frame must be skipped. ErrFrameSkipped means only
	// this frame is unavailable.
	BeginFrame() (Texture, error)

	// BeginPass starts recording a render pass into the current frame.
	BeginPass(desc PassDescriptor) (PassEncoder, error)

	// Present submits the recorded passes and presents the backbuffer.
	Present() error

	// AbandonFrame drops the current frame without submitting it.
	AbandonFrame()
}
