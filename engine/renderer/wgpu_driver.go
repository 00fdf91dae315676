package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/renderer/shader"
)

var nextWGPUObjectID atomic.Uint64

type wgpuBuffer struct {
	id   uint64
	buf  *wgpu.Buffer
	size uint64
}

func (b *wgpuBuffer) Size() uint64 {
	return b.size
}

func (b *wgpuBuffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

type wgpuTexture struct {
	id     uint64
	tex    *wgpu.Texture
	view   *wgpu.TextureView
	width  uint32
	height uint32
	format pipeline.TextureFormat
}

func (t *wgpuTexture) Width() uint32 {
	return t.width
}

func (t *wgpuTexture) Height() uint32 {
	return t.height
}

func (t *wgpuTexture) Format() pipeline.TextureFormat {
	return t.format
}

func (t *wgpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

type wgpuSampler struct {
	id      uint64
	sampler *wgpu.Sampler
}

func (s *wgpuSampler) Release() {
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
}

type wgpuProgram struct {
	id       uint64
	module   *wgpu.ShaderModule
	layouts  []*wgpu.BindGroupLayout
	layout   *wgpu.PipelineLayout
	pipeline *wgpu.RenderPipeline
	bindings []shader.Binding
}

func (p *wgpuProgram) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	for _, l := range p.layouts {
		l.Release()
	}
	p.layouts = nil
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}

// wgpuDriver is the WebGPU implementation of the Driver interface.
type wgpuDriver struct {
	forceFallbackAdapter bool

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	config      wgpu.SurfaceConfiguration
	adapterInfo string

	encoder      *wgpu.CommandEncoder
	frameTexture *wgpu.Texture
	backbuffer   *wgpuTexture

	// bind groups live for one frame and are released after submission
	bindGroups map[string]*wgpu.BindGroup
}

var _ Driver = &wgpuDriver{}

// NewWGPUDriver creates the WebGPU driver. The calling goroutine is locked to
// its OS thread because surfaces must be driven from the window thread.
//
// Parameters:
//   - forceFallbackAdapter: request a software adapter instead of a hardware GPU
//
// Returns:
//   - Driver: the unopened driver
func NewWGPUDriver(forceFallbackAdapter bool) Driver {
	runtime.LockOSThread()
	return &wgpuDriver{forceFallbackAdapter: forceFallbackAdapter}
}

func (d *wgpuDriver) Name() string {
	return "webgpu"
}

func (d *wgpuDriver) AdapterInfo() string {
	return d.adapterInfo
}

func (d *wgpuDriver) Open(surface any, width, height uint32, mode PresentMode) error {
	desc, ok := surface.(*wgpu.SurfaceDescriptor)
	if !ok || desc == nil {
		return fmt.Errorf("%w: expected *wgpu.SurfaceDescriptor, got %T", ErrSurfaceCreation, surface)
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(desc)
	if d.surface == nil {
		d.Close()
		return fmt.Errorf("%w: surface could not be bound to the window", ErrSurfaceCreation)
	}

	// prefer a discrete GPU, then whatever hardware adapter the instance offers
	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	d.adapterInfo = "high-performance adapter"
	if err != nil {
		a, err = d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
			ForceFallbackAdapter: d.forceFallbackAdapter,
			CompatibleSurface:    d.surface,
		})
		d.adapterInfo = "default adapter"
	}
	if err != nil {
		d.Close()
		return fmt.Errorf("%w: no adapter: %w", ErrDeviceCreation, err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		d.Close()
		return fmt.Errorf("%w: %w", ErrDeviceCreation, err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		d.Close()
		return fmt.Errorf("%w: surface reports no formats", ErrSurfaceCreation)
	}
	d.config = wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      capabilities.Formats[0],
		Width:       width,
		Height:      height,
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   capabilities.AlphaModes[0],
	}
	if mode == PresentModeUncapped {
		d.config.PresentMode = wgpu.PresentModeImmediate
	}
	d.surface.Configure(d.adapter, d.device, &d.config)
	return nil
}

func (d *wgpuDriver) Configure(width, height uint32) error {
	if d.device == nil {
		return ErrNotInitialized
	}
	d.config.Width = width
	d.config.Height = height
	d.surface.Configure(d.adapter, d.device, &d.config)
	return nil
}

func (d *wgpuDriver) Close() {
	d.endFrame()
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (d *wgpuDriver) textureFormat(f pipeline.TextureFormat) wgpu.TextureFormat {
	switch f {
	case pipeline.FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case pipeline.FormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case pipeline.FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float
	case pipeline.FormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float
	case pipeline.FormatRGBA32Uint:
		return wgpu.TextureFormatRGBA32Uint
	case pipeline.FormatR8Unorm:
		return wgpu.TextureFormatR8Unorm
	case pipeline.FormatDepth24Plus:
		return wgpu.TextureFormatDepth24Plus
	case pipeline.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	case pipeline.FormatBackbuffer:
		return d.config.Format
	}
	return wgpu.TextureFormatUndefined
}

func (d *wgpuDriver) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	if d.device == nil {
		return nil, ErrNotInitialized
	}
	usage := wgpu.BufferUsageCopyDst
	if desc.Usage&BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	if desc.Usage&BufferUsageStorage != 0 {
		usage |= wgpu.BufferUsageStorage
	}
	if desc.Usage&BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if desc.Usage&BufferUsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}

	// uniform bindings are sized in 16 byte steps, copies in 4 byte steps
	align := uint64(4)
	if desc.Usage&(BufferUsageUniform|BufferUsageStorage) != 0 {
		align = 16
	}
	size := (max(desc.Size, 1) + align - 1) / align * align

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{id: nextWGPUObjectID.Add(1), buf: buf, size: size}, nil
}

func (d *wgpuDriver) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if d.device == nil {
		return nil, ErrNotInitialized
	}
	var usage wgpu.TextureUsage
	if desc.Usage&TextureUsageSampled != 0 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	if desc.Usage&TextureUsageRenderTarget != 0 {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	if desc.Usage&TextureUsageCopyDst != 0 {
		usage |= wgpu.TextureUsageCopyDst
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        d.textureFormat(desc.Format),
		Usage:         usage,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{
		id:     nextWGPUObjectID.Add(1),
		tex:    tex,
		view:   view,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}, nil
}

func (d *wgpuDriver) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	if d.device == nil {
		return nil, ErrNotInitialized
	}
	filter, mip := wgpu.FilterModeLinear, wgpu.MipmapFilterModeLinear
	if desc.Filter == FilterNearest {
		filter, mip = wgpu.FilterModeNearest, wgpu.MipmapFilterModeNearest
	}
	address := wgpu.AddressModeRepeat
	if desc.Address == AddressClampToEdge {
		address = wgpu.AddressModeClampToEdge
	}
	sd := &wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  mip,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	if desc.Compare {
		sd.Compare = wgpu.CompareFunctionLessEqual
	}
	s, err := d.device.CreateSampler(sd)
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{id: nextWGPUObjectID.Add(1), sampler: s}, nil
}

func (d *wgpuDriver) CreateProgram(desc ProgramDescriptor) (Program, error) {
	if d.device == nil {
		return nil, ErrNotInitialized
	}
	s, state := desc.Shader, desc.State
	p := &wgpuProgram{id: nextWGPUObjectID.Add(1), bindings: s.Bindings()}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return nil, err
	}
	p.module = module

	if err := d.createBindGroupLayouts(p, desc.Label); err != nil {
		p.Release()
		return nil, err
	}
	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		p.Release()
		return nil, err
	}

	var buffers []wgpu.VertexBufferLayout
	if vl, ok := s.VertexLayout(); ok {
		attrs := make([]wgpu.VertexAttribute, 0, len(vl.Attributes))
		for _, a := range vl.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			})
		}
		buffers = append(buffers, wgpu.VertexBufferLayout{
			ArrayStride: vl.Stride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}

	rpd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: s.VertexEntryPoint(),
			Buffers:    buffers,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  primitiveTopology(state.Topology()),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(state.CullMode()),
		},
		Multisample: wgpu.MultisampleState{
			Count: state.SampleCount(),
			Mask:  0xFFFFFFFF,
		},
	}
	if state.FrontFaceCW() {
		rpd.Primitive.FrontFace = wgpu.FrontFaceCW
	}
	if s.FragmentEntryPoint() != "" {
		targets := make([]wgpu.ColorTargetState, 0, len(state.ColorTargets()))
		for _, t := range state.ColorTargets() {
			targets = append(targets, wgpu.ColorTargetState{
				Format:    d.textureFormat(t.Format),
				WriteMask: wgpu.ColorWriteMaskAll,
				Blend:     blendState(t.Blend),
			})
		}
		rpd.Fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: s.FragmentEntryPoint(),
			Targets:    targets,
		}
	}
	if state.DepthFormat() != pipeline.FormatUndefined {
		compare := compareFunction(state.DepthCompare())
		if !state.DepthTestEnabled() {
			compare = wgpu.CompareFunctionAlways
		}
		rpd.DepthStencil = &wgpu.DepthStencilState{
			Format:              d.textureFormat(state.DepthFormat()),
			DepthWriteEnabled:   state.DepthWriteEnabled(),
			DepthCompare:        compare,
			DepthBias:           state.DepthBias(),
			DepthBiasSlopeScale: state.DepthBiasSlopeScale(),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	p.pipeline, err = d.device.CreateRenderPipeline(rpd)
	if err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// createBindGroupLayouts creates one layout per group up to the highest group the
// shader declares. Groups the shader skips get an empty layout.
func (d *wgpuDriver) createBindGroupLayouts(p *wgpuProgram, label string) error {
	byGroup := make(map[int][]wgpu.BindGroupLayoutEntry)
	maxGroup := -1
	for _, b := range p.bindings {
		byGroup[b.Group] = append(byGroup[b.Group], bindGroupLayoutEntry(b))
		maxGroup = max(maxGroup, b.Group)
	}
	for g := 0; g <= maxGroup; g++ {
		layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", label, g),
			Entries: byGroup[g],
		})
		if err != nil {
			return fmt.Errorf("bind group layout %d: %w", g, err)
		}
		p.layouts = append(p.layouts, layout)
	}
	return nil
}

func bindGroupLayoutEntry(b shader.Binding) wgpu.BindGroupLayoutEntry {
	visibility := wgpu.ShaderStageNone
	if b.Visibility&shader.StageVertex != 0 {
		visibility |= wgpu.ShaderStageVertex
	}
	if b.Visibility&shader.StageFragment != 0 {
		visibility |= wgpu.ShaderStageFragment
	}
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(b.Binding),
		Visibility: visibility,
	}
	switch b.Kind {
	case shader.BindingUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case shader.BindingStorage:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case shader.BindingStorageReadWrite:
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case shader.BindingTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
	case shader.BindingUintTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeUint
	case shader.BindingSintTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeSint
	case shader.BindingDepthTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
	case shader.BindingSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case shader.BindingComparisonSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	}
	if b.Kind.IsTexture() {
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	}
	return entry
}

func vertexFormat(f shader.VertexFormat) wgpu.VertexFormat {
	switch f {
	case shader.VertexFormatFloat32:
		return wgpu.VertexFormatFloat32
	case shader.VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case shader.VertexFormatFloat32x3:
		return wgpu.VertexFormatFloat32x3
	case shader.VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	case shader.VertexFormatUint32:
		return wgpu.VertexFormatUint32
	case shader.VertexFormatUint32x2:
		return wgpu.VertexFormatUint32x2
	case shader.VertexFormatUint32x4:
		return wgpu.VertexFormatUint32x4
	case shader.VertexFormatSint32:
		return wgpu.VertexFormatSint32
	case shader.VertexFormatSint32x4:
		return wgpu.VertexFormatSint32x4
	}
	return wgpu.VertexFormatUndefined
}

func primitiveTopology(t pipeline.Topology) wgpu.PrimitiveTopology {
	switch t {
	case pipeline.TopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case pipeline.TopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func cullMode(c pipeline.CullMode) wgpu.CullMode {
	switch c {
	case pipeline.CullBack:
		return wgpu.CullModeBack
	case pipeline.CullFront:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

func compareFunction(c pipeline.CompareFunc) wgpu.CompareFunction {
	switch c {
	case pipeline.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case pipeline.CompareEqual:
		return wgpu.CompareFunctionEqual
	case pipeline.CompareGreater:
		return wgpu.CompareFunctionGreater
	case pipeline.CompareAlways:
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionLess
}

func blendState(m pipeline.BlendMode) *wgpu.BlendState {
	switch m {
	case pipeline.BlendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case pipeline.BlendAdditive:
		add := wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		}
		return &wgpu.BlendState{Color: add, Alpha: add}
	case pipeline.BlendPremultiplied:
		over := wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		}
		return &wgpu.BlendState{Color: over, Alpha: over}
	case pipeline.BlendAdditiveColor:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorZero,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}
	return nil
}

func (d *wgpuDriver) WriteBuffer(b Buffer, offset uint64, data []byte) error {
	wb, ok := b.(*wgpuBuffer)
	if !ok || wb.buf == nil {
		return fmt.Errorf("write to released or foreign buffer")
	}
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("write of %d bytes at %d overflows buffer of %d", len(data), offset, wb.size)
	}
	// queue writes must be a multiple of 4 bytes
	if pad := len(data) % 4; pad != 0 {
		data = append(data[:len(data):len(data)], make([]byte, 4-pad)...)
	}
	d.queue.WriteBuffer(wb.buf, offset, data)
	return nil
}

func (d *wgpuDriver) WriteTexture(t Texture, pixels []byte) error {
	wt, ok := t.(*wgpuTexture)
	if !ok || wt.tex == nil {
		return fmt.Errorf("write to released or foreign texture")
	}
	bpp := wt.format.BytesPerPixel()
	if bpp == 0 || len(pixels) != int(wt.width*wt.height*bpp) {
		return fmt.Errorf("pixel data of %d bytes does not match %dx%d %s", len(pixels), wt.width, wt.height, wt.format)
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  wt.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  wt.width * bpp,
			RowsPerImage: wt.height,
		},
		&wgpu.Extent3D{
			Width:              wt.width,
			Height:             wt.height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (d *wgpuDriver) BeginFrame() (Texture, error) {
	if d.device == nil {
		return nil, ErrNotInitialized
	}
	if d.encoder != nil {
		return nil, errors.New("previous frame not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		kind := acquireFailure(err)
		if kind == acquireOutdated {
			d.surface.Configure(d.adapter, d.device, &d.config)
		}
		return nil, fmt.Errorf("%w: %w", kind.err(), err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("%w: %w", ErrDeviceLost, err)
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, err
	}

	d.encoder = encoder
	d.frameTexture = surfaceTexture
	d.backbuffer = &wgpuTexture{
		id:     nextWGPUObjectID.Add(1),
		view:   view,
		width:  d.config.Width,
		height: d.config.Height,
		format: pipeline.FormatBackbuffer,
	}
	d.bindGroups = make(map[string]*wgpu.BindGroup)
	return d.backbuffer, nil
}

func (d *wgpuDriver) BeginPass(desc PassDescriptor) (PassEncoder, error) {
	if d.encoder == nil {
		return nil, errors.New("no frame in progress")
	}
	rpd := &wgpu.RenderPassDescriptor{}
	for i, c := range desc.Color {
		t, ok := c.Target.(*wgpuTexture)
		if !ok || t.view == nil {
			return nil, fmt.Errorf("pass %s: colour attachment %d is not a live texture", desc.Label, i)
		}
		load := wgpu.LoadOpLoad
		if c.Load == LoadOpClear {
			load = wgpu.LoadOpClear
		}
		rpd.ColorAttachments = append(rpd.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:       t.view,
			LoadOp:     load,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: c.Clear[0], G: c.Clear[1], B: c.Clear[2], A: c.Clear[3]},
		})
	}
	if desc.Depth != nil {
		t, ok := desc.Depth.Target.(*wgpuTexture)
		if !ok || t.view == nil {
			return nil, fmt.Errorf("pass %s: depth attachment is not a live texture", desc.Label)
		}
		load := wgpu.LoadOpLoad
		if desc.Depth.Load == LoadOpClear && !desc.Depth.ReadOnly {
			load = wgpu.LoadOpClear
		}
		rpd.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            t.view,
			DepthLoadOp:     load,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.Depth.Clear,
		}
	}
	return &wgpuPassEncoder{
		d:      d,
		label:  desc.Label,
		pass:   d.encoder.BeginRenderPass(rpd),
		groups: make(map[int]map[int]wgpuResource),
		dirty:  make(map[int]bool),
	}, nil
}

// acquireKind classifies a failed surface acquisition.
type acquireKind int

const (
	acquireLost acquireKind = iota
	acquireOutdated
	acquireTimeout
)

func (k acquireKind) err() error {
	if k == acquireLost {
		return ErrDeviceLost
	}
	return ErrFrameSkipped
}

// acquireFailure maps the error text of GetCurrentTexture to a kind. The binding
// only reports the surface status through the message. Anything unrecognised is
// treated as a lost device.
func acquireFailure(err error) acquireKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "device lost"), strings.Contains(msg, "device-lost"):
		return acquireLost
	case strings.Contains(msg, "outdated"), strings.Contains(msg, "suboptimal"):
		return acquireOutdated
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return acquireTimeout
	}
	return acquireLost
}

func (d *wgpuDriver) Present() error {
	if d.encoder == nil {
		return errors.New("no frame in progress")
	}
	defer d.endFrame()

	commandBuffer, err := d.encoder.Finish(nil)
	if err != nil {
		return err
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	d.surface.Present()
	return nil
}

func (d *wgpuDriver) AbandonFrame() {
	d.endFrame()
}

// endFrame releases every per-frame object.
func (d *wgpuDriver) endFrame() {
	for _, bg := range d.bindGroups {
		bg.Release()
	}
	d.bindGroups = nil
	if d.encoder != nil {
		d.encoder.Release()
		d.encoder = nil
	}
	if d.backbuffer != nil {
		d.backbuffer.Release()
		d.backbuffer = nil
	}
	if d.frameTexture != nil {
		d.frameTexture.Release()
		d.frameTexture = nil
	}
}

// bindGroup returns the frame's bind group for the resources bound to one group
// of a program, creating it on first use.
func (d *wgpuDriver) bindGroup(p *wgpuProgram, group int, bound map[int]wgpuResource) (*wgpu.BindGroup, error) {
	var entries []wgpu.BindGroupEntry
	var key strings.Builder
	key.WriteString(strconv.FormatUint(p.id, 10))
	key.WriteByte('/')
	key.WriteString(strconv.Itoa(group))

	for _, b := range p.bindings {
		if b.Group != group {
			continue
		}
		r, ok := bound[b.Binding]
		if !ok {
			return nil, fmt.Errorf("@group(%d) @binding(%d) %s is not bound", group, b.Binding, b.Name)
		}
		key.WriteByte(':')
		key.WriteString(strconv.FormatUint(r.id, 10))

		e := wgpu.BindGroupEntry{Binding: uint32(b.Binding)}
		switch {
		case b.Kind.IsBuffer() && r.buffer != nil:
			e.Buffer = r.buffer
			e.Size = wgpu.WholeSize
		case b.Kind.IsTexture() && r.view != nil:
			e.TextureView = r.view
		case b.Kind.IsSampler() && r.sampler != nil:
			e.Sampler = r.sampler
		default:
			return nil, fmt.Errorf("@group(%d) @binding(%d) %s: bound resource does not match %s", group, b.Binding, b.Name, b.Kind)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })

	if bg, ok := d.bindGroups[key.String()]; ok {
		return bg, nil
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   key.String(),
		Layout:  p.layouts[group],
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	d.bindGroups[key.String()] = bg
	return bg, nil
}

type wgpuResource struct {
	id      uint64
	buffer  *wgpu.Buffer
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

// wgpuPassEncoder is the WebGPU implementation of the PassEncoder interface.
type wgpuPassEncoder struct {
	d       *wgpuDriver
	label   string
	pass    *wgpu.RenderPassEncoder
	program *wgpuProgram
	groups  map[int]map[int]wgpuResource
	dirty   map[int]bool
	err     error
}

func (e *wgpuPassEncoder) fail(err error) {
	if e.err == nil {
		e.err = fmt.Errorf("pass %s: %w", e.label, err)
	}
}

func (e *wgpuPassEncoder) bind(group, binding int, r wgpuResource) {
	if e.groups[group] == nil {
		e.groups[group] = make(map[int]wgpuResource)
	}
	e.groups[group][binding] = r
	e.dirty[group] = true
}

func (e *wgpuPassEncoder) SetProgram(p Program) {
	wp, ok := p.(*wgpuProgram)
	if !ok || wp.pipeline == nil {
		e.fail(errors.New("program is not live"))
		return
	}
	e.program = wp
	e.pass.SetPipeline(wp.pipeline)
	for g := range wp.layouts {
		e.dirty[g] = true
	}
}

func (e *wgpuPassEncoder) SetBuffer(group, binding int, b Buffer) {
	wb, ok := b.(*wgpuBuffer)
	if !ok || wb.buf == nil {
		e.fail(fmt.Errorf("buffer for @group(%d) @binding(%d) is not live", group, binding))
		return
	}
	e.bind(group, binding, wgpuResource{id: wb.id, buffer: wb.buf})
}

func (e *wgpuPassEncoder) SetTexture(group, binding int, t Texture) {
	wt, ok := t.(*wgpuTexture)
	if !ok || wt.view == nil {
		e.fail(fmt.Errorf("texture for @group(%d) @binding(%d) is not live", group, binding))
		return
	}
	e.bind(group, binding, wgpuResource{id: wt.id, view: wt.view})
}

func (e *wgpuPassEncoder) SetSampler(group, binding int, s Sampler) {
	ws, ok := s.(*wgpuSampler)
	if !ok || ws.sampler == nil {
		e.fail(fmt.Errorf("sampler for @group(%d) @binding(%d) is not live", group, binding))
		return
	}
	e.bind(group, binding, wgpuResource{id: ws.id, sampler: ws.sampler})
}

func (e *wgpuPassEncoder) SetVertexBuffer(b Buffer) {
	wb, ok := b.(*wgpuBuffer)
	if !ok || wb.buf == nil {
		e.fail(errors.New("vertex buffer is not live"))
		return
	}
	e.pass.SetVertexBuffer(0, wb.buf, 0, wgpu.WholeSize)
}

func (e *wgpuPassEncoder) SetIndexBuffer(b Buffer) {
	wb, ok := b.(*wgpuBuffer)
	if !ok || wb.buf == nil {
		e.fail(errors.New("index buffer is not live"))
		return
	}
	e.pass.SetIndexBuffer(wb.buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
}

func (e *wgpuPassEncoder) DrawIndexed(indexCount uint32) {
	if e.err != nil {
		return
	}
	if e.program == nil {
		e.fail(errors.New("draw without a program"))
		return
	}
	for g := range e.program.layouts {
		if !e.dirty[g] {
			continue
		}
		bg, err := e.d.bindGroup(e.program, g, e.groups[g])
		if err != nil {
			e.fail(err)
			return
		}
		e.pass.SetBindGroup(uint32(g), bg, nil)
		e.dirty[g] = false
	}
	e.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
}

func (e *wgpuPassEncoder) End() error {
	if e.pass != nil {
		e.pass.End()
		e.pass.Release()
		e.pass = nil
	}
	return e.err
}
