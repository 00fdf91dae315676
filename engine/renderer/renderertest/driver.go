// Package renderertest provides an in-memory renderer.Driver that records every
// command it receives, for tests that exercise GPU code without a GPU.
//
// The driver simulates device loss and failures and reports misuse a real
// device would reject: textures sampled while attached to the same pass,
// resources from a previous device generation, unbound shader resources and
// buffers smaller than the shader declares.
package renderertest

import (
	"errors"
	"fmt"

	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/renderer/shader"
)

// Buffer is a recorded buffer. Data holds the last upload.
type Buffer struct {
	ID       int
	Label    string
	Gen      int
	Usage    renderer.BufferUsage
	Data     []byte
	Writes   int
	Released bool
	size     uint64
}

func (b *Buffer) Size() uint64 {
	return b.size
}

func (b *Buffer) Release() {
	b.Released = true
}

// Texture is a recorded texture. Written counts the draws issued while it was a colour or depth attachment.
type Texture struct {
	ID       int
	Label    string
	Gen      int
	Usage    renderer.TextureUsage
	Pixels   []byte
	Written  int
	Released bool
	width    uint32
	height   uint32
	format   pipeline.TextureFormat
}

func (t *Texture) Width() uint32 {
	return t.width
}

func (t *Texture) Height() uint32 {
	return t.height
}

func (t *Texture) Format() pipeline.TextureFormat {
	return t.format
}

func (t *Texture) Release() {
	t.Released = true
}

// Sampler is a recorded sampler.
type Sampler struct {
	ID       int
	Label    string
	Gen      int
	Desc     renderer.SamplerDescriptor
	Released bool
}

func (s *Sampler) Release() {
	s.Released = true
}

// Program is a recorded program.
type Program struct {
	ID       int
	Label    string
	Gen      int
	Desc     renderer.ProgramDescriptor
	Released bool
}

func (p *Program) Release() {
	p.Released = true
}

// Slot addresses a @group/@binding pair.
type Slot struct {
	Group, Binding int
}

// Draw is one recorded DrawIndexed with the bindings in effect.
type Draw struct {
	Program    *Program
	IndexCount uint32
	Vertex     *Buffer
	Index      *Buffer
	Buffers    map[Slot]*Buffer
	Textures   map[Slot]*Texture
	Samplers   map[Slot]*Sampler
}

// Pass is one recorded render pass.
type Pass struct {
	Label string
	Frame int
	Color []renderer.ColorAttachment
	Depth *renderer.DepthAttachment
	Draws []Draw
	Ended bool

	// Abandoned is set when the frame the pass belongs to was dropped.
	Abandoned bool
}

// ColorTarget returns the i-th colour attachment as a recorded texture.
func (p *Pass) ColorTarget(i int) *Texture {
	if i >= len(p.Color) {
		return nil
	}
	t, _ := p.Color[i].Target.(*Texture)
	return t
}

// DepthTarget returns the depth attachment as a recorded texture.
func (p *Pass) DepthTarget() *Texture {
	if p.Depth == nil {
		return nil
	}
	t, _ := p.Depth.Target.(*Texture)
	return t
}

// Samples reports whether any draw of the pass bound t as a shader resource.
func (p *Pass) Samples(t *Texture) bool {
	for _, d := range p.Draws {
		for _, bound := range d.Textures {
			if bound == t {
				return true
			}
		}
	}
	return false
}

// Driver is a recording implementation of renderer.Driver.
type Driver struct {
	Generation  int
	Opened      bool
	Opens       int
	Closes      int
	Configures  int
	Width       uint32
	Height      uint32
	PresentMode renderer.PresentMode
	Surface     any

	Buffers  []*Buffer
	Textures []*Texture
	Samplers []*Sampler
	Programs []*Program
	Passes   []*Pass
	Frames   int

	// Abandoned counts frames dropped with AbandonFrame.
	Abandoned int

	// Violations lists every misuse a real device would have rejected.
	Violations []string

	loseOnBeginFrame bool
	skipBeginFrame   bool
	loseOnPresent    bool
	failPass         error
	failOpen         []error
	failPresent      error
	failWrite        error
	failCreate       error

	frameOpen bool
	nextID    int
}

var _ renderer.Driver = &Driver{}

// New returns an unopened recording driver.
func New() *Driver {
	return &Driver{}
}

// LoseDeviceOnBeginFrame makes the next BeginFrame report device loss.
func (d *Driver) LoseDeviceOnBeginFrame() {
	d.loseOnBeginFrame = true
}

// SkipNextFrame makes the next BeginFrame report that no backbuffer is available.
func (d *Driver) SkipNextFrame() {
	d.skipBeginFrame = true
}

// FailPasses makes every BeginPass fail with err until called with nil.
func (d *Driver) FailPasses(err error) {
	d.failPass = err
}

// LoseDeviceOnPresent makes the next Present report device loss.
func (d *Driver) LoseDeviceOnPresent() {
	d.loseOnPresent = true
}

// FailOpen queues an error for the next Open call. Calls queue in order.
func (d *Driver) FailOpen(err error) {
	d.failOpen = append(d.failOpen, err)
}

// FailPresent makes the next Present fail with err.
func (d *Driver) FailPresent(err error) {
	d.failPresent = err
}

// FailWrites makes every WriteBuffer and WriteTexture fail with err until called with nil.
func (d *Driver) FailWrites(err error) {
	d.failWrite = err
}

// FailCreates makes every resource creation fail with err until called with nil.
func (d *Driver) FailCreates(err error) {
	d.failCreate = err
}

// Reset forgets recorded passes and violations but keeps resources and device state.
func (d *Driver) Reset() {
	d.Passes = nil
	d.Violations = nil
}

func (d *Driver) violate(format string, args ...any) {
	d.Violations = append(d.Violations, fmt.Sprintf(format, args...))
}

func (d *Driver) id() int {
	d.nextID++
	return d.nextID
}

func (d *Driver) Name() string {
	return "recording"
}

func (d *Driver) AdapterInfo() string {
	return fmt.Sprintf("recording adapter (generation %d)", d.Generation)
}

func (d *Driver) Open(surface any, width, height uint32, mode renderer.PresentMode) error {
	if len(d.failOpen) > 0 {
		err := d.failOpen[0]
		d.failOpen = d.failOpen[1:]
		return err
	}
	if d.Opened {
		d.violate("open while already open")
	}
	d.Opened = true
	d.Opens++
	d.Generation++
	d.Surface = surface
	d.Width, d.Height = width, height
	d.PresentMode = mode
	return nil
}

func (d *Driver) Close() {
	d.Opened = false
	d.frameOpen = false
	d.Closes++
}

func (d *Driver) Configure(width, height uint32) error {
	if !d.Opened {
		return renderer.ErrNotInitialized
	}
	d.Configures++
	d.Width, d.Height = width, height
	return nil
}

func (d *Driver) checkCreate() error {
	if !d.Opened {
		return renderer.ErrNotInitialized
	}
	return d.failCreate
}

func (d *Driver) CreateBuffer(desc renderer.BufferDescriptor) (renderer.Buffer, error) {
	if err := d.checkCreate(); err != nil {
		return nil, err
	}
	b := &Buffer{ID: d.id(), Label: desc.Label, Gen: d.Generation, Usage: desc.Usage, size: desc.Size}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Driver) CreateTexture(desc renderer.TextureDescriptor) (renderer.Texture, error) {
	if err := d.checkCreate(); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, errors.New("zero sized texture")
	}
	t := &Texture{
		ID:     d.id(),
		Label:  desc.Label,
		Gen:    d.Generation,
		Usage:  desc.Usage,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Driver) CreateSampler(desc renderer.SamplerDescriptor) (renderer.Sampler, error) {
	if err := d.checkCreate(); err != nil {
		return nil, err
	}
	s := &Sampler{ID: d.id(), Label: desc.Label, Gen: d.Generation, Desc: desc}
	d.Samplers = append(d.Samplers, s)
	return s, nil
}

func (d *Driver) CreateProgram(desc renderer.ProgramDescriptor) (renderer.Program, error) {
	if err := d.checkCreate(); err != nil {
		return nil, err
	}
	if err := desc.State.Validate(); err != nil {
		return nil, err
	}
	p := &Program{ID: d.id(), Label: desc.Label, Gen: d.Generation, Desc: desc}
	d.Programs = append(d.Programs, p)
	return p, nil
}

func (d *Driver) WriteBuffer(b renderer.Buffer, offset uint64, data []byte) error {
	if d.failWrite != nil {
		return d.failWrite
	}
	rb := b.(*Buffer)
	d.checkLive("write buffer", rb.Label, rb.Gen, rb.Released)
	if offset+uint64(len(data)) > rb.size {
		return fmt.Errorf("write of %d bytes at %d overflows %s (%d bytes)", len(data), offset, rb.Label, rb.size)
	}
	rb.Data = append([]byte(nil), data...)
	rb.Writes++
	return nil
}

func (d *Driver) WriteTexture(t renderer.Texture, pixels []byte) error {
	if d.failWrite != nil {
		return d.failWrite
	}
	rt := t.(*Texture)
	d.checkLive("write texture", rt.Label, rt.Gen, rt.Released)
	if want := int(rt.width * rt.height * rt.format.BytesPerPixel()); len(pixels) != want {
		return fmt.Errorf("texture %s expects %d bytes, got %d", rt.Label, want, len(pixels))
	}
	rt.Pixels = append([]byte(nil), pixels...)
	return nil
}

func (d *Driver) checkLive(what, label string, gen int, released bool) {
	if released {
		d.violate("%s: %s used after release", what, label)
	}
	if gen != d.Generation {
		d.violate("%s: %s from generation %d used in generation %d", what, label, gen, d.Generation)
	}
}

func (d *Driver) BeginFrame() (renderer.Texture, error) {
	if !d.Opened {
		return nil, renderer.ErrNotInitialized
	}
	if d.loseOnBeginFrame {
		d.loseOnBeginFrame = false
		return nil, renderer.ErrDeviceLost
	}
	if d.skipBeginFrame {
		d.skipBeginFrame = false
		return nil, renderer.ErrFrameSkipped
	}
	if d.frameOpen {
		d.violate("begin frame while a frame is open")
	}
	d.frameOpen = true
	t := &Texture{
		ID:     d.id(),
		Label:  "backbuffer",
		Gen:    d.Generation,
		Usage:  renderer.TextureUsageRenderTarget,
		width:  d.Width,
		height: d.Height,
		format: pipeline.FormatBackbuffer,
	}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Driver) BeginPass(desc renderer.PassDescriptor) (renderer.PassEncoder, error) {
	if !d.frameOpen {
		return nil, errors.New("no frame in progress")
	}
	if d.failPass != nil {
		return nil, d.failPass
	}
	for i, c := range desc.Color {
		t, ok := c.Target.(*Texture)
		if !ok {
			return nil, fmt.Errorf("pass %s: colour attachment %d is not a recorded texture", desc.Label, i)
		}
		d.checkLive("pass "+desc.Label, t.Label, t.Gen, t.Released)
		if t.format.IsDepth() {
			d.violate("pass %s: depth texture %s used as colour attachment", desc.Label, t.Label)
		}
	}
	if desc.Depth != nil {
		t, ok := desc.Depth.Target.(*Texture)
		if !ok {
			return nil, fmt.Errorf("pass %s: depth attachment is not a recorded texture", desc.Label)
		}
		d.checkLive("pass "+desc.Label, t.Label, t.Gen, t.Released)
		if !t.format.IsDepth() {
			d.violate("pass %s: %s used as depth attachment", desc.Label, t.Label)
		}
	}
	p := &Pass{Label: desc.Label, Frame: d.Frames, Color: desc.Color, Depth: desc.Depth}
	d.Passes = append(d.Passes, p)
	return &encoder{d: d, pass: p, bindings: newDraw()}, nil
}

func (d *Driver) Present() error {
	if d.loseOnPresent {
		d.loseOnPresent = false
		d.frameOpen = false
		return renderer.ErrDeviceLost
	}
	if d.failPresent != nil {
		err := d.failPresent
		d.failPresent = nil
		d.frameOpen = false
		return err
	}
	if !d.frameOpen {
		return errors.New("present without a frame")
	}
	for _, p := range d.Passes {
		if p.Frame == d.Frames && !p.Ended && !p.Abandoned {
			d.violate("pass %s not ended before present", p.Label)
		}
	}
	d.frameOpen = false
	d.Frames++
	return nil
}

func (d *Driver) AbandonFrame() {
	if !d.frameOpen {
		d.violate("abandon without a frame")
		return
	}
	for _, p := range d.Passes {
		if p.Frame == d.Frames {
			p.Abandoned = true
		}
	}
	d.frameOpen = false
	d.Abandoned++
}

// PassLabels returns the labels of every recorded pass in order.
func (d *Driver) PassLabels() []string {
	out := make([]string, 0, len(d.Passes))
	for _, p := range d.Passes {
		out = append(out, p.Label)
	}
	return out
}

// PassesLabelled returns the recorded passes with the given label in order.
func (d *Driver) PassesLabelled(label string) []*Pass {
	var out []*Pass
	for _, p := range d.Passes {
		if p.Label == label {
			out = append(out, p)
		}
	}
	return out
}

// BuffersLabelled returns every buffer created with the given label.
func (d *Driver) BuffersLabelled(label string) []*Buffer {
	var out []*Buffer
	for _, b := range d.Buffers {
		if b.Label == label {
			out = append(out, b)
		}
	}
	return out
}

// TexturesLabelled returns every texture created with the given label.
func (d *Driver) TexturesLabelled(label string) []*Texture {
	var out []*Texture
	for _, t := range d.Textures {
		if t.Label == label {
			out = append(out, t)
		}
	}
	return out
}

func newDraw() Draw {
	return Draw{
		Buffers:  make(map[Slot]*Buffer),
		Textures: make(map[Slot]*Texture),
		Samplers: make(map[Slot]*Sampler),
	}
}

type encoder struct {
	d        *Driver
	pass     *Pass
	bindings Draw
	err      error
}

func (e *encoder) fail(format string, args ...any) {
	msg := fmt.Sprintf("pass %s: ", e.pass.Label) + fmt.Sprintf(format, args...)
	e.d.violate("%s", msg)
	if e.err == nil {
		e.err = errors.New(msg)
	}
}

func (e *encoder) SetProgram(p renderer.Program) {
	rp, ok := p.(*Program)
	if !ok || rp == nil {
		e.fail("nil program")
		return
	}
	e.d.checkLive("set program", rp.Label, rp.Gen, rp.Released)
	e.bindings.Program = rp
}

func (e *encoder) SetBuffer(group, binding int, b renderer.Buffer) {
	rb, ok := b.(*Buffer)
	if !ok || rb == nil {
		e.fail("nil buffer at @group(%d) @binding(%d)", group, binding)
		return
	}
	e.d.checkLive("bind buffer", rb.Label, rb.Gen, rb.Released)
	e.bindings.Buffers[Slot{group, binding}] = rb
}

func (e *encoder) SetTexture(group, binding int, t renderer.Texture) {
	rt, ok := t.(*Texture)
	if !ok || rt == nil {
		e.fail("nil texture at @group(%d) @binding(%d)", group, binding)
		return
	}
	e.d.checkLive("bind texture", rt.Label, rt.Gen, rt.Released)
	e.bindings.Textures[Slot{group, binding}] = rt
}

func (e *encoder) SetSampler(group, binding int, s renderer.Sampler) {
	rs, ok := s.(*Sampler)
	if !ok || rs == nil {
		e.fail("nil sampler at @group(%d) @binding(%d)", group, binding)
		return
	}
	e.d.checkLive("bind sampler", rs.Label, rs.Gen, rs.Released)
	e.bindings.Samplers[Slot{group, binding}] = rs
}

func (e *encoder) SetVertexBuffer(b renderer.Buffer) {
	rb, ok := b.(*Buffer)
	if !ok || rb == nil {
		e.fail("nil vertex buffer")
		return
	}
	e.d.checkLive("bind vertex buffer", rb.Label, rb.Gen, rb.Released)
	e.bindings.Vertex = rb
}

func (e *encoder) SetIndexBuffer(b renderer.Buffer) {
	rb, ok := b.(*Buffer)
	if !ok || rb == nil {
		e.fail("nil index buffer")
		return
	}
	e.d.checkLive("bind index buffer", rb.Label, rb.Gen, rb.Released)
	e.bindings.Index = rb
}

func (e *encoder) DrawIndexed(indexCount uint32) {
	b := e.bindings
	if b.Program == nil {
		e.fail("draw without a program")
		return
	}
	if b.Index == nil || b.Vertex == nil {
		e.fail("draw without vertex or index buffer")
		return
	}
	if uint64(indexCount)*4 > b.Index.size {
		e.fail("draw of %d indices from %s (%d bytes)", indexCount, b.Index.Label, b.Index.size)
	}

	for _, decl := range b.Program.Desc.Shader.Bindings() {
		slot := Slot{decl.Group, decl.Binding}
		switch {
		case decl.Kind.IsBuffer():
			buf, ok := b.Buffers[slot]
			if !ok {
				e.fail("%s: %s unbound", b.Program.Label, decl.Name)
			} else if decl.MinSize > buf.size {
				e.fail("%s: %s needs %d bytes, %s has %d", b.Program.Label, decl.Name, decl.MinSize, buf.Label, buf.size)
			}
		case decl.Kind.IsTexture():
			t, ok := b.Textures[slot]
			if !ok {
				e.fail("%s: %s unbound", b.Program.Label, decl.Name)
			} else if !compatible(decl.Kind, t.format) {
				e.fail("%s: %s (%s) cannot sample %s", b.Program.Label, decl.Name, decl.Kind, t.format)
			}
		case decl.Kind.IsSampler():
			s, ok := b.Samplers[slot]
			if !ok {
				e.fail("%s: %s unbound", b.Program.Label, decl.Name)
			} else if s.Desc.Compare != (decl.Kind == shader.BindingComparisonSampler) {
				e.fail("%s: %s bound to a sampler of the wrong kind", b.Program.Label, decl.Name)
			}
		}
	}

	attached := make(map[*Texture]bool)
	for i := range e.pass.Color {
		attached[e.pass.ColorTarget(i)] = true
	}
	if dt := e.pass.DepthTarget(); dt != nil {
		attached[dt] = true
	}
	for slot, t := range b.Textures {
		if attached[t] {
			e.fail("%s sampled at @group(%d) @binding(%d) while attached", t.Label, slot.Group, slot.Binding)
		}
	}
	for t := range attached {
		if t != nil {
			t.Written++
		}
	}

	rec := newDraw()
	rec.Program, rec.Vertex, rec.Index, rec.IndexCount = b.Program, b.Vertex, b.Index, indexCount
	for k, v := range b.Buffers {
		rec.Buffers[k] = v
	}
	for k, v := range b.Textures {
		rec.Textures[k] = v
	}
	for k, v := range b.Samplers {
		rec.Samplers[k] = v
	}
	e.pass.Draws = append(e.pass.Draws, rec)
}

func compatible(kind shader.BindingKind, f pipeline.TextureFormat) bool {
	switch kind {
	case shader.BindingDepthTexture:
		return f.IsDepth()
	case shader.BindingUintTexture:
		return f == pipeline.FormatRGBA32Uint
	case shader.BindingTexture:
		return !f.IsDepth() && f != pipeline.FormatRGBA32Uint
	}
	return true
}

func (e *encoder) End() error {
	if e.pass.Ended {
		return errors.New("pass ended twice")
	}
	e.pass.Ended = true
	return e.err
}
