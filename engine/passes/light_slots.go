package passes

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/renderer"
)

// lightSlot is the uniform state of one light index. Every upload of a frame
// reaches the device before the frame's draws execute, so lights drawn in the
// same frame cannot share a buffer.
type lightSlot struct {
	frame   *renderer.UniformBuffer[GPULightFrame]
	entries *renderer.StructuredBuffer[light.GPULight]

	entry      light.GPULight
	hasEntry   bool
	lightSpace mgl32.Mat4
}

// lightSlots stages the frame-wide lighting constants and one lightSlot per light index.
type lightSlots struct {
	label string
	slots []*lightSlot
	cur   int

	cameraPos   mgl32.Vec3
	ssaoEnabled bool
	shadowTexel float32
}

func newLightSlots(label string) *lightSlots {
	s := &lightSlots{label: label}
	s.use(0)
	return s
}

// use selects the slot of light index i, creating slots up to i.
func (s *lightSlots) use(i int) {
	for len(s.slots) <= i {
		n := len(s.slots)
		s.slots = append(s.slots, &lightSlot{
			frame:      renderer.NewUniformBuffer(fmt.Sprintf("%s frame %d", s.label, n), GPULightFrame{}),
			entries:    renderer.NewStructuredBuffer[light.GPULight](fmt.Sprintf("%s entries %d", s.label, n)),
			lightSpace: mgl32.Ident4(),
		})
	}
	s.cur = i
}

func (s *lightSlots) current() *lightSlot {
	return s.slots[s.cur]
}

func (s *lightSlots) setLight(l light.Light) {
	slot := s.current()
	entry := light.ToGPULight(l)
	if slot.hasEntry && slot.entry == entry {
		return
	}
	slot.entry, slot.hasEntry = entry, true
	slot.entries.Set([]light.GPULight{entry})
}

func (s *lightSlots) setLightSpace(m mgl32.Mat4) {
	s.current().lightSpace = m
}

// sync uploads the current slot. The frame block is rebuilt from the staged
// state and only marked dirty when it differs from the uploaded one.
func (s *lightSlots) sync(b renderer.Backend) error {
	slot := s.current()
	frame := GPULightFrame{
		LightSpace:  slot.lightSpace,
		CameraPos:   [4]float32{s.cameraPos[0], s.cameraPos[1], s.cameraPos[2], 1},
		ShadowTexel: s.shadowTexel,
	}
	if s.ssaoEnabled {
		frame.SSAOEnabled = 1
	}
	if frame != slot.frame.Value() {
		slot.frame.Set(frame)
	}
	if err := slot.frame.Sync(b); err != nil {
		return err
	}
	return slot.entries.Sync(b)
}

func (s *lightSlots) release() {
	for _, slot := range s.slots {
		slot.frame.Release()
		slot.entries.Release()
	}
}
