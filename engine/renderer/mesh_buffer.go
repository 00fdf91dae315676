package renderer

import (
	"fmt"

	"github.com/theswiftfox/sparkle/common"
)

// MeshBuffer is an immutable pair of vertex and 32-bit index buffers.
type MeshBuffer struct {
	label    string
	vertices []byte
	indices  []uint32

	vertexBuf Buffer
	indexBuf  Buffer
	gen       uint64
}

// NewMeshBuffer wraps marshalled vertex data and an index list. Neither may be empty.
func NewMeshBuffer(label string, vertices []byte, indices []uint32) *MeshBuffer {
	return &MeshBuffer{label: label, vertices: vertices, indices: indices}
}

// Sync creates both buffers once per device generation.
func (m *MeshBuffer) Sync(b Backend) error {
	if err := requireInitialized(b); err != nil {
		return err
	}
	if m.vertexBuf != nil && m.gen == b.Generation() {
		return nil
	}
	if len(m.vertices) == 0 || len(m.indices) == 0 {
		return fmt.Errorf("%w: mesh %s has no geometry", ErrResourceCreation, m.label)
	}
	m.Release()

	d := b.Driver()
	vb, err := d.CreateBuffer(BufferDescriptor{Label: m.label + " vertices", Size: uint64(len(m.vertices)), Usage: BufferUsageVertex})
	if err != nil {
		return fmt.Errorf("%w: mesh %s: %w", ErrResourceCreation, m.label, err)
	}
	indexData := common.SliceToBytes(m.indices)
	ib, err := d.CreateBuffer(BufferDescriptor{Label: m.label + " indices", Size: uint64(len(indexData)), Usage: BufferUsageIndex})
	if err != nil {
		vb.Release()
		return fmt.Errorf("%w: mesh %s: %w", ErrResourceCreation, m.label, err)
	}
	if err := d.WriteBuffer(vb, 0, m.vertices); err != nil {
		vb.Release()
		ib.Release()
		return fmt.Errorf("%w: mesh %s: %w", ErrResourceUpdate, m.label, err)
	}
	if err := d.WriteBuffer(ib, 0, indexData); err != nil {
		vb.Release()
		ib.Release()
		return fmt.Errorf("%w: mesh %s: %w", ErrResourceUpdate, m.label, err)
	}
	m.vertexBuf, m.indexBuf = vb, ib
	m.gen = b.Generation()
	return nil
}

func (m *MeshBuffer) VertexBuffer() Buffer {
	return m.vertexBuf
}

func (m *MeshBuffer) IndexBuffer() Buffer {
	return m.indexBuf
}

func (m *MeshBuffer) IndexCount() uint32 {
	return uint32(len(m.indices))
}

// Bind sets both buffers on the encoder.
func (m *MeshBuffer) Bind(enc PassEncoder) {
	enc.SetVertexBuffer(m.vertexBuf)
	enc.SetIndexBuffer(m.indexBuf)
}

// Release frees the driver buffers. The geometry is kept for the next Sync.
func (m *MeshBuffer) Release() {
	if m.vertexBuf != nil {
		m.vertexBuf.Release()
		m.vertexBuf = nil
	}
	if m.indexBuf != nil {
		m.indexBuf.Release()
		m.indexBuf = nil
	}
}
