package renderer

import "fmt"

// GPUData is implemented by every value that is uploaded to a GPU buffer.
// Size is the byte size of the marshalled value including padding.
type GPUData interface {
	Size() int
	Marshal() []byte
}

// UniformBuffer holds one value of T and the buffer it is uploaded to. Set only
// stages the value; Sync creates the buffer when needed and uploads when dirty.
type UniformBuffer[T GPUData] struct {
	label string
	value T
	dirty bool

	buf Buffer
	gen uint64
}

// NewUniformBuffer creates a uniform buffer staging the initial value.
func NewUniformBuffer[T GPUData](label string, initial T) *UniformBuffer[T] {
	return &UniformBuffer[T]{label: label, value: initial, dirty: true}
}

// Set stages a new value.
func (u *UniformBuffer[T]) Set(v T) {
	u.value = v
	u.dirty = true
}

// Value returns the staged value.
func (u *UniformBuffer[T]) Value() T {
	return u.value
}

// Dirty reports whether the staged value has not been uploaded yet.
func (u *UniformBuffer[T]) Dirty() bool {
	return u.dirty
}

// Sync creates the buffer on first use or after device recovery and uploads the staged value if it changed.
//
// Parameters:
//   - b: the backend owning the device
//
// Returns:
//   - error: ErrNotInitialized, or a wrapped ErrResourceCreation / ErrResourceUpdate
func (u *UniformBuffer[T]) Sync(b Backend) error {
	if err := requireInitialized(b); err != nil {
		return err
	}
	if u.buf == nil || u.gen != b.Generation() {
		if u.buf != nil {
			u.buf.Release()
		}
		buf, err := b.Driver().CreateBuffer(BufferDescriptor{
			Label: u.label,
			Size:  uint64(u.value.Size()),
			Usage: BufferUsageUniform,
		})
		if err != nil {
			u.buf = nil
			return fmt.Errorf("%w: uniform %s: %w", ErrResourceCreation, u.label, err)
		}
		u.buf = buf
		u.gen = b.Generation()
		u.dirty = true
	}
	if !u.dirty {
		return nil
	}
	if err := b.Driver().WriteBuffer(u.buf, 0, u.value.Marshal()); err != nil {
		return fmt.Errorf("%w: uniform %s: %w", ErrResourceUpdate, u.label, err)
	}
	u.dirty = false
	return nil
}

// Buffer returns the driver buffer, nil before the first Sync.
func (u *UniformBuffer[T]) Buffer() Buffer {
	return u.buf
}

// Release frees the driver buffer. The staged value is kept and uploaded again on the next Sync.
func (u *UniformBuffer[T]) Release() {
	if u.buf != nil {
		u.buf.Release()
		u.buf = nil
	}
	u.dirty = true
}
