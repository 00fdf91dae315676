package renderer

import "fmt"

// StructuredBuffer is a read-only storage array of T. The buffer grows when more
// elements are set than it can hold and always has room for at least one element.
type StructuredBuffer[T GPUData] struct {
	label    string
	elements []T
	dirty    bool

	buf      Buffer
	capacity int
	gen      uint64
}

// NewStructuredBuffer creates an empty structured buffer.
func NewStructuredBuffer[T GPUData](label string) *StructuredBuffer[T] {
	return &StructuredBuffer[T]{label: label, dirty: true}
}

// Set stages the elements. The slice is copied.
func (s *StructuredBuffer[T]) Set(elements []T) {
	s.elements = append(s.elements[:0], elements...)
	s.dirty = true
}

// Len returns the number of staged elements.
func (s *StructuredBuffer[T]) Len() int {
	return len(s.elements)
}

// Sync (re)creates the buffer when it is missing, too small or from an older
// device generation, and uploads the staged elements when they changed.
func (s *StructuredBuffer[T]) Sync(b Backend) error {
	if err := requireInitialized(b); err != nil {
		return err
	}
	need := max(len(s.elements), 1)
	if s.buf == nil || s.gen != b.Generation() || need > s.capacity {
		if s.buf != nil {
			s.buf.Release()
		}
		var zero T
		buf, err := b.Driver().CreateBuffer(BufferDescriptor{
			Label: s.label,
			Size:  uint64(need * zero.Size()),
			Usage: BufferUsageStorage,
		})
		if err != nil {
			s.buf = nil
			return fmt.Errorf("%w: storage %s: %w", ErrResourceCreation, s.label, err)
		}
		s.buf = buf
		s.capacity = need
		s.gen = b.Generation()
		s.dirty = true
	}
	if !s.dirty || len(s.elements) == 0 {
		s.dirty = false
		return nil
	}

	data := make([]byte, 0, len(s.elements)*s.elements[0].Size())
	for _, e := range s.elements {
		data = append(data, e.Marshal()...)
	}
	if err := b.Driver().WriteBuffer(s.buf, 0, data); err != nil {
		return fmt.Errorf("%w: storage %s: %w", ErrResourceUpdate, s.label, err)
	}
	s.dirty = false
	return nil
}

// Buffer returns the driver buffer, nil before the first Sync.
func (s *StructuredBuffer[T]) Buffer() Buffer {
	return s.buf
}

// Release frees the driver buffer.
func (s *StructuredBuffer[T]) Release() {
	if s.buf != nil {
		s.buf.Release()
		s.buf = nil
	}
	s.capacity = 0
	s.dirty = true
}
