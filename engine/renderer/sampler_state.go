package renderer

import "fmt"

// SamplerState is a sampler that is not owned by a texture, such as the
// sampler shared by every material of a pass.
type SamplerState struct {
	desc    SamplerDescriptor
	sampler Sampler
	gen     uint64
}

// NewSamplerState describes a sampler. Nothing is allocated until Sync.
func NewSamplerState(desc SamplerDescriptor) *SamplerState {
	return &SamplerState{desc: desc}
}

// Sync creates the sampler on first use or after device recovery.
func (s *SamplerState) Sync(b Backend) error {
	if err := requireInitialized(b); err != nil {
		return err
	}
	if s.sampler != nil && s.gen == b.Generation() {
		return nil
	}
	if s.sampler != nil {
		s.sampler.Release()
	}
	sampler, err := b.Driver().CreateSampler(s.desc)
	if err != nil {
		s.sampler = nil
		return fmt.Errorf("%w: sampler %s: %w", ErrResourceCreation, s.desc.Label, err)
	}
	s.sampler = sampler
	s.gen = b.Generation()
	return nil
}

// Sampler returns the driver sampler, nil before the first Sync.
func (s *SamplerState) Sampler() Sampler {
	return s.sampler
}

// Release frees the driver sampler.
func (s *SamplerState) Release() {
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
}
