package renderer

// TextureBuilderOption is a functional option used to configure a Texture2D during construction.
type TextureBuilderOption func(*Texture2D)

// WithPixels sets the initial contents. The slice must be tightly packed for the texture format.
//
// Parameters:
//   - pixels: the texel data uploaded on every (re)creation
//
// Returns:
//   - TextureBuilderOption: a function that sets the initial pixels
func WithPixels(pixels []byte) TextureBuilderOption {
	return func(t *Texture2D) {
		t.pixels = pixels
	}
}

// WithSampler creates a sampler alongside the texture.
//
// Parameters:
//   - desc: the sampler configuration
//
// Returns:
//   - TextureBuilderOption: a function that attaches the sampler descriptor
func WithSampler(desc SamplerDescriptor) TextureBuilderOption {
	return func(t *Texture2D) {
		t.samplerDesc = &desc
	}
}
