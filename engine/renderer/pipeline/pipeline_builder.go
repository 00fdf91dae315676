package pipeline

// StateBuilderOption is a functional option used to configure a State during construction.
type StateBuilderOption func(*state)

// WithColorTarget appends a colour output. Targets bind to @location in the order they are added.
//
// Parameters:
//   - format: the format of the attachment written by this output
//   - blend: the blend equation applied to this output
//
// Returns:
//   - StateBuilderOption: a function that appends the colour target
func WithColorTarget(format TextureFormat, blend BlendMode) StateBuilderOption {
	return func(s *state) {
		s.colorTargets = append(s.colorTargets, ColorTarget{Format: format, Blend: blend})
	}
}

// WithDepth attaches a depth buffer and configures how it is used.
//
// Parameters:
//   - format: the depth attachment format
//   - test: whether fragments are depth tested
//   - write: whether passing fragments write depth
//   - compare: the comparison applied when testing
//
// Returns:
//   - StateBuilderOption: a function that sets the depth configuration
func WithDepth(format TextureFormat, test, write bool, compare CompareFunc) StateBuilderOption {
	return func(s *state) {
		s.depthFormat = format
		s.depthTestEnabled = test
		s.depthWriteEnabled = write
		s.depthCompare = compare
	}
}

// WithDepthBias sets the depth bias parameters for this state.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - StateBuilderOption: a function that sets the depth bias parameters
func WithDepthBias(bias int32, slopeScale float32) StateBuilderOption {
	return func(s *state) {
		s.depthBias = bias
		s.depthBiasSlopeScale = slopeScale
	}
}

// WithCullMode sets the face culling mode.
func WithCullMode(mode CullMode) StateBuilderOption {
	return func(s *state) {
		s.cullMode = mode
	}
}

// WithTopology sets the primitive topology.
func WithTopology(t Topology) StateBuilderOption {
	return func(s *state) {
		s.topology = t
	}
}

// WithFrontFaceCW treats clockwise winding as front facing.
func WithFrontFaceCW(cw bool) StateBuilderOption {
	return func(s *state) {
		s.frontFaceCW = cw
	}
}

// WithSampleCount sets the multisample count. Values below 1 are clamped to 1.
func WithSampleCount(n uint32) StateBuilderOption {
	return func(s *state) {
		s.sampleCount = max(n, 1)
	}
}
