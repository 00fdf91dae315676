package renderer

import (
	"fmt"

	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/renderer/shader"
)

// ShaderProgram is a reflected shader bound to its fixed-function state and vertex layout.
type ShaderProgram struct {
	label  string
	shader shader.Shader
	state  pipeline.State

	program Program
	gen     uint64
}

// NewShaderProgram checks that the state is usable with the shader and returns an unallocated program.
//
// Parameters:
//   - s: the reflected shader
//   - state: the fixed-function state
//
// Returns:
//   - *ShaderProgram: the program
//   - error: ErrShaderCreate when the state is invalid or does not match the shader
func NewShaderProgram(s shader.Shader, state pipeline.State) (*ShaderProgram, error) {
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShaderCreate, s.Key(), err)
	}
	if s.FragmentEntryPoint() == "" && len(state.ColorTargets()) > 0 {
		return nil, fmt.Errorf("%w: %s: colour targets without a fragment entry point", ErrShaderCreate, s.Key())
	}
	return &ShaderProgram{label: s.Key(), shader: s, state: state}, nil
}

// Sync creates the driver program once per device generation.
func (p *ShaderProgram) Sync(b Backend) error {
	if err := requireInitialized(b); err != nil {
		return err
	}
	if p.program != nil && p.gen == b.Generation() {
		return nil
	}
	p.Release()
	prog, err := b.Driver().CreateProgram(ProgramDescriptor{Label: p.label, Shader: p.shader, State: p.state})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrShaderCreate, p.label, err)
	}
	p.program = prog
	p.gen = b.Generation()
	return nil
}

// Program returns the driver program, nil before the first Sync.
func (p *ShaderProgram) Program() Program {
	return p.program
}

func (p *ShaderProgram) Shader() shader.Shader {
	return p.shader
}

func (p *ShaderProgram) State() pipeline.State {
	return p.state
}

// Release frees the driver program.
func (p *ShaderProgram) Release() {
	if p.program != nil {
		p.program.Release()
		p.program = nil
	}
}
