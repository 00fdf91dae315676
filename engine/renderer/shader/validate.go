package shader

import "github.com/gogpu/naga"

// validate runs the WGSL front end and SPIR-V back end of naga over the source.
// The output is discarded; only the diagnostics matter here.
func validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return compileErrorf("validation: %v", err)
	}
	return nil
}
