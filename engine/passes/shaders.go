package passes

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/pipeline"
	"github.com/theswiftfox/sparkle/engine/renderer/shader"
)

// assets holds one WGSL file per pass and the snippets they include.
//
//go:embed assets
var assets embed.FS

const includeDir = "assets/include"

// Includes returns the shared WGSL snippets keyed by include name (file name
// without extension), for use with shader.WithIncludes.
func Includes() (map[string]string, error) {
	entries, err := fs.ReadDir(assets, includeDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", renderer.ErrShaderCompile, err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".wgsl" {
			continue
		}
		data, err := fs.ReadFile(assets, path.Join(includeDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", renderer.ErrShaderCompile, err)
		}
		out[strings.TrimSuffix(e.Name(), ".wgsl")] = string(data)
	}
	return out, nil
}

// LoadPassShader reflects the shader of a pass by name ("gbuffer", "ssao", ...).
//
// Parameters:
//   - name: the file name under assets/ without extension
//   - validate: run the offline WGSL validator first
//
// Returns:
//   - shader.Shader: the reflected shader, keyed by its asset path
//   - error: wraps renderer.ErrShaderCompile
func LoadPassShader(name string, validate bool) (shader.Shader, error) {
	includes, err := Includes()
	if err != nil {
		return nil, err
	}
	return shader.LoadShader(assets, "assets/"+name+".wgsl",
		shader.WithIncludes(includes),
		shader.WithValidation(validate),
	)
}

func newProgram(name string, validate bool, opts ...pipeline.StateBuilderOption) (*renderer.ShaderProgram, error) {
	s, err := LoadPassShader(name, validate)
	if err != nil {
		return nil, err
	}
	return renderer.NewShaderProgram(s, pipeline.NewState(opts...))
}
