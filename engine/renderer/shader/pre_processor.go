// pre_processor.go expands `// @sparkle:include <name>` lines into registered
// WGSL snippets so structs shared between passes (lights, camera blocks) are
// declared once. Includes are expanded recursively; a cycle is an error.
package shader

import (
	"regexp"
	"strings"
)

var includeRegex = regexp.MustCompile(`^\s*//\s*@sparkle:include\s+([\w./-]+)\s*$`)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	includes map[string]string
}

// PreProcessor rewrites raw WGSL before reflection.
type PreProcessor interface {
	// Process expands include directives. Unknown names and include cycles return
	// an error wrapping ErrCompile. Each snippet is emitted at most once.
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor over the given include registry.
func NewPreProcessor(includes map[string]string) PreProcessor {
	return &preProcessor{includes: includes}
}

func (p *preProcessor) Process(source string) (string, error) {
	var sb strings.Builder
	emitted := make(map[string]bool)
	if err := p.expand(&sb, source, emitted, nil); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (p *preProcessor) expand(sb *strings.Builder, source string, emitted map[string]bool, stack []string) error {
	for i, line := range strings.Split(source, "\n") {
		m := includeRegex.FindStringSubmatch(line)
		if m == nil {
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}
		name := m[1]
		for _, s := range stack {
			if s == name {
				return compileErrorf("include cycle through %q", name)
			}
		}
		if emitted[name] {
			continue
		}
		snippet, ok := p.includes[name]
		if !ok {
			return compileErrorf("line %d: unknown include %q", i+1, name)
		}
		emitted[name] = true
		if err := p.expand(sb, snippet, emitted, append(stack, name)); err != nil {
			return err
		}
	}
	return nil
}
