package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// wgslVertexFormatMap maps WGSL type names to their vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {VertexFormatFloat32, 4},
	"vec2f":     {VertexFormatFloat32x2, 8},
	"vec2<f32>": {VertexFormatFloat32x2, 8},
	"vec3f":     {VertexFormatFloat32x3, 12},
	"vec3<f32>": {VertexFormatFloat32x3, 12},
	"vec4f":     {VertexFormatFloat32x4, 16},
	"vec4<f32>": {VertexFormatFloat32x4, 16},
	"u32":       {VertexFormatUint32, 4},
	"vec2u":     {VertexFormatUint32x2, 8},
	"vec2<u32>": {VertexFormatUint32x2, 8},
	"vec4u":     {VertexFormatUint32x4, 16},
	"vec4<u32>": {VertexFormatUint32x4, 16},
	"i32":       {VertexFormatSint32, 4},
	"vec4i":     {VertexFormatSint32x4, 16},
	"vec4<i32>": {VertexFormatSint32x4, 16},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)\s*\(([^)]*)\)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexLayout finds the struct used as the vertex entry point's parameter
// and converts it into a VertexLayout. Shaders whose vertex stage takes only
// builtins (full-screen triangles generated from the vertex index) report false.
func parseVertexLayout(source string) (VertexLayout, bool) {
	cleaned := stripComments(source)
	match := vertexEntryRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return VertexLayout{}, false
	}

	params := splitAtTopLevelCommas(match[2])
	inputType := ""
	for _, p := range params {
		_, typeName, ok := strings.Cut(p, ":")
		if !ok || builtinRegex.MatchString(p) {
			continue
		}
		inputType = strings.TrimSpace(typeName)
		break
	}
	if inputType == "" {
		return VertexLayout{}, false
	}

	for _, ps := range parseStructBlocks(cleaned) {
		if ps.name != inputType || !isVertexInputStruct(ps) {
			continue
		}
		return buildVertexLayout(ps)
	}
	return VertexLayout{}, false
}

// parseBindings extracts all @group(N) @binding(M) resource declarations from WGSL
// source, sorted by group then binding. Uniform and storage bindings carry the
// minimum size of their bound type so drivers can validate buffer sizes.
func parseBindings(source string, visibility Stage) ([]Binding, error) {
	cleaned := stripComments(source)
	structSizes := structLayouts(parseStructBlocks(cleaned))

	var out []Binding
	seen := make(map[[2]int]string)
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		kind, ok := classifyResource(addressSpace, typeName)
		if !ok {
			return nil, compileErrorf("unsupported resource %q of type %q", varName, typeName)
		}
		key := [2]int{group, binding}
		if prev, dup := seen[key]; dup {
			return nil, compileErrorf("@group(%d) @binding(%d) declared twice (%s, %s)", group, binding, prev, varName)
		}
		seen[key] = varName

		b := Binding{
			Group:      group,
			Binding:    binding,
			Name:       varName,
			Kind:       kind,
			Visibility: visibility,
		}
		if kind.IsBuffer() {
			if layout, ok := layoutOf(typeName, structSizes); ok {
				b.MinSize = layout.size
			}
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out, nil
}

// parseEntryPoints returns the vertex and fragment entry point names, empty when absent.
func parseEntryPoints(source string) (vertex, fragment string) {
	cleaned := stripComments(source)
	if m := vertexEntryRegex.FindStringSubmatch(cleaned); m != nil {
		vertex = m[1]
	}
	if m := fragmentEntryRegex.FindStringSubmatch(cleaned); m != nil {
		fragment = m[1]
	}
	return vertex, fragment
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block into individual fields.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}
		field.isBuiltin = builtinRegex.MatchString(line)
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}

	return fields
}
