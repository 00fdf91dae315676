package shader

import (
	"strconv"
	"strings"
)

// scalarLayouts are the WGSL scalars allowed in buffers. bool is only valid in
// function scope but laid out like u32 so structs mentioning it still resolve.
var scalarLayouts = map[string]typeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},
}

// shorthandScalars maps the suffix of aliases such as vec3f or mat4x4h to their scalar.
var shorthandScalars = map[byte]string{'f': "f32", 'i': "i32", 'u': "u32", 'h': "f16"}

func alignUp(value, alignment uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) / alignment * alignment
}

// vectorLayout follows WGSL: a three-component vector aligns like a four-component one.
func vectorLayout(n uint64, scalar typeLayout) typeLayout {
	align := n * scalar.size
	if n == 3 {
		align = 4 * scalar.size
	}
	return typeLayout{size: n * scalar.size, align: align}
}

// matrixLayout lays a matCxR out as C column vectors of R components.
func matrixLayout(cols, rows uint64, scalar typeLayout) typeLayout {
	col := vectorLayout(rows, scalar)
	return typeLayout{size: cols * col.stride(), align: col.align}
}

// splitGeneric splits "name<params>" into name and params; ok is false without angle brackets.
func splitGeneric(typeName string) (name, params string, ok bool) {
	name, rest, ok := strings.Cut(typeName, "<")
	if !ok || !strings.HasSuffix(rest, ">") {
		return typeName, "", false
	}
	return strings.TrimSpace(name), strings.TrimSpace(strings.TrimSuffix(rest, ">")), true
}

// builtinLayout resolves scalars, vectors, matrices and atomics in either the
// generic (vec3<f32>) or the shorthand (vec3f) spelling.
func builtinLayout(typeName string) (typeLayout, bool) {
	if l, ok := scalarLayouts[typeName]; ok {
		return l, true
	}

	name, param, generic := splitGeneric(typeName)
	if !generic && len(name) > 4 {
		s, ok := shorthandScalars[name[len(name)-1]]
		if !ok {
			return typeLayout{}, false
		}
		name, param = name[:len(name)-1], s
	}
	scalar, ok := scalarLayouts[param]
	if !ok {
		return typeLayout{}, false
	}

	switch {
	case name == "atomic":
		return scalar, param == "u32" || param == "i32"
	case len(name) == 4 && strings.HasPrefix(name, "vec"):
		n := uint64(name[3] - '0')
		if n < 2 || n > 4 {
			return typeLayout{}, false
		}
		return vectorLayout(n, scalar), true
	case len(name) == 6 && strings.HasPrefix(name, "mat") && name[4] == 'x':
		cols, rows := uint64(name[3]-'0'), uint64(name[5]-'0')
		if cols < 2 || cols > 4 || rows < 2 || rows > 4 {
			return typeLayout{}, false
		}
		return matrixLayout(cols, rows, scalar), true
	}
	return typeLayout{}, false
}

// arrayParts splits array<T, N> or array<T>. count is zero for a runtime-sized array.
func arrayParts(typeName string) (elem string, count uint64, ok bool) {
	name, params, generic := splitGeneric(typeName)
	if !generic || name != "array" {
		return "", 0, false
	}
	parts := splitAtTopLevelCommas(params)
	elem = strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return elem, 0, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || count == 0 {
		return "", 0, false
	}
	return elem, count, true
}

// layoutOf resolves a type against the builtins and the structs resolved so far.
// A runtime-sized array reports the stride of one element, the smallest size a
// binding of it may have.
func layoutOf(typeName string, structs map[string]typeLayout) (typeLayout, bool) {
	if l, ok := builtinLayout(typeName); ok {
		return l, true
	}
	if l, ok := structs[typeName]; ok {
		return l, true
	}
	elem, count, ok := arrayParts(typeName)
	if !ok {
		return typeLayout{}, false
	}
	el, ok := layoutOf(elem, structs)
	if !ok {
		return typeLayout{}, false
	}
	if count == 0 {
		count = 1
	}
	return typeLayout{size: count * el.stride(), align: el.align}, true
}

// structLayout places every field at its aligned offset. A trailing runtime-sized
// array does not count towards the size unless it is the only field.
func structLayout(ps parsedStruct, structs map[string]typeLayout) (typeLayout, bool) {
	var offset uint64
	align := uint64(1)

	for i, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := layoutOf(f.typeName, structs)
		if !ok {
			return typeLayout{}, false
		}
		align = max(align, fl.align)
		offset = alignUp(offset, fl.align)

		if _, count, isArray := arrayParts(f.typeName); isArray && count == 0 && i == len(ps.fields)-1 {
			if offset == 0 {
				return fl, true
			}
			return typeLayout{size: alignUp(offset, align), align: align}, true
		}
		offset += fl.size
	}
	return typeLayout{size: alignUp(offset, align), align: align}, true
}

// structLayouts resolves every struct, repeating until structs that nest other
// structs have their dependencies available. Unresolvable structs are left out.
func structLayouts(structs []parsedStruct) map[string]typeLayout {
	resolved := make(map[string]typeLayout, len(structs))
	pending := append([]parsedStruct(nil), structs...)

	for len(pending) > 0 {
		var next []parsedStruct
		for _, ps := range pending {
			if l, ok := structLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}
	return resolved
}

// classifyResource derives the binding kind from the address space of a var
// declaration, or from its type for handle types that have none.
func classifyResource(addressSpace, typeName string) (BindingKind, bool) {
	switch {
	case addressSpace == "uniform":
		return BindingUniform, true
	case strings.HasPrefix(addressSpace, "storage"):
		if strings.HasSuffix(addressSpace, "read_write") {
			return BindingStorageReadWrite, true
		}
		return BindingStorage, true
	case addressSpace != "":
		return 0, false
	}

	switch typeName {
	case "sampler":
		return BindingSampler, true
	case "sampler_comparison":
		return BindingComparisonSampler, true
	case "texture_depth_2d":
		return BindingDepthTexture, true
	}
	if name, param, ok := splitGeneric(typeName); ok && name == "texture_2d" {
		switch param {
		case "f32":
			return BindingTexture, true
		case "u32":
			return BindingUintTexture, true
		case "i32":
			return BindingSintTexture, true
		}
	}
	return 0, false
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		two := ""
		if i+1 < len(source) {
			two = source[i : i+2]
		}
		switch {
		case two == "/*":
			depth++
			i++
		case two == "*/" && depth > 0:
			depth--
			i++
		case depth > 0:
			// inside a block comment; keep line breaks so positions stay readable
			if source[i] == '\n' {
				sb.WriteByte('\n')
			}
		case two == "//":
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		default:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// isVertexInputStruct reports whether every field is a @location input. Vertex
// outputs carry @builtin(position) and are rejected.
func isVertexInputStruct(ps parsedStruct) bool {
	if len(ps.fields) == 0 {
		return false
	}
	for _, f := range ps.fields {
		if f.isBuiltin || f.location < 0 {
			return false
		}
	}
	return true
}

// buildVertexLayout packs the fields in declaration order into one interleaved buffer.
func buildVertexLayout(ps parsedStruct) (VertexLayout, bool) {
	layout := VertexLayout{Attributes: make([]VertexAttribute, 0, len(ps.fields))}
	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return VertexLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, VertexAttribute{
			Format:   info.format,
			Offset:   layout.Stride,
			Location: uint32(f.location),
		})
		layout.Stride += info.size
	}
	return layout, true
}

// splitAtTopLevelCommas splits at commas outside angle brackets, so the comma
// in array<Light, 4> does not separate fields.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
