package shader

type vertexFormatInfo struct {
	format VertexFormat
	size   uint64
}

// typeLayout is the size and alignment of a host-shareable WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// stride is the distance between consecutive array elements of the type.
func (l typeLayout) stride() uint64 {
	return alignUp(l.size, l.align)
}

type parsedField struct {
	name     string
	typeName string
	// location is -1 for fields without @location
	location  int
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}
