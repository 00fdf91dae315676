package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrNotFound is returned for names, IDs and light indices that do not exist.
	ErrNotFound = errors.New("scene: not found")
	// ErrDuplicateName is returned when a child would share its name with a sibling.
	ErrDuplicateName = errors.New("scene: duplicate name")
	// ErrEmptyGraph is returned by operations that need a root when there is none.
	ErrEmptyGraph = errors.New("scene: empty graph")
	// ErrInvalidRecord is returned for node records with nil children.
	ErrInvalidRecord = errors.New("scene: invalid node record")
	// ErrInvalidDrawable is returned for drawables that cannot be rendered.
	ErrInvalidDrawable = errors.New("scene: invalid drawable")
)

// NodeID addresses a node in the scene arena. IDs of removed nodes stay invalid
// even after their slot is reused.
type NodeID struct {
	index      uint32
	generation uint32
}

func (id NodeID) String() string {
	return fmt.Sprintf("node %d.%d", id.index, id.generation)
}

// NodeRecord describes a subtree to insert: the shape the asset importer produces.
// Unnamed records are keyed by a generated UUID and can only be addressed by ID.
type NodeRecord struct {
	Name      string
	Local     mgl32.Mat4
	Drawables []*Drawable
	Children  []*NodeRecord
}

// node is one arena slot. Children are indices into the same arena; there are no parent links.
type node struct {
	generation uint32
	alive      bool

	name string
	key  string

	local mgl32.Mat4
	world mgl32.Mat4

	drawables []*Drawable
	children  []uint32
}
