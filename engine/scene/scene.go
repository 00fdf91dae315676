package scene

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/renderer"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
)

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.Mutex

	name string

	nodes []node
	free  []uint32
	root  NodeID
	// hasRoot is false for an empty graph.
	hasRoot bool

	lights    []light.Light
	fallbacks *material.Fallbacks
}

// Scene is a hierarchy of transformable nodes owning drawables, plus the lights
// that illuminate them. Nodes live in an arena and are addressed by NodeID.
//
// BuildMatrices must run once per frame before any Draw; every Draw of that frame
// then reuses the same world transforms.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetRoot replaces the whole tree with the given record. The previous tree is
	// released only when the new one is valid.
	//
	// Parameters:
	//   - rec: the root record and its subtree
	//
	// Returns:
	//   - NodeID: the new root
	//   - error: ErrDuplicateName if siblings anywhere in rec share a name
	SetRoot(rec *NodeRecord) (NodeID, error)

	// Root returns the root node.
	//
	// Returns:
	//   - NodeID: the root
	//   - error: ErrEmptyGraph when the scene has no root
	Root() (NodeID, error)

	// AddChild inserts a subtree below parent.
	//
	// Parameters:
	//   - parent: the node to attach to
	//   - rec: the child record and its subtree
	//
	// Returns:
	//   - NodeID: the new child
	//   - error: ErrNotFound for a stale parent, ErrDuplicateName on a sibling name clash
	AddChild(parent NodeID, rec *NodeRecord) (NodeID, error)

	// NodeNamed finds the first node with the given name in depth-first order.
	//
	// Parameters:
	//   - name: the node name
	//
	// Returns:
	//   - NodeID: the node
	//   - error: ErrNotFound, also on an empty graph
	NodeNamed(name string) (NodeID, error)

	// RemoveNodeNamed removes the first node with the given name and its subtree.
	RemoveNodeNamed(name string) error

	// RemoveNode removes a node and its subtree, releasing their drawables.
	// Removing the root clears the scene.
	RemoveNode(id NodeID) error

	// Children returns the direct children of a node in insertion order.
	Children(id NodeID) ([]NodeID, error)

	// NodeName returns the node's name, empty for anonymous nodes.
	NodeName(id NodeID) (string, error)

	// Local returns the node's transform relative to its parent.
	Local(id NodeID) (mgl32.Mat4, error)

	// SetLocal replaces the node's transform relative to its parent.
	SetLocal(id NodeID, local mgl32.Mat4) error

	// World returns the node's world transform as of the last BuildMatrices.
	World(id NodeID) (mgl32.Mat4, error)

	// Translate post-multiplies the local transform by a translation.
	Translate(id NodeID, t mgl32.Vec3) error

	// Rotate pre-multiplies the local transform by a rotation.
	Rotate(id NodeID, r mgl32.Quat) error

	// Scale post-multiplies the local transform by a uniform scale.
	Scale(id NodeID, s float32) error

	// Traverse returns every node in depth-first pre-order, root first.
	//
	// Returns:
	//   - []NodeID: the nodes
	//   - error: ErrEmptyGraph when the scene has no root
	Traverse() ([]NodeID, error)

	// DrawablesNamed returns the drawables owned by the first node with the given name.
	DrawablesNamed(name string) ([]*Drawable, error)

	// Len returns the number of nodes.
	Len() int

	// Clear releases the whole tree, drawables included, and leaves the scene empty.
	Clear()

	// BuildMatrices recomputes every world transform top-down as parent world times
	// local, pushes it into the drawables and syncs their GPU resources.
	//
	// Parameters:
	//   - b: the backend owning the device
	//
	// Returns:
	//   - error: ErrEmptyGraph, or a wrapped renderer error
	BuildMatrices(b renderer.Backend) error

	// Draw submits every drawable whose class matches the filter, sorted by
	// material so equal materials are bound once.
	//
	// Parameters:
	//   - enc: the pass encoder with the pass program and uniforms already bound
	//   - filter: the class to draw; ClassAny draws everything
	//
	// Returns:
	//   - int: the number of draws issued
	Draw(enc renderer.PassEncoder, filter ObjectClass) int

	// AddLight appends a light. The pipeline runs ambient lights first and the
	// rest in insertion order.
	AddLight(l light.Light)

	// UpdateLight replaces the light at index.
	//
	// Returns:
	//   - error: ErrNotFound when index is out of range
	UpdateLight(l light.Light, index int) error

	// Lights returns the lights in insertion order.
	Lights() []light.Light

	// Release clears the scene and frees the fallback textures.
	Release()
}

var _ Scene = &scene{}

// NewScene creates an empty scene.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:   &sync.Mutex{},
		name: "scene",
	}
	for _, opt := range options {
		opt(s)
	}
	if s.fallbacks == nil {
		s.fallbacks = material.NewFallbacks()
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) SetRoot(rec *NodeRecord) (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validateRecord(rec); err != nil {
		return NodeID{}, err
	}
	s.clear()
	idx := s.insert(rec)
	s.root = NodeID{index: idx, generation: s.nodes[idx].generation}
	s.hasRoot = true
	return s.root, nil
}

func (s *scene) Root() (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRoot {
		return NodeID{}, ErrEmptyGraph
	}
	return s.root, nil
}

func (s *scene) AddChild(parent NodeID, rec *NodeRecord) (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookup(parent)
	if err != nil {
		return NodeID{}, err
	}
	if err := validateRecord(rec); err != nil {
		return NodeID{}, err
	}
	if rec.Name != "" {
		for _, c := range p.children {
			if s.nodes[c].key == rec.Name {
				return NodeID{}, fmt.Errorf("%w: %q below %q", ErrDuplicateName, rec.Name, p.key)
			}
		}
	}
	idx := s.insert(rec)
	// insert may grow the arena, so p is looked up again.
	s.nodes[parent.index].children = append(s.nodes[parent.index].children, idx)
	return NodeID{index: idx, generation: s.nodes[idx].generation}, nil
}

func (s *scene) NodeNamed(name string) (NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findNamed(name)
}

func (s *scene) RemoveNodeNamed(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.findNamed(name)
	if err != nil {
		return err
	}
	s.remove(id)
	return nil
}

func (s *scene) RemoveNode(id NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(id); err != nil {
		return err
	}
	s.remove(id)
	return nil
}

func (s *scene) Children(id NodeID) ([]NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	out := make([]NodeID, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, NodeID{index: c, generation: s.nodes[c].generation})
	}
	return out, nil
}

func (s *scene) NodeName(id NodeID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return n.name, nil
}

func (s *scene) Local(id NodeID) (mgl32.Mat4, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return n.local, nil
}

func (s *scene) SetLocal(id NodeID, local mgl32.Mat4) error {
	return s.updateLocal(id, func(mgl32.Mat4) mgl32.Mat4 { return local })
}

func (s *scene) World(id NodeID) (mgl32.Mat4, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return n.world, nil
}

func (s *scene) Translate(id NodeID, t mgl32.Vec3) error {
	return s.updateLocal(id, func(m mgl32.Mat4) mgl32.Mat4 {
		return m.Mul4(mgl32.Translate3D(t.X(), t.Y(), t.Z()))
	})
}

func (s *scene) Rotate(id NodeID, r mgl32.Quat) error {
	return s.updateLocal(id, func(m mgl32.Mat4) mgl32.Mat4 {
		return r.Normalize().Mat4().Mul4(m)
	})
}

func (s *scene) Scale(id NodeID, f float32) error {
	return s.updateLocal(id, func(m mgl32.Mat4) mgl32.Mat4 {
		return m.Mul4(mgl32.Scale3D(f, f, f))
	})
}

func (s *scene) Traverse() ([]NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRoot {
		return nil, ErrEmptyGraph
	}
	var out []NodeID
	s.walk(func(idx uint32, _ mgl32.Mat4) mgl32.Mat4 {
		out = append(out, NodeID{index: idx, generation: s.nodes[idx].generation})
		return mgl32.Mat4{}
	})
	return out, nil
}

func (s *scene) DrawablesNamed(name string) ([]*Drawable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.findNamed(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.nodes[id.index].drawables), nil
}

func (s *scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes) - len(s.free)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *scene) BuildMatrices(b renderer.Backend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRoot {
		return ErrEmptyGraph
	}
	if err := s.fallbacks.Sync(b); err != nil {
		return err
	}
	var syncErr error
	s.walk(func(idx uint32, parentWorld mgl32.Mat4) mgl32.Mat4 {
		n := &s.nodes[idx]
		n.world = parentWorld.Mul4(n.local)
		for _, d := range n.drawables {
			d.SetWorld(n.world)
			if syncErr == nil {
				if err := d.Sync(b); err != nil {
					syncErr = fmt.Errorf("drawable %s of %q: %w", d.Name(), n.key, err)
				}
			}
		}
		return n.world
	})
	return syncErr
}

func (s *scene) Draw(enc renderer.PassEncoder, filter ObjectClass) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRoot {
		return 0
	}

	var batch []*Drawable
	s.walk(func(idx uint32, _ mgl32.Mat4) mgl32.Mat4 {
		for _, d := range s.nodes[idx].drawables {
			if d.Class().Matches(filter) {
				batch = append(batch, d)
			}
		}
		return mgl32.Mat4{}
	})
	slices.SortStableFunc(batch, func(a, b *Drawable) int {
		return strings.Compare(sortKey(a), sortKey(b))
	})

	materials := make([]material.Material, len(batch))
	for i, d := range batch {
		materials[i] = d.Material()
	}
	for i, rebind := range BatchPlan(materials) {
		batch[i].Draw(enc, rebind, s.fallbacks)
	}
	return len(batch)
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) UpdateLight(l light.Light, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.lights) {
		return fmt.Errorf("%w: light %d of %d", ErrNotFound, index, len(s.lights))
	}
	s.lights[index] = l
	return nil
}

func (s *scene) Lights() []light.Light {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lights)
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	s.fallbacks.Release()
}

// lookup resolves a live node. Caller must hold the mutex.
func (s *scene) lookup(id NodeID) (*node, error) {
	if int(id.index) >= len(s.nodes) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	n := &s.nodes[id.index]
	if !n.alive || n.generation != id.generation {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

func (s *scene) updateLocal(id NodeID, fn func(mgl32.Mat4) mgl32.Mat4) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.lookup(id)
	if err != nil {
		return err
	}
	n.local = fn(n.local)
	return nil
}

// walk visits every node reachable from the root in depth-first pre-order. visit
// receives the value returned for the parent (identity for the root) and returns
// the value handed to the node's children. Caller must hold the mutex.
func (s *scene) walk(visit func(idx uint32, parent mgl32.Mat4) mgl32.Mat4) {
	if !s.hasRoot {
		return
	}
	type frame struct {
		idx    uint32
		parent mgl32.Mat4
	}
	stack := []frame{{idx: s.root.index, parent: mgl32.Ident4()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out := visit(f.idx, f.parent)
		children := s.nodes[f.idx].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{idx: children[i], parent: out})
		}
	}
}

// findNamed returns the first node called name in depth-first pre-order.
func (s *scene) findNamed(name string) (NodeID, error) {
	found, ok := NodeID{}, false
	s.walk(func(idx uint32, _ mgl32.Mat4) mgl32.Mat4 {
		if !ok && s.nodes[idx].name == name && name != "" {
			found, ok = NodeID{index: idx, generation: s.nodes[idx].generation}, true
		}
		return mgl32.Mat4{}
	})
	if !ok {
		return NodeID{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return found, nil
}

// insert allocates rec and its subtree and returns the index of rec.
// The record must already be validated.
func (s *scene) insert(rec *NodeRecord) uint32 {
	key := rec.Name
	if key == "" {
		key = uuid.NewString()
	}
	local := rec.Local
	if local == (mgl32.Mat4{}) {
		local = mgl32.Ident4()
	}

	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.nodes = append(s.nodes, node{})
		idx = uint32(len(s.nodes) - 1)
	}
	slot := &s.nodes[idx]
	slot.alive = true
	slot.name = rec.Name
	slot.key = key
	slot.local = local
	slot.world = local
	slot.drawables = slices.Clone(rec.Drawables)
	slot.children = nil

	children := make([]uint32, 0, len(rec.Children))
	for _, c := range rec.Children {
		children = append(children, s.insert(c))
	}
	s.nodes[idx].children = children
	return idx
}

// remove frees the subtree of id and unlinks it from its parent.
func (s *scene) remove(id NodeID) {
	if s.hasRoot && id == s.root {
		s.clear()
		return
	}
	for i := range s.nodes {
		p := &s.nodes[i]
		if !p.alive {
			continue
		}
		if at := slices.Index(p.children, id.index); at >= 0 {
			p.children = slices.Delete(p.children, at, at+1)
			break
		}
	}
	s.free = s.freeSubtree(id.index, s.free)
}

func (s *scene) freeSubtree(idx uint32, free []uint32) []uint32 {
	n := &s.nodes[idx]
	children := n.children
	for _, d := range n.drawables {
		d.Release()
	}
	n.drawables = nil
	n.children = nil
	n.alive = false
	n.generation++
	free = append(free, idx)
	for _, c := range children {
		free = s.freeSubtree(c, free)
	}
	return free
}

// clear releases every node. Slots are kept so stale IDs keep failing.
func (s *scene) clear() {
	if s.hasRoot {
		s.free = s.freeSubtree(s.root.index, s.free)
	}
	s.hasRoot = false
	s.root = NodeID{}
}

// validateRecord checks that no two siblings in the subtree share a name.
func validateRecord(rec *NodeRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil node record", ErrEmptyGraph)
	}
	for _, d := range rec.Drawables {
		if d == nil {
			return fmt.Errorf("%w: nil drawable in %q", ErrInvalidDrawable, rec.Name)
		}
	}
	seen := make(map[string]bool, len(rec.Children))
	for i, c := range rec.Children {
		if c == nil {
			return fmt.Errorf("%w: child %d of %q is nil", ErrInvalidRecord, i, rec.Name)
		}
		if c.Name != "" {
			if seen[c.Name] {
				return fmt.Errorf("%w: %q below %q", ErrDuplicateName, c.Name, rec.Name)
			}
			seen[c.Name] = true
		}
		if err := validateRecord(c); err != nil {
			return err
		}
	}
	return nil
}

func sortKey(d *Drawable) string {
	if d.Material() == nil {
		return ""
	}
	return d.Material().SortKey()
}
