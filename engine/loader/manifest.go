package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/theswiftfox/sparkle/common"
	"github.com/theswiftfox/sparkle/engine/light"
	"github.com/theswiftfox/sparkle/engine/model"
	"github.com/theswiftfox/sparkle/engine/renderer/material"
	"github.com/theswiftfox/sparkle/engine/scene"
)

// ErrInvalidLevel is returned for manifests that decode but describe something unbuildable.
var ErrInvalidLevel = errors.New("loader: invalid level")

// Mesh kinds a node may name.
const (
	MeshCube   = "cube"
	MeshSphere = "sphere"
	MeshPlane  = "plane"
)

// DefaultAmbientIntensity is the ambient term of the lighting a level without
// lights receives.
const DefaultAmbientIntensity = 0.1

// Sphere tessellation for level meshes.
const (
	sphereLatitudes  = 16
	sphereLongitudes = 32
)

// Manifest is the decoded level file.
type Manifest struct {
	Name   string      `yaml:"name" toml:"name"`
	Nodes  []NodeSpec  `yaml:"nodes" toml:"nodes"`
	Lights []LightSpec `yaml:"lights" toml:"lights"`
}

// NodeSpec is one scene node. A node without a mesh only groups its children.
type NodeSpec struct {
	Name      string      `yaml:"name" toml:"name"`
	Translate [3]float32  `yaml:"translate" toml:"translate"`
	// Rotate holds Euler angles in degrees, applied about X, then Y, then Z.
	Rotate   [3]float32  `yaml:"rotate" toml:"rotate"`
	Scale    *[3]float32 `yaml:"scale" toml:"scale"`
	Mesh     string      `yaml:"mesh" toml:"mesh"`
	Size     float32     `yaml:"size" toml:"size"`
	Class    string      `yaml:"class" toml:"class"`
	Color    *[4]float32 `yaml:"color" toml:"color"`
	Metallic float32     `yaml:"metallic" toml:"metallic"`
	// Roughness defaults to fully rough.
	Roughness *float32 `yaml:"roughness" toml:"roughness"`
	// Textures maps a material slot name (albedo, metallic_roughness, normal) to an image path
	// relative to the manifest.
	Textures map[string]string `yaml:"textures" toml:"textures"`
	Children []NodeSpec        `yaml:"children" toml:"children"`
}

// LightSpec is one light. Unset fields keep the light defaults.
type LightSpec struct {
	Type         string      `yaml:"type" toml:"type"`
	Position     *[3]float32 `yaml:"position" toml:"position"`
	Direction    *[3]float32 `yaml:"direction" toml:"direction"`
	Color        *[3]float32 `yaml:"color" toml:"color"`
	Intensity    *float32    `yaml:"intensity" toml:"intensity"`
	Radius       *float32    `yaml:"radius" toml:"radius"`
	CastsShadows *bool       `yaml:"casts_shadows" toml:"casts_shadows"`
}

// Validate checks every node and light without touching the file system.
func (m *Manifest) Validate() error {
	for i := range m.Nodes {
		if err := m.Nodes[i].validate(m.Name); err != nil {
			return err
		}
	}
	if err := uniqueNames(m.Nodes, m.Name); err != nil {
		return err
	}
	for i, l := range m.Lights {
		if _, err := parseLightType(l.Type); err != nil {
			return fmt.Errorf("%w: light %d: %w", ErrInvalidLevel, i, err)
		}
	}
	return nil
}

func (n *NodeSpec) validate(parent string) error {
	where := n.Name
	if where == "" {
		where = "unnamed child of " + parent
	}
	switch n.Mesh {
	case "", MeshCube, MeshSphere, MeshPlane:
	default:
		return fmt.Errorf("%w: %s: unknown mesh %q", ErrInvalidLevel, where, n.Mesh)
	}
	if _, err := parseClass(n.Class); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidLevel, where, err)
	}
	if n.Size < 0 {
		return fmt.Errorf("%w: %s: negative size", ErrInvalidLevel, where)
	}
	if n.Mesh == "" && (len(n.Textures) > 0 || n.Color != nil) {
		return fmt.Errorf("%w: %s: material without a mesh", ErrInvalidLevel, where)
	}
	for name := range n.Textures {
		if _, err := parseSlot(name); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidLevel, where, err)
		}
	}
	for i := range n.Children {
		if err := n.Children[i].validate(where); err != nil {
			return err
		}
	}
	return uniqueNames(n.Children, where)
}

func uniqueNames(nodes []NodeSpec, parent string) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.Name == "" {
			continue
		}
		if seen[n.Name] {
			return fmt.Errorf("%w: %q appears twice under %q: %w", ErrInvalidLevel, n.Name, parent, scene.ErrDuplicateName)
		}
		seen[n.Name] = true
	}
	return nil
}

// Local returns translate * rotate * scale.
func (n *NodeSpec) Local() mgl32.Mat4 {
	scale := mgl32.Vec3{1, 1, 1}
	if n.Scale != nil {
		scale = *n.Scale
	}
	rot := mgl32.AnglesToQuat(
		mgl32.DegToRad(n.Rotate[0]),
		mgl32.DegToRad(n.Rotate[1]),
		mgl32.DegToRad(n.Rotate[2]),
		mgl32.XYZ,
	)
	return common.ComposeTRS(n.Translate, rot, scale)
}

func (n *NodeSpec) mesh() *model.Mesh {
	size := common.Coalesce(n.Size, 1)
	switch n.Mesh {
	case MeshCube:
		return model.Cube(size)
	case MeshSphere:
		return model.UVSphere(sphereLatitudes, sphereLongitudes, size/2)
	case MeshPlane:
		return model.Plane(size)
	}
	return nil
}

func parseClass(s string) (scene.ObjectClass, error) {
	switch strings.ToLower(s) {
	case "", "opaque":
		return scene.ClassOpaque, nil
	case "transparent":
		return scene.ClassTransparent, nil
	}
	return 0, fmt.Errorf("unknown class %q", s)
}

func parseSlot(s string) (material.Slot, error) {
	for _, slot := range []material.Slot{material.SlotAlbedo, material.SlotMetallicRoughness, material.SlotNormal} {
		if s == slot.String() {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("unknown texture slot %q", s)
}

func parseLightType(s string) (light.LightType, error) {
	for _, t := range []light.LightType{light.LightTypeAmbient, light.LightTypeDirectional, light.LightTypeArea} {
		if strings.ToLower(s) == t.String() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown light type %q", s)
}

// Light builds the described light.
func (s LightSpec) Light() (light.Light, error) {
	t, err := parseLightType(s.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLevel, err)
	}
	var opts []light.LightBuilderOption
	if p := s.Position; p != nil {
		opts = append(opts, light.WithPosition(p[0], p[1], p[2]))
	}
	if d := s.Direction; d != nil {
		opts = append(opts, light.WithDirection(d[0], d[1], d[2]))
	}
	if c := s.Color; c != nil {
		opts = append(opts, light.WithColor(c[0], c[1], c[2]))
	}
	if s.Intensity != nil {
		opts = append(opts, light.WithIntensity(*s.Intensity))
	}
	if s.Radius != nil {
		opts = append(opts, light.WithRadius(*s.Radius))
	}
	if s.CastsShadows != nil {
		opts = append(opts, light.WithCastsShadows(*s.CastsShadows))
	}
	return light.NewLight(t, opts...), nil
}
