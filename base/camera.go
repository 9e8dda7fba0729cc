package base

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func sin32(v float32) float32 { return float32(math.Sin(float64(v))) }
func cos32(v float32) float32 { return float32(math.Cos(float64(v))) }

type CameraType int

const (
	CameraLookAt CameraType = iota
	CameraFirstPerson
)

// vulkanClip converts GL clip space (y up, z in [-1,1]) to Vulkan clip
// space (y down, z in [0,1]).
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// VulkanPerspective is a perspective projection matrix adjusted for
// Vulkan's clip space conventions. fovy is in radians.
func VulkanPerspective(fovy, aspect, near, far float32) mgl32.Mat4 {
	return vulkanClip.Mul4(mgl32.Perspective(fovy, aspect, near, far))
}

// Camera produces view and projection matrices from either an orbiting
// (look-at) or free-flying (first-person) control scheme.
type Camera struct {
	Type CameraType

	Position mgl32.Vec3
	Rotation mgl32.Vec3

	RotationSpeed float32
	MovementSpeed float32

	Fov   float32
	ZNear float32
	ZFar  float32

	Perspective mgl32.Mat4
	View        mgl32.Mat4

	// Updated is set whenever the matrices changed since it was last
	// cleared; examples use it to refresh uniform buffers.
	Updated bool

	Keys struct {
		Up    bool
		Down  bool
		Left  bool
		Right bool
	}
}

func NewCamera(cameraType CameraType) *Camera {
	camera := &Camera{
		Type:          cameraType,
		RotationSpeed: 1.0,
		MovementSpeed: 1.0,
	}
	camera.updateView()
	return camera
}

// SetPerspective sets the projection matrix. fov is in degrees.
func (c *Camera) SetPerspective(fov, aspect, znear, zfar float32) {
	c.Fov = fov
	c.ZNear = znear
	c.ZFar = zfar
	c.Perspective = VulkanPerspective(mgl32.DegToRad(fov), aspect, znear, zfar)
	c.Updated = true
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.updateView()
}

func (c *Camera) SetRotation(rotation mgl32.Vec3) {
	c.Rotation = rotation
	c.updateView()
}

func (c *Camera) Rotate(delta mgl32.Vec3) {
	c.Rotation = c.Rotation.Add(delta)
	c.updateView()
}

func (c *Camera) Translate(delta mgl32.Vec3) {
	c.Position = c.Position.Add(delta)
	c.updateView()
}

func (c *Camera) updateView() {
	rotation := mgl32.HomogRotate3DX(mgl32.DegToRad(c.Rotation.X())).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(c.Rotation.Y()))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(c.Rotation.Z())))
	translation := mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z())

	if c.Type == CameraFirstPerson {
		c.View = rotation.Mul4(translation)
	} else {
		c.View = translation.Mul4(rotation)
	}
	c.Updated = true
}

func (c *Camera) cameraFront() mgl32.Vec3 {
	pitch := mgl32.DegToRad(c.Rotation.X())
	yaw := mgl32.DegToRad(c.Rotation.Y())
	front := mgl32.Vec3{
		-cos32(pitch) * sin32(yaw),
		sin32(pitch),
		cos32(pitch) * cos32(yaw),
	}
	return front.Normalize()
}

func (c *Camera) Moving() bool {
	return c.Keys.Up || c.Keys.Down || c.Keys.Left || c.Keys.Right
}

// Update advances first-person movement by deltaTime seconds of key input.
func (c *Camera) Update(deltaTime float32) {
	if c.Type != CameraFirstPerson || !c.Moving() {
		return
	}

	front := c.cameraFront()
	distance := deltaTime * c.MovementSpeed

	if c.Keys.Up {
		c.Position = c.Position.Add(front.Mul(distance))
	}
	if c.Keys.Down {
		c.Position = c.Position.Sub(front.Mul(distance))
	}
	if c.Keys.Left {
		c.Position = c.Position.Sub(front.Cross(mgl32.Vec3{0, 1, 0}).Normalize().Mul(distance))
	}
	if c.Keys.Right {
		c.Position = c.Position.Add(front.Cross(mgl32.Vec3{0, 1, 0}).Normalize().Mul(distance))
	}

	c.updateView()
}
