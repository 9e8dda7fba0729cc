package base

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestVulkanPerspectiveFlipsY(t *testing.T) {
	projection := VulkanPerspective(mgl32.DegToRad(45), 1.0, 0.1, 100)

	// A point above center in view space projects below center in Vulkan
	// clip space.
	clip := projection.Mul4x1(mgl32.Vec4{0, 1, -10, 1})
	assert.Less(t, clip.Y()/clip.W(), float32(0))
}

func TestVulkanPerspectiveDepthRange(t *testing.T) {
	const near, far = 1.0, 100.0
	projection := VulkanPerspective(mgl32.DegToRad(45), 1.0, near, far)

	nearClip := projection.Mul4x1(mgl32.Vec4{0, 0, -near, 1})
	farClip := projection.Mul4x1(mgl32.Vec4{0, 0, -far, 1})

	// Vulkan clip depth runs 0 at the near plane to 1 at the far plane,
	// not the GL -1..1 range.
	assert.InDelta(t, 0.0, nearClip.Z()/nearClip.W(), 1e-5)
	assert.InDelta(t, 1.0, farClip.Z()/farClip.W(), 1e-4)
}

func TestCameraLookAtView(t *testing.T) {
	camera := NewCamera(CameraLookAt)
	camera.SetPosition(mgl32.Vec3{0, 0, -10})

	// Look-at translates then rotates, so with no rotation the view is a
	// pure translation.
	assert.Equal(t, mgl32.Translate3D(0, 0, -10), camera.View)
}

func TestCameraUpdatedFlag(t *testing.T) {
	camera := NewCamera(CameraFirstPerson)
	camera.Updated = false

	camera.Rotate(mgl32.Vec3{0, 90, 0})
	assert.True(t, camera.Updated)

	camera.Updated = false
	camera.Translate(mgl32.Vec3{1, 0, 0})
	assert.True(t, camera.Updated)

	camera.Updated = false
	camera.SetPerspective(60, 1.0, 0.1, 100)
	assert.True(t, camera.Updated)
}

func TestCameraFirstPersonMovement(t *testing.T) {
	camera := NewCamera(CameraFirstPerson)

	// No keys held, nothing moves.
	camera.Update(1.0)
	assert.Equal(t, mgl32.Vec3{}, camera.Position)
	assert.False(t, camera.Moving())

	// With no rotation the camera faces +z.
	camera.Keys.Up = true
	assert.True(t, camera.Moving())
	camera.MovementSpeed = 2.0
	camera.Update(0.5)

	assert.InDelta(t, 0.0, camera.Position.X(), 1e-6)
	assert.InDelta(t, 0.0, camera.Position.Y(), 1e-6)
	assert.InDelta(t, 1.0, camera.Position.Z(), 1e-6)
}
