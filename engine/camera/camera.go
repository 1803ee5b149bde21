package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	target [3]float32
	up     [3]float32

	radius       float32
	azimuth      float32
	elevation    float32
	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32
	orbitSpeed   float32
	zoomSpeed    float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	position             [3]float32
	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32
}

// Camera is a perspective camera orbiting a target point.
// Position is derived from spherical coordinates (radius, azimuth, elevation) around the target,
// and every mutation recomputes the view, projection and view-projection matrices.
type Camera interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - x, y, z: world-space camera position
	Position() (x, y, z float32)

	// Target returns the look-at point.
	//
	// Returns:
	//   - x, y, z: world-space target position
	Target() (x, y, z float32)

	// SetTarget moves the orbit pivot.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetTarget(x, y, z float32)

	// Radius returns the current distance from the target.
	//
	// Returns:
	//   - float32: the orbit radius
	Radius() float32

	// SetRadius sets the orbit radius, clamped to the configured bounds.
	//
	// Parameters:
	//   - radius: new distance from target
	SetRadius(radius float32)

	// Orbit rotates the camera around the target.
	//
	// Parameters:
	//   - dAzimuth: horizontal steps (positive orbits right)
	//   - dElevation: vertical steps (positive orbits up), clamped to the elevation bounds
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the camera toward (positive) or away from (negative) the target.
	//
	// Parameters:
	//   - delta: zoom amount scaled by the zoom speed
	Zoom(delta float32)

	// FrameRadius places the target at the origin and backs the camera off so a sphere
	// of the given radius fills the view. Radius bounds are widened to fit.
	//
	// Parameters:
	//   - radius: bounding sphere radius of the subject
	FrameRadius(radius float32)

	// SetAspect sets the aspect ratio (width / height), typically after a resize.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// ViewMatrix returns the current 4x4 view matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32
}

var _ Camera = &cameraImpl{}

// NewCamera creates an orbit Camera with default perspective settings.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:           &sync.Mutex{},
		up:           [3]float32{0, 1, 0},
		radius:       5,
		elevation:    float32(math.Pi / 8),
		minRadius:    0.1,
		maxRadius:    1000,
		minElevation: float32(-math.Pi/2 + 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),
		orbitSpeed:   0.03,
		zoomSpeed:    0.5,
		fov:          45.0 * (math.Pi / 180.0),
		aspect:       1,
		near:         0.1,
		far:          100,
	}
	for _, option := range options {
		option(c)
	}
	c.radius = clamp(c.radius, c.minRadius, c.maxRadius)
	c.elevation = clamp(c.elevation, c.minElevation, c.maxElevation)
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position[0], c.position[1], c.position[2]
}

func (c *cameraImpl) Target() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target[0], c.target[1], c.target[2]
}

func (c *cameraImpl) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

func (c *cameraImpl) SetRadius(radius float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = clamp(radius, c.minRadius, c.maxRadius)
	c.updateMatrices()
}

func (c *cameraImpl) Orbit(dAzimuth, dElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth += dAzimuth * c.orbitSpeed
	c.elevation = clamp(c.elevation+dElevation*c.orbitSpeed, c.minElevation, c.maxElevation)
	c.updateMatrices()
}

func (c *cameraImpl) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = clamp(c.radius-delta*c.zoomSpeed, c.minRadius, c.maxRadius)
	c.updateMatrices()
}

func (c *cameraImpl) FrameRadius(radius float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if radius <= 0 {
		return
	}
	dist := radius / float32(math.Sin(float64(c.fov)/2))
	c.target = [3]float32{0, radius * 0.5, 0}
	c.minRadius = min(c.minRadius, radius*0.1)
	c.maxRadius = max(c.maxRadius, dist*10)
	c.radius = dist
	c.zoomSpeed = radius * 0.1
	c.near = max(radius*0.01, 0.01)
	c.far = max(c.far, dist+radius*4)
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect <= 0 {
		return
	}
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

// updateMatrices recomputes the position from spherical coordinates and then the
// view, projection and view-projection matrices. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	cosElev := float32(math.Cos(float64(c.elevation)))
	sinElev := float32(math.Sin(float64(c.elevation)))
	cosAzim := float32(math.Cos(float64(c.azimuth)))
	sinAzim := float32(math.Sin(float64(c.azimuth)))

	c.position[0] = c.target[0] + c.radius*cosElev*sinAzim
	c.position[1] = c.target[1] + c.radius*sinElev
	c.position[2] = c.target[2] + c.radius*cosElev*cosAzim

	view := mgl32.LookAtV(c.position, c.target, c.up)
	proj := common.PerspectiveZO(c.fov, c.aspect, c.near, c.far)
	c.viewMatrix = view
	c.projectionMatrix = proj
	c.viewProjectionMatrix = proj.Mul4(view)
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
