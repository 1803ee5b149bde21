package animation

import (
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
)

// BindPose is the clip index that holds the skeleton in its bind pose.
const BindPose = -1

// ViewProjectionSource supplies a combined view-projection matrix, typically a camera.
type ViewProjectionSource interface {
	ViewProjectionMatrix() [16]float32
}

// controller is the implementation of the Controller interface.
type controller struct {
	mu *sync.Mutex

	mesh     model.AnimatedMesh
	bindPose []model.Transform

	clipIndex int
	time      float32
	speed     float32
	loop      bool

	blending      bool
	blendTo       int
	blendToTime   float32
	blendDuration float32
	blendElapsed  float32

	camera   ViewProjectionSource
	viewProj [16]float32

	local      []model.Transform
	blendLocal []model.Transform
	world      [][16]float32
	skinning   [][16]float32
}

// Controller drives playback of an AnimatedMesh's clips and produces, each frame,
// the skinning matrix of every bone and the view-projection matrix to render with.
// All methods are safe to call from multiple goroutines.
type Controller interface {
	// Mesh returns the mesh this controller animates.
	//
	// Returns:
	//   - model.AnimatedMesh: the animated mesh
	Mesh() model.AnimatedMesh

	// BoneCount returns the number of skinning matrices the controller produces.
	//
	// Returns:
	//   - int: the bone count of the mesh skeleton
	BoneCount() int

	// Play starts a clip from time zero and cancels any blend in progress.
	//
	// Parameters:
	//   - clip: index into the mesh's animations, or BindPose
	//   - loop: whether playback wraps at the end of the clip
	//
	// Returns:
	//   - error: ErrClipOutOfRange if the index is invalid
	Play(clip int, loop bool) error

	// PlayByName starts the clip with the given name from time zero.
	//
	// Parameters:
	//   - name: the clip name
	//   - loop: whether playback wraps at the end of the clip
	//
	// Returns:
	//   - error: ErrClipNotFound if no clip has that name
	PlayByName(name string, loop bool) error

	// BlendTo cross-fades from the current clip to another over duration seconds.
	// A zero duration switches immediately.
	//
	// Parameters:
	//   - clip: index of the target clip, or BindPose
	//   - duration: cross-fade length in seconds
	//
	// Returns:
	//   - error: ErrClipOutOfRange or ErrInvalidDuration
	BlendTo(clip int, duration float32) error

	// CancelBlend abandons a cross-fade in progress and stays on the current clip.
	CancelBlend()

	// IsBlending reports whether a cross-fade is in progress.
	//
	// Returns:
	//   - bool: true while blending
	IsBlending() bool

	// BlendProgress returns how far the current cross-fade has advanced.
	//
	// Returns:
	//   - float32: progress in [0, 1), or 0 when not blending
	BlendProgress() float32

	// Clip returns the index of the clip currently playing.
	//
	// Returns:
	//   - int: the clip index, or BindPose
	Clip() int

	// Time returns the playback position of the current clip in seconds.
	//
	// Returns:
	//   - float32: the playback time
	Time() float32

	// SetTime seeks the current clip and re-evaluates the pose.
	//
	// Parameters:
	//   - t: the playback time in seconds
	SetTime(t float32)

	// Speed returns the playback rate multiplier.
	//
	// Returns:
	//   - float32: the speed
	Speed() float32

	// SetSpeed sets the playback rate multiplier. Negative values play backwards.
	//
	// Parameters:
	//   - speed: the new speed
	SetSpeed(speed float32)

	// Update advances playback by deltaTime seconds and recomputes the skinning matrices.
	//
	// Parameters:
	//   - deltaTime: elapsed wall time in seconds
	Update(deltaTime float32)

	// SetCamera attaches a view-projection source. When set, it overrides SetViewProjection.
	//
	// Parameters:
	//   - cam: the source, or nil to detach
	SetCamera(cam ViewProjectionSource)

	// SetViewProjection sets an explicit view-projection matrix used when no camera is attached.
	//
	// Parameters:
	//   - m: the column-major matrix
	SetViewProjection(m [16]float32)

	// ViewProjection returns the matrix the mesh should be rendered with.
	//
	// Returns:
	//   - [16]float32: the camera's matrix if attached, otherwise the explicit one
	ViewProjection() [16]float32

	// SkinningMatrices returns a copy of the current per-bone skinning matrices (world * inverse bind),
	// one per skeleton bone in skeleton order.
	//
	// Returns:
	//   - [][16]float32: the skinning matrices
	SkinningMatrices() [][16]float32
}

var _ Controller = &controller{}

// NewController creates a Controller for the given mesh.
// The controller starts in the bind pose with speed 1 and an identity view-projection.
//
// Parameters:
//   - mesh: the animated mesh to drive; shared, never modified
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the new controller
//   - error: ErrNilMesh, a mesh validation error, or an error from a clip option
func NewController(mesh model.AnimatedMesh, options ...ControllerBuilderOption) (Controller, error) {
	if mesh == nil {
		return nil, ErrNilMesh
	}
	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("controller mesh: %w", err)
	}

	n := mesh.BoneCount()
	c := &controller{
		mu:         &sync.Mutex{},
		mesh:       mesh,
		bindPose:   mesh.BindPose(),
		clipIndex:  BindPose,
		blendTo:    BindPose,
		speed:      1,
		viewProj:   common.Identity4(),
		local:      make([]model.Transform, n),
		blendLocal: make([]model.Transform, n),
		world:      make([][16]float32, n),
		skinning:   make([][16]float32, n),
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.evaluate()
	return c, nil
}

func (c *controller) Mesh() model.AnimatedMesh {
	return c.mesh
}

func (c *controller) BoneCount() int {
	return len(c.skinning)
}

func (c *controller) Play(clip int, loop bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkClip(clip); err != nil {
		return err
	}
	c.clipIndex = clip
	c.time = 0
	c.loop = loop
	c.blending = false
	c.blendElapsed = 0
	c.evaluate()
	return nil
}

func (c *controller) PlayByName(name string, loop bool) error {
	idx := c.mesh.AnimationIndex(name)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrClipNotFound, name)
	}
	return c.Play(idx, loop)
}

func (c *controller) BlendTo(clip int, duration float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkClip(clip); err != nil {
		return err
	}
	if duration < 0 {
		return ErrInvalidDuration
	}
	if duration == 0 {
		c.clipIndex = clip
		c.time = 0
		c.blending = false
		c.blendElapsed = 0
		c.evaluate()
		return nil
	}
	c.blending = true
	c.blendTo = clip
	c.blendToTime = 0
	c.blendDuration = duration
	c.blendElapsed = 0
	return nil
}

func (c *controller) CancelBlend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blending = false
	c.blendElapsed = 0
	c.evaluate()
}

func (c *controller) IsBlending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blending
}

func (c *controller) BlendProgress() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.blending {
		return 0
	}
	return c.blendElapsed / c.blendDuration
}

func (c *controller) Clip() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clipIndex
}

func (c *controller) Time() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

func (c *controller) SetTime(t float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time = c.wrap(c.clipIndex, t)
	c.evaluate()
}

func (c *controller) Speed() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

func (c *controller) SetSpeed(speed float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
}

func (c *controller) Update(deltaTime float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.time = c.wrap(c.clipIndex, c.time+deltaTime*c.speed)

	if c.blending {
		c.blendElapsed += deltaTime
		c.blendToTime = c.wrap(c.blendTo, c.blendToTime+deltaTime*c.speed)

		if c.blendElapsed >= c.blendDuration {
			c.clipIndex = c.blendTo
			c.time = c.blendToTime
			c.blending = false
			c.blendElapsed = 0
		}
	}

	c.evaluate()
}

func (c *controller) SetCamera(cam ViewProjectionSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.camera = cam
}

func (c *controller) SetViewProjection(m [16]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewProj = m
}

func (c *controller) ViewProjection() [16]float32 {
	c.mu.Lock()
	cam := c.camera
	vp := c.viewProj
	c.mu.Unlock()
	if cam != nil {
		return cam.ViewProjectionMatrix()
	}
	return vp
}

func (c *controller) SkinningMatrices() [][16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][16]float32, len(c.skinning))
	copy(out, c.skinning)
	return out
}

// checkClip validates a clip index against the mesh. Caller must hold the mutex.
func (c *controller) checkClip(clip int) error {
	if clip < BindPose || clip >= len(c.mesh.Animations()) {
		return fmt.Errorf("%w: %d (mesh has %d clips)", ErrClipOutOfRange, clip, len(c.mesh.Animations()))
	}
	return nil
}

// clip returns the clip at index, or nil for the bind pose.
func (c *controller) clip(index int) *model.AnimationClip {
	if index < 0 || index >= len(c.mesh.Animations()) {
		return nil
	}
	return c.mesh.Animations()[index]
}

// wrap maps a raw playback time into the clip's range: modulo the duration when looping,
// clamped to [0, duration] otherwise. Caller must hold the mutex.
func (c *controller) wrap(index int, t float32) float32 {
	clip := c.clip(index)
	if clip == nil || clip.Duration <= 0 {
		return 0
	}
	d := clip.Duration
	if c.loop {
		if t > d || t < 0 {
			t = float32(math.Mod(float64(t), float64(d)))
			if t < 0 {
				t += d
			}
		}
		return t
	}
	return min(max(t, 0), d)
}

// evaluate samples the active clip (and blend target) and recomputes the skinning matrices.
// Caller must hold the mutex.
func (c *controller) evaluate() {
	sampleClip(c.clip(c.clipIndex), c.bindPose, c.time, c.local)
	if c.blending && c.blendDuration > 0 {
		sampleClip(c.clip(c.blendTo), c.bindPose, c.blendToTime, c.blendLocal)
		blendPoses(c.local, c.blendLocal, c.blendElapsed/c.blendDuration)
	}
	computeSkinning(c.mesh.Skeleton(), c.local, c.world, c.skinning)
}
