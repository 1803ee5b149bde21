package animation

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model/modeltest"
)

const eps = 1e-4

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) <= eps
}

func matNear(a, b [16]float32) bool {
	for i := range a {
		if !near(a[i], b[i]) {
			return false
		}
	}
	return true
}

type fixedCamera [16]float32

func (f fixedCamera) ViewProjectionMatrix() [16]float32 { return f }

func TestNewControllerBindPoseIsIdentity(t *testing.T) {
	c, err := NewController(modeltest.ChainMesh(3))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	mats := c.SkinningMatrices()
	if len(mats) != 3 {
		t.Fatalf("len(SkinningMatrices) = %d, want 3", len(mats))
	}
	for i, m := range mats {
		if !matNear(m, common.Identity4()) {
			t.Fatalf("bind pose skinning matrix %d = %v, want identity", i, m)
		}
	}
	if c.Clip() != BindPose {
		t.Fatalf("Clip = %d, want BindPose", c.Clip())
	}
}

func TestNewControllerErrors(t *testing.T) {
	if _, err := NewController(nil); !errors.Is(err, ErrNilMesh) {
		t.Fatalf("nil mesh error = %v, want ErrNilMesh", err)
	}
	if _, err := NewController(modeltest.ChainMesh(2), WithClip(7, true)); !errors.Is(err, ErrClipOutOfRange) {
		t.Fatalf("bad clip error = %v, want ErrClipOutOfRange", err)
	}
	if _, err := NewController(modeltest.ChainMesh(2), WithClipName("Nope", true)); !errors.Is(err, ErrClipNotFound) {
		t.Fatalf("bad clip name error = %v, want ErrClipNotFound", err)
	}
}

func TestUpdateLoopingAndClamping(t *testing.T) {
	tests := []struct {
		name  string
		loop  bool
		speed float32
		steps []float32
		want  float32
	}{
		{name: "loop wraps", loop: true, speed: 1, steps: []float32{1.5, 1.0}, want: 0.5},
		{name: "no loop clamps", loop: false, speed: 1, steps: []float32{1.5, 1.0}, want: 2},
		{name: "speed scales", loop: true, speed: 0.5, steps: []float32{1}, want: 0.5},
		{name: "reverse wraps", loop: true, speed: -1, steps: []float32{0.5}, want: 1.5},
		{name: "reverse clamps", loop: false, speed: -1, steps: []float32{0.5}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewController(modeltest.ChainMesh(2), WithClipName("Lift", tt.loop), WithSpeed(tt.speed))
			if err != nil {
				t.Fatalf("NewController: %v", err)
			}
			for _, dt := range tt.steps {
				c.Update(dt)
			}
			if !near(c.Time(), tt.want) {
				t.Fatalf("Time = %f, want %f", c.Time(), tt.want)
			}
		})
	}
}

func TestLiftTranslatesRoot(t *testing.T) {
	c, err := NewController(modeltest.ChainMesh(2), WithClipName("Lift", false))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	c.Update(1) // halfway: root at y = 1

	mats := c.SkinningMatrices()
	for i, m := range mats {
		if !near(m[13], 1) {
			t.Fatalf("bone %d translation y = %f, want 1", i, m[13])
		}
	}
}

func TestBendRotatesChild(t *testing.T) {
	c, err := NewController(modeltest.ChainMesh(2), WithClipName("Bend", false))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	c.SetTime(1)

	m := c.SkinningMatrices()[1]
	// A vertex at (1, 1, 0) sits one unit along +X from bone 1's pivot at (0, 1, 0).
	// After a 90 degree turn about Z it should land at (0, 2, 0).
	x := m[0]*1 + m[4]*1 + m[12]
	y := m[1]*1 + m[5]*1 + m[13]
	if !near(x, 0) || !near(y, 2) {
		t.Fatalf("skinned vertex = (%f, %f), want (0, 2)", x, y)
	}

	if root := c.SkinningMatrices()[0]; !matNear(root, common.Identity4()) {
		t.Fatalf("root should stay in bind pose, got %v", root)
	}
}

func TestBlendToCompletes(t *testing.T) {
	c, err := NewController(modeltest.ChainMesh(2), WithClipName("Lift", true))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.BlendTo(1, 0.5); err != nil {
		t.Fatalf("BlendTo: %v", err)
	}
	if !c.IsBlending() {
		t.Fatalf("expected blending after BlendTo")
	}

	c.Update(0.25)
	if p := c.BlendProgress(); !near(p, 0.5) {
		t.Fatalf("BlendProgress = %f, want 0.5", p)
	}

	c.Update(0.25)
	if c.IsBlending() {
		t.Fatalf("blend should be complete")
	}
	if c.Clip() != 1 {
		t.Fatalf("Clip = %d, want 1", c.Clip())
	}
	if !near(c.Time(), 0.5) {
		t.Fatalf("Time after blend = %f, want 0.5", c.Time())
	}
	if c.BlendProgress() != 0 {
		t.Fatalf("BlendProgress after completion = %f, want 0", c.BlendProgress())
	}
}

func TestBlendToValidation(t *testing.T) {
	c, err := NewController(modeltest.ChainMesh(2))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.BlendTo(9, 1); !errors.Is(err, ErrClipOutOfRange) {
		t.Fatalf("BlendTo bad clip = %v, want ErrClipOutOfRange", err)
	}
	if err := c.BlendTo(0, -1); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("BlendTo negative duration = %v, want ErrInvalidDuration", err)
	}
	if err := c.BlendTo(0, 0); err != nil {
		t.Fatalf("BlendTo zero duration: %v", err)
	}
	if c.IsBlending() || c.Clip() != 0 {
		t.Fatalf("zero-duration blend should switch immediately, clip = %d", c.Clip())
	}
}

func TestCancelBlend(t *testing.T) {
	c, err := NewController(modeltest.ChainMesh(2), WithClip(0, true))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	_ = c.BlendTo(1, 1)
	c.Update(0.1)
	c.CancelBlend()
	if c.IsBlending() || c.Clip() != 0 {
		t.Fatalf("CancelBlend left blending=%v clip=%d", c.IsBlending(), c.Clip())
	}
}

func TestViewProjectionSource(t *testing.T) {
	explicit := common.Identity4()
	explicit[12] = 5

	c, err := NewController(modeltest.ChainMesh(1), WithViewProjection(explicit))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if c.ViewProjection() != explicit {
		t.Fatalf("ViewProjection = %v, want explicit matrix", c.ViewProjection())
	}

	var cam fixedCamera
	cam[0] = 2
	c.SetCamera(cam)
	if c.ViewProjection() != [16]float32(cam) {
		t.Fatalf("camera should override explicit matrix")
	}

	c.SetCamera(nil)
	if c.ViewProjection() != explicit {
		t.Fatalf("detaching camera should restore explicit matrix")
	}
}

func TestSkinningMatricesReturnsCopy(t *testing.T) {
	c, err := NewController(modeltest.ChainMesh(2))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	mats := c.SkinningMatrices()
	mats[0][0] = 42
	if c.SkinningMatrices()[0][0] == 42 {
		t.Fatalf("SkinningMatrices must not expose internal state")
	}
}

func TestPlayByName(t *testing.T) {
	c, err := NewController(modeltest.ChainMesh(2))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	if err := c.PlayByName("Bend", true); err != nil {
		t.Fatalf("PlayByName: %v", err)
	}
	if c.Clip() != 1 || c.Time() != 0 {
		t.Fatalf("PlayByName left clip=%d time=%f", c.Clip(), c.Time())
	}
	if err := c.PlayByName("Missing", true); !errors.Is(err, ErrClipNotFound) {
		t.Fatalf("PlayByName missing = %v, want ErrClipNotFound", err)
	}
}
