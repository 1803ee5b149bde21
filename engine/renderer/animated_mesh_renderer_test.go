package renderer

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/animation"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/model/modeltest"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
)

const tintFragment = `
struct Tint {
    color: vec3<f32>,
    strength: f32,
};

@group(1) @binding(0) var<uniform> tint: Tint;

@fragment
fn fp_animatedmesh(in: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(tint.color * tint.strength, 1.0);
}
`

// skipCompile skips full naga validation; sources are still parsed for reflection.
var skipCompile = WithCompiler(nil)

type fixedPose struct {
	vp    [16]float32
	bones [][16]float32
}

func (f fixedPose) ViewProjection() [16]float32     { return f.vp }
func (f fixedPose) SkinningMatrices() [][16]float32 { return f.bones }

type invalidMesh struct {
	model.AnimatedMesh
}

func (invalidMesh) Validate() error { return model.ErrEmptyTopology }

func floatAt(b []byte, off uint64) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func uniformBuffers(rec *gputest.Recorder) []*gputest.Buffer {
	var out []*gputest.Buffer
	for _, b := range rec.Buffers() {
		if b.Usage() == gpu.BufferUsageUniform && !b.Released() {
			out = append(out, b)
		}
	}
	return out
}

func newTestRenderer(t *testing.T, rec *gputest.Recorder, mesh model.AnimatedMesh, opts ...AnimatedMeshRendererBuilderOption) AnimatedMeshRenderer {
	t.Helper()
	r, err := NewAnimatedMeshRenderer(rec, mesh, append([]AnimatedMeshRendererBuilderOption{skipCompile}, opts...)...)
	if err != nil {
		t.Fatalf("NewAnimatedMeshRenderer: %v", err)
	}
	return r
}

func TestNewAnimatedMeshRenderer(t *testing.T) {
	rec := gputest.NewRecorder()
	mesh := modeltest.ChainMesh(3)
	r := newTestRenderer(t, rec, mesh, WithLabel("chain"))

	if r.Mesh() != mesh {
		t.Fatalf("Mesh does not return the shared mesh")
	}
	if r.MaxBones() != 64 || len(r.BoneSlots()) != 64 {
		t.Fatalf("MaxBones = %d, len(BoneSlots) = %d; want 64", r.MaxBones(), len(r.BoneSlots()))
	}
	if r.ViewProjectionSlot().Name != shader.ViewProjectionParameter {
		t.Fatalf("view projection slot = %q", r.ViewProjectionSlot().Name)
	}
	if got := r.BoneSlots()[5].Name; got != "skin.bones[5]" {
		t.Fatalf("bone slot 5 = %q", got)
	}
	if rec.LivePrograms() != 1 {
		t.Fatalf("LivePrograms = %d, want 1", rec.LivePrograms())
	}
	// one uniform block plus vertex and index buffers
	if rec.LiveBuffers() != 3 {
		t.Fatalf("LiveBuffers = %d, want 3", rec.LiveBuffers())
	}
	ub := uniformBuffers(rec)
	if len(ub) != 1 || ub[0].Size() != 64*65 {
		t.Fatalf("uniform buffer size = %d, want %d", ub[0].Size(), 64*65)
	}
	if r.MeshBuffer().IndexCount() != 9 {
		t.Fatalf("IndexCount = %d, want 9", r.MeshBuffer().IndexCount())
	}
	if s1, s2 := r.Shader(), r.Shader(); s1 != s2 {
		t.Fatalf("Shader identity changed between calls")
	}
}

func TestNewAnimatedMeshRendererRejects(t *testing.T) {
	tests := []struct {
		name string
		mesh model.AnimatedMesh
		opts []AnimatedMeshRendererBuilderOption
		want error
	}{
		{"nil mesh", nil, nil, ErrNilMesh},
		{"invalid mesh", invalidMesh{modeltest.ChainMesh(1)}, nil, model.ErrEmptyTopology},
		{"too many bones", modeltest.ChainMesh(3), []AnimatedMeshRendererBuilderOption{WithMaxBones(2)}, ErrTooManyBones},
		{"zero max bones", modeltest.ChainMesh(1), []AnimatedMeshRendererBuilderOption{WithMaxBones(0)}, ErrInvalidMaxBones},
		{"max bones above limit", modeltest.ChainMesh(1), []AnimatedMeshRendererBuilderOption{WithMaxBones(1024)}, ErrInvalidMaxBones},
		{
			name: "missing fragment entry point",
			mesh: modeltest.ChainMesh(1),
			opts: []AnimatedMeshRendererBuilderOption{WithCustomFragment("@fragment\nfn shade(in: VertexOutput) -> @location(0) vec4<f32> { return vec4<f32>(1.0); }")},
			want: shader.ErrShaderCompilation,
		},
		{
			name: "compiler rejects source",
			mesh: modeltest.ChainMesh(1),
			opts: []AnimatedMeshRendererBuilderOption{WithCompiler(func(string) error { return errors.New("parse error") })},
			want: shader.ErrShaderCompilation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gputest.NewRecorder()
			opts := append([]AnimatedMeshRendererBuilderOption{skipCompile}, tt.opts...)
			_, err := NewAnimatedMeshRenderer(rec, tt.mesh, opts...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if rec.LiveBuffers() != 0 || rec.LivePrograms() != 0 {
				t.Fatalf("resources leaked: %d buffers, %d programs", rec.LiveBuffers(), rec.LivePrograms())
			}
		})
	}
}

func TestNewAnimatedMeshRendererRollsBack(t *testing.T) {
	tests := []struct {
		name   string
		failAt int
	}{
		{"uniform buffer", 1},
		{"vertex buffer", 2},
		{"index buffer", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gputest.NewRecorder()
			rec.FailBufferAt(tt.failAt)

			_, err := NewAnimatedMeshRenderer(rec, modeltest.ChainMesh(2), skipCompile)
			if !errors.Is(err, gputest.ErrInjected) {
				t.Fatalf("error = %v, want ErrInjected", err)
			}
			if rec.LiveBuffers() != 0 || rec.LivePrograms() != 0 {
				t.Fatalf("resources leaked: %d buffers, %d programs", rec.LiveBuffers(), rec.LivePrograms())
			}
		})
	}

	t.Run("program", func(t *testing.T) {
		rec := gputest.NewRecorder()
		programErr := errors.New("pipeline rejected")
		rec.FailPrograms(programErr)

		_, err := NewAnimatedMeshRenderer(rec, modeltest.ChainMesh(2), skipCompile)
		if !errors.Is(err, programErr) {
			t.Fatalf("error = %v, want %v", err, programErr)
		}
		if len(rec.Buffers()) != 0 {
			t.Fatalf("buffers created after program failure")
		}
	})
}

func TestRenderUploadsPoseAndDrawsOnce(t *testing.T) {
	rec := gputest.NewRecorder()
	mesh := modeltest.ChainMesh(2)
	r := newTestRenderer(t, rec, mesh, WithMaxBones(4))

	vp := common.Identity4()
	vp[0] = 2
	ctrl, err := animation.NewController(mesh, animation.WithClip(0, false), animation.WithViewProjection(vp))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	ctrl.SetTime(1)

	if err := r.Render(ctrl); err != nil {
		t.Fatalf("Render: %v", err)
	}

	draws := rec.Draws()
	if len(draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(draws))
	}
	d := draws[0]
	if d.IndexCount != 6 || d.IndexFormat != gpu.IndexFormatUint16 {
		t.Fatalf("draw = %+v", d)
	}
	if d.VertexBuffer != r.MeshBuffer().VertexBuffer() || d.IndexBuffer != r.MeshBuffer().IndexBuffer() {
		t.Fatalf("draw does not use the mesh buffer")
	}
	if d.Program != rec.Programs()[0] {
		t.Fatalf("draw does not use the shader's program")
	}

	data := uniformBuffers(rec)[0].Bytes()
	if got := floatAt(data, 0); got != 2 {
		t.Fatalf("view projection [0] = %f, want 2", got)
	}
	// Lift at t=1 moves the root up one unit: bone 0's skinning translation y is 1
	bone0 := r.BoneSlots()[0]
	if got := floatAt(data, bone0.Offset+13*4); math.Abs(float64(got-1)) > 1e-5 {
		t.Fatalf("bone 0 translation y = %f, want 1", got)
	}
	// unused slots keep identity
	bone3 := r.BoneSlots()[3]
	if got := floatAt(data, bone3.Offset); got != 1 {
		t.Fatalf("unused slot [0] = %f, want 1", got)
	}

	for range 2 {
		if err := r.Render(ctrl); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	if len(rec.Draws()) != 3 {
		t.Fatalf("draws after three renders = %d, want 3", len(rec.Draws()))
	}
}

func TestRenderPoseMismatch(t *testing.T) {
	rec := gputest.NewRecorder()
	r := newTestRenderer(t, rec, modeltest.ChainMesh(3))

	tests := []struct {
		name  string
		bones int
	}{
		{"fewer matrices than bones", 2},
		{"more matrices than bones", 4},
		{"no matrices", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pose := fixedPose{vp: common.Identity4(), bones: make([][16]float32, tt.bones)}
			if err := r.Render(pose); !errors.Is(err, ErrPoseMismatch) {
				t.Fatalf("error = %v, want ErrPoseMismatch", err)
			}
		})
	}
	if err := r.Render(nil); !errors.Is(err, ErrPoseMismatch) {
		t.Fatalf("nil pose error = %v, want ErrPoseMismatch", err)
	}
	if len(rec.Draws()) != 0 {
		t.Fatalf("mismatched renders drew %d times", len(rec.Draws()))
	}
}

func TestRenderUploadsCustomParameters(t *testing.T) {
	rec := gputest.NewRecorder()
	mesh := modeltest.ChainMesh(1)
	r := newTestRenderer(t, rec, mesh, WithCustomFragment(tintFragment), WithMaxBones(1))

	if len(uniformBuffers(rec)) != 2 {
		t.Fatalf("uniform buffers = %d, want 2", len(uniformBuffers(rec)))
	}
	if err := r.Shader().SetVector("tint.color", 1, 0.5, 0.25); err != nil {
		t.Fatalf("SetVector: %v", err)
	}
	pose := fixedPose{vp: common.Identity4(), bones: [][16]float32{common.Identity4()}}
	if err := r.Render(pose); err != nil {
		t.Fatalf("Render: %v", err)
	}

	var tint *gputest.Buffer
	for _, w := range rec.Writes() {
		if w.Buffer.Size() == 16 {
			tint = w.Buffer
		}
	}
	if tint == nil {
		t.Fatalf("tint block was not uploaded")
	}
	if got := floatAt(tint.Bytes(), 4); got != 0.5 {
		t.Fatalf("tint.color.y = %f, want 0.5", got)
	}
	if len(rec.Draws()[0].Uniforms) != 2 {
		t.Fatalf("draw binds %d uniform buffers, want 2", len(rec.Draws()[0].Uniforms))
	}
}

func TestRenderRestagesFailedUploads(t *testing.T) {
	tests := []struct {
		name   string
		failAt int
	}{
		{"skin block fails", 1},
		{"tint block fails", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gputest.NewRecorder()
			r := newTestRenderer(t, rec, modeltest.ChainMesh(1), WithCustomFragment(tintFragment), WithMaxBones(1))
			if err := r.Shader().SetVector("tint.color", 1, 0.5, 0.25); err != nil {
				t.Fatalf("SetVector: %v", err)
			}

			rec.FailWriteAt(tt.failAt)
			pose := fixedPose{vp: common.Identity4(), bones: [][16]float32{common.Identity4()}}
			if err := r.Render(pose); !errors.Is(err, gputest.ErrInjected) {
				t.Fatalf("error = %v, want ErrInjected", err)
			}
			if len(rec.Draws()) != 0 {
				t.Fatalf("failed upload still drew")
			}

			if err := r.Render(pose); err != nil {
				t.Fatalf("Render after failed upload: %v", err)
			}
			if len(rec.Draws()) != 1 {
				t.Fatalf("draws = %d, want 1", len(rec.Draws()))
			}
			var tint *gputest.Buffer
			for _, b := range uniformBuffers(rec) {
				if b.Size() == 16 {
					tint = b
				}
			}
			if tint == nil {
				t.Fatalf("no tint buffer")
			}
			if got := floatAt(tint.Bytes(), 4); got != 0.5 {
				t.Fatalf("tint.color.y = %f after retry, want 0.5", got)
			}
		})
	}
}

func TestReloadFragment(t *testing.T) {
	rec := gputest.NewRecorder()
	mesh := modeltest.ChainMesh(1)
	r := newTestRenderer(t, rec, mesh, WithMaxBones(1))
	original := r.Shader()

	if err := r.ReloadFragment("@fragment\nfn wrong(in: VertexOutput) -> @location(0) vec4<f32> { return vec4<f32>(1.0); }"); !errors.Is(err, shader.ErrShaderCompilation) {
		t.Fatalf("bad reload error = %v, want ErrShaderCompilation", err)
	}
	if r.Shader() != original {
		t.Fatalf("failed reload replaced the shader")
	}

	if err := r.ReloadFragment(tintFragment); err != nil {
		t.Fatalf("ReloadFragment: %v", err)
	}
	if r.Shader() == original {
		t.Fatalf("successful reload kept the old shader")
	}
	if rec.LivePrograms() != 1 {
		t.Fatalf("LivePrograms = %d, want 1", rec.LivePrograms())
	}
	// two uniform blocks plus the mesh buffers
	if rec.LiveBuffers() != 4 {
		t.Fatalf("LiveBuffers = %d, want 4", rec.LiveBuffers())
	}

	pose := fixedPose{vp: common.Identity4(), bones: [][16]float32{common.Identity4()}}
	if err := r.Render(pose); err != nil {
		t.Fatalf("Render after reload: %v", err)
	}
	if draw := rec.Draws()[0]; draw.Program.(*gputest.Program).Shader() != r.Shader() {
		t.Fatalf("draw used a stale program")
	}
}

func TestRelease(t *testing.T) {
	rec := gputest.NewRecorder()
	r := newTestRenderer(t, rec, modeltest.ChainMesh(2))

	r.Release()
	r.Release()

	if rec.LiveBuffers() != 0 || rec.LivePrograms() != 0 {
		t.Fatalf("resources alive after Release: %d buffers, %d programs", rec.LiveBuffers(), rec.LivePrograms())
	}
	pose := fixedPose{vp: common.Identity4(), bones: make([][16]float32, 2)}
	if err := r.Render(pose); !errors.Is(err, ErrReleased) {
		t.Fatalf("Render after Release = %v, want ErrReleased", err)
	}
	if err := r.ReloadFragment(""); !errors.Is(err, ErrReleased) {
		t.Fatalf("ReloadFragment after Release = %v, want ErrReleased", err)
	}
}

func TestRenderersShareMesh(t *testing.T) {
	rec := gputest.NewRecorder()
	mesh := modeltest.ChainMesh(2)
	a := newTestRenderer(t, rec, mesh)
	b := newTestRenderer(t, rec, mesh)

	ctrl, err := animation.NewController(mesh)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	a.Release()
	if err := b.Render(ctrl); err != nil {
		t.Fatalf("Render on second renderer after releasing the first: %v", err)
	}
	if a.Mesh() != b.Mesh() {
		t.Fatalf("renderers do not share the mesh")
	}
}
