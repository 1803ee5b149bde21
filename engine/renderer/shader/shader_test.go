package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/cogentcore/webgpu/wgpu"
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

// bindingFirstFragment declares its uniform with @binding before @group.
const bindingFirstFragment = `
struct Tint {
    color: vec3<f32>,
    strength: f32,
};

@binding(0) @group(1) var<uniform> tint: Tint;

@fragment
fn fp_animatedmesh(in: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(tint.color * tint.strength, 1.0);
}
`

func floatAt(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func newTestShader(t *testing.T, maxBones int, fragment string) Shader {
	t.Helper()
	s, err := NewSkinningShader("test", maxBones, fragment, WithCompiler(nil))
	if err != nil {
		t.Fatalf("NewSkinningShader: %v", err)
	}
	return s
}

func TestSkinningShaderReflection(t *testing.T) {
	s := newTestShader(t, 4, "")

	if s.VertexEntryPoint() != VertexEntryPoint || s.FragmentEntryPoint() != FragmentEntryPoint {
		t.Fatalf("entry points = %s/%s", s.VertexEntryPoint(), s.FragmentEntryPoint())
	}
	if s.Module() == nil || s.Module().WGSLDescriptor.Code != s.Source() {
		t.Fatalf("module descriptor does not carry the source")
	}

	params := s.Parameters()
	if len(params) != 5 {
		t.Fatalf("len(Parameters) = %d, want 5", len(params))
	}
	vp, ok := s.Parameter(ViewProjectionParameter)
	if !ok || vp.Offset != 0 || vp.Size != 64 || vp.Group != 0 || vp.Binding != 0 {
		t.Fatalf("view projection parameter = %+v", vp)
	}
	for i := range 4 {
		p, ok := s.Parameter(BoneParameter(i))
		if !ok {
			t.Fatalf("missing %s", BoneParameter(i))
		}
		if want := uint64(64 + 64*i); p.Offset != want {
			t.Fatalf("%s offset = %d, want %d", p.Name, p.Offset, want)
		}
	}
	if _, ok := s.Parameter(BoneParameter(4)); ok {
		t.Fatalf("unexpected fifth bone slot")
	}

	blocks := s.UniformBlocks()
	if len(blocks) != 1 || blocks[0].Size != 320 || blocks[0].VarName != "skin" {
		t.Fatalf("uniform blocks = %+v", blocks)
	}

	desc, ok := s.BindGroupLayoutDescriptors()[0]
	if !ok || len(desc.Entries) != 1 {
		t.Fatalf("group 0 layout = %+v", desc)
	}
	entry := desc.Entries[0]
	if entry.Buffer.Type != wgpu.BufferBindingTypeUniform || entry.Buffer.MinBindingSize != 320 {
		t.Fatalf("group 0 entry = %+v", entry)
	}
	if entry.Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Fatalf("visibility = %v", entry.Visibility)
	}
}

func TestSkinningShaderVertexLayout(t *testing.T) {
	s := newTestShader(t, 1, "")

	layouts := s.VertexLayouts()
	if len(layouts) != 1 {
		t.Fatalf("len(VertexLayouts) = %d, want 1", len(layouts))
	}
	layout := layouts[0]
	if layout.ArrayStride != 60 {
		t.Fatalf("ArrayStride = %d, want 60", layout.ArrayStride)
	}
	wantOffsets := []uint64{0, 12, 24, 32, 44}
	if len(layout.Attributes) != len(wantOffsets) {
		t.Fatalf("len(Attributes) = %d, want %d", len(layout.Attributes), len(wantOffsets))
	}
	for i, attr := range layout.Attributes {
		if attr.Offset != wantOffsets[i] || attr.ShaderLocation != uint32(i) {
			t.Fatalf("attribute %d = %+v", i, attr)
		}
	}
}

func TestSkinningShaderStartsWithIdentity(t *testing.T) {
	s := newTestShader(t, 2, "")

	data, ok := s.BlockData(0, 0)
	if !ok {
		t.Fatalf("missing block 0/0")
	}
	for _, base := range []int{0, 64, 128} {
		for i := range 16 {
			want := float32(0)
			if i%5 == 0 {
				want = 1
			}
			if got := floatAt(data, base+4*i); got != want {
				t.Fatalf("slot at %d element %d = %f, want %f", base, i, got, want)
			}
		}
	}
}

func TestStagedWrites(t *testing.T) {
	s := newTestShader(t, 3, "")

	writes := s.StagedWrites()
	if len(writes) != 1 || writes[0].Offset != 0 || len(writes[0].Data) != 256 {
		t.Fatalf("initial staged writes = %d entries", len(writes))
	}
	if again := s.StagedWrites(); len(again) != 0 {
		t.Fatalf("staged writes not cleared: %d", len(again))
	}

	var m [16]float32
	m[0] = 7
	if err := s.SetMatrix(BoneParameter(1), m); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	writes = s.StagedWrites()
	if len(writes) != 1 || writes[0].Offset != 128 || len(writes[0].Data) != 64 {
		t.Fatalf("single bone write = %+v", writes)
	}
	if got := floatAt(writes[0].Data, 0); got != 7 {
		t.Fatalf("written value = %f, want 7", got)
	}

	if err := s.SetMatrix(BoneParameter(0), m); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	if err := s.SetMatrix(BoneParameter(2), m); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	writes = s.StagedWrites()
	if len(writes) != 1 || writes[0].Offset != 64 || len(writes[0].Data) != 192 {
		t.Fatalf("merged write offset/len = %d/%d", writes[0].Offset, len(writes[0].Data))
	}
}

func TestCustomFragmentParameters(t *testing.T) {
	s := newTestShader(t, 2, tintFragment)

	color, ok := s.Parameter("tint.color")
	if !ok || color.Group != 1 || color.Offset != 0 || color.Size != 12 {
		t.Fatalf("tint.color = %+v", color)
	}
	strength, ok := s.Parameter("tint.strength")
	if !ok || strength.Offset != 12 {
		t.Fatalf("tint.strength = %+v", strength)
	}
	if len(s.UniformBlocks()) != 2 {
		t.Fatalf("len(UniformBlocks) = %d, want 2", len(s.UniformBlocks()))
	}
	s.StagedWrites()

	if err := s.SetFloat("tint.strength", 0.5); err != nil {
		t.Fatalf("SetFloat: %v", err)
	}
	writes := s.StagedWrites()
	if len(writes) != 1 || writes[0].Group != 1 || writes[0].Offset != 12 || len(writes[0].Data) != 4 {
		t.Fatalf("tint write = %+v", writes)
	}
}

func TestSetParameterErrors(t *testing.T) {
	s := newTestShader(t, 1, tintFragment)

	tests := []struct {
		name string
		set  func() error
		want error
	}{
		{"unknown parameter", func() error { return s.SetFloat("tint.nope", 1) }, ErrParameterNotFound},
		{"float into matrix", func() error { return s.SetFloat(ViewProjectionParameter, 1) }, ErrParameterType},
		{"matrix into vector", func() error { return s.SetMatrix("tint.color", [16]float32{}) }, ErrParameterType},
		{"wrong component count", func() error { return s.SetVector("tint.color", 1, 2, 3, 4) }, ErrParameterType},
		{"vector into float", func() error { return s.SetVector("tint.strength", 1) }, ErrParameterType},
		{"bone out of range", func() error { return s.SetMatrix(BoneParameter(1), [16]float32{}) }, ErrParameterNotFound},
		{"valid vector", func() error { return s.SetVector("tint.color", 1, 0, 0) }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSkinningShaderRejects(t *testing.T) {
	compilerErr := errors.New("boom")

	tests := []struct {
		name     string
		maxBones int
		fragment string
		opts     []ShaderBuilderOption
		want     error
	}{
		{"zero bones", 0, "", nil, ErrInvalidMaxBones},
		{"too many bones", 1024, "", nil, ErrInvalidMaxBones},
		{
			name:     "missing fragment entry point",
			maxBones: 1,
			fragment: "@fragment\nfn main_fs(in: VertexOutput) -> @location(0) vec4<f32> { return vec4<f32>(1.0); }",
			opts:     []ShaderBuilderOption{WithCompiler(nil)},
			want:     ErrShaderCompilation,
		},
		{
			name:     "entry point only in a comment",
			maxBones: 1,
			fragment: "// @fragment fn fp_animatedmesh(in: VertexOutput) -> @location(0) vec4<f32>",
			opts:     []ShaderBuilderOption{WithCompiler(nil)},
			want:     ErrShaderCompilation,
		},
		{
			name:     "texture binding",
			maxBones: 1,
			fragment: "@group(1) @binding(0) var albedo: texture_2d<f32>;\n" + defaultFragmentSource,
			opts:     []ShaderBuilderOption{WithCompiler(nil)},
			want:     ErrShaderCompilation,
		},
		{
			name:     "sampler binding",
			maxBones: 1,
			fragment: "@group(1) @binding(1) var albedoSampler: sampler;\n" + defaultFragmentSource,
			opts:     []ShaderBuilderOption{WithCompiler(nil)},
			want:     ErrShaderCompilation,
		},
		{
			name:     "compiler failure",
			maxBones: 1,
			opts:     []ShaderBuilderOption{WithCompiler(func(string) error { return compilerErr })},
			want:     compilerErr,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSkinningShader("bad", tt.maxBones, tt.fragment, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompilationErrorShape(t *testing.T) {
	cause := errors.New("unexpected token")
	_, err := NewSkinningShader("shape", 1, "", WithCompiler(func(string) error { return cause }))

	var compErr *ShaderCompilationError
	if !errors.As(err, &compErr) {
		t.Fatalf("error %v is not a *ShaderCompilationError", err)
	}
	if compErr.Key != "shape" || !errors.Is(err, ErrShaderCompilation) || !errors.Is(err, cause) {
		t.Fatalf("unexpected compilation error %+v", compErr)
	}
}

func TestNagaRejectsMalformedFragment(t *testing.T) {
	fragment := "@fragment\nfn fp_animatedmesh(in: VertexOutput) -> @location(0) vec4<f32> {\n    return vec4<f32>(1.0, 0.0, 0.0, 1.0) +* ;\n}\n"
	_, err := NewSkinningShader("naga", 1, fragment)
	if !errors.Is(err, ErrShaderCompilation) {
		t.Fatalf("error = %v, want ErrShaderCompilation", err)
	}
}

func TestNagaCompilesSkinningSource(t *testing.T) {
	fragments := []struct {
		name     string
		source   string
		uniforms int
	}{
		{"default fragment", "", 1},
		{"tint fragment", tintFragment, 2},
		{"binding before group", bindingFirstFragment, 2},
	}
	for _, maxBones := range []int{1, 64, 1023} {
		for _, f := range fragments {
			t.Run(fmt.Sprintf("%d bones %s", maxBones, f.name), func(t *testing.T) {
				s, err := NewSkinningShader("naga", maxBones, f.source)
				if err != nil {
					t.Fatalf("NewSkinningShader: %v", err)
				}
				if got := len(s.UniformBlocks()); got != f.uniforms {
					t.Fatalf("len(UniformBlocks) = %d, want %d", got, f.uniforms)
				}
				if _, ok := s.Parameter(BoneParameter(maxBones - 1)); !ok {
					t.Fatalf("missing last bone slot")
				}
			})
		}
	}
}

func TestBindingBeforeGroupIsReflected(t *testing.T) {
	s := newTestShader(t, 1, bindingFirstFragment)

	color, ok := s.Parameter("tint.color")
	if !ok || color.Group != 1 || color.Binding != 0 {
		t.Fatalf("tint.color = %+v, %v", color, ok)
	}
	if err := s.SetVector("tint.color", 0, 1, 0); err != nil {
		t.Fatalf("SetVector: %v", err)
	}
	desc, ok := s.BindGroupLayoutDescriptors()[1]
	if !ok || len(desc.Entries) != 1 || desc.Entries[0].Buffer.MinBindingSize != 16 {
		t.Fatalf("group 1 layout = %+v", desc)
	}
}

func TestRestageWrites(t *testing.T) {
	s := newTestShader(t, 2, tintFragment)
	s.StagedWrites()

	if err := s.SetFloat("tint.strength", 2); err != nil {
		t.Fatalf("SetFloat: %v", err)
	}
	if err := s.SetMatrix(BoneParameter(1), common.Identity4()); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	writes := s.StagedWrites()
	if len(writes) != 2 {
		t.Fatalf("len(writes) = %d, want 2", len(writes))
	}

	s.RestageWrites(writes[1:])
	again := s.StagedWrites()
	if len(again) != 1 || again[0].Group != 1 || again[0].Offset != 12 || len(again[0].Data) != 4 {
		t.Fatalf("restaged writes = %+v", again)
	}
	if got := floatAt(again[0].Data, 0); got != 2 {
		t.Fatalf("restaged value = %f, want 2", got)
	}
	if left := s.StagedWrites(); len(left) != 0 {
		t.Fatalf("restaged writes not cleared: %d", len(left))
	}
}
