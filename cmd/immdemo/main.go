// Command immdemo drives a few frames through the imm renderer and prints
// what reached the backend.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/imm"
	_ "github.com/gogpu/imm/backend/wgpu"
	"github.com/gogpu/imm/recording"
)

// tintShader is the default shader with an extra Tint uniform. The
// uniform struct comes from an include to show the preprocessor.
const tintShader = `#include "uniforms"

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(1) var Texture: texture_2d<f32>;
@group(0) @binding(2) var TextureSampler: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(1) color: vec4<f32>,
}

@vertex
fn vs_main(@location(0) position: vec3<f32>, @location(1) uv: vec2<f32>, @location(2) color: vec4<f32>) -> VertexOutput {
    var out: VertexOutput;
    out.position = u.Projection * u.Model * vec4<f32>(position, 1.0);
    out.uv = uv;
    out.color = color;
    return out;
}

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    let pulse = 0.5 + 0.5 * u.Time.y;
    return input.color * u.Tint * pulse * textureSample(Texture, TextureSampler, input.uv);
}
`

const uniformsInclude = `struct Uniforms {
    Projection: mat4x4<f32>,
    Model: mat4x4<f32>,
    Time: vec4<f32>,
    Tint: vec4<f32>,
}`

func main() {
	var (
		backend = flag.String("backend", "recording", "backend: recording or noop")
		frames  = flag.Int("frames", 3, "frames to render")
		width   = flag.Int("width", 800, "backbuffer width")
		height  = flag.Int("height", 600, "backbuffer height")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	imm.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	b, err := imm.NewBackend(*backend, *width, *height)
	if err != nil {
		log.Fatalf("backend: %v (available: %v)", err, imm.Backends())
	}
	if d, ok := b.(interface{ Destroy() }); ok {
		defer d.Destroy()
	}

	r, err := imm.NewRenderer[imm.Vertex](b)
	if err != nil {
		log.Fatalf("renderer: %v", err)
	}
	defer r.Destroy(b)

	checker, err := imm.NewTextureFromImage(b, checkerboard(16, 4))
	if err != nil {
		log.Fatalf("texture: %v", err)
	}
	defer b.DeleteTexture(checker)

	mat, err := imm.LoadMaterial(b, r, imm.ShaderSource{WGSL: tintShader}, imm.MaterialParams{
		Uniforms: []imm.UniformDesc{imm.NewUniform("Tint", imm.UniformFloat4)},
		Includes: map[string]string{"uniforms": uniformsInclude},
	})
	if err != nil {
		log.Fatalf("material: %v", err)
	}
	defer mat.Delete(b)

	projection := mgl32.Ortho2D(0, float32(*width), float32(*height), 0)
	start := time.Now()
	for frame := range *frames {
		if err := r.Clear(b, imm.RGB(0.1, 0.1, 0.15)); err != nil {
			log.Fatalf("clear: %v", err)
		}
		drawFrame(r, b, mat, checker, frame)
		if err := r.Flush(b, projection); err != nil {
			log.Printf("frame %d: %v", frame, err)
		}
		s := r.LastFrame()
		fmt.Printf("frame %d: %d draw calls, %d vertices, %d indices\n",
			frame, s.DrawCalls, s.Vertices, s.Indices)
	}
	log.Printf("%d frames on %q in %v", *frames, *backend, time.Since(start))

	if rec, ok := b.(*recording.Backend); ok {
		for _, t := range []recording.CommandType{
			recording.CmdBeginPass, recording.CmdApplyPipeline, recording.CmdApplyScissor,
			recording.CmdApplyUniforms, recording.CmdDraw,
		} {
			fmt.Printf("%-16v %d\n", t, rec.Count(t))
		}
	}
}

func drawFrame(r *imm.Renderer[imm.Vertex], b imm.Backend, mat *imm.Material[imm.Vertex], checker imm.TextureID, frame int) {
	// A grid of quads shares one draw call.
	for i := range 8 {
		for j := range 4 {
			c := imm.RGB(float64(i)/8, float64(j)/4, 0.6)
			r.PushGeometry(imm.Quad(float32(20+i*40), float32(20+j*40), 32, 32, c))
		}
	}

	// Lines are a different primitive type.
	r.WithDrawMode(imm.Lines)
	for i := range 10 {
		a := float64(i) / 10 * 2 * math.Pi
		x, y := float32(500+80*math.Cos(a)), float32(120+80*math.Sin(a))
		r.PushGeometry([]imm.Vertex{
			imm.NewVertex(500, 120, 0, 0, 0, imm.White),
			imm.NewVertex(x, y, 0, 1, 1, imm.Yellow),
		}, []uint16{0, 1})
	}
	r.WithDrawMode(imm.Triangles)

	// Textured quads under a clip rectangle and a moving model matrix.
	r.WithTexture(checker)
	r.WithScissor(&imm.Rect{X: 20, Y: 220, W: 300, H: 200})
	r.PushModelMatrix(mgl32.Translate3D(float32(frame*10), 0, 0))
	r.PushGeometry(imm.Quad(20, 220, 200, 200, imm.White))
	r.PopModelMatrix()
	r.WithScissor(nil)
	r.WithTexture(imm.NoTexture)

	// A spinning, mirrored cut-out of the checkerboard.
	imm.DrawTextureEx(r, b, checker, 260, 300, imm.White, imm.DrawTextureParams{
		DestSize: &mgl32.Vec2{96, 96},
		Source:   &imm.SourceRect{W: 32, H: 32},
		Rotation: float32(frame) * 0.1,
		FlipX:    true,
	})

	// The material tints its quads.
	mat.SetUniform("Tint", [4]float32{1, 0.4, 0.4, 1})
	r.UseMaterial(mat)
	r.PushGeometry(imm.Quad(400, 300, 150, 150, imm.White))
	r.UseDefaultMaterial()
}

func checkerboard(size, cells int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	step := size / cells
	for y := range size {
		for x := range size {
			c := color.NRGBA{R: 40, G: 40, B: 40, A: 255}
			if (x/step+y/step)%2 == 0 {
				c = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}
