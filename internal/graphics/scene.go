package graphics

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"terrastream/internal/mesh"
)

const terrainVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec3 aColor;

uniform mat4 view;
uniform mat4 projection;

out vec3 vNormal;
out vec3 vColor;
out float vDepth;

void main() {
	vec4 viewPos = view * vec4(aPosition, 1.0);
	vNormal = aNormal;
	vColor = aColor;
	vDepth = -viewPos.z;
	gl_Position = projection * viewPos;
}
`

const terrainFragmentShader = `#version 410 core
in vec3 vNormal;
in vec3 vColor;
in float vDepth;

uniform vec3 lightDir;
uniform vec3 fogColor;
uniform float fogDistance;
uniform bool wireframe;

out vec4 fragColor;

void main() {
	if (wireframe) {
		fragColor = vec4(0.05, 0.05, 0.05, 1.0);
		return;
	}
	float diffuse = max(dot(normalize(vNormal), normalize(-lightDir)), 0.0);
	vec3 lit = vColor * (0.35 + 0.65 * diffuse);
	float fog = clamp(vDepth / fogDistance, 0.0, 1.0);
	fragColor = vec4(mix(lit, fogColor, fog * fog), 1.0);
}
`

// gpuMesh holds the buffers of one attached tile mesh.
type gpuMesh struct {
	vao     uint32
	vbos    [3]uint32 // positions, normals, colors
	ebo     uint32
	count   int32
	buffers int // vertex capacity of the vbos
}

// Scene draws every attached tile mesh with one shader. It must be used on
// the thread that owns the GL context.
type Scene struct {
	shader *Shader
	meshes map[int]*gpuMesh

	LightDir    mgl32.Vec3
	FogColor    mgl32.Vec3
	FogDistance float32
	Wireframe   bool

	uploads int
}

// NewScene compiles the terrain shader. gl.Init must have been called.
func NewScene() (*Scene, error) {
	shader, err := NewShader(terrainVertexShader, terrainFragmentShader)
	if err != nil {
		return nil, err
	}
	return &Scene{
		shader:      shader,
		meshes:      make(map[int]*gpuMesh),
		LightDir:    mgl32.Vec3{-0.4, -1, -0.3}.Normalize(),
		FogColor:    mgl32.Vec3{0.62, 0.74, 0.86},
		FogDistance: 800,
	}, nil
}

// Attach uploads m and starts drawing it.
func (s *Scene) Attach(m *mesh.Mesh) {
	g, ok := s.meshes[m.ID]
	if !ok {
		g = &gpuMesh{}
		gl.GenVertexArrays(1, &g.vao)
		gl.GenBuffers(3, &g.vbos[0])
		gl.GenBuffers(1, &g.ebo)
		s.meshes[m.ID] = g
	}
	s.upload(g, m.Geometry)
}

// Update re-uploads the geometry of an attached mesh.
func (s *Scene) Update(m *mesh.Mesh) {
	if g, ok := s.meshes[m.ID]; ok {
		s.upload(g, m.Geometry)
	}
}

// Detach stops drawing m and frees its buffers.
func (s *Scene) Detach(m *mesh.Mesh) {
	g, ok := s.meshes[m.ID]
	if !ok {
		return
	}
	gl.DeleteBuffers(3, &g.vbos[0])
	gl.DeleteBuffers(1, &g.ebo)
	gl.DeleteVertexArrays(1, &g.vao)
	delete(s.meshes, m.ID)
}

func (s *Scene) upload(g *gpuMesh, geo *mesh.Geometry) {
	if geo == nil || len(geo.Indices) == 0 {
		g.count = 0
		return
	}
	s.uploads++
	n := geo.VertexCount()
	gl.BindVertexArray(g.vao)
	for i, data := range [3][]float32{geo.Positions, geo.Normals, geo.Colors} {
		gl.BindBuffer(gl.ARRAY_BUFFER, g.vbos[i])
		if len(data) < n*3 {
			// missing colors render black rather than reading past the buffer
			data = append(data[:len(data):len(data)], make([]float32, n*3-len(data))...)
		}
		if n == g.buffers {
			gl.BufferSubData(gl.ARRAY_BUFFER, 0, n*3*4, gl.Ptr(data))
		} else {
			gl.BufferData(gl.ARRAY_BUFFER, n*3*4, gl.Ptr(data), gl.DYNAMIC_DRAW)
		}
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointer(uint32(i), 3, gl.FLOAT, false, 0, gl.PtrOffset(0))
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(geo.Indices)*4, gl.Ptr(geo.Indices), gl.STATIC_DRAW)
	gl.BindVertexArray(0)
	g.buffers = n
	g.count = int32(len(geo.Indices))
}

// Meshes returns the number of attached meshes.
func (s *Scene) Meshes() int { return len(s.meshes) }

// Uploads returns how many geometry uploads have happened.
func (s *Scene) Uploads() int { return s.uploads }

// Draw renders every attached mesh.
func (s *Scene) Draw(cam *Camera) {
	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix()

	s.shader.Use()
	s.shader.SetMatrix4("view", &view[0])
	s.shader.SetMatrix4("projection", &proj[0])
	s.shader.SetVector3("lightDir", s.LightDir[0], s.LightDir[1], s.LightDir[2])
	s.shader.SetVector3("fogColor", s.FogColor[0], s.FogColor[1], s.FogColor[2])
	s.shader.SetFloat("fogDistance", s.FogDistance)
	s.shader.SetBool("wireframe", s.Wireframe)
	if s.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
		defer gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	for _, g := range s.meshes {
		if g.count == 0 {
			continue
		}
		gl.BindVertexArray(g.vao)
		gl.DrawElements(gl.TRIANGLES, g.count, gl.UNSIGNED_INT, gl.PtrOffset(0))
	}
	gl.BindVertexArray(0)
}

// Delete frees every GPU resource.
func (s *Scene) Delete() {
	for id, g := range s.meshes {
		gl.DeleteBuffers(3, &g.vbos[0])
		gl.DeleteBuffers(1, &g.ebo)
		gl.DeleteVertexArrays(1, &g.vao)
		delete(s.meshes, id)
	}
	s.shader.Delete()
}
