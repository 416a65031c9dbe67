package recording

import "github.com/gogpu/imm"

// CommandType identifies the type of a command.
type CommandType uint8

const (
	// Resource commands
	CmdCreateBuffer CommandType = iota
	CmdUpdateBuffer
	CmdDeleteBuffer
	CmdCreateShader
	CmdDeleteShader
	CmdCreatePipeline
	CmdDeletePipeline
	CmdCreateTexture
	CmdDeleteTexture
	CmdCreateRenderPass
	CmdDeleteRenderPass

	// Pass commands
	CmdBeginPass
	CmdEndPass
	CmdApplyPipeline
	CmdApplyViewport
	CmdApplyScissor
	CmdApplyBindings
	CmdApplyUniforms
	CmdDraw
)

var commandTypeNames = [...]string{
	CmdCreateBuffer:     "CreateBuffer",
	CmdUpdateBuffer:     "UpdateBuffer",
	CmdDeleteBuffer:     "DeleteBuffer",
	CmdCreateShader:     "CreateShader",
	CmdDeleteShader:     "DeleteShader",
	CmdCreatePipeline:   "CreatePipeline",
	CmdDeletePipeline:   "DeletePipeline",
	CmdCreateTexture:    "CreateTexture",
	CmdDeleteTexture:    "DeleteTexture",
	CmdCreateRenderPass: "CreateRenderPass",
	CmdDeleteRenderPass: "DeleteRenderPass",
	CmdBeginPass:        "BeginPass",
	CmdEndPass:          "EndPass",
	CmdApplyPipeline:    "ApplyPipeline",
	CmdApplyViewport:    "ApplyViewport",
	CmdApplyScissor:     "ApplyScissor",
	CmdApplyBindings:    "ApplyBindings",
	CmdApplyUniforms:    "ApplyUniforms",
	CmdDraw:             "Draw",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// --------------------------------------------------------------------------
// Resource Commands
// --------------------------------------------------------------------------

// CreateBufferCommand allocates a vertex or index buffer.
type CreateBufferCommand struct {
	Buffer imm.BufferID
	Kind   imm.BufferKind
	Size   int
}

// Type implements Command.
func (CreateBufferCommand) Type() CommandType { return CmdCreateBuffer }

// UpdateBufferCommand replaces the contents of a buffer.
type UpdateBufferCommand struct {
	Buffer imm.BufferID
	Size   int
}

// Type implements Command.
func (UpdateBufferCommand) Type() CommandType { return CmdUpdateBuffer }

// DeleteBufferCommand releases a buffer.
type DeleteBufferCommand struct {
	Buffer imm.BufferID
}

// Type implements Command.
func (DeleteBufferCommand) Type() CommandType { return CmdDeleteBuffer }

// CreateShaderCommand compiles a shader.
type CreateShaderCommand struct {
	Shader imm.ShaderID
	Meta   imm.ShaderMeta
}

// Type implements Command.
func (CreateShaderCommand) Type() CommandType { return CmdCreateShader }

// DeleteShaderCommand releases a shader.
type DeleteShaderCommand struct {
	Shader imm.ShaderID
}

// Type implements Command.
func (DeleteShaderCommand) Type() CommandType { return CmdDeleteShader }

// CreatePipelineCommand creates a pipeline from a shader.
type CreatePipelineCommand struct {
	Pipeline imm.PipelineID
	Shader   imm.ShaderID
	Params   imm.PipelineParams
}

// Type implements Command.
func (CreatePipelineCommand) Type() CommandType { return CmdCreatePipeline }

// DeletePipelineCommand releases a pipeline.
type DeletePipelineCommand struct {
	Pipeline imm.PipelineID
}

// Type implements Command.
func (DeletePipelineCommand) Type() CommandType { return CmdDeletePipeline }

// CreateTextureCommand creates a texture.
type CreateTextureCommand struct {
	Texture imm.TextureID
	Desc    imm.TextureDesc
}

// Type implements Command.
func (CreateTextureCommand) Type() CommandType { return CmdCreateTexture }

// DeleteTextureCommand releases a texture.
type DeleteTextureCommand struct {
	Texture imm.TextureID
}

// Type implements Command.
func (DeleteTextureCommand) Type() CommandType { return CmdDeleteTexture }

// CreateRenderPassCommand creates an offscreen render pass.
type CreateRenderPassCommand struct {
	Pass         imm.RenderPassID
	Color, Depth imm.TextureID
}

// Type implements Command.
func (CreateRenderPassCommand) Type() CommandType { return CmdCreateRenderPass }

// DeleteRenderPassCommand releases a render pass.
type DeleteRenderPassCommand struct {
	Pass imm.RenderPassID
}

// Type implements Command.
func (DeleteRenderPassCommand) Type() CommandType { return CmdDeleteRenderPass }

// --------------------------------------------------------------------------
// Pass Commands
// --------------------------------------------------------------------------

// BeginPassCommand starts a render pass.
type BeginPassCommand struct {
	Pass   imm.RenderPassID
	Action imm.PassAction
}

// Type implements Command.
func (BeginPassCommand) Type() CommandType { return CmdBeginPass }

// EndPassCommand ends the current render pass.
type EndPassCommand struct{}

// Type implements Command.
func (EndPassCommand) Type() CommandType { return CmdEndPass }

// ApplyPipelineCommand binds a pipeline.
type ApplyPipelineCommand struct {
	Pipeline imm.PipelineID
}

// Type implements Command.
func (ApplyPipelineCommand) Type() CommandType { return CmdApplyPipeline }

// ApplyViewportCommand sets the viewport (bottom-left origin).
type ApplyViewportCommand struct {
	Rect imm.Rect
}

// Type implements Command.
func (ApplyViewportCommand) Type() CommandType { return CmdApplyViewport }

// ApplyScissorCommand sets the scissor rectangle (bottom-left origin).
type ApplyScissorCommand struct {
	Rect imm.Rect
}

// Type implements Command.
func (ApplyScissorCommand) Type() CommandType { return CmdApplyScissor }

// ApplyBindingsCommand binds buffers and images.
type ApplyBindingsCommand struct {
	Bindings imm.Bindings
}

// Type implements Command.
func (ApplyBindingsCommand) Type() CommandType { return CmdApplyBindings }

// ApplyUniformsCommand uploads the uniform block.
type ApplyUniformsCommand struct {
	Data []byte
}

// Type implements Command.
func (ApplyUniformsCommand) Type() CommandType { return CmdApplyUniforms }

// DrawCommand is an indexed draw together with the state it read. The
// state fields are filled in from the preceding Apply commands.
type DrawCommand struct {
	BaseElement  int
	NumElements  int
	NumInstances int

	Pass     imm.RenderPassID
	Pipeline imm.PipelineID
	Viewport imm.Rect
	Scissor  imm.Rect
	Images   []imm.TextureID
	Uniforms []byte
	// Vertices is the raw vertex buffer content, Indices the elements
	// drawn.
	Vertices []byte
	Indices  []uint16
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }
