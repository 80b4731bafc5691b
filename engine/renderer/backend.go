package renderer

import "github.com/spaghettifunk/prism/engine/renderer/metadata"

/**
 * @brief The GPU resource layer. One implementation wraps wgpu, another records
 * calls for tests and CPU-only runs.
 */
type RendererBackend interface {
	Initialize(config *metadata.RendererBackendConfig) error
	Shutdown() error
	/** @brief Incremented on every successful Initialize. */
	Generation() uint64
	Resized(width, height uint32) error
	SurfaceFormat() metadata.TextureFormat
	/**
	 * @brief Acquires the next swapchain texture. Errors wrap core.ErrSurfaceLost,
	 * core.ErrSurfaceOutdated, core.ErrTimeout or core.ErrOutOfMemory.
	 */
	AcquireSurfaceTexture() (metadata.TextureHandle, error)
	Present() error

	BufferCreate(desc *metadata.BufferDescriptor) (metadata.BufferHandle, error)
	BufferWrite(buffer metadata.BufferHandle, offset uint64, data []byte) error
	BufferDestroy(buffer metadata.BufferHandle)

	TextureCreate(desc *metadata.TextureDescriptor) (metadata.TextureHandle, error)
	TextureWrite(texture metadata.TextureHandle, pixels []byte, width, height, bytesPerRow uint32) error
	TextureDestroy(texture metadata.TextureHandle)

	SamplerCreate(desc *metadata.SamplerDescriptor) (metadata.SamplerHandle, error)
	SamplerDestroy(sampler metadata.SamplerHandle)

	BindGroupLayoutCreate(desc *metadata.BindGroupLayoutDescriptor) (metadata.BindGroupLayoutHandle, error)
	BindGroupCreate(desc *metadata.BindGroupDescriptor) (metadata.BindGroupHandle, error)
	BindGroupDestroy(group metadata.BindGroupHandle)

	ShaderCreate(desc *metadata.ShaderDescriptor) (metadata.ShaderHandle, error)
	PipelineCreate(desc *metadata.PipelineDescriptor) (metadata.PipelineHandle, error)
	PipelineDestroy(pipeline metadata.PipelineHandle)

	/** @brief Opens the frame command encoder. */
	BeginFrame() error
	RenderPassBegin(desc *metadata.RenderPassDescriptor) (RenderPass, error)
	CopyTexture(src, dst metadata.TextureHandle, width, height uint32) error
	/** @brief Finishes and submits the frame command encoder. */
	EndFrame() error

	/**
	 * @brief Blocking readback of a texture region, returned tightly packed
	 * in the texture's own format.
	 */
	ReadTexture(texture metadata.TextureHandle, x, y, width, height uint32) ([]byte, error)
}

/**
 * @brief A render pass scope. End must be called on every exit path.
 */
type RenderPass interface {
	SetPipeline(pipeline metadata.PipelineHandle)
	SetBindGroup(index uint32, group metadata.BindGroupHandle)
	SetStencilReference(reference uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End() error
}
