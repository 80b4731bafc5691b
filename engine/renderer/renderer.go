package renderer

import (
	"strings"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type RendererType uint8

const (
	WebGPU RendererType = iota
	Null
)

func (t RendererType) String() string {
	switch t {
	case WebGPU:
		return "wgpu"
	case Null:
		return "null"
	}
	return "unknown"
}

// ParseRendererType accepts "wgpu"/"webgpu" and "null"/"none". Anything else is WebGPU.
func ParseRendererType(s string) RendererType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "null", "none":
		return Null
	}
	return WebGPU
}

/**
 * @brief GPU objects owned by a structure or pass, tagged with the device
 * generation that created them.
 */
type GPUResources struct {
	Generation uint64
	Buffers    []metadata.BufferHandle
	Textures   []metadata.TextureHandle
	BindGroups []metadata.BindGroupHandle
}

// Stale reports whether the resources were built on another device (or never built).
func (r *GPUResources) Stale(backend RendererBackend) bool {
	return r.Generation == 0 || r.Generation != backend.Generation()
}

func (r *GPUResources) AddBuffer(b metadata.BufferHandle) metadata.BufferHandle {
	r.Buffers = append(r.Buffers, b)
	return b
}

func (r *GPUResources) AddTexture(t metadata.TextureHandle) metadata.TextureHandle {
	r.Textures = append(r.Textures, t)
	return t
}

func (r *GPUResources) AddBindGroup(g metadata.BindGroupHandle) metadata.BindGroupHandle {
	r.BindGroups = append(r.BindGroups, g)
	return g
}

/**
 * @brief Destroys every object on the backend if it still belongs to the
 * current device, then forgets them.
 */
func (r *GPUResources) Release(backend RendererBackend) {
	if backend != nil && !r.Stale(backend) {
		for _, g := range r.BindGroups {
			backend.BindGroupDestroy(g)
		}
		for _, b := range r.Buffers {
			backend.BufferDestroy(b)
		}
		for _, t := range r.Textures {
			backend.TextureDestroy(t)
		}
	}
	r.Forget()
}

// Forget drops the handles without touching the device.
func (r *GPUResources) Forget() {
	r.Generation = 0
	r.Buffers = nil
	r.Textures = nil
	r.BindGroups = nil
}

func (r *GPUResources) Empty() bool {
	return len(r.Buffers) == 0 && len(r.Textures) == 0 && len(r.BindGroups) == 0
}
