package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/prism/engine/core"
)

func TestResultError(t *testing.T) {
	tests := []struct {
		name   string
		result vk.Result
		want   error
	}{
		{"timeout", vk.Timeout, core.ErrTimeout},
		{"out of date", vk.ErrorOutOfDate, core.ErrSurfaceOutdated},
		{"surface lost", vk.ErrorSurfaceLost, core.ErrSurfaceLost},
		{"device lost", vk.ErrorDeviceLost, core.ErrSurfaceLost},
		{"host memory", vk.ErrorOutOfHostMemory, core.ErrOutOfMemory},
		{"device memory", vk.ErrorOutOfDeviceMemory, core.ErrOutOfMemory},
		{"driver", vk.ErrorIncompatibleDriver, core.ErrRender},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ResultError(tt.result)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), ResultString(tt.result))
		})
	}

	assert.NoError(t, ResultError(vk.Success))
	assert.NoError(t, ResultError(vk.Suboptimal))
	assert.True(t, core.IsSurfaceRecoverable(ResultError(vk.ErrorOutOfDate)))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "VK_ERROR_OUT_OF_DATE_KHR", ResultString(vk.ErrorOutOfDate))
	assert.Equal(t, "VkResult(-9999)", ResultString(vk.Result(-9999)))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "\x00", safeString(""))
	assert.Equal(t, "prism\x00", safeString("prism"))
	assert.Equal(t, "prism\x00", safeString("prism\x00"))

	name := make([]byte, 16)
	copy(name, "llvmpipe")
	assert.Equal(t, "llvmpipe", cString(name))
	assert.Equal(t, "full", cString([]byte("full")))

	assert.Equal(t, "discrete", deviceTypeName(vk.PhysicalDeviceTypeDiscreteGpu))
	assert.Equal(t, "other", deviceTypeName(vk.PhysicalDeviceTypeOther))
	assert.Equal(t, "1.3.0", versionString(uint32(vk.MakeVersion(1, 3, 0))))
}

func TestAdapterInfoString(t *testing.T) {
	a := AdapterInfo{Name: "gpu", Type: "discrete", APIVersion: "1.3.0", DriverVersion: "1.0.0", LocalMemory: 8, SharedMemory: 16}
	assert.Equal(t, "gpu (discrete, Vulkan 1.3.0, driver 1.0.0, 8 GiB local, 16 GiB shared)", a.String())
}
