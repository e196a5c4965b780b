package examplebase

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

const spirvMagic = 0x07230203

func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v length %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}

	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic %#08x", byteCode[0])
	}
	return byteCode, nil
}

// LoadShader reads a SPIR-V file and creates a shader stage for it.
func (b *Base) LoadShader(path string, stage core1_0.ShaderStageFlags) (core1_0.PipelineShaderStageCreateInfo, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return core1_0.PipelineShaderStageCreateInfo{}, errors.Wrapf(err, "read shader %s", path)
	}

	info, err := b.LoadShaderCode(code, stage)
	return info, errors.Wrapf(err, "shader %s", path)
}

// LoadShaderCode creates a shader module from SPIR-V already in memory. The
// module is owned by the base and destroyed with it.
func (b *Base) LoadShaderCode(code []byte, stage core1_0.ShaderStageFlags) (core1_0.PipelineShaderStageCreateInfo, error) {
	byteCode, err := bytesToBytecode(code)
	if err != nil {
		return core1_0.PipelineShaderStageCreateInfo{}, err
	}

	module, _, err := b.DeviceDriver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: byteCode,
	})
	if err != nil {
		return core1_0.PipelineShaderStageCreateInfo{}, errors.Wrap(err, "create shader module")
	}
	b.shaderModules = append(b.shaderModules, module)

	return core1_0.PipelineShaderStageCreateInfo{
		Stage:  stage,
		Module: module,
		Name:   "main",
	}, nil
}
