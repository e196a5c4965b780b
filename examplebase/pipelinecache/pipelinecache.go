// Package pipelinecache persists Vulkan pipeline cache blobs between runs and
// refuses blobs written by a different driver or device.
package pipelinecache

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
)

// HeaderVersionOne is VK_PIPELINE_CACHE_HEADER_VERSION_ONE.
const HeaderVersionOne uint32 = 1

// HeaderSize is the size of a version one header in bytes.
const HeaderSize = 16 + 16

var ErrStaleCache = errors.New("pipeline cache does not match this device")

type Header struct {
	Length    uint32
	Version   uint32
	VendorID  uint32
	DeviceID  uint32
	CacheUUID uuid.UUID
}

// Identity is what a cache blob must have been produced by.
type Identity struct {
	VendorID  uint32
	DeviceID  uint32
	CacheUUID uuid.UUID
}

func ParseHeader(data []byte) (Header, error) {
	var header Header
	if len(data) < HeaderSize {
		return header, errors.Newf("pipeline cache too short: %d bytes", len(data))
	}

	err := binary.Read(bytes.NewReader(data[:HeaderSize]), common.ByteOrder, &header)
	if err != nil {
		return header, errors.Wrap(err, "read pipeline cache header")
	}
	return header, nil
}

// Validate collects every mismatch between the header and the device.
func (h Header) Validate(id Identity) error {
	var err error
	if h.Length < HeaderSize {
		err = errors.CombineErrors(err, errors.Newf("bad header length 0x%x", h.Length))
	}
	if h.Version != HeaderVersionOne {
		err = errors.CombineErrors(err, errors.Newf("unsupported header version 0x%x", h.Version))
	}
	if h.VendorID != id.VendorID {
		err = errors.CombineErrors(err, errors.Newf("vendor ID 0x%x, driver expects 0x%x", h.VendorID, id.VendorID))
	}
	if h.DeviceID != id.DeviceID {
		err = errors.CombineErrors(err, errors.Newf("device ID 0x%x, driver expects 0x%x", h.DeviceID, id.DeviceID))
	}
	if h.CacheUUID != id.CacheUUID {
		err = errors.CombineErrors(err, errors.Newf("cache UUID %s, driver expects %s", h.CacheUUID, id.CacheUUID))
	}

	if err != nil {
		return errors.Mark(err, ErrStaleCache)
	}
	return nil
}

// Load returns the initial data for a pipeline cache. A missing file yields nil
// data. A file produced by another device is deleted so the next run
// repopulates it; the mismatch is returned alongside nil data so callers can
// log it.
func Load(path string, id Identity) ([]byte, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "read pipeline cache %s", path)
	}

	header, err := ParseHeader(data)
	if err == nil {
		err = header.Validate(id)
	}
	if err != nil {
		// not important if this fails
		_ = os.Remove(path)
		return nil, errors.Wrapf(err, "discarding pipeline cache %s", path)
	}

	return data, nil
}

// Save writes the blob next to path first and renames it into place.
func Save(path string, data []byte) error {
	if path == "" || len(data) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create pipeline cache directory for %s", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write pipeline cache %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, path), "rename pipeline cache into %s", path)
}
