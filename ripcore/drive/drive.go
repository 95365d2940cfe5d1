// Package drive implements the drive-offset database described in §4.4: a
// vendor/model lookup against embedded, compile-time-sorted tables of known
// per-drive read offsets and cache sizes.
package drive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

const (
	vendorLen = 8
	modelLen  = 16
)

// VendorModel is a fixed 24-byte vendor+model pair (8 bytes vendor, 16
// bytes model, each uppercased and NUL-padded), matching §4.4. Storing the
// pair as a value type makes table lookups cheap comparisons rather than
// string operations.
type VendorModel [vendorLen + modelLen]byte

// NewVendorModel builds a VendorModel from free-form vendor/model strings,
// trimming, uppercasing, and truncating to the fixed widths. Vendor may be
// empty; model, once trimmed, must not be.
func NewVendorModel(vendor, model string) (VendorModel, error) {
	vendor = strings.TrimSpace(vendor)
	model = strings.TrimSpace(model)

	if len(vendor) > vendorLen {
		return VendorModel{}, fmt.Errorf("drive: vendor %q exceeds %d bytes", vendor, vendorLen)
	}
	if model == "" || len(model) > modelLen {
		return VendorModel{}, fmt.Errorf("drive: model %q must be 1..%d bytes", model, modelLen)
	}

	var vm VendorModel
	copy(vm[:vendorLen], strings.ToUpper(vendor))
	copy(vm[vendorLen:], strings.ToUpper(model))
	return vm, nil
}

// Vendor returns the vendor portion with trailing NUL padding trimmed.
func (vm VendorModel) Vendor() string {
	return string(bytes.TrimRight(vm[:vendorLen], "\x00"))
}

// Model returns the model portion with trailing NUL padding trimmed.
func (vm VendorModel) Model() string {
	return string(bytes.TrimRight(vm[vendorLen:], "\x00"))
}

func (vm VendorModel) String() string {
	v, m := vm.Vendor(), vm.Model()
	if v == "" {
		return m
	}
	return v + " " + m
}

func compareVendorModel(a, b VendorModel) int {
	return bytes.Compare(a[:], b[:])
}

// offsetEntry and cacheEntry are the two embedded table row shapes, built
// offline from the AccurateRip drive registry (see tables.go).
type offsetEntry struct {
	vm     VendorModel
	offset int16
}

type cacheEntry struct {
	vm       VendorModel
	cacheKiB uint16
}

// Lookup searches both embedded tables for vendor/model, returning the
// known read offset (in samples) and cache size (in KiB) independently --
// a drive may be known for one and not the other.
func Lookup(vendor, model string) (offsetSamples int16, offsetOK bool, cacheKiB int, cacheOK bool) {
	vm, err := NewVendorModel(vendor, model)
	if err != nil {
		return 0, false, 0, false
	}

	if i, ok := slices.BinarySearchFunc(offsetTable, vm, func(e offsetEntry, target VendorModel) int {
		return compareVendorModel(e.vm, target)
	}); ok {
		offsetSamples, offsetOK = offsetTable[i].offset, true
	}

	if i, ok := slices.BinarySearchFunc(cacheTable, vm, func(e cacheEntry, target VendorModel) int {
		return compareVendorModel(e.vm, target)
	}); ok {
		cacheKiB, cacheOK = int(cacheTable[i].cacheKiB), true
	}

	return
}

// clampOffset clamps a raw registry offset value to the authoritative
// ±5880-sample range (§9 design note resolves the original's duplicated
// ±2940/±5880 definitions in favor of ±5880).
func clampOffset(v int16) int16 {
	const maxOffset = 5880
	if v > maxOffset {
		return maxOffset
	}
	if v < -maxOffset {
		return -maxOffset
	}
	return v
}

// ParseRegistryRecord decodes one 69-byte AccurateRip drive-offset registry
// record into a VendorModel and clamped offset, per §4.4: "i16 offset LE,
// 32-byte drive ID, 1-byte terminator, 1-byte submission count, 33 bytes
// ignored." The 32-byte drive ID field packs "VENDOR - MODEL" free-form
// text; everything up to the first " - " is the vendor, the rest the
// model, mirroring the upstream registry's own convention.
func ParseRegistryRecord(record []byte) (VendorModel, int16, error) {
	if len(record) != 69 {
		return VendorModel{}, 0, fmt.Errorf("drive: registry record must be 69 bytes, got %d", len(record))
	}

	offset := clampOffset(int16(binary.LittleEndian.Uint16(record[0:2])))

	idField := string(bytes.TrimRight(record[2:34], "\x00 "))
	vendor, model, _ := strings.Cut(idField, " - ")
	if model == "" {
		vendor, model = "", idField
	}

	vm, err := NewVendorModel(vendor, model)
	if err != nil {
		return VendorModel{}, 0, err
	}

	return vm, offset, nil
}
