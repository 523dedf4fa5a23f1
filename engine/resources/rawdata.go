package resources

import "unsafe"

// RawData is a borrowed view into caller-owned bytes. It is never copied by
// the collector: the memory must stay valid until the grouping or dispatch
// pass that consumes it has finished.
type RawData struct {
	bytes []byte
}

func RawDataFromBytes(b []byte) RawData {
	return RawData{bytes: b}
}

// RawDataFromPointer wraps size bytes starting at ptr.
func RawDataFromPointer(ptr unsafe.Pointer, size int) RawData {
	if ptr == nil || size <= 0 {
		return RawData{}
	}
	return RawData{bytes: unsafe.Slice((*byte)(ptr), size)}
}

func (r RawData) Bytes() []byte {
	return r.bytes
}

func (r RawData) Len() uint64 {
	return uint64(len(r.bytes))
}

func (r RawData) IsEmpty() bool {
	return len(r.bytes) == 0
}

// Pointer returns the address of the first byte, or nil for an empty view.
func (r RawData) Pointer() unsafe.Pointer {
	if len(r.bytes) == 0 {
		return nil
	}
	return unsafe.Pointer(&r.bytes[0])
}

// Same reports whether both views reference the same memory with the same length.
func (r RawData) Same(other RawData) bool {
	return r.Pointer() == other.Pointer() && len(r.bytes) == len(other.bytes)
}
