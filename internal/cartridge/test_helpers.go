package cartridge

import "bytes"

// LoadFromBytes is a test convenience wrapping LoadFromReader for callers
// that already have a ROM image in memory rather than on disk.
func LoadFromBytes(data []byte) (*Cartridge, error) {
	return LoadFromReader(bytes.NewReader(data))
}
