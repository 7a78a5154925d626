package vm

import (
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// LoadROM reads a ROM image (the raw bytes the assembler emits, destined
// for memory starting at ResetVector) from path.
func LoadROM(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "buxn: open rom %s", path)
	}
	defer f.Close()
	rom, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "buxn: read rom %s", path)
	}
	return rom, nil
}

// LoadROMMMap reads a ROM image the same way LoadROM does, but through a
// read-only memory mapping instead of a full buffered read, the way
// saferwall/pe's File.New maps a PE image instead of reading it. The
// returned bytes are only valid until the returned closer is called; New
// copies them into the machine's own memory immediately, so the mapping
// can be released as soon as New has returned.
func LoadROMMMap(path string) (rom []byte, close func() error, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "buxn: open rom %s", path)
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "buxn: mmap rom %s", path)
	}
	return []byte(m), m.Unmap, nil
}

// SaveROM writes mem[ResetVector:] to path, trimming trailing zero bytes so
// the file holds only the addressed region the assembler actually wrote.
func SaveROM(path string, mem []byte) error {
	if len(mem) < ResetVector {
		return errors.Errorf("buxn: memory of %d bytes is smaller than reset vector 0x%04x", len(mem), ResetVector)
	}
	rom := mem[ResetVector:]
	end := len(rom)
	for end > 0 && rom[end-1] == 0 {
		end--
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "buxn: create rom %s", path)
	}
	defer f.Close()
	if _, err := f.Write(rom[:end]); err != nil {
		return errors.Wrapf(err, "buxn: write rom %s", path)
	}
	return nil
}
