// Package symtab encodes and decodes the debug-symbol file format: a
// self-describing serialization of an assembled image's symbol stream,
// consumed by external debug tooling (out of scope here) and round-tripped
// by this package's own tests.
package symtab

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/davehorner/buxn-sub000/asm"
	"github.com/davehorner/buxn-sub000/internal/ngi"
	"github.com/pkg/errors"
)

// Type mirrors asm.SymbolKind, restricted to the five kinds the debug
// file format actually records (comments and marks carry no address range
// worth persisting for a debugger).
type Type uint8

const (
	TypeOpcode Type = iota
	TypeLabelRef
	TypeNumber
	TypeText
	TypeLabel
)

// Position is a 1-based line/column plus 0-based byte offset.
type Position struct {
	Line, Col uint32
	Byte      uint32
}

// Record is one grouped symbol: a contiguous run of addresses sharing the
// same (kind, id, name), with the source region of its first occurrence.
type Record struct {
	Type     Type
	ID       uint16
	AddrMin  uint16
	AddrMax  uint16
	Filename string
	Start    Position
	End      Position
}

// Symtab is the full decoded file's record list. The string pool is not
// kept as a field: Write builds it from the records' Filename fields (equal
// filenames share one pool entry) and Read resolves it back into them.
type Symtab struct {
	Symbols []Record
}

const magic = "BDSB" // buxn debug symbol blob

// FromResult groups res's emitted symbol stream into Records: runs of
// consecutive addresses with the same kind/id/name collapse into one
// record spanning [addr_min, addr_max].
func FromResult(res asm.Result) Symtab {
	var out []Record
	var cur *Record
	var curName string
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	for _, sym := range res.Symbols {
		t, ok := symbolType(sym.Kind)
		if !ok {
			flush()
			continue
		}
		name := ""
		if sym.Name != nil {
			name = *sym.Name
		}
		file := ""
		if sym.Region.File != nil {
			file = *sym.Region.File
		}
		if cur != nil && cur.Type == t && cur.ID == sym.ID && curName == name && cur.Filename == file && sym.Addr == cur.AddrMax+1 {
			cur.AddrMax = sym.Addr
			cur.End = Position{uint32(sym.Region.End.Line), uint32(sym.Region.End.Col), uint32(sym.Region.End.Byte)}
			continue
		}
		flush()
		curName = name
		cur = &Record{
			Type: t, ID: sym.ID, AddrMin: sym.Addr, AddrMax: sym.Addr,
			Filename: file,
			Start:    Position{uint32(sym.Region.Start.Line), uint32(sym.Region.Start.Col), uint32(sym.Region.Start.Byte)},
			End:      Position{uint32(sym.Region.End.Line), uint32(sym.Region.End.Col), uint32(sym.Region.End.Byte)},
		}
	}
	flush()
	return Symtab{Symbols: out}
}

func symbolType(k asm.SymbolKind) (Type, bool) {
	switch k {
	case asm.SymOpcode:
		return TypeOpcode, true
	case asm.SymLabelRef, asm.SymMacroRef:
		return TypeLabelRef, true
	case asm.SymNumber:
		return TypeNumber, true
	case asm.SymText:
		return TypeText, true
	case asm.SymLabel, asm.SymMacro:
		return TypeLabel, true
	default:
		return 0, false
	}
}

// Write serializes st: a 4-byte magic, a header of
// {num_symbols, num_strings, string_pool_size} (uint32 each), the string
// pool (length-prefixed strings, identity-interned), then one fixed-size
// record per symbol referencing the pool by index.
func Write(w io.Writer, st Symtab) error {
	pool, index := internStrings(st.Symbols)

	bw := bufio.NewWriter(ngi.NewErrWriter(w))
	if _, err := bw.WriteString(magic); err != nil {
		return errors.Wrap(err, "writing magic")
	}
	var poolSize uint32
	for _, s := range pool {
		poolSize += 4 + uint32(len(s))
	}
	if err := writeU32(bw, uint32(len(st.Symbols))); err != nil {
		return err
	}
	if err := writeU32(bw, uint32(len(pool))); err != nil {
		return err
	}
	if err := writeU32(bw, poolSize); err != nil {
		return err
	}
	for _, s := range pool {
		if err := writeU32(bw, uint32(len(s))); err != nil {
			return err
		}
		if _, err := bw.WriteString(s); err != nil {
			return errors.Wrap(err, "writing string pool entry")
		}
	}
	for _, rec := range st.Symbols {
		if err := writeRecord(bw, rec, index[rec.Filename]); err != nil {
			return err
		}
	}
	return errors.Wrap(bw.Flush(), "flushing symtab")
}

func internStrings(recs []Record) ([]string, map[string]uint32) {
	index := make(map[string]uint32)
	var pool []string
	for _, r := range recs {
		if _, ok := index[r.Filename]; ok {
			continue
		}
		index[r.Filename] = uint32(len(pool))
		pool = append(pool, r.Filename)
	}
	return pool, index
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "writing uint32")
}

func writeU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "writing uint16")
}

func writeRecord(w *bufio.Writer, r Record, filenameID uint32) error {
	if err := w.WriteByte(byte(r.Type)); err != nil {
		return errors.Wrap(err, "writing record type")
	}
	for _, v := range []uint16{r.ID, r.AddrMin, r.AddrMax} {
		if err := writeU16(w, v); err != nil {
			return err
		}
	}
	if err := writeU32(w, filenameID); err != nil {
		return err
	}
	for _, p := range []Position{r.Start, r.End} {
		for _, v := range []uint32{p.Line, p.Col, p.Byte} {
			if err := writeU32(w, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Read decodes a file written by Write.
func Read(r io.Reader) (Symtab, error) {
	br := bufio.NewReader(r)
	var magicBuf [4]byte
	if _, err := io.ReadFull(br, magicBuf[:]); err != nil {
		return Symtab{}, errors.Wrap(err, "reading magic")
	}
	if string(magicBuf[:]) != magic {
		return Symtab{}, errors.New("not a symtab file")
	}
	numSymbols, err := readU32(br)
	if err != nil {
		return Symtab{}, err
	}
	numStrings, err := readU32(br)
	if err != nil {
		return Symtab{}, err
	}
	if _, err := readU32(br); err != nil { // string_pool_size, unused on read
		return Symtab{}, err
	}
	pool := make([]string, numStrings)
	for i := range pool {
		n, err := readU32(br)
		if err != nil {
			return Symtab{}, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return Symtab{}, errors.Wrap(err, "reading string pool entry")
		}
		pool[i] = string(buf)
	}
	syms := make([]Record, numSymbols)
	for i := range syms {
		rec, err := readRecord(br, pool)
		if err != nil {
			return Symtab{}, err
		}
		syms[i] = rec
	}
	return Symtab{Symbols: syms}, nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "reading uint32")
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "reading uint16")
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readRecord(r *bufio.Reader, pool []string) (Record, error) {
	typByte, err := r.ReadByte()
	if err != nil {
		return Record{}, errors.Wrap(err, "reading record type")
	}
	id, err := readU16(r)
	if err != nil {
		return Record{}, err
	}
	addrMin, err := readU16(r)
	if err != nil {
		return Record{}, err
	}
	addrMax, err := readU16(r)
	if err != nil {
		return Record{}, err
	}
	filenameID, err := readU32(r)
	if err != nil {
		return Record{}, err
	}
	start, err := readPosition(r)
	if err != nil {
		return Record{}, err
	}
	end, err := readPosition(r)
	if err != nil {
		return Record{}, err
	}
	filename := ""
	if int(filenameID) < len(pool) {
		filename = pool[filenameID]
	}
	return Record{
		Type: Type(typByte), ID: id, AddrMin: addrMin, AddrMax: addrMax,
		Filename: filename, Start: start, End: end,
	}, nil
}

func readPosition(r io.Reader) (Position, error) {
	line, err := readU32(r)
	if err != nil {
		return Position{}, err
	}
	col, err := readU32(r)
	if err != nil {
		return Position{}, err
	}
	b, err := readU32(r)
	if err != nil {
		return Position{}, err
	}
	return Position{Line: line, Col: col, Byte: b}, nil
}
