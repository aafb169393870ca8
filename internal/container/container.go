// Package container builds and reads the standalone RWAR containers handed to
// the third-party editing tool, together with the audio map manifest that
// records their build order.
//
// Layout, all fields big-endian u32:
//
//	0x00 root   "RWAR" 0xFEFF0100 total 0x00200002 0x20 tabl tabl+0x20 payload
//	0x20 TABL   "TABL" tabl count {0x01000000 offset size}... pad16 reserved[16]
//	     DATA   "DATA" payload pad to 0x20, records back to back
//
// where tabl = align16(12+12n)+16 and payload = 0x20+sum(size). Record
// offsets are relative to DATA, the first one is 0x20 and each next one is
// the previous offset plus its size.
package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Layout constants.
const (
	RootHeaderSize = 0x20
	DataHeaderSize = 0x20

	versionWord  = 0xFEFF0100
	flagsWord    = 0x00200002
	recordMarker = 0x01000000

	tableHeaderSize = 12
	tableEntrySize  = 12
	reservedSize    = 16
)

// Sentinel errors for building and parsing containers.
var (
	// ErrTooLarge indicates a container whose size does not fit in 32 bits.
	ErrTooLarge = errors.New("container exceeds 4 GiB")
	// ErrMalformed indicates bytes that do not follow the container layout.
	ErrMalformed = errors.New("malformed container")
)

// Entry is one record to place in a container.
type Entry struct {
	Name string
	Data []byte
}

// TableEntry is one row of the TABL section.
type TableEntry struct {
	Offset uint32
	Size   uint32
}

// TableSize returns the TABL section size for n records.
func TableSize(n int) uint32 {
	return align16(uint32(tableHeaderSize+tableEntrySize*n)) + reservedSize
}

// Build lays out entries, in the given order, as a container.
func Build(entries []Entry) ([]byte, error) {
	n := len(entries)
	var sum uint64
	for _, e := range entries {
		sum += uint64(len(e.Data))
	}
	tabl := uint64(TableSize(n))
	payload := DataHeaderSize + sum
	total := RootHeaderSize + tabl + payload
	if total > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d records, %d bytes", ErrTooLarge, n, total)
	}

	b := make([]byte, 0, total)
	be := binary.BigEndian

	b = append(b, "RWAR"...)
	b = be.AppendUint32(b, versionWord)
	b = be.AppendUint32(b, uint32(total))
	b = be.AppendUint32(b, flagsWord)
	b = be.AppendUint32(b, RootHeaderSize)
	b = be.AppendUint32(b, uint32(tabl))
	b = be.AppendUint32(b, uint32(tabl)+RootHeaderSize)
	b = be.AppendUint32(b, uint32(payload))

	b = append(b, "TABL"...)
	b = be.AppendUint32(b, uint32(tabl))
	b = be.AppendUint32(b, uint32(n))
	offset := uint32(DataHeaderSize)
	for _, e := range entries {
		b = be.AppendUint32(b, recordMarker)
		b = be.AppendUint32(b, offset)
		b = be.AppendUint32(b, uint32(len(e.Data)))
		offset += uint32(len(e.Data))
	}
	b = pad(b, RootHeaderSize+tabl)

	b = append(b, "DATA"...)
	b = be.AppendUint32(b, uint32(payload))
	b = pad(b, RootHeaderSize+tabl+DataHeaderSize)
	for _, e := range entries {
		b = append(b, e.Data...)
	}
	return b, nil
}

// Container is a parsed container.
type Container struct {
	Total   uint32
	Table   []TableEntry
	Payload uint32

	data []byte // DATA section
}

// Len returns the number of records.
func (c *Container) Len() int {
	return len(c.Table)
}

// Record returns the bytes of record i.
func (c *Container) Record(i int) []byte {
	e := c.Table[i]
	return c.data[e.Offset : e.Offset+e.Size]
}

// Parse reads a container produced by Build. Every header field and table
// entry is checked against the bytes actually present.
func Parse(b []byte) (*Container, error) {
	be := binary.BigEndian
	if len(b) < RootHeaderSize || string(b[:4]) != "RWAR" {
		return nil, fmt.Errorf("%w: missing RWAR root header", ErrMalformed)
	}
	total := be.Uint32(b[8:])
	tablOff := be.Uint32(b[16:])
	tabl := be.Uint32(b[20:])
	dataOff := be.Uint32(b[24:])
	payload := be.Uint32(b[28:])
	switch {
	case uint64(total) > uint64(len(b)):
		return nil, fmt.Errorf("%w: total size 0x%X exceeds 0x%X bytes", ErrMalformed, total, len(b))
	case tablOff != RootHeaderSize || uint64(dataOff) != uint64(tablOff)+uint64(tabl):
		return nil, fmt.Errorf("%w: section offsets 0x%X/0x%X", ErrMalformed, tablOff, dataOff)
	case uint64(dataOff)+uint64(payload) != uint64(total) || payload < DataHeaderSize:
		return nil, fmt.Errorf("%w: payload 0x%X does not end at 0x%X", ErrMalformed, payload, total)
	}

	t := b[tablOff:dataOff]
	if len(t) < tableHeaderSize || string(t[:4]) != "TABL" || be.Uint32(t[4:]) != tabl {
		return nil, fmt.Errorf("%w: bad TABL header", ErrMalformed)
	}
	n := be.Uint32(t[8:])
	if uint64(tableHeaderSize)+uint64(tableEntrySize)*uint64(n) > uint64(len(t)) || TableSize(int(n)) != tabl {
		return nil, fmt.Errorf("%w: TABL size 0x%X does not fit %d records", ErrMalformed, tabl, n)
	}

	d := b[dataOff:total]
	if string(d[:4]) != "DATA" || be.Uint32(d[4:]) != payload {
		return nil, fmt.Errorf("%w: bad DATA header", ErrMalformed)
	}

	c := &Container{Total: total, Payload: payload, data: d, Table: make([]TableEntry, n)}
	for i := range c.Table {
		row := t[tableHeaderSize+tableEntrySize*i:]
		e := TableEntry{Offset: be.Uint32(row[4:]), Size: be.Uint32(row[8:])}
		if be.Uint32(row) != recordMarker || uint64(e.Offset)+uint64(e.Size) > uint64(payload) || e.Offset < DataHeaderSize {
			return nil, fmt.Errorf("%w: table entry %d out of range", ErrMalformed, i)
		}
		c.Table[i] = e
	}
	return c, nil
}

func align16(n uint32) uint32 {
	return (n + 15) &^ 15
}

func pad(b []byte, to uint64) []byte {
	for uint64(len(b)) < to {
		b = append(b, 0)
	}
	return b
}
