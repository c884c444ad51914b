package archstate

import (
	"encoding/binary"
	"errors"
)

// snapshotVersion is incremented whenever the binary layout changes.
const snapshotVersion = 1

// SerializeSize returns the number of bytes Serialize produces for this
// ArchState's configuration: a version byte, the XRF, every MRF and WB
// register row, flat memory, flags, and the PC/NPC pair.
func (s *ArchState) SerializeSize() int {
	size := 1 // version
	size += len(s.xrf) * 8
	for _, row := range s.mrf {
		size += len(row)
	}
	for _, row := range s.wb {
		size += len(row)
	}
	size += len(s.memory)
	size += len(s.flags) // one byte per flag
	size += 4 + 4         // pc, npc
	return size
}

// Serialize writes a full snapshot of this ArchState into buf, which must
// be at least SerializeSize() bytes. Used by the run CLI's checkpoint
// flag to snapshot state between runs without replaying a program.
func (s *ArchState) Serialize(buf []byte) error {
	if len(buf) < s.SerializeSize() {
		return errors.New("archstate: serialize buffer too small")
	}

	be := binary.BigEndian
	buf[0] = snapshotVersion
	off := 1

	for _, v := range s.xrf {
		be.PutUint64(buf[off:], v)
		off += 8
	}
	for _, row := range s.mrf {
		off += copy(buf[off:], row)
	}
	for _, row := range s.wb {
		off += copy(buf[off:], row)
	}
	off += copy(buf[off:], s.memory)
	for _, f := range s.flags {
		buf[off] = boolByte(f)
		off++
	}
	be.PutUint32(buf[off:], uint32(int32(s.pc)))
	off += 4
	be.PutUint32(buf[off:], uint32(int32(s.npc)))
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Deserialize restores this ArchState from a snapshot produced by
// Serialize against an ArchState built from the same Config. Returns an
// error if buf is too small or carries an unsupported version.
func (s *ArchState) Deserialize(buf []byte) error {
	if len(buf) < s.SerializeSize() {
		return errors.New("archstate: deserialize buffer too small")
	}
	if buf[0] != snapshotVersion {
		return errors.New("archstate: unsupported snapshot version")
	}

	be := binary.BigEndian
	off := 1

	for i := range s.xrf {
		s.xrf[i] = be.Uint64(buf[off:])
		off += 8
	}
	for _, row := range s.mrf {
		off += copy(row, buf[off:])
	}
	for _, row := range s.wb {
		off += copy(row, buf[off:])
	}
	off += copy(s.memory, buf[off:])
	for i := range s.flags {
		s.flags[i] = buf[off] != 0
		off++
	}
	s.pc = int(int32(be.Uint32(buf[off:])))
	off += 4
	s.npc = int(int32(be.Uint32(buf[off:])))
	return nil
}
