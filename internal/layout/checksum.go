package layout

import (
	"hash/crc32"

	"github.com/heapguard/heapguard/internal/buf"
)

// The checksum is CRC32-C over every non-user byte of the block: both
// redzones, the header (with the checksum field read as zero), the body
// padding, and the trailer. While a block is quarantined the body is included
// as well, since freed memory must not change. CRC32 is a non-cryptographic
// integrity checksum: fast, with a ~2^-32 chance that a random mutation goes
// unnoticed, and not adversarially secure.
var checksumTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the integrity checksum of the full block slice blk, whose
// length must be TotalSize(userSize). The stored checksum field does not
// contribute to the result, so the value is stable across updates.
func Checksum(blk []byte, userSize uint32) uint32 {
	hdr := uint32(LeftRedzoneSize)
	body := hdr + HeaderSize
	trailer := body + Align8(userSize)

	// Left redzone plus the header up to the checksum field.
	sum := crc32.Update(0, checksumTable, blk[:hdr+HdrChecksumOffset])
	// The checksum field reads as zero.
	var zero [4]byte
	sum = crc32.Update(sum, checksumTable, zero[:])
	// Remainder of the header, if any fields ever follow the checksum.
	sum = crc32.Update(sum, checksumTable, blk[hdr+HdrChecksumOffset+4:body])
	// Freed bodies are covered; live bodies belong to the caller.
	if blk[hdr+HdrStateOffset] == StateQuarantined {
		sum = crc32.Update(sum, checksumTable, blk[body:body+userSize])
	}
	// Body padding, trailer, right redzone.
	sum = crc32.Update(sum, checksumTable, blk[body+userSize:trailer])
	sum = crc32.Update(sum, checksumTable, blk[trailer:])
	return sum
}

// UpdateChecksum recomputes the checksum of blk and stores it in the header.
func UpdateChecksum(blk []byte, userSize uint32) {
	sum := Checksum(blk, userSize)
	buf.PutU32LE(blk[LeftRedzoneSize+HdrChecksumOffset:], sum)
}

// ChecksumValid reports whether the stored checksum matches the recomputed
// one. Read-only.
func ChecksumValid(blk []byte, userSize uint32) bool {
	stored := buf.U32LE(blk[LeftRedzoneSize+HdrChecksumOffset:])
	return stored == Checksum(blk, userSize)
}
