package filepersist

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// ErrCorruptRecord is returned when a stored record's checksum doesn't
// match its payload.
var ErrCorruptRecord = fmt.Errorf("filepersist: corrupt record")

// record is one persisted snapshot of a dirty block: its register address,
// its length, and its bytes at the moment it was flushed.
//
// Wire format: | CRC32 (4) LE | ADDR (2) LE | LEN (2) LE | DATA (LEN) |
// CRC = crc32.ChecksumIEEE(ADDR | LEN | DATA)
type record struct {
	addr uint16
	data []byte
}

func (r record) encode(w io.Writer) error {
	payload := make([]byte, 4+len(r.data))
	binary.LittleEndian.PutUint16(payload[0:2], r.addr)
	binary.LittleEndian.PutUint16(payload[2:4], uint16(len(r.data)))
	copy(payload[4:], r.data)

	crc := crc32.ChecksumIEEE(payload)

	if err := binary.Write(w, binary.LittleEndian, crc); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func decodeRecord(r io.Reader) (record, error) {
	var storedCRC uint32
	if err := binary.Read(r, binary.LittleEndian, &storedCRC); err != nil {
		return record{}, err
	}

	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return record{}, err
	}

	addr := binary.LittleEndian.Uint16(header[0:2])
	length := binary.LittleEndian.Uint16(header[2:4])

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return record{}, err
	}

	payload := make([]byte, 4+len(data))
	copy(payload, header[:])
	copy(payload[4:], data)

	if crc32.ChecksumIEEE(payload) != storedCRC {
		return record{}, ErrCorruptRecord
	}

	return record{addr: addr, data: data}, nil
}
