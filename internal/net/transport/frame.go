package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// Frame header layout.
const (
	FrameHeaderSize = 8

	// FrameVersion is the protocol version written into every frame.
	FrameVersion = 1
)

// FrameType identifies the payload carried by a frame.
type FrameType uint8

// Frame types.
const (
	FrameSnapshot FrameType = 0x53 // 'S'
	FrameHello    FrameType = 0x48 // 'H'
	FrameBye      FrameType = 0x42 // 'B'
)

// String returns a short lowercase name.
func (t FrameType) String() string {
	switch t {
	case FrameSnapshot:
		return "snapshot"
	case FrameHello:
		return "hello"
	case FrameBye:
		return "bye"
	default:
		return fmt.Sprintf("0x%02x", uint8(t))
	}
}

// Frame is one decoded datagram.
type Frame struct {
	Type    FrameType
	Tick    uint32
	Payload []byte
}

// Checksum returns the additive checksum of a frame. Byte 0 holds the
// checksum on the wire and is excluded from the sum.
func Checksum(frame []byte) byte {
	var sum byte
	for _, b := range frame[min(1, len(frame)):] {
		sum += b
	}
	return sum
}

// EncodeFrame serializes f with its checksum filled in.
func EncodeFrame(f Frame) []byte {
	return AppendFrame(make([]byte, 0, FrameHeaderSize+len(f.Payload)), f)
}

// AppendFrame appends the encoding of f to buf. The checksum covers only
// the appended bytes.
func AppendFrame(buf []byte, f Frame) []byte {
	start := len(buf)
	buf = append(buf, 0, byte(f.Type), FrameVersion, 0)
	buf = binary.BigEndian.AppendUint32(buf, f.Tick)
	buf = append(buf, f.Payload...)
	buf[start] = Checksum(buf[start:])
	return buf
}

// DecodeFrame validates and parses one datagram. The returned payload
// aliases b.
//
// Undersized datagrams and checksum mismatches fail with
// domain.ErrFrameIntegrity; a version other than FrameVersion fails with
// domain.ErrFrameVersion.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < FrameHeaderSize {
		return Frame{}, domain.ErrFrameIntegrity.WithDetails(
			"datagram is %d bytes, header needs %d", len(b), FrameHeaderSize)
	}
	if sum := Checksum(b); sum != b[0] {
		return Frame{}, domain.ErrFrameIntegrity.WithDetails(
			"checksum 0x%02x, computed 0x%02x", b[0], sum)
	}
	if b[2] != FrameVersion {
		return Frame{}, domain.ErrFrameVersion.WithDetails(
			"version %d, want %d", b[2], FrameVersion)
	}
	return Frame{
		Type:    FrameType(b[1]),
		Tick:    binary.BigEndian.Uint32(b[4:8]),
		Payload: b[FrameHeaderSize:],
	}, nil
}
