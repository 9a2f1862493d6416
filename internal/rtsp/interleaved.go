package rtsp

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// interleavedMagic starts every binary frame multiplexed onto the control
// connection when media is delivered over TCP.
const interleavedMagic = 0x24

func readInterleavedFrame(br *bufio.Reader) (uint8, []byte, error) {
	header := make([]byte, 4)
	_, err := io.ReadFull(br, header)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read interleaved frame header: %w", err)
	}

	channel := header[1]
	length := binary.BigEndian.Uint16(header[2:])
	payload := make([]byte, length)
	_, err = io.ReadFull(br, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read interleaved frame payload: %w", err)
	}
	return channel, payload, nil
}

// WriteInterleavedFrame writes payload as a frame on channel.
func WriteInterleavedFrame(w io.Writer, channel uint8, payload []byte) error {
	if len(payload) > 0xffff {
		return fmt.Errorf("interleaved payload too large: %d bytes", len(payload))
	}
	frame := make([]byte, 4, 4+len(payload))
	frame[0] = interleavedMagic
	frame[1] = channel
	binary.BigEndian.PutUint16(frame[2:], uint16(len(payload)))
	frame = append(frame, payload...)
	_, err := w.Write(frame)
	return err
}
