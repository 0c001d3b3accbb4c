package stream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"chipstream/logger"
)

// The raw sample format is a 6-byte header (uint32 LE sample rate,
// uint16 LE channel count) immediately followed by 16-bit PCM data.
const (
	rawHeaderSize = 6
	wavHeaderSize = 44
	bitsPerSample = 16
)

// ServeRawAsWAV synthesizes a canonical RIFF/WAVE header from the raw
// format's 6-byte header and streams the PCM payload verbatim behind it,
// without buffering the PCM in memory. The whole synthesized stream is
// sent with status 200; range semantics are not applied to this format.
// An error is returned only if the header cannot be read, before anything
// has been written to the client.
func (e *Engine) ServeRawAsWAV(w http.ResponseWriter, f io.Reader, size int64) error {
	var raw [rawHeaderSize]byte
	if _, err := io.ReadFull(f, raw[:]); err != nil {
		return fmt.Errorf("failed to read raw sample header: %w", err)
	}
	sampleRate := binary.LittleEndian.Uint32(raw[0:4])
	channels := binary.LittleEndian.Uint16(raw[4:6])
	pcmSize := size - rawHeaderSize

	header := EncodeWAVHeader(sampleRate, channels, pcmSize)

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(header))+pcmSize, 10))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(header); err != nil {
		logger.Debug("客户端断开连接，停止传输", logger.ErrorField(err))
		return nil
	}
	e.copyChunks(w, f, pcmSize)
	return nil
}

// EncodeWAVHeader builds the 44-byte canonical WAVE header (format tag
// PCM, 16 bits per sample) for a PCM payload of pcmSize bytes.
func EncodeWAVHeader(sampleRate uint32, channels uint16, pcmSize int64) []byte {
	byteRate := sampleRate * uint32(channels) * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+pcmSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, channels)
	binary.Write(buf, binary.LittleEndian, sampleRate)
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(pcmSize))
	return buf.Bytes()
}
