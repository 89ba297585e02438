// Package audio holds the PCM helpers shared by capture and playback.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const wavHeaderSize = 44

var (
	ErrNotWAV         = errors.New("not a WAV stream")
	ErrUnsupportedWAV = errors.New("unsupported WAV format")
	ErrNoDataChunk    = errors.New("no data chunk")
)

// Format describes a PCM stream.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Float         bool
}

// EncodeWAV wraps little-endian PCM16 mono samples in a WAV header.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const channels, bits = 1, 16
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bits / 8
	blockAlign := channels * bits / 8

	wav := make([]byte, wavHeaderSize+dataSize)
	copy(wav[0:4], "RIFF")
	binary.LittleEndian.PutUint32(wav[4:8], uint32(36+dataSize))
	copy(wav[8:12], "WAVE")
	copy(wav[12:16], "fmt ")
	binary.LittleEndian.PutUint32(wav[16:20], 16)
	binary.LittleEndian.PutUint16(wav[20:22], 1)
	binary.LittleEndian.PutUint16(wav[22:24], channels)
	binary.LittleEndian.PutUint32(wav[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(wav[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(wav[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(wav[34:36], bits)
	copy(wav[36:40], "data")
	binary.LittleEndian.PutUint32(wav[40:44], uint32(dataSize))
	copy(wav[44:], pcm)
	return wav
}

// ReadHeader consumes a WAV header from r and returns the format plus a reader
// positioned at the start of the sample data. Streams whose data chunk size is
// unknown (0 or 0xFFFFFFFF, as streaming TTS servers emit) read to EOF.
func ReadHeader(r io.Reader) (Format, io.Reader, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Format{}, nil, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Format{}, nil, ErrNotWAV
	}

	var f Format
	var haveFmt bool
	var ch [8]byte
	for {
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Format{}, nil, ErrNoDataChunk
			}
			return Format{}, nil, err
		}
		id := string(ch[0:4])
		size := binary.LittleEndian.Uint32(ch[4:8])
		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, nil, fmt.Errorf("bad fmt chunk size %d", size)
			}
			var body [16]byte
			if _, err := io.ReadFull(r, body[:]); err != nil {
				return Format{}, nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			// Extension bytes are skipped, never buffered.
			if _, err := io.CopyN(io.Discard, r, int64(size)-16); err != nil {
				return Format{}, nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			tag := binary.LittleEndian.Uint16(body[0:2])
			f.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			switch {
			case tag == 1 && f.BitsPerSample == 16:
			case tag == 3 && f.BitsPerSample == 32:
				f.Float = true
			default:
				return Format{}, nil, ErrUnsupportedWAV
			}
			haveFmt = true
			if size%2 == 1 {
				if _, err := io.CopyN(io.Discard, r, 1); err != nil {
					return Format{}, nil, err
				}
			}
		case "data":
			if !haveFmt {
				return Format{}, nil, ErrUnsupportedWAV
			}
			if size == 0 || size == math.MaxUint32 {
				return f, r, nil
			}
			return f, io.LimitReader(r, int64(size)), nil
		default:
			skip := int64(size) + int64(size%2)
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return Format{}, nil, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
	}
}

// RMS computes the normalised root mean square (0..1) of PCM16 little-endian audio.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
