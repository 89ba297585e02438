package playback

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/ayushsaha1018/ai-interviewer/internal/audio"
)

var ErrFormatMismatch = errors.New("reply audio format does not match the output device")

// Decode sniffs a RIFF header on r. Without one the stream is assumed to be
// raw PCM in the fallback format.
func Decode(r io.Reader, fallback audio.Format) (audio.Format, io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return audio.Format{}, nil, fmt.Errorf("peek reply audio: %w", err)
	}
	if string(magic) != "RIFF" {
		return fallback, br, nil
	}
	f, data, err := audio.ReadHeader(br)
	if err != nil {
		return audio.Format{}, nil, err
	}
	return f, data, nil
}

// Compatible checks that got can be rendered by a device opened with want.
func Compatible(got, want audio.Format) error {
	if got.SampleRate != want.SampleRate || got.Channels != want.Channels || got.Float != want.Float || got.BitsPerSample != want.BitsPerSample {
		return fmt.Errorf("%w: got %dHz/%dch/%dbit, device %dHz/%dch/%dbit",
			ErrFormatMismatch, got.SampleRate, got.Channels, got.BitsPerSample,
			want.SampleRate, want.Channels, want.BitsPerSample)
	}
	return nil
}
