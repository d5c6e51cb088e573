// Package wav writes mono 16-bit PCM WAV files.
package wav

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const headerSize = 44

// Write encodes samples in [-1, 1] as a mono 16-bit PCM WAV stream.
// Samples outside the range are clipped.
func Write(w io.Writer, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("wav: sample rate must be positive")
	}

	dataSize := uint32(len(samples) * 2)

	hdr := make([]byte, headerSize)
	copy(hdr[0:], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], headerSize-8+dataSize)
	copy(hdr[8:], "WAVE")
	copy(hdr[12:], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)
	binary.LittleEndian.PutUint16(hdr[20:], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:], 1) // mono
	binary.LittleEndian.PutUint32(hdr[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(hdr[32:], 2)
	binary.LittleEndian.PutUint16(hdr[34:], 16)
	copy(hdr[36:], "data")
	binary.LittleEndian.PutUint32(hdr[40:], dataSize)

	_, err := w.Write(hdr)
	if err != nil {
		return err
	}

	pcm := make([]byte, dataSize)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(quantize(s)))
	}

	_, err = w.Write(pcm)

	return err
}

func quantize(s float64) int16 {
	if math.IsNaN(s) {
		return 0
	}

	s = math.Max(-1, math.Min(1, s))

	return int16(math.Round(s * math.MaxInt16))
}
