package audio

import (
	"math"
	"time"
)

// SampleRate is the fixed capture rate for all frame producers.
const SampleRate = 16000

// Channels is always mono on the capture path.
const Channels = 1

// Frame is one chunk of 16-bit PCM mono audio.
type Frame struct {
	Samples []int16
	Time    time.Time
}

// Duration reports the wall-clock span the frame covers.
func (f Frame) Duration() time.Duration {
	return time.Duration(len(f.Samples)) * time.Second / SampleRate
}

// RMS returns the root-mean-square amplitude, used for the speech-energy
// gate during utterance capture.
func (f Frame) RMS() float64 {
	if len(f.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range f.Samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(f.Samples)))
}

// DecodePCM converts little-endian 16-bit PCM bytes into a frame.
func DecodePCM(raw []byte, at time.Time) Frame {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}
	return Frame{Samples: samples, Time: at}
}

// EncodePCM renders samples back to little-endian 16-bit PCM bytes.
func EncodePCM(samples []int16) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(s >> 8)
	}
	return raw
}
