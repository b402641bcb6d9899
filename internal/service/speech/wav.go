package speech

import (
	"bytes"
	"encoding/binary"

	"github.com/zhouzirui/steward/internal/model/audio"
)

// EncodeWAV wraps raw mono 16-bit samples in a RIFF/WAVE container at the
// capture sample rate.
func EncodeWAV(samples []int16) []byte {
	data := audio.EncodePCM(samples)
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(audio.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(audio.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(audio.SampleRate*audio.Channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(audio.Channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}
