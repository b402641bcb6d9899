// Package wakeword gates the assistant behind a trigger phrase. A detector
// scores individual audio frames; the gate turns scores into at most one
// activation per idle period.
package wakeword

import (
	"github.com/zhouzirui/steward/internal/model/audio"
)

// Detector scores one frame for trigger-phrase presence. Check is called
// from the gate loop; slow detectors delay wake latency, nothing else.
type Detector interface {
	Check(frame audio.Frame) (triggered bool, confidence float32)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(frame audio.Frame) (bool, float32)

func (f DetectorFunc) Check(frame audio.Frame) (bool, float32) {
	return f(frame)
}
