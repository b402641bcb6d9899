package wakeword

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/steward/internal/model/audio"
)

// scoreMessage is what the wake-word model service sends back per frame
// window: a single confidence in [0, 1].
type scoreMessage struct {
	Score float32 `json:"score"`
	Word  string  `json:"word,omitempty"`
}

// RemoteDetector streams frames to an external wake-word model over
// websocket and keeps the latest score. Check never blocks on the network;
// it reports the most recent score the reader observed.
type RemoteDetector struct {
	url    string
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	lastScore float32
	lastAt    time.Time
	dialing   bool
}

// scoreTTL bounds how long a score stays actionable. A stale score from a
// phrase spoken seconds ago must not trigger a fresh activation.
const scoreTTL = 1500 * time.Millisecond

func NewRemoteDetector(url string) *RemoteDetector {
	return &RemoteDetector{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Check forwards the frame to the model service and returns the latest
// score. A detector with no live connection reports no trigger and
// redials in the background.
func (d *RemoteDetector) Check(frame audio.Frame) (bool, float32) {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()

	if conn == nil {
		d.redial()
		return false, 0
	}

	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteMessage(websocket.BinaryMessage, audio.EncodePCM(frame.Samples)); err != nil {
		log.Printf("[wakeword] frame send failed, dropping connection: %v", err)
		d.drop(conn)
		return false, 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if time.Since(d.lastAt) > scoreTTL {
		return false, 0
	}
	return d.lastScore > 0, d.lastScore
}

// Close tears down the model connection.
func (d *RemoteDetector) Close() error {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (d *RemoteDetector) redial() {
	d.mu.Lock()
	if d.dialing || d.conn != nil {
		d.mu.Unlock()
		return
	}
	d.dialing = true
	d.mu.Unlock()

	go func() {
		conn, _, err := d.dialer.Dial(d.url, nil)
		d.mu.Lock()
		d.dialing = false
		if err != nil {
			d.mu.Unlock()
			log.Printf("[wakeword] model dial failed: %v", err)
			return
		}
		d.conn = conn
		d.mu.Unlock()
		go d.readScores(conn)
	}()
}

func (d *RemoteDetector) drop(conn *websocket.Conn) {
	conn.Close()
	d.mu.Lock()
	if d.conn == conn {
		d.conn = nil
	}
	d.mu.Unlock()
}

func (d *RemoteDetector) readScores(conn *websocket.Conn) {
	for {
		var msg scoreMessage
		if err := conn.ReadJSON(&msg); err != nil {
			d.drop(conn)
			return
		}
		d.mu.Lock()
		d.lastScore = msg.Score
		d.lastAt = time.Now()
		d.mu.Unlock()
	}
}
