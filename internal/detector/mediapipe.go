package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// ScriptName is the file name of the Python MediaPipe service.
const ScriptName = "mediapipe_service.py"

// MediaPipeDetector runs hand detection in a long-lived Python MediaPipe
// process. Each frame is written to its stdin as a 4-byte big-endian length
// followed by a JPEG; the reply is one JSON line on stdout.
type MediaPipeDetector struct {
	config Config
	script string
	python string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	frame  []byte
}

// NewMediaPipeDetector locates the service script and interpreter. The
// process itself starts on the first Detect.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = firstExisting(searchPaths(filepath.Join("scripts", ScriptName)))
	}
	if script == "" {
		return nil, fmt.Errorf("%s not found", ScriptName)
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("stat %s: %w", script, err)
	}

	python := config.Python
	if python == "" {
		python = firstExisting(searchPaths(filepath.Join("venv", "bin", "python")))
	}
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{config: config, script: script, python: python}, nil
}

// Detect sends frame to the service and returns the hands it found. If the
// service dies, the error is returned and the next call starts a new one.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		if err := d.start(); err != nil {
			return nil, err
		}
	}

	jpg, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer jpg.Close()

	data := jpg.GetBytes()
	d.frame = binary.BigEndian.AppendUint32(d.frame[:0], uint32(len(data)))
	d.frame = append(d.frame, data...)

	if _, err := d.stdin.Write(d.frame); err != nil {
		d.stop()
		return nil, fmt.Errorf("send frame: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.stop()
		return nil, fmt.Errorf("read response: %w", err)
	}
	return decodeResponse(line)
}

// Close stops the service and waits for it to exit.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

func (d *MediaPipeDetector) start() error {
	cmd := exec.Command(d.python, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)
	// stdout carries the protocol, so diagnostics share our stderr
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}
	log.Printf("Started MediaPipe service (pid %d)", cmd.Process.Pid)

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	return nil
}

// stop closes stdin, which the service treats as end of input.
func (d *MediaPipeDetector) stop() error {
	if d.cmd == nil {
		return nil
	}
	d.stdin.Close()
	err := d.cmd.Wait()
	d.cmd, d.stdin, d.stdout = nil, nil, nil
	return err
}

// searchPaths lists where rel may live: the working directory, its parent,
// next to the binary and under ~/.handpilot.
func searchPaths(rel string) []string {
	paths := []string{rel, filepath.Join("..", rel)}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), rel))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".handpilot", rel))
	}
	return paths
}

// firstExisting returns the absolute form of the first path that exists.
func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

// decodeResponse parses one service response line. Hands that do not carry
// exactly NumLandmarks points or a known handedness label are dropped.
func decodeResponse(line []byte) ([]HandLandmarks, error) {
	var resp struct {
		Hands []struct {
			Points     []Point3D `json:"points"`
			Handedness string    `json:"handedness"`
			Score      float64   `json:"score"`
		} `json:"hands"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	hands := make([]HandLandmarks, 0, len(resp.Hands))
	for i, h := range resp.Hands {
		handedness, err := ParseHandedness(h.Handedness)
		if err != nil {
			log.Printf("Dropping hand %d: %v", i, err)
			continue
		}
		if len(h.Points) != NumLandmarks {
			log.Printf("Dropping hand %d: got %d landmarks, want %d", i, len(h.Points), NumLandmarks)
			continue
		}

		hand := HandLandmarks{Handedness: handedness, Score: h.Score}
		copy(hand.Points[:], h.Points)
		hands = append(hands, hand)
	}
	return hands, nil
}
