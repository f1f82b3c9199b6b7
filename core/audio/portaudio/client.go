// Package portaudio backs audio capture and playback with PortAudio, as an
// alternative to the miniaudio backend.
package portaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/jsalvador/gdsim/core/audio"
)

const (
	captureSampleRate  = 16000
	playbackSampleRate = 48000
	bufferFrames       = 512
)

// CaptureDevice reads microphone frames on a background loop between Start
// and Stop.
type CaptureDevice struct {
	stream  *portaudio.Stream
	in      []int16
	onFrame func(frame []byte)

	stop chan struct{}
	done sync.WaitGroup
}

func NewCaptureDevice() *CaptureDevice {
	return &CaptureDevice{}
}

func (d *CaptureDevice) Open(onFrame func(frame []byte)) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing PortAudio: %w", err)
	}

	d.in = make([]int16, bufferFrames)
	stream, err := portaudio.OpenDefaultStream(1, 0, captureSampleRate, bufferFrames, d.in)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("opening capture stream: %w", err)
	}

	d.stream = stream
	d.onFrame = onFrame
	return nil
}

func (d *CaptureDevice) Start() error {
	if d.stream == nil {
		return fmt.Errorf("capture stream not open")
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("starting capture stream: %w", err)
	}

	d.stop = make(chan struct{})
	d.done.Add(1)
	go d.readLoop(d.stop)
	return nil
}

func (d *CaptureDevice) readLoop(stop chan struct{}) {
	defer d.done.Done()
	for {
		select {
		case <-stop:
			return
		default:
			if err := d.stream.Read(); err != nil {
				return
			}
			frame := bytes.Buffer{}
			binary.Write(&frame, binary.LittleEndian, d.in)
			d.onFrame(frame.Bytes())
		}
	}
}

func (d *CaptureDevice) Stop() error {
	if d.stream == nil {
		return fmt.Errorf("capture stream not open")
	}
	if d.stop != nil {
		close(d.stop)
		d.done.Wait()
		d.stop = nil
	}
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("stopping capture stream: %w", err)
	}
	return nil
}

func (d *CaptureDevice) Close() {
	if d.stop != nil {
		close(d.stop)
		d.done.Wait()
		d.stop = nil
	}
	if d.stream != nil {
		d.stream.Close()
		d.stream = nil
	}
	_ = portaudio.Terminate()
}

func (d *CaptureDevice) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: captureSampleRate,
		Channels:   1,
		Encoding:   "linear16",
	}
}

// PlaybackSink writes audio synchronously to the default output stream, so
// by the time SendAudio returns the clip has been handed to the device.
type PlaybackSink struct {
	stream *portaudio.Stream
	out    []int16

	mu sync.Mutex
}

func NewPlaybackSink() (*PlaybackSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing PortAudio: %w", err)
	}

	out := make([]int16, bufferFrames)
	stream, err := portaudio.OpenDefaultStream(0, 1, playbackSampleRate, bufferFrames, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("opening playback stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("starting playback stream: %w", err)
	}

	return &PlaybackSink{stream: stream, out: out}, nil
}

func (s *PlaybackSink) SendAudio(audioBytes []byte) error {
	if s.stream == nil {
		return fmt.Errorf("playback stream not open")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chunkBytes := bufferFrames * 2
	for offset := 0; offset < len(audioBytes); offset += chunkBytes {
		end := offset + chunkBytes
		chunk := make([]byte, chunkBytes)
		if end > len(audioBytes) {
			copy(chunk, audioBytes[offset:])
		} else {
			copy(chunk, audioBytes[offset:end])
		}

		if err := binary.Read(bytes.NewReader(chunk), binary.LittleEndian, s.out); err != nil {
			return fmt.Errorf("framing playback chunk: %w", err)
		}
		if err := s.stream.Write(); err != nil {
			return fmt.Errorf("writing to playback stream: %w", err)
		}
	}
	return nil
}

// AwaitDrained is a no-op: SendAudio writes synchronously.
func (s *PlaybackSink) AwaitDrained() error {
	return nil
}

func (s *PlaybackSink) ClearBuffer() {}

func (s *PlaybackSink) Close() {
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	_ = portaudio.Terminate()
}
