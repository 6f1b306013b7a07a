package transport

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/ehrlich-b/go-haptic/internal/dispatch"
	"github.com/ehrlich-b/go-haptic/internal/ffdev"
	"github.com/ehrlich-b/go-haptic/internal/interfaces"
	"github.com/ehrlich-b/go-haptic/internal/playback"
	"github.com/ehrlich-b/go-haptic/internal/uapi"
)

// fakeDevice is a no-op interfaces.EffectDevice, just enough to let a
// Dispatcher run Start/Stop through handleConn.
type fakeDevice struct{ nextID int16 }

var _ interfaces.EffectDevice = (*fakeDevice)(nil)

func (f *fakeDevice) UploadConstant(id int16, level int16, playLengthMs uint16) (int16, error) {
	f.nextID++
	return f.nextID, nil
}
func (f *fakeDevice) UploadPeriodic(id int16, effectID int32, magnitude int16, playLengthMs uint16) (int16, uint32, error) {
	f.nextID++
	return f.nextID, uint32(playLengthMs), nil
}
func (f *fakeDevice) Play(id int16, value int32) error      { return nil }
func (f *fakeDevice) SetGain(gain uint16) error              { return nil }
func (f *fakeDevice) Unload(id int16) error                  { return nil }
func (f *fakeDevice) Capabilities() ([]byte, error)           { return nil, nil }
func (f *fakeDevice) Close() error                            { return nil }

func newTestDispatcher() *dispatch.Dispatcher {
	dev := &fakeDevice{}
	adapter := ffdev.NewAdapter(dev, nil, nil)
	engine := playback.NewEngine(adapter, nil, nil)
	return dispatch.New(adapter, engine, nil, nil, nil)
}

// TestHandleConnStop exercises a full Stop round trip over a net.Pipe,
// standing in for a real socket connection.
func TestHandleConnStop(t *testing.T) {
	s := &Server{dispatcher: newTestDispatcher(), logger: nil}
	s.logger = discardLogger{}

	clientConn, serverConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		s.handleConn(serverConn)
		close(done)
	}()

	header := uapi.FrameHeader{Type: uapi.KindStop}
	req := uapi.MarshalFrameHeader(&header)
	if _, err := clientConn.Write(req); err != nil {
		t.Fatalf("write request: %v", err)
	}

	resp := make([]byte, uapi.ResponseLen(uapi.KindStop))
	if _, err := readFull(clientConn, resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	result := int32(binary.LittleEndian.Uint32(resp[0:4]))
	if result != 0 {
		t.Errorf("result = %d, want 0", result)
	}

	clientConn.Close()
	<-done
}

// TestHandleConnShortPayloadRepliesInvalid exercises the request_len
// short-read path: the client sends the header declaring a Waveform
// command but never sends the payload.
func TestHandleConnShortPayloadRepliesInvalid(t *testing.T) {
	s := &Server{dispatcher: newTestDispatcher(), logger: discardLogger{}}

	clientConn, serverConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		s.handleConn(serverConn)
		close(done)
	}()

	header := uapi.FrameHeader{Type: uapi.KindWaveform}
	req := uapi.MarshalFrameHeader(&header)
	go func() {
		clientConn.Write(req)
		// A partial payload, then stop — exercises the short-read path
		// without depending on net.Pipe's unbuffered close semantics.
		clientConn.Write(make([]byte, 10))
	}()

	resp := make([]byte, uapi.ResponseLen(uapi.KindWaveform))
	if _, err := readFull(clientConn, resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	result := int32(binary.LittleEndian.Uint32(resp[0:4]))
	if result == 0 {
		t.Errorf("result = 0, want a negative errno for a short payload")
	}

	clientConn.Close()
	<-done
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type discardLogger struct{}

func (discardLogger) Printf(format string, args ...interface{})  {}
func (discardLogger) Debugf(format string, args ...interface{})  {}
func (discardLogger) Errorf(format string, args ...interface{})  {}
