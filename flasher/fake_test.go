package flasher

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/sxwebdev/espflasher/protocol"
	"github.com/sxwebdev/espflasher/slip"
)

// request запрос, который получил фейковый порт
type request struct {
	cmd      protocol.Command
	payload  []byte
	checksum uint32
}

func (r request) word(i int) uint32 {
	return binary.LittleEndian.Uint32(r.payload[i*4:])
}

// bytesSource источник для разбора записанного кадра
type bytesSource struct {
	data []byte
}

func (b *bytesSource) Read(p []byte) (int, error) {
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

func (b *bytesSource) Buffered() int { return len(b.data) }

// fakeTransport проигрывает ответы, которые handler возвращает на каждый запрос
type fakeTransport struct {
	t       *testing.T
	handler func(req request) [][]byte

	rx       []byte
	requests []request
	bauds    []int
	timeouts []time.Duration
	lines    []string
	flushes  int
	port     string
	opened   bool
	closed   bool
	writes   int
}

func newFakeTransport(t *testing.T, handler func(req request) [][]byte) *fakeTransport {
	return &fakeTransport{t: t, handler: handler}
}

func (f *fakeTransport) Open(port string) error {
	f.port = port
	f.opened = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func (f *fakeTransport) SetDTR(level bool) error {
	f.lines = append(f.lines, fmt.Sprintf("DTR=%v", level))
	return nil
}

func (f *fakeTransport) SetRTS(level bool) error {
	f.lines = append(f.lines, fmt.Sprintf("RTS=%v", level))
	return nil
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.writes++
	frame, err := slip.NewDecoder(&bytesSource{data: p}).Next()
	if err != nil {
		f.t.Fatalf("write of invalid slip frame %x: %v", p, err)
	}
	if len(frame) < protocol.HeaderSize || frame[0] != byte(protocol.DirRequest) {
		f.t.Fatalf("write of invalid request %x", frame)
	}
	if int(binary.LittleEndian.Uint16(frame[2:4])) != len(frame)-protocol.HeaderSize {
		f.t.Fatalf("request size field does not match payload: %x", frame)
	}

	req := request{
		cmd:      protocol.Command(frame[1]),
		payload:  frame[protocol.HeaderSize:],
		checksum: binary.LittleEndian.Uint32(frame[4:8]),
	}
	f.requests = append(f.requests, req)

	if f.handler != nil {
		for _, resp := range f.handler(req) {
			f.rx = append(f.rx, slip.Encode(resp)...)
		}
	}
	return len(p), nil
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	if len(f.rx) == 0 {
		return 0, nil
	}
	n := copy(p, f.rx)
	f.rx = f.rx[n:]
	return n, nil
}

func (f *fakeTransport) SetBaudRate(baud int) error {
	f.bauds = append(f.bauds, baud)
	return nil
}

func (f *fakeTransport) SetReadTimeout(timeout time.Duration) error {
	f.timeouts = append(f.timeouts, timeout)
	return nil
}

func (f *fakeTransport) Buffered() int { return len(f.rx) }

func (f *fakeTransport) Flush() error {
	f.flushes++
	f.rx = nil
	return nil
}

// sent запросы с заданной командой
func (f *fakeTransport) sent(cmd protocol.Command) []request {
	var out []request
	for _, r := range f.requests {
		if r.cmd == cmd {
			out = append(out, r)
		}
	}
	return out
}

// commands последовательность команд всех запросов
func (f *fakeTransport) commands() []protocol.Command {
	out := make([]protocol.Command, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.cmd)
	}
	return out
}

// response ответ загрузчика с нулевым статусом
func response(cmd protocol.Command, value uint32, data []byte) []byte {
	frame := make([]byte, protocol.HeaderSize, protocol.HeaderSize+len(data)+protocol.StatusSize)
	frame[0] = byte(protocol.DirResponse)
	frame[1] = byte(cmd)
	binary.LittleEndian.PutUint16(frame[2:4], uint16(len(data)+protocol.StatusSize))
	binary.LittleEndian.PutUint32(frame[4:8], value)
	frame = append(frame, data...)
	return append(frame, 0, 0)
}

// failure ответ с ошибкой устройства
func failure(cmd protocol.Command, code protocol.FlashError) []byte {
	frame := response(cmd, 0, nil)
	frame[len(frame)-2] = 1
	frame[len(frame)-1] = byte(code)
	return frame
}

// device симулятор ROM загрузчика или stub
type device struct {
	magic   uint32
	mem     []byte
	md5Text bool

	beginOffset uint32
	blockSize   uint32
}

func newDevice(magic uint32) *device {
	mem := make([]byte, 0x100000)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &device{magic: magic, mem: mem}
}

func (d *device) handle(req request) [][]byte {
	switch req.cmd {
	case protocol.ReadRegCmd:
		return [][]byte{response(req.cmd, d.magic, nil)}

	case protocol.FlashBeginCmd:
		d.blockSize = req.word(2)
		d.beginOffset = req.word(3)
		return [][]byte{response(req.cmd, 0, nil)}

	case protocol.FlashDataCmd:
		seq := req.word(1)
		block := req.payload[protocol.DataHeaderLen:]
		copy(d.mem[d.beginOffset+seq*d.blockSize:], block)
		return [][]byte{response(req.cmd, 0, nil)}

	case protocol.MemEndCmd:
		return [][]byte{response(req.cmd, 0, nil), []byte("OHAI")}

	case protocol.FlashMD5Cmd:
		addr, size := req.word(0), req.word(1)
		sum := md5.Sum(d.mem[addr : addr+size])
		if d.md5Text {
			return [][]byte{response(req.cmd, 0, []byte(hex.EncodeToString(sum[:])))}
		}
		return [][]byte{response(req.cmd, 0, sum[:])}

	default:
		return [][]byte{response(req.cmd, 0, nil)}
	}
}

// recordLogger собирает сообщения логгера
type recordLogger struct {
	debug    []string
	info     []string
	warnings []string
}

func (l *recordLogger) Debugf(format string, args ...interface{}) {
	l.debug = append(l.debug, fmt.Sprintf(format, args...))
}

func (l *recordLogger) Infof(format string, args ...interface{}) {
	l.info = append(l.info, fmt.Sprintf(format, args...))
}

func (l *recordLogger) Warningf(format string, args ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

// newTestSession сессия без реальных задержек
func newTestSession(tr Transport, opts ...Option) (*Session, *[]time.Duration) {
	s := New(tr, opts...)
	var sleeps []time.Duration
	s.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return s, &sleeps
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}
