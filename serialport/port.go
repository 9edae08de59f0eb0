// Package serialport реализует flasher.Transport поверх go.bug.st/serial.
package serialport

import (
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/sxwebdev/espflasher/flasher"
)

var _ flasher.Transport = (*Port)(nil)

// DefaultBaudRate скорость, с которой порт открывается
const DefaultBaudRate = 115200

// ErrNotOpen порт еще не открыт или уже закрыт
var ErrNotOpen = errors.New("serial port is not open")

// Port последовательный порт 8N1
type Port struct {
	mode    *serial.Mode
	timeout time.Duration
	port    serial.Port

	open func(name string, mode *serial.Mode) (serial.Port, error)
}

// New создает закрытый порт; имя передается в Open
func New() *Port {
	return &Port{
		mode: &serial.Mode{
			BaudRate: DefaultBaudRate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		},
		open: serial.Open,
	}
}

// Open открывает порт с текущими скоростью и таймаутом
func (p *Port) Open(name string) error {
	if p.port != nil {
		return errors.Errorf("serial port %s: already open", name)
	}

	port, err := p.open(name, p.mode)
	if err != nil {
		return errors.Wrapf(err, "failed to open port %s", name)
	}

	if p.timeout > 0 {
		if err := port.SetReadTimeout(p.timeout); err != nil {
			port.Close()
			return errors.Wrap(err, "set read timeout")
		}
	}

	p.port = port
	return nil
}

// Close закрывает порт; повторный вызов ничего не делает
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

func (p *Port) SetDTR(level bool) error {
	if p.port == nil {
		return ErrNotOpen
	}
	return p.port.SetDTR(level)
}

func (p *Port) SetRTS(level bool) error {
	if p.port == nil {
		return ErrNotOpen
	}
	return p.port.SetRTS(level)
}

func (p *Port) Write(b []byte) (int, error) {
	if p.port == nil {
		return 0, ErrNotOpen
	}
	return p.port.Write(b)
}

// Read читает доступные байты; по таймауту go.bug.st/serial возвращает 0, nil
func (p *Port) Read(b []byte) (int, error) {
	if p.port == nil {
		return 0, ErrNotOpen
	}
	return p.port.Read(b)
}

// SetBaudRate меняет скорость открытого порта без переоткрытия.
// Для закрытого порта скорость применится при Open.
func (p *Port) SetBaudRate(baud int) error {
	mode := *p.mode
	mode.BaudRate = baud

	if p.port != nil {
		if err := p.port.SetMode(&mode); err != nil {
			return errors.Wrapf(err, "set baudrate %d", baud)
		}
	}

	p.mode = &mode
	return nil
}

func (p *Port) SetReadTimeout(timeout time.Duration) error {
	if p.port != nil {
		if err := p.port.SetReadTimeout(timeout); err != nil {
			return err
		}
	}
	p.timeout = timeout
	return nil
}

// Buffered всегда 0: go.bug.st/serial не сообщает размер входного буфера
func (p *Port) Buffered() int { return 0 }

// Flush отбрасывает входной и выходной буферы драйвера
func (p *Port) Flush() error {
	if p.port == nil {
		return ErrNotOpen
	}
	if err := p.port.ResetInputBuffer(); err != nil {
		return errors.Wrap(err, "reset input buffer")
	}
	if err := p.port.ResetOutputBuffer(); err != nil {
		return errors.Wrap(err, "reset output buffer")
	}
	return nil
}

// BaudRate текущая скорость порта
func (p *Port) BaudRate() int {
	return p.mode.BaudRate
}
