// Package slip кодирует и декодирует кадры SLIP, которыми обменивается
// загрузчик ESP.
package slip

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sxwebdev/espflasher/protocol"
)

// SLIP протокол
const (
	End    = 0xC0
	Esc    = 0xDB
	EscEnd = 0xDC
	EscEsc = 0xDD
)

// ErrNoData устройство ничего не прислало до истечения таймаута
var ErrNoData = errors.New("no serial data received")

// Encode кодирует данные в SLIP протокол
func Encode(data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data) + 2)
	buf.WriteByte(End)

	for _, b := range data {
		switch b {
		case End:
			buf.WriteByte(Esc)
			buf.WriteByte(EscEnd)
		case Esc:
			buf.WriteByte(Esc)
			buf.WriteByte(EscEsc)
		default:
			buf.WriteByte(b)
		}
	}

	buf.WriteByte(End)
	return buf.Bytes()
}

// Source источник байтов для декодера
type Source interface {
	io.Reader

	// Buffered возвращает число байтов, уже принятых портом.
	// Значение 0 означает "неизвестно" и приводит к чтению по одному байту.
	Buffered() int
}

type state int

const (
	awaitingStart state = iota
	inFrame
	inEscape
)

// Decoder выделяет кадры SLIP из потока байтов.
// Не потокобезопасен.
type Decoder struct {
	src     Source
	state   state
	frame   bytes.Buffer
	pending []byte
	fresh   bool
}

// NewDecoder создает декодер поверх источника
func NewDecoder(src Source) *Decoder {
	return &Decoder{src: src, fresh: true}
}

// Reset сбрасывает состояние декодера и отбрасывает недочитанные байты
func (d *Decoder) Reset() {
	d.state = awaitingStart
	d.frame.Reset()
	d.pending = nil
	d.fresh = true
}

// Next блокируется до получения полного кадра и возвращает его содержимое.
// После ошибки декодер начинает разбор заново.
func (d *Decoder) Next() ([]byte, error) {
	for {
		if len(d.pending) == 0 {
			if err := d.fill(); err != nil {
				d.Reset()
				return nil, err
			}
		}

		for len(d.pending) > 0 {
			b := d.pending[0]
			d.pending = d.pending[1:]

			frame, done, err := d.step(b)
			if err != nil {
				d.Reset()
				return nil, err
			}
			if done {
				return frame, nil
			}
		}
	}
}

func (d *Decoder) fill() error {
	n := d.src.Buffered()
	if n < 1 {
		n = 1
	}

	buf := make([]byte, n)
	read, err := d.src.Read(buf)
	if read == 0 {
		if err != nil && err != io.EOF {
			return err
		}
		return ErrNoData
	}

	d.pending = buf[:read]
	return nil
}

func (d *Decoder) step(b byte) ([]byte, bool, error) {
	switch d.state {
	case awaitingStart:
		if d.fresh && b == 0x00 {
			return nil, false, ErrNoData
		}
		d.fresh = false
		if b != End {
			return nil, false, &protocol.ProtocolError{Reason: fmt.Sprintf("read invalid data 0x%02x while waiting for frame start", b)}
		}
		d.state = inFrame

	case inFrame:
		switch b {
		case Esc:
			d.state = inEscape
		case End:
			frame := make([]byte, d.frame.Len())
			copy(frame, d.frame.Bytes())
			d.frame.Reset()
			d.state = awaitingStart
			d.fresh = true
			return frame, true, nil
		default:
			d.frame.WriteByte(b)
		}

	case inEscape:
		switch b {
		case EscEnd:
			d.frame.WriteByte(End)
		case EscEsc:
			d.frame.WriteByte(Esc)
		default:
			return nil, false, &protocol.ProtocolError{Reason: fmt.Sprintf("invalid slip escape 0x%02x 0x%02x", Esc, b)}
		}
		d.state = inFrame
	}

	return nil, false, nil
}
