package flasher

import (
	"encoding/hex"
	"time"

	"github.com/pkg/errors"

	"github.com/sxwebdev/espflasher/protocol"
	"github.com/sxwebdev/espflasher/slip"
)

// responseReads сколько кадров читаем в ожидании ответа на запрос.
// Некоторые ESP8266 присылают лишние ответы на SYNC.
const responseReads = 101

// writeCommand проверяет команду по профилю чипа и отправляет её
func (s *Session) writeCommand(r *run, req *protocol.Request) error {
	if r.target != nil && !r.target.Supports(req.Command) {
		return &UnsupportedOperationError{Command: req.Command, Target: r.target.String()}
	}

	packet, err := req.Encode()
	if err != nil {
		return errors.Wrapf(err, "encode %s", req.Command)
	}
	encoded := slip.Encode(packet)

	if s.config.Trace {
		s.config.Logger.Debugf("command %s: packet=%s size=%d", req, hex.EncodeToString(packet), len(encoded))
	}

	if _, err := s.transport.Write(encoded); err != nil {
		return errors.Wrapf(err, "write %s", req.Command)
	}
	return nil
}

// writeWait отправляет запрос и ждет ответ с той же командой
func (s *Session) writeWait(r *run, req *protocol.Request, timeout time.Duration) (*protocol.Response, error) {
	if err := s.writeCommand(r, req); err != nil {
		return nil, err
	}

	if err := s.setReadTimeout(r, timeout); err != nil {
		return nil, err
	}

	var last protocol.Command
	for i := 0; i < responseReads; i++ {
		frame, err := r.dec.Next()
		if err != nil {
			return nil, errors.Wrapf(err, "read %s response", req.Command)
		}

		resp, err := protocol.DecodeResponse(frame)
		if err != nil {
			return nil, errors.Wrapf(err, "decode %s response", req.Command)
		}

		if resp.Command == req.Command {
			if s.config.Trace {
				s.config.Logger.Debugf("%s", resp)
			}
			return resp, nil
		}

		last = resp.Command
		if s.config.Trace {
			s.config.Logger.Debugf("discarding %s while waiting for %s", resp.Command, req.Command)
		}
	}

	return nil, &ResponseMismatchError{Expected: req.Command, Got: last, Reads: responseReads}
}

// setReadTimeout меняет таймаут порта, только если он отличается от текущего
func (s *Session) setReadTimeout(r *run, timeout time.Duration) error {
	if r.timeout == timeout {
		return nil
	}
	if err := s.transport.SetReadTimeout(timeout); err != nil {
		return errors.Wrap(err, "set read timeout")
	}
	r.timeout = timeout
	return nil
}

// flushInput отбрасывает принятые байты и сбрасывает декодер SLIP
func (s *Session) flushInput(r *run) error {
	if err := s.transport.Flush(); err != nil {
		return errors.Wrap(err, "flush port")
	}
	r.dec.Reset()
	return nil
}
