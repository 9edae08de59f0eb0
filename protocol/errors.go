package protocol

import (
	"errors"
	"fmt"
)

// FlashError код ошибки, который загрузчик возвращает в байтах статуса
type FlashError byte

const (
	ErrInvalidMessage  FlashError = 0x05
	ErrFailedToAct     FlashError = 0x06
	ErrInvalidCRC      FlashError = 0x07
	ErrFlashWrite      FlashError = 0x08
	ErrFlashRead       FlashError = 0x09
	ErrFlashReadLength FlashError = 0x0a
	ErrDeflate         FlashError = 0x0b
)

var flashErrorMeanings = map[FlashError]string{
	ErrInvalidMessage:  "received message is invalid (parameters or length field is invalid)",
	ErrFailedToAct:     "failed to act on received message",
	ErrInvalidCRC:      "invalid CRC in message",
	ErrFlashWrite:      "flash write error: the block read back from flash does not match the 8-bit CRC",
	ErrFlashRead:       "flash read error: SPI read failed",
	ErrFlashReadLength: "flash read length error: SPI read request length is too long",
	ErrDeflate:         "deflate error (compressed uploads only)",
}

// Meaning возвращает описание кода ошибки или "unknown"
func (e FlashError) Meaning() string {
	if m, ok := flashErrorMeanings[e]; ok {
		return m
	}
	return "unknown"
}

// Known сообщает, есть ли код в таблице ошибок
func (e FlashError) Known() bool {
	_, ok := flashErrorMeanings[e]
	return ok
}

// ProtocolError повреждённый кадр или заголовок
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// UnknownCommandError код команды, которого нет в таблице
type UnknownCommandError struct {
	Value byte
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("protocol error: unknown command 0x%02x", e.Value)
}

// EncodeError полезная нагрузка не помещается в пакет
type EncodeError struct {
	Size int
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds %d bytes", e.Size, MaxPayload)
}

// DeviceError ошибка, о которой сообщило само устройство
type DeviceError struct {
	Command Command
	Code    FlashError
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("flashing error on %s: %s (0x%02x)", e.Command, e.Code.Meaning(), byte(e.Code))
}

// IsProtocolError сообщает, вызвана ли ошибка повреждённым кадром
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	var ue *UnknownCommandError
	return errors.As(err, &pe) || errors.As(err, &ue)
}
