package flasher

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/sxwebdev/espflasher/protocol"
)

var (
	// ErrAlreadyFlashing сессия уже прошивает устройство
	ErrAlreadyFlashing = errors.New("this flasher is already flashing")

	// ErrNoJobs не добавлено ни одного образа
	ErrNoJobs = errors.New("no binary added to the flasher")

	// ErrLegacyDigest 8-байтовый формат MD5 старых загрузчиков не поддерживается
	ErrLegacyDigest = errors.New("8-byte md5 digest format is not implemented")
)

// UnsupportedOperationError команда не поддерживается выбранным чипом
type UnsupportedOperationError struct {
	Command protocol.Command
	Target  string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported by %s", e.Command, e.Target)
}

// SyncTimeoutError не удалось синхронизироваться с загрузчиком
type SyncTimeoutError struct {
	Attempts int
	Err      error
}

func (e *SyncTimeoutError) Error() string {
	return fmt.Sprintf("could not sync with the device after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SyncTimeoutError) Unwrap() error {
	return e.Err
}

// UnsupportedChipError магическое значение не найдено в таблице чипов
type UnsupportedChipError struct {
	Magic uint32
}

func (e *UnsupportedChipError) Error() string {
	return fmt.Sprintf("unsupported chip, with magic 0x%08x", e.Magic)
}

// ResponseMismatchError ответ на запрос так и не пришел
type ResponseMismatchError struct {
	Expected protocol.Command
	Got      protocol.Command
	Reads    int
}

func (e *ResponseMismatchError) Error() string {
	return fmt.Sprintf("the response does not match the request after %d reads, req = %s res = %s",
		e.Reads, e.Expected, e.Got)
}

// VerificationError MD5 записанной области не совпал с образом
type VerificationError struct {
	Offset uint32
	Local  string
	Device string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("md5 of data at 0x%x does not match data in flash, local = %s, mcu = %s",
		e.Offset, e.Local, e.Device)
}
