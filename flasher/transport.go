package flasher

import "time"

// Transport последовательный порт, через который идет обмен с загрузчиком.
// Реализация для go.bug.st/serial находится в пакете serialport.
type Transport interface {
	// Open открывает порт перед прошивкой
	Open(port string) error

	// Close закрывает порт после прошивки
	Close() error

	// SetDTR и SetRTS управляют линиями, которыми чип переводится в режим загрузки
	SetDTR(level bool) error
	SetRTS(level bool) error

	Write(p []byte) (int, error)

	// Read блокируется не дольше текущего таймаута и может вернуть меньше
	// байтов, чем запрошено. По таймауту возвращает 0, nil.
	Read(p []byte) (int, error)

	SetBaudRate(baud int) error
	SetReadTimeout(timeout time.Duration) error

	// Buffered сколько байтов уже принято; 0 если порт не умеет это сообщать
	Buffered() int

	// Flush отбрасывает принятые и неотправленные байты
	Flush() error
}
