package flasher

import (
	"github.com/sxwebdev/espflasher/stub"
)

// ROMBaudrate скорость ROM загрузчика после сброса
const ROMBaudrate = 115200

// Config настройки сессии прошивки
type Config struct {
	// Logger получает сообщения о ходе прошивки (необязательно)
	Logger Logger

	// Trace включает вывод каждого пакета в Logger.Debugf
	Trace bool

	// Stubs источник stub загрузчиков; nil означает работу только с ROM
	Stubs stub.Source

	// ROMBaud скорость ROM загрузчика
	ROMBaud int

	// UploadBaud заменяет скорость прошивки из профиля чипа, если больше 0
	UploadBaud int

	progress []ProgressFunc
}

func defaultConfig() Config {
	return Config{
		Logger:  nopLogger{},
		ROMBaud: ROMBaudrate,
	}
}

// Option функциональная настройка Session
type Option func(*Config)

// WithLogger задает логгер
func WithLogger(l Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithTrace включает трассировку пакетов
func WithTrace(trace bool) Option {
	return func(c *Config) {
		c.Trace = trace
	}
}

// WithStubSource задает источник stub загрузчиков.
//
// Пример:
//
//	s := flasher.New(port, flasher.WithStubSource(stub.Dir("./stubs")))
func WithStubSource(src stub.Source) Option {
	return func(c *Config) {
		c.Stubs = src
	}
}

// WithROMBaud задает скорость ROM загрузчика
func WithROMBaud(baud int) Option {
	return func(c *Config) {
		if baud > 0 {
			c.ROMBaud = baud
		}
	}
}

// WithUploadBaud задает скорость прошивки после загрузки stub
func WithUploadBaud(baud int) Option {
	return func(c *Config) {
		if baud > 0 {
			c.UploadBaud = baud
		}
	}
}

// WithProgress добавляет слушателя прогресса
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) {
		if fn != nil {
			c.progress = append(c.progress, fn)
		}
	}
}
