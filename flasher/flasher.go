// Package flasher прошивает чипы ESP8266/ESP32 через ROM загрузчик:
// синхронизация, определение чипа, загрузка stub, смена скорости,
// запись образов с проверкой MD5 и сброс в прошивку.
package flasher

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/sxwebdev/espflasher/slip"
	"github.com/sxwebdev/espflasher/target"
)

// Session сессия прошивки одного устройства.
// Не предназначена для параллельного использования: для каждого
// устройства нужна своя сессия и свой Transport.
type Session struct {
	transport Transport
	config    Config
	targets   target.Table
	jobs      []job
	flashing  atomic.Bool

	sleep func(time.Duration)
}

type job struct {
	offset uint32
	bin    []byte
}

// run состояние одного вызова Flash
type run struct {
	target  *target.Profile
	timeout time.Duration
	dec     *slip.Decoder
}

// New создает сессию поверх транспорта
func New(t Transport, opts ...Option) *Session {
	if t == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		transport: t,
		config:    cfg,
		targets:   target.Default(),
		sleep:     time.Sleep,
	}
}

// AddTarget добавляет или заменяет профиль чипа для магического значения
func (s *Session) AddTarget(magic uint32, p target.Profile) error {
	if s.flashing.Load() {
		return errors.Wrap(ErrAlreadyFlashing, "cannot add a target while flashing")
	}
	s.targets[magic] = p
	return nil
}

// AddProgressListener добавляет слушателя прогресса
func (s *Session) AddProgressListener(fn ProgressFunc) {
	if fn != nil {
		s.config.progress = append(s.config.progress, fn)
	}
}

// AddBin добавляет образ для записи по адресу offset
func (s *Session) AddBin(bin []byte, offset uint32) error {
	if s.flashing.Load() {
		return errors.Wrap(ErrAlreadyFlashing, "cannot add bin while flashing")
	}
	s.jobs = append(s.jobs, job{offset: offset, bin: bin})
	return nil
}

// Flash открывает порт и прошивает все добавленные образы.
// Блокируется до завершения; порт закрывается при любом исходе.
func (s *Session) Flash(port string) (err error) {
	if !s.flashing.CompareAndSwap(false, true) {
		return ErrAlreadyFlashing
	}
	defer s.flashing.Store(false)

	if len(s.jobs) == 0 {
		return ErrNoJobs
	}

	if err := s.transport.Open(port); err != nil {
		return errors.Wrapf(err, "open port %s", port)
	}
	defer func() {
		if cerr := s.transport.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close port")
		}
	}()

	r := &run{dec: slip.NewDecoder(s.transport)}

	if err := s.begin(r); err != nil {
		return err
	}

	jobs := append([]job(nil), s.jobs...)
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].offset < jobs[j].offset })

	for _, j := range jobs {
		if err := s.writeBinToFlash(r, j.bin, j.offset); err != nil {
			return errors.Wrapf(err, "flash 0x%x", j.offset)
		}
	}

	return s.end(r)
}

func (s *Session) report(p Progress) {
	for _, fn := range s.config.progress {
		fn(p)
	}
}
