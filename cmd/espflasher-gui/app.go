package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/sxwebdev/espflasher/flasher"
	"github.com/sxwebdev/espflasher/serialport"
	"github.com/sxwebdev/espflasher/stub"
)

// DefaultAppOffset адрес приложения в стандартной разметке ESP-IDF
const DefaultAppOffset = 0x10000

// App struct
type App struct {
	ctx      context.Context
	flashing atomic.Bool

	// StubDir каталог с stub_flasher_<chip>.json; пустой означает работу через ROM
	StubDir string

	emit      func(event string, data interface{})
	newPort   func() flasher.Transport
	newLogger func() flasher.Logger
}

// NewApp creates a new App application struct
func NewApp() *App {
	a := &App{
		StubDir: os.Getenv("ESPFLASHER_STUBS"),
		newPort: func() flasher.Transport { return serialport.New() },
	}
	a.emit = func(event string, data interface{}) {
		runtime.EventsEmit(a.ctx, event, data)
	}
	a.newLogger = func() flasher.Logger { return &eventLogger{emit: a.emitLog} }
	return a
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// ChooseFile открывает диалог выбора файла
func (a *App) ChooseFile() (string, error) {
	return runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Выберите файл прошивки",
		Filters: []runtime.FileFilter{
			{
				DisplayName: "Firmware Files",
				Pattern:     "*.bin",
			},
		},
	})
}

// emitProgress отправляет прогресс в frontend
func (a *App) emitProgress(progress int, message string) {
	a.emit("flash-progress", map[string]interface{}{
		"progress": progress,
		"message":  message,
	})
}

// emitLog отправляет лог сообщение в frontend
func (a *App) emitLog(message string) {
	a.emit("flash-log", message)
}

// Flash прошивает файл по адресу offset ("0x10000"; пустая строка означает
// адрес приложения по умолчанию)
func (a *App) Flash(portName, filePath, offset string) error {
	if !a.flashing.CompareAndSwap(false, true) {
		return flasher.ErrAlreadyFlashing
	}
	defer a.flashing.Store(false)

	addr, err := parseOffset(offset)
	if err != nil {
		return err
	}

	a.emitProgress(0, "Начинаем прошивку...")
	a.emitLog("🔄 Инициализация...")

	data, err := os.ReadFile(filePath)
	if err != nil {
		return errors.Wrap(err, "failed to read file")
	}

	a.emitProgress(10, "Файл загружен")
	a.emitLog(fmt.Sprintf("📄 Загружен файл: %d байт, адрес 0x%x", len(data), addr))

	opts := []flasher.Option{
		flasher.WithLogger(a.newLogger()),
		flasher.WithProgress(a.reportProgress),
	}
	if a.StubDir != "" {
		opts = append(opts, flasher.WithStubSource(stub.Dir(a.StubDir)))
	}

	s := flasher.New(a.newPort(), opts...)
	if err := s.AddBin(data, addr); err != nil {
		return err
	}

	a.emitProgress(20, "Подключение к чипу...")
	a.emitLog(fmt.Sprintf("🔗 Подключение к %s...", portName))

	if err := s.Flash(portName); err != nil {
		a.emitProgress(0, "Ошибка прошивки")
		a.emitLog(fmt.Sprintf("❌ %v", err))
		return errors.Wrap(err, "failed to flash")
	}

	a.emitProgress(100, "Прошивка завершена!")
	a.emitLog("✅ Прошивка успешно завершена!")

	return nil
}

// reportProgress переводит прогресс сессии в проценты полосы в UI:
// stub занимает 20-30%, запись образа 30-100%
func (a *App) reportProgress(p flasher.Progress) {
	switch p.Stage {
	case flasher.StageStub:
		a.emitProgress(20+int(p.Value*10), "Загрузка stub...")
	case flasher.StageFlash:
		a.emitProgress(30+int(p.Value*70), fmt.Sprintf("Запись: %d/%d байт", p.Written, p.Total))
	}
}

func parseOffset(s string) (uint32, error) {
	if s == "" {
		return DefaultAppOffset, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid offset %q", s)
	}
	return uint32(v), nil
}

// eventLogger пересылает сообщения сессии в лог frontend
type eventLogger struct {
	emit func(string)
}

func (l *eventLogger) Debugf(string, ...interface{}) {}

func (l *eventLogger) Infof(format string, args ...interface{}) {
	l.emit("ℹ️ " + fmt.Sprintf(format, args...))
}

func (l *eventLogger) Warningf(format string, args ...interface{}) {
	l.emit("⚠️ " + fmt.Sprintf(format, args...))
}
