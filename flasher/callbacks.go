package flasher

// Stage этап, к которому относится прогресс
type Stage int

const (
	StageStub Stage = iota + 1
	StageFlash
)

func (s Stage) String() string {
	switch s {
	case StageStub:
		return "stub"
	case StageFlash:
		return "flash"
	default:
		return "unknown"
	}
}

// Progress состояние передачи
type Progress struct {
	Stage Stage

	// Offset адрес образа во flash или адрес сегмента stub в RAM
	Offset uint32

	// Value доля переданных байтов от 0 до 1
	Value float64

	Written int
	Total   int
}

// ProgressFunc вызывается синхронно в ходе передачи и должен быстро возвращать управление
type ProgressFunc func(Progress)

// Logger интерфейс логирования, совместимый с большинством логгеров
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{})   {}
func (nopLogger) Infof(string, ...interface{})    {}
func (nopLogger) Warningf(string, ...interface{}) {}
