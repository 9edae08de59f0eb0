package flasher

import "time"

// Константы тайминга
const (
	DefaultTimeout = 3 * time.Second

	syncTimeout  = 500 * time.Millisecond
	syncBackoff  = 500 * time.Millisecond
	syncAttempts = 11

	baudSettleTime = 500 * time.Millisecond

	resetHoldTime = 100 * time.Millisecond
	bootHoldTime  = 50 * time.Millisecond

	eraseMillisPerMB = 30000
	md5MillisPerMB   = 8000
)

// timeoutPerMB таймаут операции, длительность которой растет с размером
func timeoutPerMB(millisPerMB int, size uint32) time.Duration {
	timeout := time.Duration(float64(millisPerMB)*float64(size)/1e6) * time.Millisecond
	if timeout < DefaultTimeout {
		return DefaultTimeout
	}
	return timeout
}
