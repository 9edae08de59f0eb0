package flasher

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sxwebdev/espflasher/protocol"
)

func TestTimeoutPerMB(t *testing.T) {
	tests := []struct {
		name string
		rate int
		size uint32
		want time.Duration
	}{
		{"empty erase", eraseMillisPerMB, 0, DefaultTimeout},
		{"small erase", eraseMillisPerMB, 0x10000, DefaultTimeout},
		{"erase 4MB", eraseMillisPerMB, 4000000, 120 * time.Second},
		{"md5 1MB", md5MillisPerMB, 1000000, 8 * time.Second},
		{"md5 below default", md5MillisPerMB, 100000, DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := timeoutPerMB(tt.rate, tt.size); got != tt.want {
				t.Errorf("timeoutPerMB(%d, %d) = %v, want %v", tt.rate, tt.size, got, tt.want)
			}
		})
	}
}

func TestDeviceDigest(t *testing.T) {
	raw := []byte{0xd4, 0x1d, 0x8c, 0xd9, 0x8f, 0x00, 0xb2, 0x04, 0xe9, 0x80, 0x09, 0x98, 0xec, 0xf8, 0x42, 0x7e}
	const want = "d41d8cd98f00b204e9800998ecf8427e"

	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr error
	}{
		{name: "binary", data: raw, want: want},
		{name: "text", data: []byte(want), want: want},
		{name: "upper case text", data: []byte(strings.ToUpper(want)), want: want},
		{name: "legacy", data: raw[:8], wantErr: ErrLegacyDigest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deviceDigest(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("deviceDigest() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("deviceDigest() = %q, want %q", got, tt.want)
			}
		})
	}

	for _, data := range [][]byte{nil, raw[:3], []byte(strings.Repeat("zz", 16))} {
		if _, err := deviceDigest(data); !protocol.IsProtocolError(err) {
			t.Errorf("deviceDigest(%x) error = %v, want protocol error", data, err)
		}
	}
}
