// Command espflash прошивает ESP8266/ESP32 через ROM загрузчик.
//
//	espflash -port /dev/ttyUSB0 0x1000=bootloader.bin 0x10000=app.bin
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/schollz/progressbar/v3"

	"github.com/sxwebdev/espflasher/flasher"
	"github.com/sxwebdev/espflasher/serialport"
	"github.com/sxwebdev/espflasher/stub"
)

var (
	portName = flag.String("port", "/dev/ttyUSB0", "Serial port where the chip is connected")
	romBaud  = flag.Int("rom-baud", flasher.ROMBaudrate, "Baudrate of the ROM bootloader")
	baud     = flag.Int("baud", 0, "Upload baudrate after the stub is running (0 uses the chip default)")
	stubDir  = flag.String("stubs", "", "Directory with stub_flasher_<chip>.json files")
	trace    = flag.Bool("trace", false, "Log every packet (needs -v=2)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] offset=file...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	defer glog.Flush()

	images, err := loadImages(flag.Args())
	if err != nil {
		flag.Usage()
		glog.Fatalf("Failed loading images: %v", err)
	}

	opts := []flasher.Option{
		flasher.WithLogger(glogLogger{}),
		flasher.WithTrace(*trace),
		flasher.WithROMBaud(*romBaud),
		flasher.WithUploadBaud(*baud),
	}
	if *stubDir != "" {
		opts = append(opts, flasher.WithStubSource(stub.Dir(*stubDir)))
	}

	s := flasher.New(serialport.New(), opts...)
	for _, img := range images {
		if err := s.AddBin(img.data, img.offset); err != nil {
			glog.Fatalf("Failed adding %s: %v", img.path, err)
		}
		glog.Infof("Queued %s (%d bytes) at 0x%x", img.path, len(img.data), img.offset)
	}

	bars := newProgressBars()
	s.AddProgressListener(bars.update)

	if err := s.Flash(*portName); err != nil {
		bars.finish()
		glog.Fatalf("Failed programming device: %v", err)
	}
	bars.finish()

	glog.Info("Device programmed successfully")
}

// progressBars рисует отдельную полосу для каждого образа
type progressBars struct {
	bar    *progressbar.ProgressBar
	offset uint32
}

func newProgressBars() *progressBars {
	return &progressBars{}
}

func (b *progressBars) update(p flasher.Progress) {
	if p.Stage != flasher.StageFlash {
		return
	}

	if b.bar == nil || b.offset != p.Offset {
		b.finish()
		b.offset = p.Offset
		b.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(fmt.Sprintf("Writing 0x%05x", p.Offset)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		)
	}

	_ = b.bar.Set(p.Written)
}

func (b *progressBars) finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
		b.bar = nil
	}
}
