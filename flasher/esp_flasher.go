package flasher

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/sxwebdev/espflasher/protocol"
	"github.com/sxwebdev/espflasher/stub"
	"github.com/sxwebdev/espflasher/target"
)

// ESPRAMBlock размер блока MEM_DATA при загрузке stub
const ESPRAMBlock = 0x1800

// stubHello ответ запущенного stub ("OHAI")
var stubHello = []byte{0x4F, 0x48, 0x41, 0x49}

// begin сбрасывает чип в загрузчик, синхронизируется, определяет чип и
// при наличии stub загружает его и повышает скорость
func (s *Session) begin(r *run) error {
	if err := s.transport.SetBaudRate(s.config.ROMBaud); err != nil {
		return errors.Wrap(err, "set rom baudrate")
	}

	if err := s.resetToFlash(); err != nil {
		return errors.Wrap(err, "enter bootloader")
	}

	if err := s.sync(r); err != nil {
		return err
	}

	profile, err := s.detectChip(r)
	if err != nil {
		return err
	}

	profile, err = profile.Init(s.config.Stubs)
	if err != nil {
		return err
	}
	r.target = &profile
	s.config.Logger.Infof("detected %s", profile.Family)

	img := profile.Stub()
	if img == nil {
		return nil
	}

	s.config.Logger.Infof("uploading stub")
	if err := s.loadStub(r, img); err != nil {
		return errors.Wrap(err, "upload stub")
	}

	baud := profile.UploadBaud
	if s.config.UploadBaud > 0 {
		baud = s.config.UploadBaud
	}
	changed, err := s.changeBaud(r, baud)
	if err != nil {
		return errors.Wrapf(err, "change baudrate to %d", baud)
	}
	if changed {
		s.config.Logger.Infof("baudrate changed to %d", baud)
	}

	return nil
}

// sync синхронизируется с загрузчиком
func (s *Session) sync(r *run) error {
	s.config.Logger.Infof("trying to sync")

	var lastErr error
	for attempt := 1; attempt <= syncAttempts; attempt++ {
		if err := s.flushInput(r); err != nil {
			return err
		}

		_, err := s.writeWait(r, protocol.Sync(), syncTimeout)
		if err == nil {
			return nil
		}
		lastErr = err
		s.config.Logger.Debugf("sync attempt %d/%d failed: %v", attempt, syncAttempts, err)

		if attempt < syncAttempts {
			s.sleep(syncBackoff)
		}
	}

	return &SyncTimeoutError{Attempts: syncAttempts, Err: lastErr}
}

// detectChip определяет чип по магическому значению регистра
func (s *Session) detectChip(r *run) (target.Profile, error) {
	resp, err := s.writeWait(r, protocol.ReadReg(target.ChipDetectMagicRegAddr), DefaultTimeout)
	if err != nil {
		return target.Profile{}, errors.Wrap(err, "detect chip")
	}

	profile, ok := s.targets.Lookup(resp.Value)
	if !ok {
		return target.Profile{}, &UnsupportedChipError{Magic: resp.Value}
	}
	return profile, nil
}

// loadStub загружает сегменты stub в RAM и запускает его
func (s *Session) loadStub(r *run, img *stub.Image) error {
	segments := []struct {
		data []byte
		addr uint32
	}{
		{img.Text, img.TextStart},
		{img.Data, img.DataStart},
	}

	for _, seg := range segments {
		if err := s.memWrite(r, seg.data, seg.addr); err != nil {
			return err
		}
	}

	if _, err := s.writeWait(r, protocol.MemEnd(img.Entry == 0, img.Entry), DefaultTimeout); err != nil {
		return err
	}

	s.config.Logger.Debugf("waiting for stub hello")
	if err := s.setReadTimeout(r, DefaultTimeout); err != nil {
		return err
	}
	hello, err := r.dec.Next()
	if err != nil {
		return errors.Wrap(err, "read stub hello")
	}
	if !bytes.Equal(hello, stubHello) {
		s.config.Logger.Warningf("failed to start stub, unexpected response: %s", hex.EncodeToString(hello))
	}
	s.config.Logger.Infof("stub running")

	return nil
}

// memWrite передает один сегмент в RAM блоками по ESPRAMBlock
func (s *Session) memWrite(r *run, data []byte, addr uint32) error {
	size := uint32(len(data))
	blocks := (size + ESPRAMBlock - 1) / ESPRAMBlock

	if _, err := s.writeWait(r, protocol.MemBegin(size, blocks, ESPRAMBlock, addr), DefaultTimeout); err != nil {
		return err
	}

	for seq := uint32(0); seq < blocks; seq++ {
		start := seq * ESPRAMBlock
		end := start + ESPRAMBlock
		if end > size {
			end = size
		}

		if _, err := s.writeWait(r, protocol.MemData(seq, data[start:end]), DefaultTimeout); err != nil {
			return errors.Wrapf(err, "mem data block %d/%d at 0x%x", seq+1, blocks, addr)
		}

		s.report(Progress{
			Stage:   StageStub,
			Offset:  addr,
			Value:   float64(seq+1) / float64(blocks),
			Written: int(end),
			Total:   int(size),
		})
	}

	return nil
}

// changeBaud меняет скорость загрузчика и порта.
// Возвращает false, если чип не поддерживает смену скорости.
func (s *Session) changeBaud(r *run, baud int) (bool, error) {
	oldBaud := uint32(0)
	if r.target.Stub() == nil {
		oldBaud = uint32(s.config.ROMBaud)
	}

	if !r.target.Supports(protocol.ChangeBaudrateCmd) {
		s.config.Logger.Infof("cannot change the baudrate, command not supported on %s", r.target)
		return false, nil
	}

	if _, err := s.writeWait(r, protocol.ChangeBaudrate(uint32(baud), oldBaud), DefaultTimeout); err != nil {
		return false, err
	}

	if err := s.transport.SetBaudRate(baud); err != nil {
		return false, errors.Wrap(err, "set port baudrate")
	}

	// мусор, который приходит во время смены скорости
	s.sleep(baudSettleTime)
	if err := s.flushInput(r); err != nil {
		return false, err
	}

	return true, nil
}

// flashBegin начинает процесс прошивки, стирая нужную область
func (s *Session) flashBegin(r *run, size, offset uint32) error {
	writeSize := r.target.FlashWriteSize()
	blocks := (size + writeSize - 1) / writeSize
	eraseSize := r.target.EraseSize(offset, size)

	s.config.Logger.Debugf("flash begin: erase %d bytes, write %d bytes in %d blocks of %d at 0x%x",
		eraseSize, size, blocks, writeSize, offset)

	_, err := s.writeWait(r, protocol.FlashBegin(eraseSize, blocks, writeSize, offset),
		timeoutPerMB(eraseMillisPerMB, eraseSize))
	return err
}

// writeBinToFlash записывает образ блоками и проверяет MD5
func (s *Session) writeBinToFlash(r *run, bin []byte, offset uint32) error {
	writeSize := r.target.FlashWriteSize()
	size := uint32(len(bin))

	sum := md5.Sum(bin)
	local := hex.EncodeToString(sum[:])

	if err := s.flashBegin(r, size, offset); err != nil {
		return errors.Wrap(err, "flash begin")
	}

	blocks := (size + writeSize - 1) / writeSize
	s.config.Logger.Infof("writing %d bytes at 0x%x (%d blocks)", size, offset, blocks)

	for seq := uint32(0); seq < blocks; seq++ {
		start := seq * writeSize
		end := start + writeSize
		if end > size {
			end = size
		}

		block := make([]byte, writeSize)
		copy(block, bin[start:end])
		// Заполняем оставшееся место 0xFF
		for i := end - start; i < writeSize; i++ {
			block[i] = 0xFF
		}

		if _, err := s.writeWait(r, protocol.FlashData(seq, block), DefaultTimeout); err != nil {
			return errors.Wrapf(err, "flash data block %d/%d", seq+1, blocks)
		}

		s.report(Progress{
			Stage:   StageFlash,
			Offset:  offset,
			Value:   float64(end) / float64(size),
			Written: int(end),
			Total:   int(size),
		})
	}

	if r.target.Stub() != nil {
		// stub подтверждает блок до записи во flash; ответ на этот запрос
		// придет только после записи последнего блока
		if _, err := s.writeWait(r, protocol.ReadReg(target.ChipDetectMagicRegAddr), DefaultTimeout); err != nil {
			return errors.Wrap(err, "wait for last block")
		}
	}

	if !r.target.Supports(protocol.FlashMD5Cmd) {
		return nil
	}

	resp, err := s.writeWait(r, protocol.FlashMD5(offset, size), timeoutPerMB(md5MillisPerMB, size))
	if err != nil {
		return errors.Wrap(err, "flash md5")
	}

	device, err := deviceDigest(resp.Data)
	if err != nil {
		return err
	}
	if device != local {
		return &VerificationError{Offset: offset, Local: local, Device: device}
	}
	s.config.Logger.Infof("hash of data at 0x%x verified", offset)

	return nil
}

// deviceDigest приводит MD5 из ответа загрузчика к hex строке
func deviceDigest(data []byte) (string, error) {
	switch len(data) {
	case md5.Size:
		return hex.EncodeToString(data), nil
	case 2 * md5.Size:
		// ROM загрузчик присылает MD5 текстом
		digest := strings.ToLower(string(data))
		if _, err := hex.DecodeString(digest); err != nil {
			return "", &protocol.ProtocolError{Reason: fmt.Sprintf("invalid md5 text %q", data)}
		}
		return digest, nil
	case md5.Size / 2:
		return "", ErrLegacyDigest
	default:
		return "", &protocol.ProtocolError{Reason: fmt.Sprintf("invalid md5 format: %d bytes", len(data))}
	}
}

// end завершает прошивку и перезагружает чип в прошивку
func (s *Session) end(r *run) error {
	if r.target.Stub() != nil {
		if err := s.flashBegin(r, 0, 0); err != nil {
			return errors.Wrap(err, "flash begin")
		}
		if _, err := s.writeWait(r, protocol.FlashEnd(true), DefaultTimeout); err != nil {
			return errors.Wrap(err, "flash end")
		}
	}

	return s.resetAfterFlash()
}

// resetToFlash переводит чип в режим загрузчика линиями DTR/RTS
func (s *Session) resetToFlash() error {
	if err := s.setLines(true, true); err != nil {
		return err
	}
	s.sleep(resetHoldTime)

	if err := s.setLines(false, false); err != nil {
		return err
	}
	s.sleep(bootHoldTime)

	return s.transport.SetRTS(true)
}

// resetAfterFlash перезагружает чип после прошивки
func (s *Session) resetAfterFlash() error {
	s.sleep(resetHoldTime)
	if err := s.transport.SetRTS(true); err != nil {
		return errors.Wrap(err, "reset after flash")
	}

	s.sleep(resetHoldTime)
	if err := s.transport.SetRTS(false); err != nil {
		return errors.Wrap(err, "reset after flash")
	}
	return nil
}

func (s *Session) setLines(dtr, rts bool) error {
	if err := s.transport.SetDTR(dtr); err != nil {
		return errors.Wrap(err, "set DTR")
	}
	if err := s.transport.SetRTS(rts); err != nil {
		return errors.Wrap(err, "set RTS")
	}
	return nil
}
