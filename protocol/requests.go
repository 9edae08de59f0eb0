package protocol

import "encoding/binary"

// NewRequest создает запрос; для команд с данными считает контрольную сумму
// по блоку данных после 16-байтового заголовка
func NewRequest(cmd Command, payload []byte) *Request {
	r := &Request{Command: cmd, Payload: payload}
	if cmd.HasData() && len(payload) >= DataHeaderLen {
		r.Checksum = Checksum(payload[DataHeaderLen:])
	}
	return r
}

func words(values ...uint32) []byte {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], v)
	}
	return data
}

// dataPayload заголовок блока данных: размер, номер, два зарезервированных слова
func dataPayload(seq uint32, block []byte) []byte {
	payload := make([]byte, DataHeaderLen+len(block))
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(block)))
	binary.LittleEndian.PutUint32(payload[4:8], seq)
	copy(payload[DataHeaderLen:], block)
	return payload
}

// Sync команда: 0x07 0x07 0x12 0x20 + 32 байта 0x55
func Sync() *Request {
	data := make([]byte, 36)
	data[0] = 0x07
	data[1] = 0x07
	data[2] = 0x12
	data[3] = 0x20
	for i := 4; i < 36; i++ {
		data[i] = 0x55
	}
	return NewRequest(SyncCmd, data)
}

// ReadReg читает 32-битный регистр
func ReadReg(addr uint32) *Request {
	return NewRequest(ReadRegCmd, words(addr))
}

// MemBegin начинает загрузку в RAM
func MemBegin(size, blocks, blockSize, offset uint32) *Request {
	return NewRequest(MemBeginCmd, words(size, blocks, blockSize, offset))
}

// MemData отправляет блок в RAM
func MemData(seq uint32, block []byte) *Request {
	return NewRequest(MemDataCmd, dataPayload(seq, block))
}

// MemEnd завершает загрузку в RAM и передает управление по адресу entry.
// noEntry = true означает, что точки входа нет и переход не нужен.
func MemEnd(noEntry bool, entry uint32) *Request {
	flag := uint32(0)
	if noEntry {
		flag = 1
	}
	return NewRequest(MemEndCmd, words(flag, entry))
}

// FlashBegin начинает процесс прошивки
func FlashBegin(eraseSize, blocks, blockSize, offset uint32) *Request {
	return NewRequest(FlashBeginCmd, words(eraseSize, blocks, blockSize, offset))
}

// FlashData отправляет блок данных для прошивки
func FlashData(seq uint32, block []byte) *Request {
	return NewRequest(FlashDataCmd, dataPayload(seq, block))
}

// FlashEnd завершает прошивку; 0 означает перезагрузку
func FlashEnd(reboot bool) *Request {
	action := uint32(1)
	if reboot {
		action = 0
	}
	return NewRequest(FlashEndCmd, words(action))
}

// ChangeBaudrate изменяет скорость передачи
func ChangeBaudrate(baud, oldBaud uint32) *Request {
	return NewRequest(ChangeBaudrateCmd, words(baud, oldBaud))
}

// FlashMD5 запрашивает MD5 области flash
func FlashMD5(addr, size uint32) *Request {
	return NewRequest(FlashMD5Cmd, words(addr, size, 0, 0))
}
