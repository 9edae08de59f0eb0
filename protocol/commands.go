package protocol

import "fmt"

// Command код команды загрузчика ESP
type Command byte

// ESP протокол команд
const (
	FlashBeginCmd     Command = 0x02
	FlashDataCmd      Command = 0x03
	FlashEndCmd       Command = 0x04
	MemBeginCmd       Command = 0x05
	MemEndCmd         Command = 0x06
	MemDataCmd        Command = 0x07
	SyncCmd           Command = 0x08
	ReadRegCmd        Command = 0x0a
	ChangeBaudrateCmd Command = 0x0f // только ESP32 или stub
	FlashMD5Cmd       Command = 0x13 // только ESP32 или stub
)

var commandNames = map[Command]string{
	FlashBeginCmd:     "FLASH_BEGIN",
	FlashDataCmd:      "FLASH_DATA",
	FlashEndCmd:       "FLASH_END",
	MemBeginCmd:       "MEM_BEGIN",
	MemEndCmd:         "MEM_END",
	MemDataCmd:        "MEM_DATA",
	SyncCmd:           "SYNC",
	ReadRegCmd:        "READ_REG",
	ChangeBaudrateCmd: "CHANGE_BAUDRATE",
	FlashMD5Cmd:       "FLASH_MD5",
}

// Commands возвращает все известные команды
func Commands() []Command {
	return []Command{
		FlashBeginCmd, FlashDataCmd, FlashEndCmd,
		MemBeginCmd, MemEndCmd, MemDataCmd,
		SyncCmd, ReadRegCmd, ChangeBaudrateCmd, FlashMD5Cmd,
	}
}

// ParseCommand возвращает команду по её коду
func ParseCommand(b byte) (Command, error) {
	c := Command(b)
	if _, ok := commandNames[c]; !ok {
		return 0, &UnknownCommandError{Value: b}
	}
	return c, nil
}

// Valid сообщает, известна ли команда протоколу
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// HasData сообщает, несёт ли команда блок данных с контрольной суммой
func (c Command) HasData() bool {
	return c == FlashDataCmd || c == MemDataCmd
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", byte(c))
}

// Direction направление пакета
type Direction byte

const (
	DirRequest  Direction = 0x00
	DirResponse Direction = 0x01
)

func (d Direction) String() string {
	switch d {
	case DirRequest:
		return "request"
	case DirResponse:
		return "response"
	default:
		return fmt.Sprintf("direction(0x%02x)", byte(d))
	}
}

// Размеры
const (
	HeaderSize    = 8
	MaxPayload    = 0xFFFF
	StatusSize    = 2
	DataHeaderLen = 16

	// ChecksumSeed начальное значение контрольной суммы
	ChecksumSeed = 0xEF
)

// Checksum вычисляет контрольную сумму данных (XOR с начальным 0xEF)
func Checksum(data []byte) uint32 {
	checksum := uint32(ChecksumSeed)
	for _, b := range data {
		checksum ^= uint32(b)
	}
	return checksum
}
