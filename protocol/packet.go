package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Request пакет запроса к загрузчику
type Request struct {
	Command  Command
	Payload  []byte
	Checksum uint32
}

// Encode сериализует запрос (до SLIP кодирования)
func (r *Request) Encode() ([]byte, error) {
	return EncodeRequest(r.Command, r.Payload, r.Checksum)
}

func (r *Request) String() string {
	return fmt.Sprintf("Request(command=%s, size=%d, checksum=0x%02x)", r.Command, len(r.Payload), r.Checksum)
}

// EncodeRequest собирает пакет: [direction][command][size:u16][checksum:u32][payload]
func EncodeRequest(cmd Command, payload []byte, checksum uint32) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, &EncodeError{Size: len(payload)}
	}

	packet := make([]byte, HeaderSize+len(payload))
	packet[0] = byte(DirRequest)
	packet[1] = byte(cmd)
	binary.LittleEndian.PutUint16(packet[2:4], uint16(len(payload)))
	binary.LittleEndian.PutUint32(packet[4:8], checksum)
	copy(packet[8:], payload)

	return packet, nil
}

// Response ответ загрузчика
type Response struct {
	Direction Direction
	Command   Command
	Value     uint32
	Data      []byte
	Status    byte
	Error     byte
}

func (r *Response) String() string {
	return fmt.Sprintf("Response(command=%s, value=0x%08x, data=%s)", r.Command, r.Value, hex.EncodeToString(r.Data))
}

// DecodeResponse разбирает ответ (после SLIP декодирования).
// Поле размера в заголовке ненадёжно, длина берётся из самого кадра.
func DecodeResponse(data []byte) (*Response, error) {
	if len(data) < HeaderSize {
		return nil, &ProtocolError{Reason: fmt.Sprintf("response too short: %d bytes", len(data))}
	}

	if Direction(data[0]) != DirResponse {
		return nil, &ProtocolError{Reason: fmt.Sprintf("invalid direction byte: 0x%02x", data[0])}
	}

	cmd, err := ParseCommand(data[1])
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Direction: DirResponse,
		Command:   cmd,
		Value:     binary.LittleEndian.Uint32(data[4:8]),
	}

	if len(data)-HeaderSize > StatusSize {
		resp.Data = append([]byte(nil), data[HeaderSize:len(data)-StatusSize]...)
	}

	// В 8-байтовом ответе байты статуса совпадают с концом значения
	status := data[len(data)-StatusSize:]
	resp.Status = status[0]
	resp.Error = status[1]

	if resp.Status == 1 {
		return nil, &DeviceError{Command: cmd, Code: FlashError(resp.Error)}
	}

	return resp, nil
}
