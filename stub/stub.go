// Package stub описывает образ stub загрузчика, который заливается в RAM
// устройства, и читает его из JSON документов формата esptool.
package stub

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Image образ stub загрузчика: точка входа и два сегмента
type Image struct {
	Entry     uint32
	Text      []byte
	TextStart uint32
	Data      []byte
	DataStart uint32
}

// document формат stub_flasher_*.json
type document struct {
	Entry     uint32 `json:"entry"`
	Text      string `json:"text"`
	TextStart uint32 `json:"text_start"`
	Data      string `json:"data"`
	DataStart uint32 `json:"data_start"`
}

// Load читает образ из JSON документа с сегментами в base64
func Load(r io.Reader) (*Image, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode stub document")
	}

	text, err := base64.StdEncoding.DecodeString(doc.Text)
	if err != nil {
		return nil, errors.Wrap(err, "decode stub text segment")
	}
	data, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		return nil, errors.Wrap(err, "decode stub data segment")
	}

	return &Image{
		Entry:     doc.Entry,
		Text:      text,
		TextStart: doc.TextStart,
		Data:      data,
		DataStart: doc.DataStart,
	}, nil
}

// LoadFile читает образ из файла; отсутствующий файл не является ошибкой
func LoadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open stub")
	}
	defer f.Close()

	img, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return img, nil
}

// Source выдает образ stub по имени семейства чипа ("8266", "32", "32c3").
// Возвращает nil, если stub для семейства нет.
type Source interface {
	Stub(name string) (*Image, error)
}

// Dir источник, читающий stub_flasher_<name>.json из каталога
type Dir string

// Stub реализует Source
func (d Dir) Stub(name string) (*Image, error) {
	return LoadFile(filepath.Join(string(d), "stub_flasher_"+name+".json"))
}

// Images источник из заранее загруженных образов
type Images map[string]*Image

// Stub реализует Source
func (m Images) Stub(name string) (*Image, error) {
	return m[name], nil
}
