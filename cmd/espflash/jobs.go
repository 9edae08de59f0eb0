package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// image образ и адрес, куда его записать
type image struct {
	offset uint32
	path   string
	data   []byte
}

// parseImageArg разбирает аргумент вида 0x10000=app.bin
func parseImageArg(arg string) (image, error) {
	addr, path, ok := strings.Cut(arg, "=")
	if !ok || addr == "" || path == "" {
		return image{}, errors.Errorf("invalid image %q, expected offset=file", arg)
	}

	offset, err := strconv.ParseUint(addr, 0, 32)
	if err != nil {
		return image{}, errors.Wrapf(err, "invalid offset in %q", arg)
	}

	return image{offset: uint32(offset), path: path}, nil
}

// loadImages разбирает аргументы и читает файлы образов
func loadImages(args []string) ([]image, error) {
	if len(args) == 0 {
		return nil, errors.New("no images given")
	}

	images := make([]image, 0, len(args))
	for _, arg := range args {
		img, err := parseImageArg(arg)
		if err != nil {
			return nil, err
		}

		img.data, err = os.ReadFile(img.path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read file")
		}
		if len(img.data) == 0 {
			return nil, errors.Errorf("image %s is empty", img.path)
		}

		images = append(images, img)
	}
	return images, nil
}
