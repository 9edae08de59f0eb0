package stub

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testDocument = `{
	"entry": 1074521580,
	"text": "AQIDBA==",
	"text_start": 1074520064,
	"data": "wNs=",
	"data_start": 1073605544
}`

func TestLoad(t *testing.T) {
	img, err := Load(strings.NewReader(testDocument))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Image{
		Entry:     1074521580,
		Text:      []byte{1, 2, 3, 4},
		TextStart: 1074520064,
		Data:      []byte{0xC0, 0xDB},
		DataStart: 1073605544,
	}
	if diff := cmp.Diff(want, img); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", "stub"},
		{"bad text", `{"text": "%%%", "data": ""}`},
		{"bad data", `{"text": "", "data": "%%%"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.doc)); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stub_flasher_32.json"), []byte(testDocument), 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := Dir(dir).Stub("32")
	if err != nil {
		t.Fatalf("Stub(32) error = %v", err)
	}
	if img == nil || img.Entry != 1074521580 {
		t.Errorf("Stub(32) = %+v", img)
	}

	img, err = Dir(dir).Stub("8266")
	if err != nil || img != nil {
		t.Errorf("Stub(8266) = %v, %v, want nil, nil", img, err)
	}
}
