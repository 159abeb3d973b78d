package asset

import (
	"errors"
	"testing"

	"github.com/snaptext/snaptext/internal/common"
)

func TestUploadedValidate(t *testing.T) {
	tests := []struct {
		name    string
		up      Uploaded
		wantErr error
	}{
		{"jpeg by mime", Uploaded{Bytes: []byte("x"), MimeType: "image/jpeg", FileName: "a.bin"}, nil},
		{"heic by mime", Uploaded{Bytes: []byte("x"), MimeType: "image/heic", FileName: "a"}, nil},
		{"png by extension only", Uploaded{Bytes: []byte("x"), FileName: "shot.PNG"}, nil},
		{"heif by extension only", Uploaded{Bytes: []byte("x"), FileName: "pic.heif"}, nil},
		{"pdf rejected", Uploaded{Bytes: []byte("x"), MimeType: "application/pdf", FileName: "doc.pdf"}, common.ErrUnsupportedFileType},
		{"text rejected", Uploaded{Bytes: []byte("x"), MimeType: "text/plain", FileName: "notes.txt"}, common.ErrUnsupportedFileType},
		{"no mime no known extension", Uploaded{Bytes: []byte("x"), FileName: "mystery.bin"}, common.ErrUnsupportedFileType},
		{"empty bytes", Uploaded{MimeType: "image/png", FileName: "a.png"}, common.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.up.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsHEIC(t *testing.T) {
	for _, up := range []Uploaded{
		{MimeType: "image/heic"},
		{MimeType: "image/heif"},
		{FileName: "IMG_0001.HEIC"},
		{FileName: "scan.heif"},
	} {
		if !up.IsHEIC() {
			t.Errorf("IsHEIC() = false for %+v", up)
		}
	}
	if (Uploaded{MimeType: "image/jpeg", FileName: "a.jpg"}).IsHEIC() {
		t.Error("jpeg flagged as heic")
	}
}
