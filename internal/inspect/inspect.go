// Package inspect describes file values held by controls.
//
// Inspector is the default form.FileInspector. It recognizes three value
// shapes: a Path naming a local file, an open *os.File, and an in-memory
// Upload. MIME types are sniffed from content, never taken from the name.
package inspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/roach88/formtree/internal/form"
)

// ErrNotImage is returned by DescribeImageFile for files that do not decode
// as an image.
var ErrNotImage = errors.New("inspect: file is not a decodable image")

// Path is a control value naming a local file.
type Path string

// Upload is an in-memory file, as received from a multipart form.
type Upload struct {
	Name string
	Data []byte
}

// Inspector describes Path, *os.File and Upload values.
type Inspector struct{}

// New returns an Inspector.
func New() Inspector {
	return Inspector{}
}

var _ form.FileInspector = Inspector{}

// DescribeFile returns name, size and sniffed MIME type.
func (Inspector) DescribeFile(v any) (form.FileInfo, error) {
	switch f := v.(type) {
	case Path:
		st, err := os.Stat(string(f))
		if err != nil {
			return form.FileInfo{}, fmt.Errorf("stat %s: %w", f, err)
		}
		if st.IsDir() {
			return form.FileInfo{}, fmt.Errorf("%s: %w", f, form.ErrNotFile)
		}
		mt, err := mimetype.DetectFile(string(f))
		if err != nil {
			return form.FileInfo{}, fmt.Errorf("detect %s: %w", f, err)
		}
		return form.FileInfo{Name: filepath.Base(string(f)), Size: st.Size(), Type: mt.String()}, nil
	case *os.File:
		if f == nil {
			return form.FileInfo{}, form.ErrNotFile
		}
		st, err := f.Stat()
		if err != nil {
			return form.FileInfo{}, fmt.Errorf("stat %s: %w", f.Name(), err)
		}
		var mt *mimetype.MIME
		err = rewind(f, func(r io.Reader) error {
			var derr error
			mt, derr = mimetype.DetectReader(r)
			return derr
		})
		if err != nil {
			return form.FileInfo{}, fmt.Errorf("detect %s: %w", f.Name(), err)
		}
		return form.FileInfo{Name: filepath.Base(f.Name()), Size: st.Size(), Type: mt.String()}, nil
	case Upload:
		return form.FileInfo{Name: f.Name, Size: int64(len(f.Data)), Type: mimetype.Detect(f.Data).String()}, nil
	case *Upload:
		if f == nil {
			return form.FileInfo{}, form.ErrNotFile
		}
		return Inspector{}.DescribeFile(*f)
	}
	return form.FileInfo{}, form.ErrNotFile
}

// DescribeImageFile adds the decoded image dimensions. Only the image
// header is read.
func (i Inspector) DescribeImageFile(ctx context.Context, v any) (form.ImageFileInfo, error) {
	if err := ctx.Err(); err != nil {
		return form.ImageFileInfo{}, err
	}
	info, err := i.DescribeFile(v)
	if err != nil {
		return form.ImageFileInfo{}, err
	}
	var cfg image.Config
	decode := func(r io.Reader) error {
		var derr error
		cfg, _, derr = image.DecodeConfig(r)
		if derr != nil {
			return fmt.Errorf("%s: %w", info.Name, ErrNotImage)
		}
		return nil
	}
	switch f := v.(type) {
	case Path:
		fh, oerr := os.Open(string(f))
		if oerr != nil {
			return form.ImageFileInfo{}, fmt.Errorf("open %s: %w", f, oerr)
		}
		defer fh.Close()
		err = decode(fh)
	case *os.File:
		err = rewind(f, decode)
	case Upload:
		err = decode(bytes.NewReader(f.Data))
	case *Upload:
		err = decode(bytes.NewReader(f.Data))
	}
	if err != nil {
		return form.ImageFileInfo{}, err
	}
	out := form.ImageFileInfo{FileInfo: info, Width: cfg.Width, Height: cfg.Height}
	if cfg.Height > 0 {
		out.Ratio = float64(cfg.Width) / float64(cfg.Height)
	}
	return out, nil
}

// rewind reads f from the start and restores its offset afterwards.
func rewind(f *os.File, fn func(io.Reader) error) error {
	off, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	ferr := fn(f)
	if _, err := f.Seek(off, io.SeekStart); err != nil && ferr == nil {
		return err
	}
	return ferr
}
