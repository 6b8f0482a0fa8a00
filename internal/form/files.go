package form

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ErrNotFile is returned by a FileInspector for values that are not files.
var ErrNotFile = errors.New("form: value is not a file")

// FileInfo describes a file-like value.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// ImageFileInfo describes an image file.
type ImageFileInfo struct {
	FileInfo
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Ratio  float64 `json:"ratio"`
}

// FileInspector describes file values held by controls. The engine never
// decodes files itself.
type FileInspector interface {
	// DescribeFile returns ErrNotFile for values that are not files.
	DescribeFile(file any) (FileInfo, error)
	DescribeImageFile(ctx context.Context, file any) (ImageFileInfo, error)
}

// NopInspector treats every value as a non-file.
type NopInspector struct{}

func (NopInspector) DescribeFile(any) (FileInfo, error) {
	return FileInfo{}, ErrNotFile
}

func (NopInspector) DescribeImageFile(context.Context, any) (ImageFileInfo, error) {
	return ImageFileInfo{}, ErrNotFile
}

// Files returns the members of the control value the inspector recognizes
// as files.
func (c *control) Files() []any {
	files, _ := c.describeFiles()
	return files
}

// FileInfos describes the files held by the control.
func (c *control) FileInfos() []FileInfo {
	_, infos := c.describeFiles()
	return infos
}

func (c *control) describeFiles() ([]any, []FileInfo) {
	var files []any
	var infos []FileInfo
	for _, item := range valueItems(c.self.Value()) {
		info, err := c.reg.inspector.DescribeFile(item)
		if err != nil {
			continue
		}
		files = append(files, item)
		infos = append(infos, info)
	}
	return files, infos
}

// ImageFileInfos describes the image files held by the control. Inspection
// of multiple files runs concurrently.
func (c *control) ImageFileInfos(ctx context.Context) ([]ImageFileInfo, error) {
	files := c.Files()
	out := make([]ImageFileInfo, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			info, err := c.reg.inspector.DescribeImageFile(gctx, f)
			if err != nil {
				return err
			}
			out[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func valueItems(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := ToSlice(v); ok {
		return s
	}
	return []any{v}
}
