package sprite

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// BaseName is the file prefix of the sheets written next to a style.
const BaseName = "sprites"

// Write saves both sheets and both indexes into folder. Each file is fully
// written and closed before the next one is opened.
func (a *Atlas) Write(folder string) error {
	prefix := filepath.Join(folder, BaseName)
	if err := savePNG(prefix+".png", a.Image); err != nil {
		return err
	}
	if err := savePNG(prefix+"@2x.png", a.Image2x); err != nil {
		return err
	}
	if err := saveJSON(prefix+".json", a.Index); err != nil {
		return err
	}
	return saveJSON(prefix+"@2x.json", a.Index2x)
}

func savePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func saveJSON(path string, idx Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Sheet is a 1x sprite sheet loaded from disk for reverse conversion.
type Sheet struct {
	Image image.Image
	Index Index
}

// Open reads prefix.json and prefix.png, where prefix is the style's sprite
// reference resolved against the style's directory.
func Open(prefix string) (*Sheet, error) {
	data, err := os.ReadFile(prefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("reading sprite index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing sprite index: %w", err)
	}

	f, err := os.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("reading sprite sheet: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding sprite sheet: %w", err)
	}
	return &Sheet{Image: img, Index: idx}, nil
}

// Icon is an icon materialised from a sheet as files on disk.
type Icon struct {
	Name    string
	PNGPath string
	SVGPath string
	Width   int
	Height  int
}

// Materialize extracts name from the sheet and writes it into dir as
// <name>.png plus a <name>.svg that embeds the PNG, so marker symbols that
// only accept SVG paths can reference it.
// The name must be a bare file name.
func (s *Sheet) Materialize(name, dir string) (Icon, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return Icon{}, fmt.Errorf("invalid sprite name %q", name)
	}
	img, err := Extract(s.Image, s.Index, name)
	if err != nil {
		return Icon{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Icon{}, fmt.Errorf("encoding sprite %q: %w", name, err)
	}
	icon := Icon{
		Name:    name,
		PNGPath: filepath.Join(dir, name+".png"),
		SVGPath: filepath.Join(dir, name+".svg"),
		Width:   img.Bounds().Dx(),
		Height:  img.Bounds().Dy(),
	}
	if err := os.WriteFile(icon.PNGPath, buf.Bytes(), 0644); err != nil {
		return Icon{}, err
	}

	svg := fmt.Sprintf(svgTemplate, icon.Width, icon.Height, icon.Width, icon.Height,
		icon.Width, icon.Height, base64.StdEncoding.EncodeToString(buf.Bytes()))
	if err := os.WriteFile(icon.SVGPath, []byte(svg), 0644); err != nil {
		return Icon{}, err
	}
	return icon, nil
}

const svgTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<svg version="1.1" xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink"
  width="%dpx" height="%dpx" viewBox="0 0 %d %d">
  <image width="%d" height="%d" xlink:href="data:image/png;base64,%s"/>
</svg>
`
