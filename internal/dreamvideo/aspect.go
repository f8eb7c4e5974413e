package dreamvideo

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

const (
	AspectWide = "16:9"
	AspectTall = "9:16"

	// Images narrower than this width/height ratio are treated as portrait.
	tallThreshold = 0.7
)

// ResolveAspectRatio returns hint when it is a supported ratio and otherwise
// classifies the image by its dimensions. Unreadable images count as wide.
func ResolveAspectRatio(hint string, img []byte) string {
	switch h := strings.TrimSpace(hint); h {
	case AspectWide, AspectTall:
		return h
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return AspectWide
	}
	if float64(cfg.Width)/float64(cfg.Height) < tallThreshold {
		return AspectTall
	}
	return AspectWide
}
