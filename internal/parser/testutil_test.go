package parser

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
)

// writeTextPDF 生成一个每页一段文本的多页PDF，返回文件路径
func writeTextPDF(t *testing.T, pages ...string) string {
	t.Helper()

	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetFont("Helvetica", "", 12)
	for _, content := range pages {
		doc.AddPage()
		doc.MultiCell(0, 6, content, "", "L", false)
	}

	path := filepath.Join(t.TempDir(), "sample.pdf")
	require.NoError(t, doc.OutputFileAndClose(path), "生成测试PDF不应失败")
	return path
}

// grayPNG 生成指定尺寸的灰度PNG（无alpha通道，避免嵌入时产生SMask）
func grayPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// writeImagePDF 生成totalPages页的PDF，imageSizes指定哪些页嵌入多大的灰度图
func writeImagePDF(t *testing.T, totalPages int, imageSizes map[int][2]int) string {
	t.Helper()

	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetFont("Helvetica", "", 12)
	for page := 1; page <= totalPages; page++ {
		doc.AddPage()
		doc.MultiCell(0, 6, "placeholder text", "", "L", false)
		if size, ok := imageSizes[page]; ok {
			name := filepath.Join("img", "page", string(rune('a'+page)))
			doc.RegisterImageOptionsReader(name,
				fpdf.ImageOptions{ImageType: "PNG"},
				bytes.NewReader(grayPNG(t, size[0], size[1])))
			doc.ImageOptions(name, 20, 40, 50, 0, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
	}

	path := filepath.Join(t.TempDir(), "with_images.pdf")
	require.NoError(t, doc.OutputFileAndClose(path), "生成带图片的测试PDF不应失败")
	return path
}

// decodeWidth 解码图片字节并返回像素宽度
func decodeWidth(t *testing.T, data []byte) int {
	t.Helper()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err, "提取出的图片应当可以解码")
	return cfg.Width
}
