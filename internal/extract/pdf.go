package extract

import (
	"bytes"
	"fmt"
	"strings"

	"rsc.io/pdf"
)

const maxPDFRunes = 220_000

func pdfText(data []byte) (text string, err error) {
	// rsc.io/pdf panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	runes := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		for _, item := range page.Content().Text {
			chunk := strings.TrimSpace(item.S)
			if chunk == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			builder.WriteString(chunk)
			runes += len([]rune(chunk)) + 1
			if runes >= maxPDFRunes {
				return normalizeSpace(builder.String()), nil
			}
		}
	}
	return normalizeSpace(builder.String()), nil
}
