package dtp

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	stx = 0x02
	etx = 0x03
	fs  = 0x1C
)

// Codec кодирует поля запроса в кадр STX...ETX и извлекает кадры ответа из
// накопленного буфера. Текст полей передаётся в однобайтовой кодировке.
type Codec struct {
	enc encoding.Encoding
}

// NewCodec создаёт кодек для заданной метки кодировки.
// Пустая метка означает ISO-8859-1 (кодировка прошивки DTP).
func NewCodec(label string) (*Codec, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return &Codec{enc: charmap.ISO8859_1}, nil
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCharset, label)
	}
	if _, ok := enc.(*charmap.Charmap); !ok {
		return nil, fmt.Errorf("%w: %q (%s) is not single-byte", ErrUnknownCharset, label, name)
	}
	return &Codec{enc: enc}, nil
}

// Encode собирает кадр из полей. Разделители внутри полей не экранируются:
// содержимое полей не должно содержать STX, ETX и FS.
func (c *Codec) Encode(fields []string) []byte {
	encoder := encoding.ReplaceUnsupported(c.enc.NewEncoder())

	out := make([]byte, 0, 64)
	out = append(out, stx)
	for i, f := range fields {
		if i > 0 {
			out = append(out, fs)
		}
		// битый UTF-8 заменяется на '?', символы вне кодировки — байтом SUB
		b, err := encoder.Bytes([]byte(strings.ToValidUTF8(f, "?")))
		if err != nil {
			b = []byte(f)
		}
		out = append(out, b...)
	}
	return append(out, etx)
}

// Extract ищет первый STX и первый ETX после него. Если кадр полный,
// возвращает его поля и остаток буфера после ETX.
// ok=false означает, что кадр ещё не получен целиком.
func (c *Codec) Extract(buf []byte) (fields []string, rest []byte, ok bool) {
	start := bytes.IndexByte(buf, stx)
	if start < 0 {
		return nil, buf, false
	}
	end := bytes.IndexByte(buf[start+1:], etx)
	if end < 0 {
		return nil, buf, false
	}
	end += start + 1

	body := buf[start+1 : end]
	parts := bytes.Split(body, []byte{fs})
	fields = make([]string, len(parts))
	decoder := c.enc.NewDecoder()
	for i, p := range parts {
		s, err := decoder.Bytes(p)
		if err != nil {
			// однобайтовая кодировка декодирует любой байт
			s = p
		}
		fields[i] = string(s)
	}

	rest = append([]byte(nil), buf[end+1:]...)
	return fields, rest, true
}

// formatFields выводит кадр в читаемом виде для логов
func formatFields(fields []string) string {
	return strings.Join(fields, "|")
}
