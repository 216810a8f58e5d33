package dtp

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// parseCode разбирает код результата из первого поля ответа.
// Пустой или нечисловой код считается ошибкой CodeMalformedResponse.
func parseCode(r []string) int {
	if len(r) == 0 {
		return CodeMalformedResponse
	}
	n, err := strconv.Atoi(strings.TrimSpace(r[0]))
	if err != nil || n < 0 {
		return CodeMalformedResponse
	}
	return n
}

func newResponse(r []string) Response {
	return Response{Code: parseCode(r), Raw: r}
}

// intField возвращает числовое поле или -1, если его нет или оно не число
func intField(r []string, idx int) int {
	return int(int64Field(r, idx))
}

func int64Field(r []string, idx int) int64 {
	if idx >= len(r) {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(r[idx]), 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func stringField(r []string, idx int) string {
	if idx >= len(r) {
		return ""
	}
	return r[idx]
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("02012006")
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func itoa(n int) string     { return strconv.Itoa(n) }
func i64toa(n int64) string { return strconv.FormatInt(n, 10) }

// Scale переводит значение в целое с заданным числом знаков после запятой:
// Scale(300, 2) = 30000, Scale(1.5, 3) = 1500. Округление от нуля.
func Scale(v float64, decimals int) int64 {
	return int64(math.Round(v * math.Pow10(decimals)))
}
