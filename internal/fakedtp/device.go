package fakedtp

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"dtpprinter/pkg/dtp"
)

// Коды ошибок эмулятора
const (
	CodeUnknownCommand = 1
	CodeNoDocument     = 258
	CodeBadParameter   = 259
)

// Device эмулирует состояние фискального принтера: открытый документ,
// счётчики документов и Z-отчётов, названия форм оплаты.
type Device struct {
	mu sync.Mutex

	fiscalOpen    bool
	nonFiscalOpen bool
	items         int
	total         int64
	paid          int64

	lastInvoice   int
	lastNonFiscal int
	lastZ         int
	fmRecords     int
	fmRead        int

	payMethods map[int]string
}

// NewDevice создаёт эмулятор с заводскими формами оплаты
func NewDevice() *Device {
	return &Device{
		payMethods: map[int]string{
			1:  "EFECTIVO",
			2:  "TARJETA DEBITO",
			3:  "TARJETA CREDITO",
			5:  "PAGO MOVIL",
			11: "TARJETA INT",
			12: "EFECTIVO USD",
		},
	}
}

// Handle обрабатывает кадр запроса; подходит как Handler для Server
func (d *Device) Handle(fields []string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(fields) == 0 {
		return reply(CodeUnknownCommand)
	}
	switch fields[0] {
	case "C0":
		state := dtp.StateIdle
		switch {
		case d.fiscalOpen:
			state = dtp.StateDocOpen
		case d.nonFiscalOpen:
			state = 1
		}
		return []string{"0", "0", strconv.Itoa(state), "0", "0", "65535", ""}
	case "C2":
		return []string{"0", "Z1A0000001", "DTP80I0001", "KIT0001", "MF0001", "MA0001", ""}
	case "C3":
		return []string{"0", "CAFE DEMO C.A.", "AV. PRINCIPAL, CARACAS", "J-12345678-9",
			"CAFE DEMO", "DISTRIBUIDORA C.A.", "J-98765432-1", "1600", "800", "3100", "300", ""}
	case "C9":
		id := atoi(field(fields, 1))
		name, ok := d.payMethods[id]
		if !ok {
			return reply(CodeBadParameter)
		}
		return []string{"0", name, ""}
	case "C10":
		id := atoi(field(fields, 1))
		if id < 1 || id > 24 {
			return reply(CodeBadParameter)
		}
		d.payMethods[id] = field(fields, 2)
		return reply(0)

	case "F0":
		if d.fiscalOpen || d.nonFiscalOpen {
			return reply(dtp.CodeDocumentAlreadyOpen)
		}
		d.fiscalOpen = true
		d.items, d.total, d.paid = 0, 0, 0
		return []string{"0", strconv.Itoa(d.lastInvoice + 1), ""}
	case "F1":
		if !d.fiscalOpen {
			return reply(CodeNoDocument)
		}
		qty := atoi64(field(fields, 4))
		price := atoi64(field(fields, 6))
		decQty := atoi(field(fields, 9))
		line := int64(math.Round(float64(price) * float64(qty) / math.Pow10(decQty)))
		d.items++
		d.total += line
		return []string{"0", strconv.Itoa(d.items), strconv.FormatInt(line, 10), "1", ""}
	case "F2", "F7":
		if !d.fiscalOpen {
			return reply(CodeNoDocument)
		}
		if fields[0] == "F7" {
			return []string{"0", "1", ""}
		}
		return []string{"0", strconv.FormatInt(d.total, 10), ""}
	case "F4", "F11":
		if !d.fiscalOpen {
			return reply(CodeNoDocument)
		}
		amountIdx := 4
		if fields[0] == "F11" {
			amountIdx = 3
		}
		d.paid += atoi64(field(fields, amountIdx))
		due := d.total - d.paid
		change := int64(0)
		if due < 0 {
			change, due = -due, 0
		}
		return []string{"0", strconv.FormatInt(due, 10), strconv.FormatInt(change, 10), "1", ""}
	case "F5":
		if !d.fiscalOpen {
			return reply(CodeNoDocument)
		}
		d.fiscalOpen = false
		d.lastInvoice++
		return []string{"0", strconv.Itoa(d.lastInvoice), strconv.FormatInt(d.total, 10), ""}
	case "F6":
		if !d.fiscalOpen {
			return reply(CodeNoDocument)
		}
		d.fiscalOpen = false
		return reply(0)

	case "N0":
		if d.fiscalOpen || d.nonFiscalOpen {
			return reply(dtp.CodeDocumentAlreadyOpen)
		}
		d.nonFiscalOpen = true
		return reply(0)
	case "N1":
		if !d.nonFiscalOpen {
			return reply(CodeNoDocument)
		}
		return []string{"0", "1", ""}
	case "N3":
		if !d.nonFiscalOpen {
			return reply(CodeNoDocument)
		}
		d.nonFiscalOpen = false
		d.lastNonFiscal++
		return []string{"0", strconv.Itoa(d.lastNonFiscal), ""}

	case "R0":
		if d.fiscalOpen || d.nonFiscalOpen {
			return reply(dtp.CodeDocumentAlreadyOpen)
		}
		if field(fields, 1) == "1" {
			d.lastZ++
			return []string{"0", strconv.Itoa(d.lastZ), ""}
		}
		return []string{"0", strconv.Itoa(d.lastZ + 1), ""}
	case "R1":
		r := make([]string, 85)
		for i := range r {
			r[i] = "0"
		}
		r[1] = strconv.Itoa(d.lastZ)
		r[2], r[3] = "01012026", "0800"
		r[4], r[5] = "01012026", "0800"
		r[67] = strconv.Itoa(d.lastInvoice)
		r[68], r[69] = "01012026", "1200"
		r[84] = ""
		return r
	case "R2":
		d.fmRecords, d.fmRead = d.lastZ, 0
		return []string{"0", strconv.Itoa(d.fmRecords), ""}
	case "R3":
		if d.fmRead >= d.fmRecords {
			return reply(CodeBadParameter)
		}
		d.fmRead++
		return []string{"0", strconv.Itoa(d.fmRead), fmt.Sprintf("Z%04d", d.fmRead), ""}
	case "R4":
		d.fmRecords, d.fmRead = 0, 0
		return reply(0)
	case "R8":
		return reply(0)
	case "R9":
		return []string{"0", strconv.Itoa(d.lastInvoice), "0", "0", "0",
			strconv.Itoa(d.lastNonFiscal), strconv.Itoa(d.lastZ), ""}
	}
	return reply(CodeUnknownCommand)
}

func reply(code int) []string {
	return []string{strconv.Itoa(code), ""}
}

func field(r []string, i int) string {
	if i < len(r) {
		return r[i]
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
