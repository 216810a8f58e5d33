package dtp

import (
	"context"
	"fmt"
)

// Printer — типизированные команды принтера DTP поверх Sender.
// Каждая команда возвращает код результата устройства в поле Code;
// ошибка возвращается только при сбое обмена (таймаут, разрыв и т.п.).
type Printer struct {
	sender Sender
}

// NewPrinter создаёт набор команд поверх клиента
func NewPrinter(s Sender) *Printer {
	return &Printer{sender: s}
}

func (p *Printer) send(ctx context.Context, fields ...string) ([]string, error) {
	r, err := p.sender.Send(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fields[0], err)
	}
	return r, nil
}
