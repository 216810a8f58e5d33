package dtp

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ExecuteResult — итог последовательности команд.
// DocumentNumber и TotalAmount заполняются только при успешном F5 (Closed=true).
type ExecuteResult struct {
	Closed         bool
	DocumentNumber int
	TotalAmount    int64
}

// Execute выполняет команды строго по порядку и останавливается на первом
// ненулевом коде результата (*DeviceError) или сбое обмена.
// Откат не выполняется: состояние документа нужно запросить через C0
// и при необходимости отменить его (F6).
// Логгер берётся из контекста (zerolog.Ctx).
func Execute(ctx context.Context, p *Printer, commands []Command) (*ExecuteResult, error) {
	if len(commands) == 0 {
		return nil, ErrNoCommands
	}
	log := zerolog.Ctx(ctx)
	res := &ExecuteResult{}

	for i, cmd := range commands {
		name := mnemonicOf(cmd)
		code, err := p.execute(ctx, cmd, res)
		if err != nil {
			log.Error().Err(err).Int("index", i).Str("cmd", name).Msg("execute aborted")
			return res, fmt.Errorf("command %d (%s): %w", i+1, name, err)
		}
		if code != 0 {
			log.Warn().Int("index", i).Str("cmd", name).Int("code", code).Msg("device rejected command")
			return res, &DeviceError{Command: name, Code: code, Index: i}
		}
		log.Debug().Int("index", i).Str("cmd", name).Msg("command ok")
	}

	if res.Closed {
		log.Info().Int("document", res.DocumentNumber).Int64("total", res.TotalAmount).Msg("fiscal document closed")
	}
	return res, nil
}

func (p *Printer) execute(ctx context.Context, cmd Command, res *ExecuteResult) (int, error) {
	switch c := cmd.(type) {
	case OpenFiscal:
		r, err := p.OpenFiscalDoc(ctx, c.Args)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	case AddItem:
		r, err := p.AddFiscalItem(ctx, c.Item)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	case Subtotal:
		r, err := p.SubtotalFiscalDoc(ctx, c.Mode, c.ForeignAmount)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	case Pay:
		r, err := p.PayFiscalDoc(ctx, c.Payment)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	case PayForeign:
		r, err := p.PayFiscalDocForeignCurrency(ctx, c.Payment)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	case Comment:
		r, err := p.AddFiscalComment(ctx, c.Line)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	case CloseFiscal:
		r, err := p.CloseFiscalDoc(ctx, c.AdditionalLine)
		if err != nil {
			return 0, err
		}
		if r.OK() {
			res.Closed = true
			res.DocumentNumber = r.DocumentNumber
			res.TotalAmount = r.TotalAmount
		}
		return r.Code, nil
	case CancelFiscal:
		r, err := p.CancelFiscalDoc(ctx)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	case OpenNonFiscal:
		r, err := p.OpenNonFiscalDoc(ctx)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	case NonFiscalLine:
		r, err := p.AddNonFiscalLine(ctx, c.Line)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	case CloseNonFiscal:
		r, err := p.CloseNonFiscalDoc(ctx)
		if err != nil {
			return 0, err
		}
		return r.Code, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func mnemonicOf(cmd Command) string {
	if cmd == nil {
		return "<nil>"
	}
	return cmd.Mnemonic()
}
