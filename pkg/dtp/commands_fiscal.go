package dtp

import "context"

// OpenFiscalDoc открывает фискальный документ (F0).
// Повторное открытие до закрытия/отмены устройство отклоняет кодом 257.
func (p *Printer) OpenFiscalDoc(ctx context.Context, a OpenFiscalDocArgs) (*DocumentResponse, error) {
	r, err := p.send(ctx,
		"F0",
		itoa(a.Type),
		a.CustomerName,
		a.CustomerRIF,
		itoa(a.RefInvoice),
		formatDate(a.RefDate),
		a.RefSerial,
		formatBool(a.PrintLogo),
		a.AdditionalLine,
	)
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{
		Response:       newResponse(r),
		DocumentNumber: intField(r, 1),
	}, nil
}

// AddFiscalItem добавляет позицию (F1)
func (p *Printer) AddFiscalItem(ctx context.Context, it FiscalItem) (*ItemResponse, error) {
	r, err := p.send(ctx,
		"F1",
		itoa(it.Type),
		it.Description,
		it.Code,
		i64toa(it.Quantity),
		it.Unit,
		i64toa(it.Price),
		itoa(it.Tax),
		itoa(it.PriceDecimals),
		itoa(it.QuantityDecimals),
	)
	if err != nil {
		return nil, err
	}
	return &ItemResponse{
		Response:     newResponse(r),
		ItemCount:    intField(r, 1),
		ItemTotal:    int64Field(r, 2),
		PrintedLines: intField(r, 3),
	}, nil
}

// SubtotalFiscalDoc рассчитывает промежуточный итог (F2)
func (p *Printer) SubtotalFiscalDoc(ctx context.Context, mode int, foreignAmount int64) (*Response, error) {
	r, err := p.send(ctx, "F2", itoa(mode), i64toa(foreignAmount))
	if err != nil {
		return nil, err
	}
	resp := newResponse(r)
	return &resp, nil
}

// PayFiscalDoc производит оплату в национальной валюте (F4)
func (p *Printer) PayFiscalDoc(ctx context.Context, pay Payment) (*PaymentResponse, error) {
	r, err := p.send(ctx,
		"F4",
		itoa(pay.PayType),
		itoa(pay.Method),
		pay.Description,
		i64toa(pay.Amount),
	)
	if err != nil {
		return nil, err
	}
	return paymentResponse(r), nil
}

// PayFiscalDocForeignCurrency производит оплату в иностранной валюте (F11)
func (p *Printer) PayFiscalDocForeignCurrency(ctx context.Context, pay ForeignPayment) (*PaymentResponse, error) {
	r, err := p.send(ctx,
		"F11",
		"0",
		pay.Description,
		i64toa(pay.Amount),
		i64toa(pay.ExchangeRate),
		pay.Symbol,
		itoa(pay.Method),
	)
	if err != nil {
		return nil, err
	}
	return paymentResponse(r), nil
}

func paymentResponse(r []string) *PaymentResponse {
	return &PaymentResponse{
		Response:     newResponse(r),
		AmountDue:    int64Field(r, 1),
		Change:       int64Field(r, 2),
		PrintedLines: intField(r, 3),
	}
}

// AddFiscalComment печатает строку комментария в документе (F7)
func (p *Printer) AddFiscalComment(ctx context.Context, line TextLine) (*LinesResponse, error) {
	r, err := p.send(ctx, "F7", line.Text, itoa(line.Size), itoa(line.Align), itoa(line.Style))
	if err != nil {
		return nil, err
	}
	return &LinesResponse{
		Response:     newResponse(r),
		PrintedLines: intField(r, 1),
	}, nil
}

// CloseFiscalDoc закрывает документ (F5): устройство фискализирует его и
// возвращает номер документа и итоговую сумму.
func (p *Printer) CloseFiscalDoc(ctx context.Context, additionalLine string) (*CloseResponse, error) {
	r, err := p.send(ctx, "F5", additionalLine)
	if err != nil {
		return nil, err
	}
	return &CloseResponse{
		Response:       newResponse(r),
		DocumentNumber: intField(r, 1),
		TotalAmount:    int64Field(r, 2),
	}, nil
}

// CancelFiscalDoc отменяет открытый документ (F6)
func (p *Printer) CancelFiscalDoc(ctx context.Context) (*Response, error) {
	r, err := p.send(ctx, "F6")
	if err != nil {
		return nil, err
	}
	resp := newResponse(r)
	return &resp, nil
}
