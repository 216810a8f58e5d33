package dtp

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const fiscalDayInfoMinFields = 84

// ReportX печатает X-отчёт (R0 0)
func (p *Printer) ReportX(ctx context.Context, noOpenDrawer bool) (*DocumentResponse, error) {
	return p.report(ctx, "0", noOpenDrawer)
}

// ReportZ печатает Z-отчёт и закрывает фискальный день (R0 1).
// DocumentNumber содержит номер Z-отчёта.
func (p *Printer) ReportZ(ctx context.Context, noOpenDrawer bool) (*DocumentResponse, error) {
	return p.report(ctx, "1", noOpenDrawer)
}

func (p *Printer) report(ctx context.Context, kind string, noOpenDrawer bool) (*DocumentResponse, error) {
	fields := []string{"R0", kind}
	if noOpenDrawer {
		fields = append(fields, "1")
	}
	r, err := p.send(ctx, fields...)
	if err != nil {
		return nil, err
	}
	resp := &DocumentResponse{Response: newResponse(r), DocumentNumber: -1}
	if resp.OK() {
		resp.DocumentNumber = intField(r, 1)
	}
	return resp, nil
}

// GetFiscalDayInfo запрашивает сведения о текущем фискальном дне (R1)
func (p *Printer) GetFiscalDayInfo(ctx context.Context) (*FiscalDayInfo, error) {
	r, err := p.send(ctx, "R1")
	if err != nil {
		return nil, err
	}
	d := &FiscalDayInfo{Response: newResponse(r)}
	if !d.OK() || len(r) < fiscalDayInfoMinFields {
		return d, nil
	}
	d.ZNumber = intField(r, 1)
	d.ZDate = stringField(r, 2)
	d.ZTime = stringField(r, 3)
	d.ZStartDate = stringField(r, 4)
	d.ZStartTime = stringField(r, 5)
	d.LastInvoiceNumber = intField(r, 67)
	d.LastInvoiceDate = stringField(r, 68)
	d.LastInvoiceTime = stringField(r, 69)
	d.LastCreditNoteNumber = intField(r, 71)
	d.LastDebitNoteNumber = intField(r, 75)
	return d, nil
}

// GetCounters запрашивает счётчики последних документов (R9)
func (p *Printer) GetCounters(ctx context.Context) (*Counters, error) {
	r, err := p.send(ctx, "R9")
	if err != nil {
		return nil, err
	}
	c := &Counters{Response: newResponse(r)}
	if !c.OK() {
		c.LastInvoice, c.LastVoidedInvoice, c.LastCreditNote = -1, -1, -1
		c.LastDebitNote, c.LastNonFiscal, c.LastZReport = -1, -1, -1
		return c, nil
	}
	c.LastInvoice = intField(r, 1)
	c.LastVoidedInvoice = intField(r, 2)
	c.LastCreditNote = intField(r, 3)
	c.LastDebitNote = intField(r, 4)
	c.LastNonFiscal = intField(r, 5)
	c.LastZReport = intField(r, 6)
	return c, nil
}

// SearchReprint ищет документ по типу и номеру и при printCopy=true печатает копию (R8)
func (p *Printer) SearchReprint(ctx context.Context, docType, docNumber int, printCopy bool) (*Response, error) {
	r, err := p.send(ctx, "R8", formatBool(printCopy), itoa(docType), itoa(docNumber))
	if err != nil {
		return nil, err
	}
	resp := newResponse(r)
	return &resp, nil
}

// StartFiscalMemoryReport начинает отчёт фискальной памяти за период (R2)
func (p *Printer) StartFiscalMemoryReport(ctx context.Context, reportType int, from, to time.Time) (*FiscalMemoryStart, error) {
	r, err := p.send(ctx, "R2", "0", itoa(reportType), formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	s := &FiscalMemoryStart{Response: newResponse(r), RecordCount: -1}
	if s.OK() {
		s.RecordCount = intField(r, 1)
	}
	return s, nil
}

// ReadFiscalMemoryReport читает очередную запись отчёта (R3)
func (p *Printer) ReadFiscalMemoryReport(ctx context.Context) (*FiscalMemoryRecord, error) {
	r, err := p.send(ctx, "R3")
	if err != nil {
		return nil, err
	}
	rec := &FiscalMemoryRecord{Response: newResponse(r)}
	if rec.OK() && len(r) > 1 {
		rec.Fields = r[1:]
	}
	return rec, nil
}

// FinishFiscalMemoryReport завершает отчёт фискальной памяти (R4)
func (p *Printer) FinishFiscalMemoryReport(ctx context.Context) (*Response, error) {
	r, err := p.send(ctx, "R4")
	if err != nil {
		return nil, err
	}
	resp := newResponse(r)
	return &resp, nil
}

// FiscalMemoryReport выполняет R2, читает все записи через R3 и завершает R4.
// R4 отправляется всегда после успешного R2, даже если чтение прервалось.
func (p *Printer) FiscalMemoryReport(ctx context.Context, reportType int, from, to time.Time) (records []FiscalMemoryRecord, err error) {
	start, err := p.StartFiscalMemoryReport(ctx, reportType, from, to)
	if err != nil {
		return nil, err
	}
	if !start.OK() {
		return nil, &DeviceError{Command: "R2", Code: start.Code}
	}

	defer func() {
		fin, finErr := p.FinishFiscalMemoryReport(ctx)
		switch {
		case finErr != nil:
			err = errors.Join(err, finErr)
		case !fin.OK() && err == nil:
			err = &DeviceError{Command: "R4", Code: fin.Code}
		}
	}()

	records = make([]FiscalMemoryRecord, 0, max(start.RecordCount, 0))
	for i := 0; i < start.RecordCount; i++ {
		rec, err := p.ReadFiscalMemoryReport(ctx)
		if err != nil {
			return records, fmt.Errorf("record %d: %w", i+1, err)
		}
		if !rec.OK() {
			return records, &DeviceError{Command: "R3", Code: rec.Code, Index: i}
		}
		records = append(records, *rec)
	}
	return records, nil
}
