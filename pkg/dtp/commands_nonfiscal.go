package dtp

import "context"

// OpenNonFiscalDoc открывает нефискальный документ (N0)
func (p *Printer) OpenNonFiscalDoc(ctx context.Context) (*Response, error) {
	r, err := p.send(ctx, "N0")
	if err != nil {
		return nil, err
	}
	resp := newResponse(r)
	return &resp, nil
}

// AddNonFiscalLine печатает строку нефискального документа (N1)
func (p *Printer) AddNonFiscalLine(ctx context.Context, line TextLine) (*LinesResponse, error) {
	r, err := p.send(ctx, "N1", line.Text, itoa(line.Size), itoa(line.Align), itoa(line.Style))
	if err != nil {
		return nil, err
	}
	resp := &LinesResponse{Response: newResponse(r), PrintedLines: -1}
	if resp.OK() {
		resp.PrintedLines = intField(r, 1)
	}
	return resp, nil
}

// CloseNonFiscalDoc закрывает нефискальный документ (N3)
func (p *Printer) CloseNonFiscalDoc(ctx context.Context) (*DocumentResponse, error) {
	r, err := p.send(ctx, "N3")
	if err != nil {
		return nil, err
	}
	resp := &DocumentResponse{Response: newResponse(r), DocumentNumber: -1}
	if resp.OK() {
		resp.DocumentNumber = intField(r, 1)
	}
	return resp, nil
}
