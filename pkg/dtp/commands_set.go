package dtp

import "context"

// SetPaymentMethod задаёт название формы оплаты (C10)
func (p *Printer) SetPaymentMethod(ctx context.Context, id int, name string) (*Response, error) {
	r, err := p.send(ctx, "C10", itoa(id), name)
	if err != nil {
		return nil, err
	}
	resp := newResponse(r)
	return &resp, nil
}
