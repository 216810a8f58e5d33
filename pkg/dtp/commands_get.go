package dtp

import "context"

// GetStatus запрашивает состояние принтера (C0). Используется и как проверка связи.
func (p *Printer) GetStatus(ctx context.Context) (*StatusResponse, error) {
	r, err := p.send(ctx, "C0")
	if err != nil {
		return nil, err
	}
	s := &StatusResponse{
		Response:            newResponse(r),
		State:               -1,
		Block:               -1,
		LastCommandResponse: -1,
	}
	if !s.OK() {
		return s, nil
	}
	// r[1] — зарезервировано
	s.State = intField(r, 2)
	s.Block = intField(r, 3)
	s.FiscalStatus = stringField(r, 4)
	s.LastCommandResponse = intField(r, 5)
	return s, nil
}

// GetSerializationData запрашивает серийные номера (C2)
func (p *Printer) GetSerializationData(ctx context.Context) (*SerializationData, error) {
	r, err := p.send(ctx, "C2")
	if err != nil {
		return nil, err
	}
	d := &SerializationData{Response: newResponse(r)}
	if !d.OK() {
		return d, nil
	}
	d.FiscalSerial = stringField(r, 1)
	d.PrinterSerial = stringField(r, 2)
	d.KitSerial = stringField(r, 3)
	d.MFSerial = stringField(r, 4)
	d.MASerial = stringField(r, 5)
	return d, nil
}

// GetFiscalizationData запрашивает данные налогоплательщика и ставки налога (C3)
func (p *Printer) GetFiscalizationData(ctx context.Context) (*FiscalizationData, error) {
	r, err := p.send(ctx, "C3")
	if err != nil {
		return nil, err
	}
	d := &FiscalizationData{Response: newResponse(r)}
	if !d.OK() {
		return d, nil
	}
	d.TaxpayerName = stringField(r, 1)
	d.FiscalAddress = stringField(r, 2)
	d.TaxpayerRIF = stringField(r, 3)
	d.CommercialName = stringField(r, 4)
	d.DistributorName = stringField(r, 5)
	d.DistributorRIF = stringField(r, 6)
	for i := range d.TaxRates {
		d.TaxRates[i] = intField(r, 7+i)
	}
	return d, nil
}

// GetPaymentMethod запрашивает название формы оплаты (C9)
func (p *Printer) GetPaymentMethod(ctx context.Context, id int) (*PaymentMethodResponse, error) {
	r, err := p.send(ctx, "C9", itoa(id))
	if err != nil {
		return nil, err
	}
	m := &PaymentMethodResponse{Response: newResponse(r)}
	if m.OK() {
		m.Name = stringField(r, 1)
	}
	return m, nil
}
