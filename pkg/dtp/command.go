package dtp

// Command — абстрактная команда документа для Execute.
// Набор вариантов закрыт: по одной структуре на мнемонику.
type Command interface {
	Mnemonic() string
	isCommand()
}

// OpenFiscal — F0
type OpenFiscal struct{ Args OpenFiscalDocArgs }

// AddItem — F1
type AddItem struct{ Item FiscalItem }

// Subtotal — F2
type Subtotal struct {
	Mode          int
	ForeignAmount int64
}

// Pay — F4
type Pay struct{ Payment Payment }

// CloseFiscal — F5; номер документа и сумма становятся результатом Execute
type CloseFiscal struct{ AdditionalLine string }

// CancelFiscal — F6
type CancelFiscal struct{}

// Comment — F7
type Comment struct{ Line TextLine }

// PayForeign — F11
type PayForeign struct{ Payment ForeignPayment }

// OpenNonFiscal — N0
type OpenNonFiscal struct{}

// NonFiscalLine — N1
type NonFiscalLine struct{ Line TextLine }

// CloseNonFiscal — N3
type CloseNonFiscal struct{}

func (OpenFiscal) Mnemonic() string     { return "F0" }
func (AddItem) Mnemonic() string        { return "F1" }
func (Subtotal) Mnemonic() string       { return "F2" }
func (Pay) Mnemonic() string            { return "F4" }
func (CloseFiscal) Mnemonic() string    { return "F5" }
func (CancelFiscal) Mnemonic() string   { return "F6" }
func (Comment) Mnemonic() string        { return "F7" }
func (PayForeign) Mnemonic() string     { return "F11" }
func (OpenNonFiscal) Mnemonic() string  { return "N0" }
func (NonFiscalLine) Mnemonic() string  { return "N1" }
func (CloseNonFiscal) Mnemonic() string { return "N3" }

func (OpenFiscal) isCommand()     {}
func (AddItem) isCommand()        {}
func (Subtotal) isCommand()       {}
func (Pay) isCommand()            {}
func (CloseFiscal) isCommand()    {}
func (CancelFiscal) isCommand()   {}
func (Comment) isCommand()        {}
func (PayForeign) isCommand()     {}
func (OpenNonFiscal) isCommand()  {}
func (NonFiscalLine) isCommand()  {}
func (CloseNonFiscal) isCommand() {}
