package dtp

import "time"

// Типы фискального документа (F0, поле iTipo)
const (
	DocInvoice    = 0
	DocCreditNote = 1
	DocDebitNote  = 2
)

// Состояния принтера в ответе C0
const (
	StateIdle    = 0
	StateDocOpen = 2
)

// Коды ставок налога в позиции (F1, поле iImpuesto)
const (
	TaxExempt    = 0 // exento
	TaxGeneral   = 1 // 16%
	TaxReduced   = 2 // 8%
	TaxLuxury    = 3 // 31%
	TaxPerceived = 4 // percibido / IGTF
)

// CodeDocumentAlreadyOpen — F0 при уже открытом документе
const CodeDocumentAlreadyOpen = 257

// OpenFiscalDocArgs — параметры открытия фискального документа (F0)
type OpenFiscalDocArgs struct {
	Type           int // DocInvoice, DocCreditNote, DocDebitNote
	CustomerName   string
	CustomerRIF    string
	RefInvoice     int       // номер исходной фактуры для нот
	RefDate        time.Time // нулевое значение = сегодня
	RefSerial      string
	PrintLogo      bool
	AdditionalLine string
}

// FiscalItem — позиция документа (F1). Цена и количество передаются
// целыми числами с явным числом знаков после запятой.
type FiscalItem struct {
	Type             int
	Description      string
	Code             string
	Quantity         int64 // например 1000 = 1.000 при QuantityDecimals=3
	Unit             string
	Price            int64 // например 30000 = 300.00 при PriceDecimals=2
	Tax              int
	PriceDecimals    int
	QuantityDecimals int
}

// Payment — оплата в национальной валюте (F4)
type Payment struct {
	PayType     int
	Method      int // код формы оплаты (1 — наличные)
	Description string
	Amount      int64
}

// ForeignPayment — оплата в иностранной валюте (F11)
type ForeignPayment struct {
	Method       int
	Description  string
	Amount       int64
	ExchangeRate int64
	Symbol       string
}

// TextLine — строка комментария (F7) или нефискального документа (N1)
type TextLine struct {
	Text  string
	Size  int
	Align int
	Style int
}

// Response — общий результат команды без дополнительных полей
type Response struct {
	Code int
	Raw  []string
}

// OK сообщает об успешном выполнении команды
func (r Response) OK() bool { return r.Code == 0 }

// DocumentResponse — результат с номером документа (F0, N3, R0)
type DocumentResponse struct {
	Response
	DocumentNumber int
}

// ItemResponse — результат F1
type ItemResponse struct {
	Response
	ItemCount    int
	ItemTotal    int64
	PrintedLines int
}

// PaymentResponse — результат F4/F11
type PaymentResponse struct {
	Response
	AmountDue    int64
	Change       int64
	PrintedLines int
}

// LinesResponse — результат F7/N1
type LinesResponse struct {
	Response
	PrintedLines int
}

// CloseResponse — результат F5
type CloseResponse struct {
	Response
	DocumentNumber int
	TotalAmount    int64
}

// StatusResponse — результат C0
type StatusResponse struct {
	Response
	State               int
	Block               int
	FiscalStatus        string
	LastCommandResponse int
}

// SerializationData — результат C2
type SerializationData struct {
	Response
	FiscalSerial  string
	PrinterSerial string
	KitSerial     string
	MFSerial      string
	MASerial      string
}

// FiscalizationData — результат C3 (данные налогоплательщика)
type FiscalizationData struct {
	Response
	TaxpayerName    string
	FiscalAddress   string
	TaxpayerRIF     string
	CommercialName  string
	DistributorName string
	DistributorRIF  string
	TaxRates        [4]int
}

// PaymentMethodResponse — результат C9
type PaymentMethodResponse struct {
	Response
	Name string
}

// FiscalDayInfo — результат R1. Поля заполняются только при успехе
// и полном ответе (не меньше 84 полей).
type FiscalDayInfo struct {
	Response
	ZNumber              int
	ZDate                string
	ZTime                string
	ZStartDate           string
	ZStartTime           string
	LastInvoiceNumber    int
	LastInvoiceDate      string
	LastInvoiceTime      string
	LastCreditNoteNumber int
	LastDebitNoteNumber  int
}

// Counters — результат R9
type Counters struct {
	Response
	LastInvoice       int
	LastVoidedInvoice int
	LastCreditNote    int
	LastDebitNote     int
	LastNonFiscal     int
	LastZReport       int
}

// FiscalMemoryStart — результат R2
type FiscalMemoryStart struct {
	Response
	RecordCount int
}

// FiscalMemoryRecord — одна запись отчёта фискальной памяти (R3)
type FiscalMemoryRecord struct {
	Response
	Fields []string
}
