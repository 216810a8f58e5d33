package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"dtpprinter/pkg/dtp"
)

type session struct {
	printer *dtp.Printer
	out     io.Writer
}

type commandFunc func(ctx context.Context, s *session, args []string) error

var commands = map[string]commandFunc{
	"status":       runStatus,
	"info":         runInfo,
	"xreport":      runXReport,
	"zreport":      runZReport,
	"paymethods":   runPayMethods,
	"reprint":      runReprint,
	"fmreport":     runFMReport,
	"test-invoice": runTestInvoice,
}

// printSection выводит результат команды: структуры как JSON
func (s *session) printSection(name string, data any, err error) {
	fmt.Fprintf(s.out, "\n--- [%s] ---\n", name)
	if err != nil {
		fmt.Fprintf(s.out, "ОШИБКА: %v\n", err)
		return
	}
	switch v := data.(type) {
	case string, int, int64, bool:
		fmt.Fprintf(s.out, "Результат: %v\n", v)
	default:
		b, _ := json.MarshalIndent(data, "", "  ")
		fmt.Fprintln(s.out, string(b))
	}
}

func runStatus(ctx context.Context, s *session, _ []string) error {
	st, err := s.printer.GetStatus(ctx)
	s.printSection("C0 Status", st, err)
	return err
}

func runInfo(ctx context.Context, s *session, _ []string) error {
	ser, err := s.printer.GetSerializationData(ctx)
	s.printSection("C2 Serialization", ser, err)
	if err != nil {
		return err
	}
	fis, err := s.printer.GetFiscalizationData(ctx)
	s.printSection("C3 Fiscalization", fis, err)
	if err != nil {
		return err
	}
	day, err := s.printer.GetFiscalDayInfo(ctx)
	s.printSection("R1 Fiscal day", day, err)
	if err != nil {
		return err
	}
	cnt, err := s.printer.GetCounters(ctx)
	s.printSection("R9 Counters", cnt, err)
	return err
}

func runXReport(ctx context.Context, s *session, _ []string) error {
	r, err := s.printer.ReportX(ctx, false)
	s.printSection("X report", r, err)
	return deviceResult("R0", r, err)
}

func runZReport(ctx context.Context, s *session, _ []string) error {
	r, err := s.printer.ReportZ(ctx, false)
	s.printSection("Z report", r, err)
	return deviceResult("R0", r, err)
}

func runPayMethods(ctx context.Context, s *session, _ []string) error {
	methods := make(map[int]string)
	for id := 1; id <= 24; id++ {
		m, err := s.printer.GetPaymentMethod(ctx, id)
		if err != nil {
			s.printSection("C9 Payment methods", nil, err)
			return err
		}
		if m.OK() && m.Name != "" {
			methods[id] = m.Name
		}
	}
	s.printSection("C9 Payment methods", methods, nil)
	return nil
}

func runReprint(ctx context.Context, s *session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("reprint: expected <type> <number>")
	}
	docType, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("reprint: type: %w", err)
	}
	number, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("reprint: number: %w", err)
	}
	r, err := s.printer.SearchReprint(ctx, docType, number, true)
	s.printSection("R8 Reprint", r, err)
	return deviceResult("R8", r, err)
}

func runFMReport(ctx context.Context, s *session, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("fmreport: expected <type> <from DDMMYYYY> <to DDMMYYYY>")
	}
	reportType, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("fmreport: type: %w", err)
	}
	from, err := time.Parse("02012006", args[1])
	if err != nil {
		return fmt.Errorf("fmreport: from: %w", err)
	}
	to, err := time.Parse("02012006", args[2])
	if err != nil {
		return fmt.Errorf("fmreport: to: %w", err)
	}
	recs, err := s.printer.FiscalMemoryReport(ctx, reportType, from, to)
	rows := make([][]string, len(recs))
	for i, r := range recs {
		rows[i] = r.Fields
	}
	s.printSection("R2-R4 Fiscal memory", rows, err)
	return err
}

// runTestInvoice печатает тестовую фактуру: 1 x 300.00 + 16% = 348.00.
// Открытый документ отменяется перед началом.
func runTestInvoice(ctx context.Context, s *session, _ []string) error {
	log := zerolog.Ctx(ctx)
	p := s.printer

	st, err := p.GetStatus(ctx)
	s.printSection("C0 Status", st, err)
	if err != nil {
		return err
	}
	if st.State == dtp.StateDocOpen {
		log.Warn().Msg("document is open, cancelling")
		r, err := p.CancelFiscalDoc(ctx)
		s.printSection("F6 Cancel", r, err)
		if err := deviceResult("F6", r, err); err != nil {
			return err
		}
	}

	open := dtp.OpenFiscalDocArgs{
		Type:         dtp.DocInvoice,
		CustomerName: "CONSUMIDOR FINAL",
		CustomerRIF:  "V-00000000",
	}
	doc, err := p.OpenFiscalDoc(ctx, open)
	if err == nil && doc.Code == dtp.CodeDocumentAlreadyOpen {
		log.Warn().Msg("F0 rejected with 257, cancelling and retrying")
		if _, err := p.CancelFiscalDoc(ctx); err != nil {
			return err
		}
		doc, err = p.OpenFiscalDoc(ctx, open)
	}
	s.printSection("F0 Open", doc, err)
	if err := deviceResult("F0", doc, err); err != nil {
		return err
	}

	res, err := dtp.Execute(ctx, p, []dtp.Command{
		dtp.AddItem{Item: dtp.FiscalItem{
			Description:      "ARTICULO DE PRUEBA",
			Code:             "0001",
			Quantity:         dtp.Scale(1, 3),
			Unit:             "UND",
			Price:            dtp.Scale(300, 2),
			Tax:              dtp.TaxGeneral,
			PriceDecimals:    2,
			QuantityDecimals: 3,
		}},
		dtp.Subtotal{Mode: 1},
		dtp.Pay{Payment: dtp.Payment{Method: 1, Description: "EFECTIVO", Amount: dtp.Scale(348, 2)}},
		dtp.CloseFiscal{},
	})
	s.printSection("Invoice", res, err)
	return err
}

type coded interface{ OK() bool }

// deviceResult превращает ненулевой код ответа в ошибку
func deviceResult(command string, r coded, err error) error {
	if err != nil {
		return err
	}
	if !r.OK() {
		code := -1
		switch v := r.(type) {
		case *dtp.Response:
			code = v.Code
		case *dtp.DocumentResponse:
			code = v.Code
		}
		return &dtp.DeviceError{Command: command, Code: code}
	}
	return nil
}
