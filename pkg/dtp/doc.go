// Package dtp provides a client for DTP fiscal printers (DTP-80i and
// compatible) speaking the STX/FS/ETX framed protocol over a persistent TCP
// connection or a serial line.
//
// Key Features:
//   - Frame codec with single-byte charset (ISO-8859-1 by default)
//   - Persistent session with connect and per-command timeouts
//   - Strict one-command-in-flight discipline (the protocol has no request IDs)
//   - Typed wrappers for fiscal, non-fiscal, status and report commands
//   - Sequential execution of a document with stop on first device error
//   - Optional Prometheus metrics and zerolog logging
//
// Example Usage:
//
//	client, err := dtp.NewClient(dtp.Config{Host: "192.168.1.10", Port: 3010})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	printer := dtp.NewPrinter(client)
//	res, err := dtp.Execute(ctx, printer, []dtp.Command{
//	    dtp.OpenFiscal{Args: dtp.OpenFiscalDocArgs{CustomerName: "CLIENTE", CustomerRIF: "V-12345678"}},
//	    dtp.AddItem{Item: dtp.FiscalItem{Description: "CAFE", Code: "001", Quantity: 1000,
//	        Unit: "UND", Price: 30000, Tax: dtp.TaxGeneral, PriceDecimals: 2, QuantityDecimals: 3}},
//	    dtp.Subtotal{Mode: 1},
//	    dtp.Pay{Payment: dtp.Payment{Method: 1, Description: "EFECTIVO", Amount: 34800}},
//	    dtp.CloseFiscal{},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("document", res.DocumentNumber, "total", res.TotalAmount)
//
// Commands must be serialized by the caller: a Send issued while another is
// waiting for its response fails with ErrCommandInFlight. Nothing is retried
// automatically: after a timeout the device state must be checked with
// GetStatus before sending fiscal commands again.
package dtp
