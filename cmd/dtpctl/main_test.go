package main

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"dtpprinter/internal/fakedtp"
	"dtpprinter/pkg/dtp"
)

func startFake(t *testing.T, dev *fakedtp.Device) []string {
	t.Helper()
	srv, err := fakedtp.Listen("127.0.0.1:0", dev.Handle)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	return []string{"-host", "127.0.0.1", "-port", strconv.Itoa(srv.Addr().Port), "-timeout", "2000"}
}

func TestRunTestInvoice(t *testing.T) {
	t.Setenv("DTP_LOG_LEVEL", "off")
	dev := fakedtp.NewDevice()
	flags := startFake(t, dev)

	// документ, оставшийся открытым после сбоя, отменяется
	dev.Handle([]string{"F0"})

	var out bytes.Buffer
	if err := run(context.Background(), append(flags, "test-invoice"), &out, &out); err != nil {
		t.Fatalf("test-invoice: %v\n%s", err, out.String())
	}
	s := out.String()
	for _, want := range []string{"[F6 Cancel]", "[F0 Open]", `"Closed": true`, `"DocumentNumber": 1`} {
		if !strings.Contains(s, want) {
			t.Errorf("output must contain %q:\n%s", want, s)
		}
	}
}

func TestRunStatus(t *testing.T) {
	t.Setenv("DTP_LOG_LEVEL", "off")
	flags := startFake(t, fakedtp.NewDevice())

	var out bytes.Buffer
	if err := run(context.Background(), append(flags, "status"), &out, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"State": 0`) {
		t.Errorf("got:\n%s", out.String())
	}
}

func TestRunPayMethods(t *testing.T) {
	t.Setenv("DTP_LOG_LEVEL", "off")
	flags := startFake(t, fakedtp.NewDevice())

	var out bytes.Buffer
	if err := run(context.Background(), append(flags, "paymethods"), &out, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "EFECTIVO") {
		t.Errorf("got:\n%s", out.String())
	}
}

func TestRunUsage(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), nil, &out, &out); !errors.Is(err, errUsage) {
		t.Errorf("no command: expected errUsage, got %v", err)
	}
	if err := run(context.Background(), []string{"-bogus"}, &out, &out); !errors.Is(err, errUsage) {
		t.Errorf("bad flag: expected errUsage, got %v", err)
	}

	t.Setenv("DTP_LOG_LEVEL", "off")
	flags := startFake(t, fakedtp.NewDevice())
	if err := run(context.Background(), append(flags, "explode"), &out, &out); !errors.Is(err, errUsage) {
		t.Errorf("unknown command: expected errUsage, got %v", err)
	}
	if err := run(context.Background(), append(flags, "reprint", "x"), &out, &out); err == nil {
		t.Error("reprint with bad args must fail")
	}
}

func TestRunConnectRefused(t *testing.T) {
	t.Setenv("DTP_LOG_LEVEL", "off")
	var out bytes.Buffer
	err := run(context.Background(), []string{"-host", "127.0.0.1", "-port", "1", "status"}, &out, &out)
	var ce *dtp.ConnectError
	if !errors.As(err, &ce) {
		t.Errorf("expected ConnectError, got %v", err)
	}
}
