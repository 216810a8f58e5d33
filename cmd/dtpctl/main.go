package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"dtpprinter/internal/config"
	"dtpprinter/internal/fakedtp"
	"dtpprinter/internal/logging"
	"dtpprinter/pkg/dtp"
)

const usage = `dtpctl: утилита обслуживания фискальных принтеров DTP

Использование:
  dtpctl [флаги] <команда> [аргументы]

Команды:
  status                            состояние принтера (C0)
  info                              серийные номера, налогоплательщик, счётчики
  xreport                           X-отчёт
  zreport                           Z-отчёт (закрытие дня)
  paymethods                        формы оплаты 1..24
  reprint <тип> <номер>             копия документа
  fmreport <тип> <DDMMYYYY> <DDMMYYYY>  отчёт фискальной памяти
  test-invoice                      тестовая фактура на 348.00
  fake                              эмулятор принтера на host:port
  ports                             список COM-портов

Флаги:
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "dtpctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fset := flag.NewFlagSet("dtpctl", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() {
		fmt.Fprint(stderr, usage)
		fset.PrintDefaults()
	}
	configPath := fset.String("config", "", "файл настроек TOML")
	host := fset.String("host", "", "IP-адрес принтера")
	port := fset.Int("port", 0, "TCP-порт принтера")
	com := fset.String("com", "", "COM-порт (переключает на serial)")
	timeoutMS := fset.Int("timeout", 0, "таймаут команды, мс")
	metricsAddr := fset.String("metrics", "", "адрес HTTP для /metrics")
	verbose := fset.Bool("v", false, "отладочный журнал (кадры TX/RX)")
	if err := fset.Parse(args); err != nil {
		return errUsage
	}
	if fset.NArg() == 0 {
		fset.Usage()
		return errUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Printer.Host = *host
		case "port":
			cfg.Printer.Port = *port
		case "com":
			cfg.Printer.Network = dtp.NetworkSerial
			cfg.Printer.ComName = *com
		case "timeout":
			cfg.Printer.CommandTimeout = time.Duration(*timeoutMS) * time.Millisecond
		case "metrics":
			cfg.MetricsAddr = *metricsAddr
		case "v":
			if *verbose {
				cfg.Log.Level = "debug"
			}
		}
	})
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := logging.New(cfg.Log, stderr)
	ctx = logger.WithContext(ctx)
	cfg.Printer.Logger = &logger

	if cfg.MetricsAddr != "" {
		m, shutdown, err := serveMetrics(cfg.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		cfg.Printer.Metrics = m
	}

	cmd, cmdArgs := fset.Arg(0), fset.Args()[1:]
	switch cmd {
	case "fake":
		return runFake(ctx, cfg, logger)
	case "ports":
		return runPorts(stdout)
	}

	h, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(stderr, "неизвестная команда %q\n\n", cmd)
		fset.Usage()
		return errUsage
	}

	client, err := dtp.NewClient(cfg.Printer)
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	return h(ctx, &session{printer: dtp.NewPrinter(client), out: stdout}, cmdArgs)
}

func serveMetrics(addr string, logger zerolog.Logger) (*dtp.Metrics, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := dtp.NewMetrics(reg)
	if err != nil {
		return nil, nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	logger.Info().Str("addr", ln.Addr().String()).Msg("metrics endpoint started")

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	return m, shutdown, nil
}

func runPorts(out io.Writer) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("list serial ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(out, "COM-порты не найдены")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(out, p)
	}
	return nil
}

func runFake(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	addr := net.JoinHostPort(cfg.Printer.Host, strconv.Itoa(cfg.Printer.Port))
	srv, err := fakedtp.Listen(addr, fakedtp.NewDevice().Handle, fakedtp.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Info().Str("addr", srv.Addr().String()).Msg("fake printer listening")
	<-ctx.Done()
	return srv.Close()
}
