// Command loadtest гоняет сценарии кассы против работающего POS-сервиса
// и печатает сводку задержек по каждому RPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	posv1 "github.com/vladislavdragonenkov/cafepos/api/pos/v1"
)

const idempotencyHeader = "idempotency-key"

type loadMode string

const (
	// modeCheckout: открыть корзину, добавить позиции, указать клиента, оплатить.
	modeCheckout loadMode = "checkout"
	// modeCheckoutHistory дополнительно читает заказ и QR чека.
	modeCheckoutHistory loadMode = "checkout-history"
	// modeBrowse только читает меню и историю.
	modeBrowse loadMode = "browse"
)

type config struct {
	addr         string
	total        int
	totalSet     bool
	duration     time.Duration
	concurrency  int
	connections  int
	timeout      time.Duration
	mode         loadMode
	discardRate  int
	itemIDs      []string
	linesPerCart int
	customerTag  string
	token        string
	outputPath   string
}

func parseConfig() (config, error) {
	var (
		cfg       config
		modeValue string
		itemsRaw  string
	)

	flag.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; with -duration only used when set explicitly")
	flag.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 20, "number of concurrent tills")
	flag.IntVar(&cfg.connections, "connections", 4, "number of gRPC client connections")
	flag.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	flag.StringVar(&modeValue, "mode", string(modeCheckout), "load mode: checkout | checkout-history | browse")
	flag.IntVar(&cfg.discardRate, "discard-rate", 0, "percent of carts discarded instead of paid (0..100)")
	flag.StringVar(&itemsRaw, "items", "", "comma-separated menu item ids; empty = every available item")
	flag.IntVar(&cfg.linesPerCart, "lines", 3, "number of AddCartItem calls per cart")
	flag.StringVar(&cfg.customerTag, "customer-tag", "load", "customer name prefix")
	flag.StringVar(&cfg.token, "token", os.Getenv("CAFE_LOADTEST_TOKEN"), "bearer token when authentication is enabled")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.itemIDs = splitList(itemsRaw)
	cfg.customerTag = strings.TrimSpace(cfg.customerTag)

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.linesPerCart <= 0:
		return cfg, errors.New("lines must be > 0")
	case cfg.discardRate < 0 || cfg.discardRate > 100:
		return cfg, errors.New("discard-rate must be between 0 and 100")
	case cfg.customerTag == "":
		return cfg, errors.New("customer-tag is required")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeCheckout, modeCheckoutHistory, modeBrowse:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		exit("invalid config: %v", err)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]posv1.POSServiceClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			exit("failed to create grpc client connection: %v", dialErr)
		}
		conns = append(conns, conn)
		clients = append(clients, posv1.NewPOSServiceClient(conn))
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	if cfg.mode != modeBrowse && len(cfg.itemIDs) == 0 {
		ids, err := availableItemIDs(clients[0], cfg)
		if err != nil {
			exit("failed to load menu: %v", err)
		}
		if len(ids) == 0 {
			exit("menu has no available items; create some or pass -items")
		}
		cfg.itemIDs = ids
	}

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func(cli posv1.POSServiceClient) {
			defer wg.Done()
			for id := range jobs {
				_ = runScenario(cli, cfg, id, runID, col)
			}
		}(clients[workerID%len(clients)])
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	result, err := col.buildReport(startedAt, time.Since(startedAt))
	if err != nil {
		exit("failed to build report: %v", err)
	}
	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := saveReport(cfg.outputPath, result); err != nil {
			exit("failed to write report: %v", err)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func exit(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}
		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func availableItemIDs(client posv1.POSServiceClient, cfg config) ([]string, error) {
	ctx, cancel := cfg.rpcContext("")
	defer cancel()

	resp, err := client.ListMenuItems(ctx, &posv1.ListMenuItemsRequest{AvailableOnly: true})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.Id)
	}
	return ids, nil
}

// rpcContext добавляет таймаут, токен и, если задан, idempotency-key.
func (cfg config) rpcContext(idempotencyKey string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	if cfg.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+cfg.token)
	}
	if idempotencyKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, idempotencyHeader, idempotencyKey)
	}
	return ctx, cancel
}

// call выполняет один RPC и записывает его задержку и код.
func call(col *collector, method string, cfg config, idempotencyKey string, fn func(ctx context.Context) error) error {
	ctx, cancel := cfg.rpcContext(idempotencyKey)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	col.record(method, time.Since(start), grpcCode(err))
	return err
}

func runScenario(client posv1.POSServiceClient, cfg config, index int, runID string, col *collector) (err error) {
	scenarioStart := time.Now()
	defer func() {
		col.record(scenarioMethod, time.Since(scenarioStart), grpcCode(err))
	}()

	if cfg.mode == modeBrowse {
		return browse(client, cfg, col)
	}

	var cartID string
	err = call(col, "OpenCart", cfg, "", func(ctx context.Context) error {
		resp, err := client.OpenCart(ctx, &posv1.OpenCartRequest{})
		if err != nil {
			return err
		}
		if resp.Cart == nil || resp.Cart.Id == "" {
			return status.Error(codes.Internal, "open cart returned empty cart id")
		}
		cartID = resp.Cart.Id
		return nil
	})
	if err != nil {
		return err
	}

	for line := 0; line < cfg.linesPerCart; line++ {
		itemID := cfg.itemIDs[(index+line)%len(cfg.itemIDs)]
		err = call(col, "AddCartItem", cfg, "", func(ctx context.Context) error {
			_, err := client.AddCartItem(ctx, &posv1.AddCartItemRequest{CartId: cartID, ItemId: itemID})
			return err
		})
		if err != nil {
			return err
		}
	}

	err = call(col, "SetCustomer", cfg, "", func(ctx context.Context) error {
		_, err := client.SetCustomer(ctx, &posv1.SetCustomerRequest{
			CartId: cartID,
			Name:   fmt.Sprintf("%s-%d", cfg.customerTag, index),
		})
		return err
	})
	if err != nil {
		return err
	}

	if shouldDiscard(index, cfg.discardRate) {
		return call(col, "DiscardCart", cfg, "", func(ctx context.Context) error {
			_, err := client.DiscardCart(ctx, &posv1.DiscardCartRequest{CartId: cartID})
			return err
		})
	}

	var orderNumber string
	err = call(col, "Checkout", cfg, fmt.Sprintf("lt-checkout-%s-%d", runID, index), func(ctx context.Context) error {
		resp, err := client.Checkout(ctx, &posv1.CheckoutRequest{CartId: cartID})
		if err != nil {
			return err
		}
		if resp.Order == nil || resp.Order.OrderNumber == "" {
			return status.Error(codes.Internal, "checkout returned empty order number")
		}
		orderNumber = resp.Order.OrderNumber
		return nil
	})
	if err != nil || cfg.mode != modeCheckoutHistory {
		return err
	}

	err = call(col, "GetOrder", cfg, "", func(ctx context.Context) error {
		_, err := client.GetOrder(ctx, &posv1.GetOrderRequest{OrderNumber: orderNumber})
		return err
	})
	if err != nil {
		return err
	}
	return call(col, "GetReceiptQR", cfg, "", func(ctx context.Context) error {
		_, err := client.GetReceiptQR(ctx, &posv1.GetReceiptQRRequest{OrderNumber: orderNumber})
		return err
	})
}

func browse(client posv1.POSServiceClient, cfg config, col *collector) error {
	err := call(col, "ListMenuItems", cfg, "", func(ctx context.Context) error {
		_, err := client.ListMenuItems(ctx, &posv1.ListMenuItemsRequest{AvailableOnly: true})
		return err
	})
	if err != nil {
		return err
	}
	return call(col, "ListOrders", cfg, "", func(ctx context.Context) error {
		_, err := client.ListOrders(ctx, &posv1.ListOrdersRequest{Limit: 50})
		return err
	})
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

func shouldDiscard(index, rate int) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 100 {
		return true
	}
	return index%100 < rate
}
