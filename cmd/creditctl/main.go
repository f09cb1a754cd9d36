package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hrms/backend/internal/application/billing"
	"github.com/hrms/backend/internal/infrastructure/cache"
	"github.com/hrms/backend/internal/infrastructure/config"
	"github.com/hrms/backend/internal/infrastructure/logger"
	"github.com/hrms/backend/internal/infrastructure/persistence"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(config.LogConfig{
		Level:  logLevel,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	var checkCache billing.CheckCache
	redisCache, err := cache.NewRedisCheckCache(cfg.Redis, cfg.Credit.CheckCacheTTL)
	if err != nil {
		log.Warn("Redis unavailable, cache state will read as unchecked", zap.Error(err))
		checkCache = cache.NewMemoryCheckCache(cfg.Credit.CheckCacheTTL)
	} else {
		defer func() {
			_ = redisCache.Close()
		}()
		checkCache = redisCache
	}

	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	service := billing.NewCreditService(tenantRepo, checkCache, nil, log,
		billing.CreditServiceConfig{
			ReferenceTimezone:  cfg.Credit.ReferenceTimezone,
			LowCreditThreshold: cfg.Credit.LowCreditThreshold,
		})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "status":
		if len(args) > 1 {
			runStatusOne(ctx, service, args[1])
		} else {
			runStatusAll(ctx, service)
		}

	case "deduct":
		if len(args) < 2 {
			fatalf("Tenant ID required. Usage: creditctl deduct <tenant-id>")
		}
		runDeduct(ctx, service, args[1])

	case "deduct-all":
		runDeductAll(ctx, service)

	case "grant":
		if len(args) < 3 {
			fatalf("Usage: creditctl grant <tenant-id> <amount>")
		}
		runGrant(ctx, service, args[1], args[2])

	case "clear-cache":
		tenantID := uuid.Nil
		if len(args) > 1 {
			tenantID = parseTenantID(args[1])
		}
		if err := service.ClearCheckCache(ctx, tenantID); err != nil {
			fatalf("Failed to clear check cache: %v", err)
		}
		fmt.Println("Check cache cleared")

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runStatusAll(ctx context.Context, service *billing.CreditService) {
	statuses, err := service.StatusAll(ctx)
	if err != nil {
		fatalf("Failed to fetch credit status: %v", err)
	}
	if len(statuses) == 0 {
		fmt.Println("No tenants found")
		return
	}

	fmt.Printf("%-10s %-30s %-10s %8s  %-12s %s\n",
		"CODE", "NAME", "STATUS", "CREDITS", "LAST DEDUCT", "CACHED")
	for _, s := range statuses {
		printStatusRow(s)
	}
}

func runStatusOne(ctx context.Context, service *billing.CreditService, rawID string) {
	tenantID := parseTenantID(rawID)
	status, err := service.StatusFor(ctx, tenantID)
	if err != nil {
		fatalf("Failed to fetch credit status: %v", err)
	}

	fmt.Printf("Tenant:        %s (%s)\n", status.Name, status.Code)
	fmt.Printf("ID:            %s\n", status.TenantID)
	fmt.Printf("Status:        %s\n", status.Status)
	fmt.Printf("Credits:       %d\n", status.Credits)
	fmt.Printf("Low credits:   %t\n", status.LowCredits)
	fmt.Printf("Last deducted: %s\n", formatDay(status.LastCreditDeducted))
	fmt.Printf("Checked (TTL): %t\n", status.CheckedRecently)
}

func runDeduct(ctx context.Context, service *billing.CreditService, rawID string) {
	tenantID := parseTenantID(rawID)
	result, err := service.DeductTenant(ctx, tenantID)
	if err != nil {
		fatalf("Deduction failed: %v", err)
	}
	fmt.Printf("Outcome: %s, remaining credits: %d\n", result.Outcome, result.Credits)
}

func runDeductAll(ctx context.Context, service *billing.CreditService) {
	summary, err := service.ProcessAllTenants(ctx)
	if err != nil {
		fatalf("Sweep failed: %v", err)
	}
	fmt.Printf("Processed:   %d\n", summary.Processed)
	fmt.Printf("Deducted:    %d\n", summary.Deducted)
	fmt.Printf("Skipped:     %d\n", summary.Skipped)
	fmt.Printf("Deactivated: %d\n", summary.Deactivated)
	fmt.Printf("Failed:      %d\n", summary.Failed)
	fmt.Printf("Duration:    %s\n", summary.Duration)
}

func runGrant(ctx context.Context, service *billing.CreditService, rawID, rawAmount string) {
	tenantID := parseTenantID(rawID)
	amount, err := strconv.Atoi(rawAmount)
	if err != nil || amount <= 0 {
		fatalf("Amount must be a positive integer, got %q", rawAmount)
	}

	result, err := service.Grant(ctx, tenantID, amount)
	if err != nil {
		fatalf("Grant failed: %v", err)
	}
	fmt.Printf("Granted %d credits, new balance: %d\n", amount, result.Credits)
	if result.Reactivated {
		fmt.Println("Tenant was reactivated")
	}
}

func printStatusRow(s billing.CreditStatusDTO) {
	name := s.Name
	if len(name) > 30 {
		name = name[:27] + "..."
	}
	fmt.Printf("%-10s %-30s %-10s %8d  %-12s %t\n",
		s.Code, name, s.Status, s.Credits, formatDay(s.LastCreditDeducted), s.CheckedRecently)
}

func formatDay(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02")
}

func parseTenantID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		fatalf("Invalid tenant ID %q: %v", raw, err)
	}
	return id
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`HRMS Credit Administration Tool

Usage:
  creditctl [flags] <command> [arguments]

Commands:
  status [tenant-id]       Show credit standing for all tenants or one
  deduct <tenant-id>       Run today's deduction for one tenant
  deduct-all               Sweep all active tenants with credits
  grant <tenant-id> <n>    Grant n credits (reactivates suspended tenants)
  clear-cache [tenant-id]  Drop credit check marks (all tenants by default)

Flags:
  -log-level string        Log level: debug, info, warn, error (default: warn)

Examples:
  # Inspect every tenant's balance
  creditctl status

  # Top up a tenant by 30 days
  creditctl grant 6f1c8f3a-... 30

  # Force the daily sweep now
  creditctl deduct-all`)
}
