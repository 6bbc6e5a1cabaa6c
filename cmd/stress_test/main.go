package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/retail-checkout/internal/adapter/payment"
	"github.com/rl1809/retail-checkout/internal/adapter/storage"
	"github.com/rl1809/retail-checkout/internal/core/domain"
	"github.com/rl1809/retail-checkout/internal/core/service"
	"github.com/rl1809/retail-checkout/internal/port"
)

const (
	sharedCartID    = "stress-shared-cart"
	totalRequests   = 50
	distinctCarts   = 20
	checkoutLockTTL = 30 * time.Second
)

func main() {
	ctx := context.Background()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var locker port.CartLocker = storage.NewMemoryLocker()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		rdb.Del(ctx, "checkout:lock:"+sharedCartID)
		locker = storage.NewRedisAdapter(rdb, checkoutLockTTL)
	}

	catalog := service.NewCatalog(service.SeedProducts())
	ledger := service.NewOrderLedger(payment.NewApprovingAuthorizer(), locker, 0)

	laptop, err := catalog.Lookup("Laptop")
	if err != nil {
		log.Fatal().Err(err).Msg("missing seed product")
	}

	// One shared cart hammered by concurrent checkouts, plus independent carts
	shared := domain.NewCart(sharedCartID)
	if err := shared.AddItem(laptop, 1); err != nil {
		log.Fatal().Err(err).Msg("failed to fill cart")
	}

	var sharedSuccess, distinctSuccess atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Checkout(ctx, shared); err == nil {
				sharedSuccess.Add(1)
			}
		}()
	}

	for i := 0; i < distinctCarts; i++ {
		cart := domain.NewCart(fmt.Sprintf("stress-user-%d", i))
		if err := cart.AddOne(laptop); err != nil {
			log.Fatal().Err(err).Msg("failed to fill cart")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Checkout(ctx, cart); err == nil {
				distinctSuccess.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Shared-cart checkouts:   %d\n", totalRequests)
	fmt.Printf("Shared-cart successes:   %d\n", sharedSuccess.Load())
	fmt.Printf("Distinct-cart successes: %d/%d\n", distinctSuccess.Load(), distinctCarts)
	fmt.Printf("Ledger orders:           %d\n", ledger.Len())
	fmt.Printf("Duration:                %v\n", elapsed)
	fmt.Println("==========================================")

	if sharedSuccess.Load() == 1 {
		fmt.Println("PASS: shared cart charged exactly once")
	} else {
		fmt.Printf("FAIL: shared cart charged %d times\n", sharedSuccess.Load())
	}

	if want := 1 + distinctCarts; ledger.Len() == want {
		fmt.Printf("PASS: ledger holds %d orders\n", want)
	} else {
		fmt.Printf("FAIL: expected %d orders, got %d\n", want, ledger.Len())
	}
}
