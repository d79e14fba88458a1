package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"custodial-lottery/internal/ledger"
	"custodial-lottery/internal/lottery"
	"custodial-lottery/internal/models"

	"github.com/jonboulle/clockwork"
)

func identity(b byte) models.IdentityKey {
	var k models.IdentityKey
	k[0] = b
	return k
}

type failingOracle struct{}

func (failingOracle) Seed(context.Context) (uint64, error) {
	return 0, errors.New("beacon unavailable")
}

func TestLotteryService_Lifecycle(t *testing.T) {
	admin, alice, bob, custody := identity(1), identity(2), identity(3), identity(9)
	clk := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	funds := ledger.NewMemory()
	state := lottery.NewState(
		lottery.WithFundTransfer(funds),
		lottery.WithCustody(custody),
	)
	service := NewLotteryService(state, clk, WithOracle(FixedSeedOracle(123456)), WithDeposits(funds))

	err := service.Initialize(models.LotteryConfig{
		TotalTickets:    100,
		TicketPrice:     models.NewAmount(1000),
		PayoutStructure: models.PayoutStructure{Minor: 500, Grand: 200},
		AdminIdentity:   admin,
	})
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	t.Run("Test purchases credit custody", func(t *testing.T) {
		for _, buyer := range []models.IdentityKey{alice, bob} {
			receipt, err := service.Purchase(buyer, models.NewAmount(25_500))
			if err != nil {
				t.Fatalf("Expected no error, but got %v", err)
			}
			if len(receipt.TicketIDs) != 25 {
				t.Errorf("Expected 25 tickets, but got %d", len(receipt.TicketIDs))
			}
		}
		if got := service.Status().Balance.String(); got != "51000" {
			t.Errorf("Expected balance 51000, but got %s", got)
		}
		if got := funds.Balance(custody).String(); got != "51000" {
			t.Errorf("Expected custody to hold 51000, but got %s", got)
		}
		if got := len(service.Tickets(alice)); got != 25 {
			t.Errorf("Expected alice to hold 25 tickets, but got %d", got)
		}
	})

	t.Run("Test repeat purchase is rate limited", func(t *testing.T) {
		_, err := service.Purchase(alice, models.NewAmount(1000))
		if !errors.Is(err, lottery.ErrRateLimited) {
			t.Fatalf("Expected RateLimited, but got %v", err)
		}
	})

	t.Run("Test seed before the deadline", func(t *testing.T) {
		drawTime, err := service.ActivateTimeLock(admin, 600)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if drawTime != 1_700_000_600 {
			t.Errorf("Expected draw time 1700000600, but got %d", drawTime)
		}
		if _, err := service.RequestSeed(context.Background(), admin); !errors.Is(err, lottery.ErrInvalidDrawTime) {
			t.Fatalf("Expected InvalidDrawTime, but got %v", err)
		}
	})

	t.Run("Test draw and settle", func(t *testing.T) {
		clk.Advance(10 * time.Minute)
		seed, err := service.RequestSeed(context.Background(), admin)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if seed != 123456 {
			t.Errorf("Expected seed 123456, but got %d", seed)
		}

		drawn, err := service.ExecuteDraw(admin)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if len(drawn.Minor) != 10 {
			t.Errorf("Expected 10 minor winners, but got %d", len(drawn.Minor))
		}

		settled, err := service.Settle(admin)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if settled.Grand != drawn.Grand {
			t.Errorf("Expected grand winner %d, but got %d", drawn.Grand, settled.Grand)
		}
		// 5% of 51000 split over 10 tickets, plus 2% to the grand ticket.
		paid := models.NewAmount(51000 - 2550 - 1020)
		if got := funds.Balance(custody); got.Cmp(paid) != 0 {
			t.Errorf("Expected custody balance %s, but got %s", paid, got)
		}
		if got := service.Status().Phase; got != models.PhaseSettled {
			t.Errorf("Expected phase settled, but got %s", got)
		}
	})

	t.Run("Test owner fee", func(t *testing.T) {
		fee, err := service.CollectOwnerFee(admin)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if fee.String() != "9" {
			t.Errorf("Expected fee 9, but got %s", fee)
		}
		if got := funds.Balance(admin).String(); got != "9" {
			t.Errorf("Expected admin balance 9, but got %s", got)
		}
	})
}

func TestLotteryService_Oracle(t *testing.T) {
	admin := identity(1)
	clk := clockwork.NewFakeClockAt(time.Unix(1000, 0))

	t.Run("Test missing oracle", func(t *testing.T) {
		service := NewLotteryService(lottery.NewState(), clk)
		if _, err := service.RequestSeed(context.Background(), admin); !errors.Is(err, ErrNoOracle) {
			t.Fatalf("Expected ErrNoOracle, but got %v", err)
		}
	})

	t.Run("Test oracle failure", func(t *testing.T) {
		service := NewLotteryService(lottery.NewState(), clk, WithOracle(failingOracle{}))
		if _, err := service.RequestSeed(context.Background(), admin); err == nil {
			t.Fatal("Expected an error from a failing oracle, but got nil")
		}
	})
}

func TestLotteryService_ConcurrentPurchases(t *testing.T) {
	admin := identity(1)
	state := lottery.NewState(lottery.WithCooldownPolicy(lottery.FixedCooldown(0)))
	service := NewLotteryService(state, clockwork.NewFakeClockAt(time.Unix(1000, 0)))
	err := service.Initialize(models.LotteryConfig{
		TotalTickets:    40,
		TicketPrice:     models.NewAmount(10),
		PayoutStructure: models.PayoutStructure{Minor: 500, Grand: 200},
		AdminIdentity:   admin,
	})
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold int
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			receipt, err := service.Purchase(identity(byte(10+i)), models.NewAmount(30))
			if err != nil {
				return
			}
			mu.Lock()
			sold += len(receipt.TicketIDs)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	status := service.Status()
	if status.SoldTickets != uint64(sold) {
		t.Errorf("Expected %d sold tickets, but got %d", sold, status.SoldTickets)
	}
	if status.SoldTickets > 40 {
		t.Errorf("Expected at most 40 sold tickets, but got %d", status.SoldTickets)
	}
	if got := len(service.Tickets(models.DefaultIdentity)); uint64(got) != status.SoldTickets {
		t.Errorf("Expected %d listed tickets, but got %d", status.SoldTickets, got)
	}
}

func TestLotteryService_ActivateTimeLock(t *testing.T) {
	admin := identity(1)
	newService := func() *LotteryService {
		service := NewLotteryService(lottery.NewState(), clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0)))
		err := service.Initialize(models.LotteryConfig{
			TotalTickets:    10,
			TicketPrice:     models.NewAmount(10),
			PayoutStructure: models.PayoutStructure{Minor: 500, Grand: 200},
			AdminIdentity:   admin,
		})
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		return service
	}

	t.Run("Test durations beyond time.Duration are kept whole", func(t *testing.T) {
		service := newService()
		drawTime, err := service.ActivateTimeLock(admin, 18446744074)
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if drawTime != 1_700_000_000+18446744074 {
			t.Errorf("Expected draw time %d, but got %d", uint64(1_700_000_000+18446744074), drawTime)
		}
		if got := service.Status().Phase; got != models.PhaseTimeLockSet {
			t.Errorf("Expected phase time-lock-set, but got %s", got)
		}
	})

	t.Run("Test overflowing duration leaves the time-lock unset", func(t *testing.T) {
		service := newService()
		if _, err := service.ActivateTimeLock(admin, math.MaxUint64); !errors.Is(err, lottery.ErrInvalidInput) {
			t.Fatalf("Expected InvalidInput, but got %v", err)
		}
		if got := service.Status().DrawTime; got != 0 {
			t.Errorf("Expected no draw time, but got %d", got)
		}
		if _, err := service.ActivateTimeLock(admin, 60); err != nil {
			t.Fatalf("Expected the time-lock to still be armable, but got %v", err)
		}
	})
}

func TestLotteryService_DepositCustodyOverflow(t *testing.T) {
	admin, alice, custody := identity(1), identity(2), identity(9)
	funds := ledger.NewMemory()
	if err := funds.Credit(custody, models.MustAmount("340282366920938463463374607431768211455")); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	state := lottery.NewState(lottery.WithFundTransfer(funds), lottery.WithCustody(custody))
	service := NewLotteryService(state, clockwork.NewFakeClockAt(time.Unix(1000, 0)), WithDeposits(funds))
	err := service.Initialize(models.LotteryConfig{
		TotalTickets:    10,
		TicketPrice:     models.NewAmount(10),
		PayoutStructure: models.PayoutStructure{Minor: 500, Grand: 200},
		AdminIdentity:   admin,
	})
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}

	_, err = service.Purchase(alice, models.NewAmount(10))
	if !errors.Is(err, lottery.ErrInvariant) {
		t.Fatalf("Expected InvariantViolation, but got %v", err)
	}
	if !errors.Is(err, ledger.ErrBalanceOverflow) {
		t.Errorf("Expected the ledger overflow as cause, but got %v", err)
	}
	status := service.Status()
	if status.SoldTickets != 0 {
		t.Errorf("Expected no tickets sold, but got %d", status.SoldTickets)
	}
	if !status.Balance.IsZero() {
		t.Errorf("Expected zero balance, but got %s", status.Balance)
	}
}
