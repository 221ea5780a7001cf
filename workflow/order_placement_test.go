package workflow

import (
	"sync"
	"testing"

	"github.com/freshfork/supply_backend/models"
	"github.com/shopspring/decimal"
)

func TestComputeOrderTotals_StandardDelivery(t *testing.T) {
	subtotal := decimal.RequireFromString("100.00")
	tax, shipping, total := computeOrderTotals(subtotal, models.DeliveryPreferenceStandard)

	if !tax.Equal(decimal.RequireFromString("8.00")) {
		t.Errorf("tax = %s, want 8.00", tax)
	}
	if !shipping.Equal(decimal.Zero) {
		t.Errorf("shipping = %s, want 0", shipping)
	}
	if !total.Equal(decimal.RequireFromString("108.00")) {
		t.Errorf("total = %s, want 108.00", total)
	}
}

func TestComputeOrderTotals_ExpressDelivery(t *testing.T) {
	subtotal := decimal.RequireFromString("100.00")
	tax, shipping, total := computeOrderTotals(subtotal, models.DeliveryPreferenceExpress)

	if !shipping.Equal(decimal.RequireFromString("15")) {
		t.Errorf("shipping = %s, want 15", shipping)
	}
	if !total.Equal(decimal.RequireFromString("123.00")) {
		t.Errorf("total = %s, want 123.00", total)
	}
	if !tax.Equal(decimal.RequireFromString("8.00")) {
		t.Errorf("tax = %s, want 8.00", tax)
	}
}

func TestComputeOrderTotals_TaxRoundsToCents(t *testing.T) {
	// 33.33 * 0.08 = 2.6664, rounds to 2.67.
	subtotal := decimal.RequireFromString("33.33")
	tax, _, total := computeOrderTotals(subtotal, models.DeliveryPreferenceStandard)

	if !tax.Equal(decimal.RequireFromString("2.67")) {
		t.Errorf("tax = %s, want 2.67", tax)
	}
	if !total.Equal(decimal.RequireFromString("36.00")) {
		t.Errorf("total = %s, want 36.00", total)
	}
}

func TestComputeOrderTotals_ZeroSubtotal(t *testing.T) {
	tax, shipping, total := computeOrderTotals(decimal.Zero, models.DeliveryPreferenceScheduled)
	if !tax.IsZero() || !shipping.IsZero() || !total.IsZero() {
		t.Errorf("expected all-zero totals, got tax=%s shipping=%s total=%s", tax, shipping, total)
	}
}

func TestShortfallMessage(t *testing.T) {
	got := shortfallMessage("Ground Beef 80/20", "", 3)
	want := "Not enough inventory for Ground Beef 80/20. Available: 3."
	if got != want {
		t.Errorf("message = %q, want %q", got, want)
	}

	got = shortfallMessage("Ground Beef 80/20", "Fine Grind", 0)
	want = "Not enough inventory for Ground Beef 80/20 (Fine Grind). Available: 0."
	if got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

// fakeCounter mirrors the conditional-decrement contract of the inventory
// ledger: reserve succeeds only when the full quantity is on hand, and the
// check and the decrement are one atomic step.
type fakeCounter struct {
	mu    sync.Mutex
	count int
}

func (f *fakeCounter) reserve(qty int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.count < qty {
		return false
	}
	f.count -= qty
	return true
}

func (f *fakeCounter) restore(qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count += qty
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	counter := &fakeCounter{count: 50}

	var wg sync.WaitGroup
	reserved := make(chan int, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if counter.reserve(3) {
				reserved <- 3
			}
		}()
	}
	wg.Wait()
	close(reserved)

	total := 0
	for qty := range reserved {
		total += qty
	}
	if total > 50 {
		t.Errorf("reserved %d units from a stock of 50", total)
	}
	if counter.count != 50-total {
		t.Errorf("counter = %d, want %d", counter.count, 50-total)
	}
	if counter.count < 0 {
		t.Errorf("counter went negative: %d", counter.count)
	}
}

func TestReserveThenRestoreRoundTrips(t *testing.T) {
	counter := &fakeCounter{count: 10}
	if !counter.reserve(7) {
		t.Fatal("reserve failed with sufficient stock")
	}
	if counter.reserve(7) {
		t.Fatal("reserve succeeded with insufficient stock")
	}
	counter.restore(7)
	if counter.count != 10 {
		t.Errorf("counter = %d, want 10 after restore", counter.count)
	}
}
