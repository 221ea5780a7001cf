package workflow

import "testing"

func TestPlanReorderLine_FullQuantityAvailable(t *testing.T) {
	plan := planReorderLine("Chicken Breast", 10, 25, 0)
	if plan.addQty != 10 {
		t.Errorf("addQty = %d, want 10", plan.addQty)
	}
	if plan.issue != "" {
		t.Errorf("unexpected issue: %q", plan.issue)
	}
}

func TestPlanReorderLine_OutOfStock(t *testing.T) {
	plan := planReorderLine("Chicken Breast", 10, 0, 0)
	if plan.addQty != 0 {
		t.Errorf("addQty = %d, want 0", plan.addQty)
	}
	want := "'Chicken Breast' is out of stock."
	if plan.issue != want {
		t.Errorf("issue = %q, want %q", plan.issue, want)
	}
}

func TestPlanReorderLine_ClampsToAvailable(t *testing.T) {
	plan := planReorderLine("Canola Oil", 10, 4, 0)
	if plan.addQty != 4 {
		t.Errorf("addQty = %d, want 4", plan.addQty)
	}
	want := "Only 4 units of 'Canola Oil' are available (requested 10)."
	if plan.issue != want {
		t.Errorf("issue = %q, want %q", plan.issue, want)
	}
}

func TestPlanReorderLine_MergeCountsCartContents(t *testing.T) {
	// 6 in stock, 4 already in the cart: only 2 more can be staged.
	plan := planReorderLine("Roma Tomatoes", 5, 6, 4)
	if plan.addQty != 2 {
		t.Errorf("addQty = %d, want 2", plan.addQty)
	}
	if plan.issue == "" {
		t.Error("expected a clamp issue when the merge is reduced")
	}
}

func TestPlanReorderLine_CartAlreadyAtLimit(t *testing.T) {
	plan := planReorderLine("Roma Tomatoes", 5, 6, 6)
	if plan.addQty != 0 {
		t.Errorf("addQty = %d, want 0", plan.addQty)
	}
	want := "'Roma Tomatoes' is already in your cart at the available limit (6)."
	if plan.issue != want {
		t.Errorf("issue = %q, want %q", plan.issue, want)
	}
}

func TestPlanReorderLine_ExactFit(t *testing.T) {
	plan := planReorderLine("Flour", 3, 5, 2)
	if plan.addQty != 3 {
		t.Errorf("addQty = %d, want 3", plan.addQty)
	}
	if plan.issue != "" {
		t.Errorf("unexpected issue: %q", plan.issue)
	}
}

func TestReorderLabel(t *testing.T) {
	if got := reorderLabel("Flour", ""); got != "Flour" {
		t.Errorf("label = %q", got)
	}
	if got := reorderLabel("Flour", "Unbleached"); got != "Flour (Unbleached)" {
		t.Errorf("label = %q", got)
	}
}

func TestCartLineKeyDistinguishesVariants(t *testing.T) {
	variantA := 7
	variantB := 8
	keys := map[string]bool{
		cartLineKey(3, nil):       true,
		cartLineKey(3, &variantA): true,
		cartLineKey(3, &variantB): true,
	}
	if len(keys) != 3 {
		t.Errorf("expected 3 distinct keys, got %d", len(keys))
	}
}
