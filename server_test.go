package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/freshfork/supply_backend/models"
	"github.com/freshfork/supply_backend/utils"
	"github.com/freshfork/supply_backend/workflow"
)

func respondErrorStatus(t *testing.T, err error) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	respondError(c, err)
	return recorder.Code
}

func TestRespondErrorMapping(t *testing.T) {
	_, unknownStatusErr := models.ParseOrderStatus("bogus")
	if unknownStatusErr == nil {
		t.Fatal("ParseOrderStatus(\"bogus\") should fail")
	}

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown status name", unknownStatusErr, http.StatusBadRequest},
		{"empty cart", workflow.ErrEmptyCart, http.StatusBadRequest},
		{"invalid quantity", utils.ErrorInvalidQuantity, http.StatusBadRequest},
		{"access denied", models.ErrorOrderAccessDenied, http.StatusForbidden},
		{"not found", utils.ErrorRecordNotFound, http.StatusNotFound},
		{"gorm not found", gorm.ErrRecordNotFound, http.StatusNotFound},
		{
			"illegal transition",
			fmt.Errorf("%w: %s to %s", workflow.ErrIllegalTransition, models.OrderStatusDelivered, models.OrderStatusPending),
			http.StatusConflict,
		},
		{"cart busy", utils.ErrorCartBusy, http.StatusConflict},
		{"unexpected error", errors.New("driver: bad connection"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := respondErrorStatus(t, tc.err); got != tc.want {
			t.Errorf("%s: respondError wrote %d, want %d", tc.name, got, tc.want)
		}
	}
}
