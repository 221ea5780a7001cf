package models

import (
	"errors"
	"fmt"
)

// OrderStatus is the closed set of fulfillment states. Keep these in sync with
// the orders.status column enum; ParseOrderStatus is the only place a raw
// string becomes an OrderStatus.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusApproved   OrderStatus = "approved"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPacked     OrderStatus = "packed"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRejected   OrderStatus = "rejected"
	OrderStatusReturned   OrderStatus = "returned"
)

var orderStatusByName = map[string]OrderStatus{
	"pending":    OrderStatusPending,
	"approved":   OrderStatusApproved,
	"processing": OrderStatusProcessing,
	"packed":     OrderStatusPacked,
	"shipped":    OrderStatusShipped,
	"delivered":  OrderStatusDelivered,
	"cancelled":  OrderStatusCancelled,
	"rejected":   OrderStatusRejected,
	"returned":   OrderStatusReturned,
}

var ErrorUnknownOrderStatus = errors.New("unknown order status")

func ParseOrderStatus(name string) (OrderStatus, error) {
	status, ok := orderStatusByName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrorUnknownOrderStatus, name)
	}
	return status, nil
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusByName[string(s)]
	return ok
}

// IsTerminal reports whether no further transition is expected from s.
// Delivered is not terminal: a delivered order can still be returned.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusRejected, OrderStatusReturned:
		return true
	}
	return false
}

type DeliveryPreference string

const (
	DeliveryPreferenceStandard  DeliveryPreference = "standard"
	DeliveryPreferenceExpress   DeliveryPreference = "express"
	DeliveryPreferenceScheduled DeliveryPreference = "scheduled"
)

func ParseDeliveryPreference(name string) (DeliveryPreference, error) {
	switch DeliveryPreference(name) {
	case DeliveryPreferenceStandard, DeliveryPreferenceExpress, DeliveryPreferenceScheduled:
		return DeliveryPreference(name), nil
	}
	return "", fmt.Errorf("%s is not a valid delivery preference", name)
}

// OrderEventType tags rows in the order_events outbox.
type OrderEventType string

const (
	OrderEventTypePlaced        OrderEventType = "OP"
	OrderEventTypeStatusChanged OrderEventType = "OS"
)
