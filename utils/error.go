package utils

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

var ErrorNegativeInventory = errors.New("inventory count cannot be negative")

var ErrorInvalidQuantity = errors.New("quantity must be a positive integer")

var ErrorCartBusy = errors.New("cart is busy, try again")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// IsDuplicateEntry reports whether err is a MySQL duplicate-key violation
// (error 1062). Used to resolve create races on unique columns.
func IsDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
