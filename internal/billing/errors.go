package billing

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrItemUnavailable = errors.New("item unavailable")
	ErrBillClosed      = errors.New("bill closed")
)
