package repository

import "errors"

var ErrRefNotFound = errors.New("reservation reference not found")
