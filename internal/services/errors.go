package services

import "errors"

var (
	ErrBadCreds            = errors.New("invalid username or password")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrMemberNotFound      = errors.New("member not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubcategoryNotFound = errors.New("subcategory not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotBorrowed         = errors.New("transaction is not borrowed")
	ErrBookNotFound        = errors.New("book not found")
)
