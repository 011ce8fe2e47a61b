package domain

import "errors"

// ErrNotFound возвращается хранилищем, если запись не найдена.
var ErrNotFound = errors.New("not found")
