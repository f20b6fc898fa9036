package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 一意制約・外部キー制約に引っかかった
	ErrConflict = errors.New("conflict")
)
