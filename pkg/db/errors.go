package db

import "errors"

var (
	ErrEmptyURL          = errors.New("db: empty connection URL")
	ErrParseConfig       = errors.New("db: failed to parse connection URL")
	ErrConnectionFailed  = errors.New("db: failed to establish connection")
	ErrHealthcheckFailed = errors.New("db: healthcheck failed")
	ErrMigrate           = errors.New("db: failed to apply migrations")
)
