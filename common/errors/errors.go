package errors

import "github.com/pkg/errors"

var (
	ErrEmptyConfig        = errors.New("no chains configured")
	ErrChainNotFound      = errors.New("chain not found")
	ErrInvalidChainType   = errors.New("invalid chain type")
	ErrAllEndpointsFailed = errors.New("all endpoints failed")
	ErrRateLimited        = errors.New("price endpoint rate limited")
	ErrDatabaseConnect    = errors.New("failed to connect to database")
	ErrFactoryNotProvided = errors.New("resolver factory not provided")
)
