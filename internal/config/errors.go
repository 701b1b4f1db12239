package config

import "errors"

var (
	// ErrInvalidConfig is wrapped by Validate when a postboard setting is out
	// of range, such as an empty addr or a SQL store.driver without store.dsn.
	ErrInvalidConfig = errors.New("invalid postboard config")

	// ErrLoadConfig is wrapped by Load when the defaults, the YAML file or the
	// POSTBOARD_ environment layer cannot be read.
	ErrLoadConfig = errors.New("load postboard config")
)
