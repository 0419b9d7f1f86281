package config

import "errors"

var (
	ErrRead    = errors.New("config: read file")
	ErrParse   = errors.New("config: parse yaml")
	ErrInvalid = errors.New("config: invalid value")
)
