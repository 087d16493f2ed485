package clientip

import "errors"

var ErrInvalidProxy = errors.New("clientip: invalid trusted proxy address")
