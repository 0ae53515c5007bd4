package delegation

import "errors"

var errNoBackend = errors.New("no delegation backend configured")
