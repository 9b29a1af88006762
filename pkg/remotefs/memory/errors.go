package memory

import "errors"

var errReadOnly = errors.New("memory: write in read-only transaction")
