package shm

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

func segmentName() string {
	return "suchana-" + strings.ToLower(ulid.Make().String())
}

func errInvalidSize(size int) error {
	return fmt.Errorf("%w: invalid segment size %d", ErrResourceExhausted, size)
}
