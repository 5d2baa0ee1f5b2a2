package readutil

import "errors"

// ErrNotEnoughBytes is returned by TakeExact when b holds fewer than
// n bytes.
var ErrNotEnoughBytes = errors.New("not enough bytes")

// TakeExact splits b into the first n bytes and the remainder.
// ErrNotEnoughBytes is returned if b is shorter than n bytes.
func TakeExact(b []byte, n int) (taken, rest []byte, err error) {
	if n < 0 || len(b) < n {
		return nil, nil, ErrNotEnoughBytes
	}
	return b[:n], b[n:], nil
}
