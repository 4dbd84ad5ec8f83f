package auth

import (
	"context"
	"fmt"
	"runtime"

	"github.com/atinyakov/newsletter/internal/secret"
	"golang.org/x/sync/semaphore"
)

// Verifier bounds how many memory-hard verifications run at once. Requests
// beyond the limit park on the semaphore instead of competing for CPU with
// the goroutines serving I/O.
type Verifier struct {
	slots *semaphore.Weighted
}

// NewVerifier creates a Verifier with size concurrent slots. A size below 1
// falls back to runtime.NumCPU().
func NewVerifier(size int) *Verifier {
	if size < 1 {
		size = runtime.NumCPU()
	}
	return &Verifier{slots: semaphore.NewWeighted(int64(size))}
}

// Verify waits for a free slot and runs VerifyPassword in it. Once a slot is
// held the verification always runs to completion, so the caller may wipe
// the supplied password as soon as Verify returns.
func (v *Verifier) Verify(ctx context.Context, expected, supplied secret.Value) error {
	if err := v.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire hashing slot: %w", err)
	}
	defer v.slots.Release(1)

	return VerifyPassword(expected, supplied)
}
