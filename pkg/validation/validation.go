// Package validation decides which inbound datagrams are admitted to the
// simulation before they are dispatched.
package validation

import (
	"errors"
	"fmt"
	"math"
	"net/netip"

	"github.com/opd-ai/go-tanks/pkg/protocol"
)

// MaxDatagramSize is the largest datagram a client legitimately sends.
const MaxDatagramSize = protocol.MaxClientMessageSize

var (
	ErrTooLarge     = errors.New("datagram too large")
	ErrRemoteSource = errors.New("datagram from non-loopback source")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrNonFinite    = errors.New("non-finite control value")
)

// Policy configures admission.
type Policy struct {
	// AllowRemote admits datagrams from non-loopback addresses.
	AllowRemote         bool
	MaxDatagramsPerTick int
}

// Validator applies a Policy to inbound datagrams.
type Validator struct {
	policy      Policy
	rateLimiter *RateLimiter
}

// NewValidator creates a validator for the given policy
func NewValidator(policy Policy) *Validator {
	return &Validator{
		policy:      policy,
		rateLimiter: NewRateLimiter(policy.MaxDatagramsPerTick),
	}
}

// BeginTick resets per-tick rate limits.
func (v *Validator) BeginTick() {
	v.rateLimiter.Reset()
}

// Admit checks a raw datagram's size, source and rate.
func (v *Validator) Admit(source netip.AddrPort, data []byte) error {
	if len(data) > MaxDatagramSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), MaxDatagramSize)
	}
	if !v.policy.AllowRemote && !source.Addr().Unmap().IsLoopback() {
		return fmt.Errorf("%w: %s", ErrRemoteSource, source.Addr())
	}
	if !v.rateLimiter.Allow(source.Port()) {
		return fmt.Errorf("%w: port %d", ErrRateLimited, source.Port())
	}
	return nil
}

// ValidateClientMessage rejects control messages carrying NaN or infinite values.
func ValidateClientMessage(msg protocol.ClientMessage) error {
	control, ok := msg.(protocol.Control)
	if !ok {
		return nil
	}
	values := []float32{control.TrackAccelTarget[0], control.TrackAccelTarget[1], control.TurretAccelTarget}
	for _, f := range values {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: %v", ErrNonFinite, f)
		}
	}
	return nil
}
