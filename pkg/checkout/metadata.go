// Package checkout defines the metadata contract shared by checkout initiation
// and order reconciliation. The payment processor stores it opaquely.
package checkout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MetadataKeyBuyerID     = "clerkUserId"
	MetadataKeyProductRefs = "productIds"
	MetadataKeyQuantities  = "quantities"

	// MaxMetadataValueLen is the processor's limit for a single metadata value.
	MaxMetadataValueLen = 500

	listSeparator = ","
)

// ErrInvalidMetadata marks metadata that cannot be trusted for reconciliation.
var ErrInvalidMetadata = errors.New("invalid session metadata")

// SessionMetadata freezes the cart's product refs and quantities in submission order.
type SessionMetadata struct {
	BuyerID     string
	ProductRefs []string
	Quantities  []int
}

// Encode validates the metadata and renders it as processor key/value pairs.
func (m SessionMetadata) Encode() (map[string]string, error) {
	if len(m.ProductRefs) == 0 {
		return nil, fmt.Errorf("%w: no product refs", ErrInvalidMetadata)
	}
	if len(m.ProductRefs) != len(m.Quantities) {
		return nil, fmt.Errorf("%w: %d refs but %d quantities", ErrInvalidMetadata, len(m.ProductRefs), len(m.Quantities))
	}

	quantities := make([]string, len(m.Quantities))
	for i, ref := range m.ProductRefs {
		if strings.TrimSpace(ref) == "" || strings.Contains(ref, listSeparator) {
			return nil, fmt.Errorf("%w: product ref %q at position %d", ErrInvalidMetadata, ref, i)
		}
		if m.Quantities[i] < 1 {
			return nil, fmt.Errorf("%w: quantity %d at position %d", ErrInvalidMetadata, m.Quantities[i], i)
		}
		quantities[i] = strconv.Itoa(m.Quantities[i])
	}

	out := map[string]string{
		MetadataKeyBuyerID:     m.BuyerID,
		MetadataKeyProductRefs: strings.Join(m.ProductRefs, listSeparator),
		MetadataKeyQuantities:  strings.Join(quantities, listSeparator),
	}
	for key, value := range out {
		if len(value) > MaxMetadataValueLen {
			return nil, fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidMetadata, key, MaxMetadataValueLen)
		}
	}
	return out, nil
}

// DecodeSessionMetadata parses metadata read back from a completed session.
// An empty buyer id denotes a guest checkout.
func DecodeSessionMetadata(raw map[string]string) (SessionMetadata, error) {
	refsRaw := strings.TrimSpace(raw[MetadataKeyProductRefs])
	qtyRaw := strings.TrimSpace(raw[MetadataKeyQuantities])
	if refsRaw == "" {
		return SessionMetadata{}, fmt.Errorf("%w: %s missing", ErrInvalidMetadata, MetadataKeyProductRefs)
	}
	if qtyRaw == "" {
		return SessionMetadata{}, fmt.Errorf("%w: %s missing", ErrInvalidMetadata, MetadataKeyQuantities)
	}

	refs := strings.Split(refsRaw, listSeparator)
	parts := strings.Split(qtyRaw, listSeparator)
	if len(refs) != len(parts) {
		return SessionMetadata{}, fmt.Errorf("%w: %d refs but %d quantities", ErrInvalidMetadata, len(refs), len(parts))
	}

	quantities := make([]int, len(parts))
	for i, part := range parts {
		if strings.TrimSpace(refs[i]) == "" {
			return SessionMetadata{}, fmt.Errorf("%w: empty product ref at position %d", ErrInvalidMetadata, i)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || qty < 1 {
			return SessionMetadata{}, fmt.Errorf("%w: quantity %q at position %d", ErrInvalidMetadata, part, i)
		}
		refs[i] = strings.TrimSpace(refs[i])
		quantities[i] = qty
	}

	return SessionMetadata{
		BuyerID:     strings.TrimSpace(raw[MetadataKeyBuyerID]),
		ProductRefs: refs,
		Quantities:  quantities,
	}, nil
}
