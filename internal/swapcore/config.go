package swapcore

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CoreConfig is the immutable configuration injected at Parser
// construction time (spec §5/§6). Nothing inside the core mutates it
// after NewCoreConfig returns.
type CoreConfig struct {
	// CoreTokens is the ordered quote-role priority ladder. Index 0 is
	// highest priority. Operators must list native-SOL's wrap-group
	// representative first by convention; the core does not assume an
	// ordering beyond what is configured here (spec §9 Open Question).
	CoreTokens []string

	// NativeWrapGroup holds every mint equivalent to the native chain
	// token (e.g. native SOL and wrapped SOL).
	NativeWrapGroup map[string]bool

	// DeniedMints forces erase(denied_asset) whenever present among the
	// swapper's collapsed delta set.
	DeniedMints map[string]bool

	// RentEpsilonNative is the upper bound, in normalized native-SOL
	// units (i.e. already divided by 10^decimals), for a positive
	// native-SOL delta to be classified as a rent refund.
	RentEpsilonNative decimal.Decimal

	// DecimalsOverrides supplies decimals when the upstream enrichment
	// source omits them for a given mint.
	DecimalsOverrides map[string]int32

	// MinValueThresholdQuote, if set, rejects swaps whose quote-side
	// magnitude falls below it. Nil means no threshold — the core must
	// never drop a record below an unconfigured "dust" floor (spec §4.4).
	MinValueThresholdQuote *decimal.Decimal

	// coreTokenRank is derived at construction time for O(1) lookups.
	coreTokenRank map[string]int

	// nativeWrapRepresentative is the first NativeWrapGroup entry in
	// CoreTokens order, used as the synthetic wrap-group key.
	nativeWrapRepresentative string
}

// NewCoreConfig validates and freezes a CoreConfig. Ties in CoreTokens
// priority are impossible by construction since priority is positional;
// NewCoreConfig instead rejects duplicate entries, which would
// otherwise make "higher priority" ambiguous for the Role Assigner.
func NewCoreConfig(
	coreTokens []string,
	nativeWrapGroup []string,
	deniedMints []string,
	rentEpsilonNative decimal.Decimal,
	decimalsOverrides map[string]int32,
	minValueThresholdQuote *decimal.Decimal,
) (*CoreConfig, error) {
	if len(coreTokens) == 0 {
		return nil, fmt.Errorf("core token list must not be empty")
	}
	if len(nativeWrapGroup) == 0 {
		return nil, fmt.Errorf("native wrap group must not be empty")
	}

	rank := make(map[string]int, len(coreTokens))
	for i, m := range coreTokens {
		if _, dup := rank[m]; dup {
			return nil, fmt.Errorf("duplicate core token %q: priority ties must be resolved by the operator", m)
		}
		rank[m] = i
	}

	wrap := make(map[string]bool, len(nativeWrapGroup))
	for _, m := range nativeWrapGroup {
		wrap[m] = true
	}

	denied := make(map[string]bool, len(deniedMints))
	for _, m := range deniedMints {
		denied[m] = true
	}

	if decimalsOverrides == nil {
		decimalsOverrides = map[string]int32{}
	}

	rep := ""
	for _, m := range coreTokens {
		if wrap[m] {
			rep = m
			break
		}
	}
	if rep == "" {
		// No wrap-group member is listed as core; fall back to the
		// first configured wrap-group member so the synthetic key is
		// still deterministic.
		rep = nativeWrapGroup[0]
	}

	return &CoreConfig{
		CoreTokens:               append([]string(nil), coreTokens...),
		NativeWrapGroup:          wrap,
		DeniedMints:              denied,
		RentEpsilonNative:        rentEpsilonNative,
		DecimalsOverrides:        decimalsOverrides,
		MinValueThresholdQuote:   minValueThresholdQuote,
		coreTokenRank:            rank,
		nativeWrapRepresentative: rep,
	}, nil
}

// IsCoreToken reports whether mint is in the core-token priority ladder.
func (c *CoreConfig) IsCoreToken(mint string) bool {
	_, ok := c.coreTokenRank[mint]
	return ok
}

// CoreRank returns the priority rank of mint (lower is higher priority)
// and whether mint is a core token at all.
func (c *CoreConfig) CoreRank(mint string) (int, bool) {
	r, ok := c.coreTokenRank[mint]
	return r, ok
}

// IsNativeWrap reports whether mint belongs to the native wrap group.
func (c *CoreConfig) IsNativeWrap(mint string) bool {
	return c.NativeWrapGroup[mint]
}

// IsDenied reports whether mint is on the deny-list.
func (c *CoreConfig) IsDenied(mint string) bool {
	return c.DeniedMints[mint]
}

// WrapGroupKey collapses mint to its wrap-group representative: every
// native-wrap-group mint maps to the same synthetic key, every other
// mint is its own group (spec §3 "Asset").
func (c *CoreConfig) WrapGroupKey(mint string) string {
	if c.IsNativeWrap(mint) {
		return c.nativeWrapRepresentative
	}
	return mint
}

// DecimalsFor returns the configured override for mint, if any.
func (c *CoreConfig) DecimalsFor(mint string) (int32, bool) {
	d, ok := c.DecimalsOverrides[mint]
	return d, ok
}
