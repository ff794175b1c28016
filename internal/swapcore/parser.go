package swapcore

// Parser threads the pipeline described in §5's state machine:
// Init -> IngestOk -> DeltasBuilt -> SwapperChosen ->
// {Erase|Classified} -> {Single|Split} -> Mapped -> Validated ->
// Emitted|Erased. It holds an immutable CoreConfig and a Telemetry
// sink; it carries no other state between calls.
type Parser struct {
	cfg *CoreConfig
	tel Telemetry
}

// NewParser constructs a Parser. tel may be nil, in which case a
// NopTelemetry is used.
func NewParser(cfg *CoreConfig, tel Telemetry) *Parser {
	if tel == nil {
		tel = NopTelemetry{}
	}
	return &Parser{cfg: cfg, tel: tel}
}

// Parse runs the full classification pipeline over one upstream
// transaction and returns a Result, never panicking on malformed
// input — every rejection path returns erase(...) instead.
func (p *Parser) Parse(u UpstreamTx) Result {
	tx, erased := Adapt(u, p.cfg, p.tel)
	if erased != nil {
		return p.reject(erased)
	}

	deltas := buildDeltas(tx, p.cfg)

	swapper, method, erased := identifySwapper(tx, deltas, p.cfg)
	if erased != nil {
		return p.reject(erased)
	}

	cd := buildCollapsedDeltas(swapper, tx, deltas, p.cfg)

	negMint, posMint, erased := detect(cd, p.cfg)
	if erased != nil {
		return p.reject(erased)
	}

	role, erased := assignRoles(negMint, posMint, deltas, p.cfg)
	if erased != nil {
		return p.reject(erased)
	}

	rentFiltered := deltas.RentRefunds[swapper].IsPositive()

	if role.SplitCandidate {
		return p.parseSplit(tx, swapper, cd, deltas, method, rentFiltered)
	}

	amounts, erased := reconstruct(tx, swapper, role, cd, deltas, p.cfg)
	if erased != nil {
		return p.reject(erased)
	}

	swap := ParsedSwap{
		Signature:                   tx.Signature,
		Timestamp:                   tx.Timestamp,
		Swapper:                     swapper,
		Direction:                   role.Direction,
		BaseAsset:                   role.Base,
		QuoteAsset:                  role.Quote,
		Amounts:                     amounts,
		Protocol:                    tx.Protocol,
		Confidence:                  confidenceFor(method),
		SwapperIDMethod:             method,
		IntermediateAssetsCollapsed: cd.collapsed,
		RentRefundsFiltered:         rentFiltered,
	}

	rec := MapToStorage(swap, SourceSingle, p.cfg)
	if verr := Validate(rec); verr != nil {
		return p.reject(verr)
	}

	p.tel.IncEmitted(SourceSingle)
	return Result{Parsed: &Parsed{Single: &swap}}
}

func (p *Parser) parseSplit(tx RawTx, swapper string, cd *collapsedDeltas, deltas *OwnerDeltas, method SwapperIDMethod, rentFiltered bool) Result {
	// A split is always inferred from venue flow rather than read
	// directly off a single balance change, so it never earns HIGH
	// confidence regardless of how the swapper itself was identified.
	pair, erased := synthesizeSplit(tx, swapper, cd, deltas, p.cfg, ConfidenceMedium)
	if erased != nil {
		return p.reject(erased)
	}

	pair.SellRecord.SwapperIDMethod = method
	pair.BuyRecord.SwapperIDMethod = method
	pair.SellRecord.RentRefundsFiltered = rentFiltered
	pair.BuyRecord.RentRefundsFiltered = rentFiltered

	sellRec := MapToStorage(pair.SellRecord, SourceSplitSell, p.cfg)
	buyRec := MapToStorage(pair.BuyRecord, SourceSplitBuy, p.cfg)

	if verr := Validate(sellRec); verr != nil {
		return p.reject(verr)
	}
	if verr := Validate(buyRec); verr != nil {
		return p.reject(verr)
	}
	if verr := ValidateSplitPair(sellRec, buyRec); verr != nil {
		return p.reject(verr)
	}

	p.tel.IncEmitted(SourceSplitSell)
	p.tel.IncEmitted(SourceSplitBuy)
	return Result{Parsed: &Parsed{Split: pair}}
}

// StorageRecords flattens a Result produced by this Parser's own Parse
// call into its storage-bound records, using this Parser's CoreConfig.
func (p *Parser) StorageRecords(r Result) []StorageRecord {
	return r.StorageRecords(p.cfg)
}

func (p *Parser) reject(e *EraseResult) Result {
	p.tel.IncRejection(e.Reason)
	return Result{Erase: e}
}

// confidenceFor maps the swapper-identification method to the
// classification confidence carried on the emitted record (§3
// "Confidence"): a directly-observed swap action or unambiguous
// signer is HIGH; a delta-ranking heuristic is MEDIUM.
func confidenceFor(method SwapperIDMethod) Confidence {
	switch method {
	case SwapperIDActionHint, SwapperIDUniqueSigner:
		return ConfidenceHigh
	case SwapperIDMaxDelta:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
