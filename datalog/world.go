package datalog

// World is the evaluation context assembleWorld builds: trusted rules
// (from the verifier and the authority block), block rules (from
// attenuation blocks, present only when Limits.AllowBlockFacts is true),
// and the seed fact set. The separation between TrustedRules and
// BlockRules is load bearing: facts derived from BlockRules are filtered
// against the reserved-symbol check before admission, facts derived from
// TrustedRules are not.
type World struct {
	TrustedRules []Rule
	BlockRules   []Rule
	Facts        *FactSet
}

// assembleWorld builds a World from a verifier, an authority block and
// the attenuation blocks, injecting the per-block revocation-id facts
// the engine's own assembler is trusted to produce (so they are exempt
// from the reserved-symbol filter that applies to facts contributed by
// the blocks themselves).
func assembleWorld(verifier Verifier, authority Block, attenuation []Block, limits Limits) (*World, error) {
	w := &World{Facts: NewFactSet()}

	w.TrustedRules = append(w.TrustedRules, verifier.Rules...)
	w.TrustedRules = append(w.TrustedRules, authority.Rules...)

	for _, f := range verifier.Facts {
		w.Facts.Add(f)
	}
	for _, f := range authority.Facts {
		w.Facts.Add(f)
	}

	addRevocationFacts(w.Facts, 0, authority)

	for i, blk := range attenuation {
		index := i + 1
		if !limits.AllowBlockFacts {
			if len(blk.Facts) > 0 || len(blk.Rules) > 0 {
				return nil, &FactsInBlocksError{BlockIndex: index}
			}
			addRevocationFacts(w.Facts, index, blk)
			continue
		}

		w.BlockRules = append(w.BlockRules, blk.Rules...)
		for _, f := range blk.Facts {
			if f.containsForbiddenSymbol() {
				continue // reserved symbol, silently dropped on ingestion
			}
			w.Facts.Add(f)
		}
		addRevocationFacts(w.Facts, index, blk)
	}

	return w, nil
}

// addRevocationFacts injects revocation_id(index, generic) and
// unique_revocation_id(index, unique) for one block. These facts are
// synthesized by the trusted assembler, so the reserved-symbol filter
// does not apply to them even though they carry an attenuation block's
// index.
func addRevocationFacts(facts *FactSet, index int, blk Block) {
	facts.Add(Fact{
		Name:  "revocation_id",
		Terms: []Term{Int64(int64(index)), Bytes(blk.RevocationID)},
	})
	facts.Add(Fact{
		Name:  "unique_revocation_id",
		Terms: []Term{Int64(int64(index)), Bytes(blk.UniqueRevocationID)},
	})
}
