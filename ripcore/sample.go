package ripcore

// SamplesPerSector is the number of 16-bit stereo sample pairs in one sector
// of CD audio (588), matching rabidaudio-audiocd's SamplesPerSector.
const SamplesPerSector = 588

// BytesPerSample is the size of one stereo sample: two 16-bit signed
// channels, 4 bytes total.
const BytesPerSample = 4

// BytesPerSector is the size of one sector of raw audio (2352 bytes).
const BytesPerSector = SamplesPerSector * BytesPerSample

// C2BytesPerSector is the size of the C2 error-pointer block accompanying a
// sector: 1 bit per audio byte, 294 bytes total.
const C2BytesPerSector = BytesPerSector / 8

// Sample is a 4-byte little-endian stereo sample pair (left, right).
type Sample [4]byte

// NullSample is the zero sample, used for leadin/leadout positions.
var NullSample = Sample{}

// sampleKind tags which variant of RipSample is active. A RipSample is the
// tagged union described by the rip state model: Lead and Tbd carry no
// payload, Bad and Confirmed carry exactly one sample, and Maybe carries a
// contentious sample (below).
type sampleKind uint8

const (
	kindLead sampleKind = iota
	kindTbd
	kindBad
	kindMaybe
	kindConfirmed
)

// candidate is one (value, count) pair inside a contentious sample.
type candidate struct {
	value Sample
	count uint8
}

// ContentiousSample holds 1-3 distinct candidate values for a sample ordered
// by count descending, plus a "strict" flag that locks the set at exactly
// three entries once a fourth distinct value has been observed. It is a
// small, bounded, inline value -- no heap indirection -- per the design
// note that this type never needs to grow past three entries.
type ContentiousSample struct {
	cands  [3]candidate
	n      int // number of populated entries, 1..=3
	strict bool
}

// newContentious creates a one-entry contentious sample for an initial good
// read.
func newContentious(v Sample) ContentiousSample {
	return ContentiousSample{cands: [3]candidate{{value: v, count: 1}}, n: 1}
}

// bestGuess returns the highest-count candidate's value -- the "best guess"
// referenced throughout §4.1.
func (c ContentiousSample) bestGuess() Sample { return c.cands[0].value }

// topCount and restCount split the ordered candidates for the likelihood
// test (§4.1): the top count, and the sum of everything else.
func (c ContentiousSample) topCount() uint8 { return c.cands[0].count }

func (c ContentiousSample) restCount() int {
	sum := 0
	for i := 1; i < c.n; i++ {
		sum += int(c.cands[i].count)
	}
	return sum
}

// isContentious reports whether there is more than one surviving candidate.
func (c ContentiousSample) isContentious() bool { return c.n > 1 }

// sortDown re-establishes the count-descending invariant after a mutation,
// stable so that equal counts keep their relative (i.e. discovery) order.
func (c *ContentiousSample) sortDown() {
	for i := 1; i < c.n; i++ {
		for j := i; j > 0 && c.cands[j].count > c.cands[j-1].count; j-- {
			c.cands[j], c.cands[j-1] = c.cands[j-1], c.cands[j]
		}
	}
}

// indexOf finds an existing candidate with the given value, or -1.
func (c ContentiousSample) indexOf(v Sample) int {
	for i := 0; i < c.n; i++ {
		if c.cands[i].value == v {
			return i
		}
	}
	return -1
}

// addGood records a positive (non-C2-flagged) read of v.
func (c *ContentiousSample) addGood(v Sample) {
	if i := c.indexOf(v); i >= 0 {
		if c.cands[i].count < 255 {
			c.cands[i].count++
		}
		c.sortDown()
		return
	}

	if c.n < 3 {
		c.cands[c.n] = candidate{value: v, count: 1}
		c.n++
		c.sortDown()
		return
	}

	if !c.strict {
		// First time we've seen a fourth distinct value: drop to strict
		// form, keeping the three highest-count entries, each reset to a
		// count of one.
		c.strict = true
		for i := range c.cands {
			c.cands[i].count = 1
		}
		return
	}

	// Already strict: it can't get any stricter, but the weakest entry can
	// still be swapped out if it hasn't earned any rereads of its own.
	if c.cands[2].count == 1 {
		c.cands[2] = candidate{value: v, count: 1}
	}
}

// removeBad records a negative (C2-flagged) read of v, returning true if the
// sample should be demoted entirely to Bad(v) because its last remaining
// candidate's count reached zero.
//
// Strict form is always serialized with exactly three slots, so once locked
// it never shrinks: a count that would hit zero floors at one instead of
// being dropped, and the stable sortDown leaves the entry in place among
// entries of equal count.
func (c *ContentiousSample) removeBad(v Sample) (demote bool) {
	i := c.indexOf(v)
	if i < 0 {
		return false
	}

	if c.strict {
		if c.cands[i].count > 1 {
			c.cands[i].count--
		}
		c.sortDown()
		return false
	}

	c.cands[i].count--
	if c.cands[i].count > 0 {
		c.sortDown()
		return false
	}

	if c.n == 1 {
		return true
	}

	// Drop the zeroed entry, shifting the rest down.
	for j := i; j < c.n-1; j++ {
		c.cands[j] = c.cands[j+1]
	}
	c.n--
	c.cands[c.n] = candidate{}
	c.sortDown()
	return false
}

// RipSample is the per-sample status described by §3.2: Lead and Confirmed
// positions are immutable; Tbd, Bad, and Maybe transition according to the
// update rules in update().
type RipSample struct {
	kind    sampleKind
	single  Sample // payload for Bad/Confirmed
	maybe   ContentiousSample
}

// Lead constructs an immutable leadin/leadout sample.
func Lead() RipSample { return RipSample{kind: kindLead} }

// Tbd constructs a never-read sample. (The zero value of RipSample is Lead,
// not Tbd.)
func Tbd() RipSample { return RipSample{kind: kindTbd} }

// IsLead, IsTbd, IsBad, IsMaybe, IsConfirmed report the active variant.
func (s RipSample) IsLead() bool      { return s.kind == kindLead }
func (s RipSample) IsTbd() bool       { return s.kind == kindTbd }
func (s RipSample) IsBad() bool       { return s.kind == kindBad }
func (s RipSample) IsMaybe() bool     { return s.kind == kindMaybe }
func (s RipSample) IsConfirmed() bool { return s.kind == kindConfirmed }

// IsContentious reports whether the sample is a Maybe with more than one
// surviving candidate value.
func (s RipSample) IsContentious() bool {
	return s.kind == kindMaybe && s.maybe.isContentious()
}

// IsStrict reports whether a Maybe sample has locked into its strict,
// high-disagreement form.
func (s RipSample) IsStrict() bool {
	return s.kind == kindMaybe && s.maybe.strict
}

// BestGuess returns the most plausible sample value, or the null sample for
// Lead/Tbd positions.
func (s RipSample) BestGuess() Sample {
	switch s.kind {
	case kindBad, kindConfirmed:
		return s.single
	case kindMaybe:
		return s.maybe.bestGuess()
	default:
		return NullSample
	}
}

// IsLikely reports whether the sample is trustworthy enough to stop
// rereading, per §4.1: Lead and Confirmed are trivially likely; a Maybe is
// likely iff its top count is at least rereads.Abs and top*rereads.Rel
// exceeds the sum of all other counts.
func (s RipSample) IsLikely(rereads Rereads) bool {
	switch s.kind {
	case kindLead, kindConfirmed:
		return true
	case kindMaybe:
		top := int(s.maybe.topCount())
		if top < int(rereads.Abs) {
			return false
		}
		return top*int(rereads.Rel) > s.maybe.restCount()
	default:
		return false
	}
}

// update applies one sector's read result to the sample, per the update
// rules in §4.1. n is the newly read value, e is its per-sample C2 flag, and
// allGood is whether the whole sector (all 588 samples) came back clean --
// relevant only while the sample is in its strict form.
func (s *RipSample) update(n Sample, e bool, allGood bool) {
	switch s.kind {
	case kindLead, kindConfirmed:
		// immutable

	case kindTbd, kindBad:
		if e {
			s.kind = kindBad
			s.single = n
		} else {
			s.kind = kindMaybe
			s.maybe = newContentious(n)
		}

	case kindMaybe:
		if s.maybe.strict && !allGood {
			return
		}
		if e {
			if s.maybe.removeBad(n) {
				s.kind = kindBad
				s.single = n
				s.maybe = ContentiousSample{}
			}
		} else {
			s.maybe.addGood(n)
		}
	}
}

// confirm promotes the sample to Confirmed(v), the engine's representation
// of a third-party-verified value. Confirmed samples never transition again
// except via an explicit reset of the whole state.
func (s *RipSample) confirm(v Sample) {
	s.kind = kindConfirmed
	s.single = v
	s.maybe = ContentiousSample{}
}

// resetMaybeCounts decrements all Maybe candidate counts to 1, used by the
// RipOptions.Reset option when loading a prior state.
func (s *RipSample) resetMaybeCounts() {
	if s.kind != kindMaybe {
		return
	}
	for i := 0; i < s.maybe.n; i++ {
		s.maybe.cands[i].count = 1
	}
}

// Rereads holds the (abs, rel) likelihood thresholds from RipOptions.
type Rereads struct {
	Abs uint8
	Rel uint8
}

// DefaultRereads is the engine default, (2, 2).
var DefaultRereads = Rereads{Abs: 2, Rel: 2}
