package ripcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func sampleA() Sample { return Sample{1, 2, 3, 4} }
func sampleB() Sample { return Sample{5, 6, 7, 8} }
func sampleC() Sample { return Sample{9, 10, 11, 12} }

func TestLeadAndConfirmedAreImmutable(t *testing.T) {
	lead := Lead()
	lead.update(sampleA(), false, true)
	lead.update(sampleA(), true, true)
	assert.True(t, lead.IsLead())

	var confirmed RipSample
	confirmed.confirm(sampleA())
	confirmed.update(sampleB(), false, true)
	confirmed.update(sampleB(), true, true)
	assert.True(t, confirmed.IsConfirmed())
	assert.Equal(t, sampleA(), confirmed.BestGuess())
}

func TestTbdBecomesBadOnC2Error(t *testing.T) {
	s := Tbd()
	s.update(sampleA(), true, false)
	require.True(t, s.IsBad())
	assert.Equal(t, sampleA(), s.BestGuess())
}

func TestTbdBecomesMaybeOnGoodRead(t *testing.T) {
	s := Tbd()
	s.update(sampleA(), false, true)
	require.True(t, s.IsMaybe())
	assert.False(t, s.IsContentious())
	assert.Equal(t, sampleA(), s.BestGuess())
}

func TestContentionAccumulatesAndReorders(t *testing.T) {
	// Scenario 3: A, B, A across three good-read passes.
	s := Tbd()
	s.update(sampleA(), false, true)
	s.update(sampleB(), false, true)
	s.update(sampleA(), false, true)

	require.True(t, s.IsMaybe())
	assert.True(t, s.IsContentious())
	assert.Equal(t, sampleA(), s.BestGuess())
	assert.Equal(t, uint8(2), s.maybe.topCount())
	assert.Equal(t, 1, s.maybe.restCount())

	// A third distinct value only fills the set out to Maybe3; strict form
	// isn't reached yet.
	s.update(sampleC(), false, true)
	require.True(t, s.IsMaybe())
	assert.False(t, s.IsStrict())
	assert.Equal(t, 3, s.maybe.n)

	// Only a fourth distinct value locks the sample into strict form.
	fourth := Sample{42, 42, 42, 42}
	s.update(fourth, false, true)
	assert.True(t, s.IsStrict())
	assert.Equal(t, 3, s.maybe.n)
}

func TestStrictFormRejectsReadsWithoutAllGood(t *testing.T) {
	s := Tbd()
	s.update(sampleA(), false, true)
	s.update(sampleB(), false, true)
	s.update(sampleC(), false, true)
	fourth := Sample{42, 42, 42, 42}
	s.update(fourth, false, true)
	require.True(t, s.IsStrict())

	before := s.maybe

	// A read from a sector that wasn't entirely clean must be ignored while
	// strict, whether it's good or bad evidence.
	s.update(sampleA(), false, false)
	assert.Equal(t, before, s.maybe)

	s.update(sampleA(), true, false)
	assert.Equal(t, before, s.maybe)
}

func TestRemoveBadDemotesSoleCandidate(t *testing.T) {
	s := Tbd()
	s.update(sampleA(), false, true) // Maybe({A:1})
	s.update(sampleA(), true, true)  // A's count drops to zero -> Bad(A)
	require.True(t, s.IsBad())
	assert.Equal(t, sampleA(), s.BestGuess())
}

func TestRemoveBadDropsOnlyMatchingCandidate(t *testing.T) {
	s := Tbd()
	s.update(sampleA(), false, true)
	s.update(sampleA(), false, true) // Maybe({A:2})
	s.update(sampleB(), false, true) // Maybe({A:2, B:1})

	s.update(sampleB(), true, true) // B's count hits zero and is dropped
	require.True(t, s.IsMaybe())
	assert.False(t, s.IsContentious())
	assert.Equal(t, sampleA(), s.BestGuess())
}

func TestIsLikely(t *testing.T) {
	assert.True(t, Lead().IsLikely(DefaultRereads))

	var confirmed RipSample
	confirmed.confirm(sampleA())
	assert.True(t, confirmed.IsLikely(DefaultRereads))

	s := Tbd()
	s.update(sampleA(), false, true)
	assert.False(t, s.IsLikely(DefaultRereads)) // count 1 < abs 2

	s.update(sampleA(), false, true) // count 2
	assert.True(t, s.IsLikely(Rereads{Abs: 1, Rel: 1}))
	assert.True(t, s.IsLikely(DefaultRereads))
}

func TestResetMaybeCounts(t *testing.T) {
	s := Tbd()
	s.update(sampleA(), false, true)
	s.update(sampleA(), false, true)
	s.update(sampleA(), false, true)
	require.Equal(t, uint8(3), s.maybe.topCount())

	s.resetMaybeCounts()
	assert.Equal(t, uint8(1), s.maybe.topCount())
}

// TestPropertyCountsStayNonIncreasing checks invariant 2 from the testable
// properties: counts in a contentious sample are always in non-increasing
// order after any update.
func TestPropertyCountsStayNonIncreasing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := Tbd()
		values := []Sample{sampleA(), sampleB(), sampleC(), {99, 99, 99, 99}}

		steps := rapid.SliceOfN(rapid.IntRange(0, len(values)-1), 1, 20).Draw(rt, "steps")
		for _, idx := range steps {
			e := rapid.Bool().Draw(rt, "e")
			allGood := rapid.Bool().Draw(rt, "allGood")
			s.update(values[idx], e, allGood)

			if s.IsMaybe() {
				for i := 1; i < s.maybe.n; i++ {
					if s.maybe.cands[i].count > s.maybe.cands[i-1].count {
						rt.Fatalf("counts out of order: %+v", s.maybe.cands[:s.maybe.n])
					}
				}
			}
		}
	})
}

// TestPropertyLeadAndConfirmedImmutable checks invariant 1.
func TestPropertyLeadAndConfirmedImmutable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		startLead := rapid.Bool().Draw(rt, "startLead")

		var s RipSample
		var frozen Sample
		if startLead {
			s = Lead()
		} else {
			frozen = Sample{byte(rapid.IntRange(0, 255).Draw(rt, "b0")), 0, 0, 0}
			s.confirm(frozen)
		}

		steps := rapid.IntRange(1, 10).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			n := Sample{byte(rapid.IntRange(0, 255).Draw(rt, "n")), 0, 0, 0}
			e := rapid.Bool().Draw(rt, "e")
			allGood := rapid.Bool().Draw(rt, "allGood")
			s.update(n, e, allGood)
		}

		if startLead {
			if !s.IsLead() {
				rt.Fatal("Lead sample transitioned")
			}
		} else {
			if !s.IsConfirmed() || s.BestGuess() != frozen {
				rt.Fatal("Confirmed sample transitioned or changed value")
			}
		}
	})
}
