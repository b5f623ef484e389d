package grid

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare_NumericPrefixes(t *testing.T) {
	in := []string{"100_ユーザ管理", "10_サーバ構築", "1000_出力管理", "2_認証機能"}
	want := []string{"2_認証機能", "10_サーバ構築", "100_ユーザ管理", "1000_出力管理"}

	sort.Slice(in, func(i, j int) bool { return Less(in[i], in[j]) })
	assert.Equal(t, want, in)
}

func TestCompare_DigitRunsBeatLexicographic(t *testing.T) {
	assert.Negative(t, Compare("2_x", "10_x"))
	assert.Negative(t, Compare("10_x", "100_x"))
	assert.Negative(t, Compare("2_x", "100_x"))
}

func TestCompare_SharedNumericPrefixFallsBackToCodePoints(t *testing.T) {
	assert.Negative(t, Compare("10_AAA", "10_ZZZ"))
	assert.Negative(t, Compare("10_ZZZ", "10_サーバ構築"))
	assert.Negative(t, Compare("10_AAA", "10_サーバ構築"))
}

func TestCompare_PrefixSortsFirst(t *testing.T) {
	assert.Negative(t, Compare("10", "10_x"))
	assert.Negative(t, Compare("abc", "abcd"))
	assert.Positive(t, Compare("abcd", "abc"))
}

func TestCompare_EqualStrings(t *testing.T) {
	assert.Zero(t, Compare("10_サーバ構築", "10_サーバ構築"))
	assert.Zero(t, Compare("", ""))
}

func TestCompare_EmptyString(t *testing.T) {
	assert.Negative(t, Compare("", "a"))
	assert.Positive(t, Compare("a", ""))
}

func TestCompare_LeadingZeros(t *testing.T) {
	// Numerically equal runs stay distinct so the order is total.
	assert.Negative(t, Compare("01", "1"))
	assert.Negative(t, Compare("01_x", "1_x"))
	assert.Negative(t, Compare("09", "10"))
}

func TestCompare_MixedRuns(t *testing.T) {
	assert.Negative(t, Compare("a2b", "a10b"))
	assert.Negative(t, Compare("a10b2", "a10b10"))
	assert.Negative(t, Compare("v1.2", "v1.10"))
}

// Transitivity spot check over a mixed corpus: pairwise consistency of
// the sorted result implies Compare never produced a cycle.
func TestCompare_TotalOrder(t *testing.T) {
	corpus := []string{
		"", "0", "00", "1", "01", "2", "10", "100", "a", "a1", "a01", "a2",
		"10_AAA", "10_ZZZ", "10_サーバ構築", "2_認証機能", "100_ユーザ管理",
		"v1.2", "v1.10", "abc", "abcd",
	}
	sorted := append([]string(nil), corpus...)
	sort.Slice(sorted, func(i, j int) bool { return Less(sorted[i], sorted[j]) })

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			assert.LessOrEqual(t, Compare(sorted[i], sorted[j]), 0,
				"sorted order inconsistent: %q vs %q", sorted[i], sorted[j])
		}
	}
}
