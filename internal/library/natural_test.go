package library

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareNatural(t *testing.T) {
	names := []string{
		"Track 10.mp3",
		"track 2.mp3",
		"Track 1.mp3",
		"Intro.mp3",
		"Track 002b.mp3",
		"Track 99999999999999999999.mp3",
	}
	slices.SortFunc(names, CompareNatural)

	assert.Equal(t, []string{
		"Intro.mp3",
		"Track 1.mp3",
		"track 2.mp3",
		"Track 002b.mp3",
		"Track 10.mp3",
		"Track 99999999999999999999.mp3",
	}, names)
}

func TestCompareNatural_Prefix(t *testing.T) {
	assert.Negative(t, CompareNatural("part", "part 1"))
	assert.Zero(t, CompareNatural("A1", "a1"))
}
