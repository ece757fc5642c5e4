package scheduler

import "math"

// NoteEase blends the average ease of a note's scheduled cards with the base
// ease. Notes with few scheduled cards lean towards the base ease; the card
// contribution saturates at 64 scheduled cards. Returns 0 when the note has
// no scheduled cards.
func NoteEase(cardEases []int, baseEase int) float64 {
	if len(cardEases) == 0 {
		return 0
	}
	total := 0
	for _, e := range cardEases {
		total += e
	}
	avg := float64(total) / float64(len(cardEases))
	contribution := math.Min(1.0, math.Log(float64(len(cardEases))+0.5)/math.Log(64))
	return avg*contribution + float64(baseEase)*(1.0-contribution)
}
