package relevance

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

func changeWithScore(id string, score int) domain.Change {
	return domain.Change{Candidate: domain.Candidate{Item: domain.Item{Title: id}, Score: score}}
}

func titles(changes []domain.Change) []string {
	res := make([]string, 0, len(changes))
	for _, c := range changes {
		res = append(res, c.Title)
	}
	return res
}

func TestPrioritize_StableOrder(t *testing.T) {
	in := []domain.Change{
		changeWithScore("a", 3), changeWithScore("b", 9), changeWithScore("c", 5),
		changeWithScore("d", 9), changeWithScore("e", 3),
	}

	kept, overflow := Prioritize(in, 0)
	assert.Equal(t, []string{"b", "d", "c", "a", "e"}, titles(kept))
	assert.Empty(t, overflow)
	assert.Equal(t, "a", in[0].Title, "input not reordered")
}

func TestPrioritize_Cap(t *testing.T) {
	// 50 items with scores 9,9,7,5,5,3,3,... in arrival order
	scores := []int{9, 9, 7, 5, 5}
	in := make([]domain.Change, 0, 50)
	for i := 0; i < 50; i++ {
		score := 3
		if i < len(scores) {
			score = scores[i]
		}
		in = append(in, changeWithScore(fmt.Sprintf("item-%02d", i), score))
	}

	kept, overflow := Prioritize(in, 30)
	require.Len(t, kept, 30)
	require.Len(t, overflow, 20)

	for i := 0; i < 30; i++ {
		assert.Equal(t, fmt.Sprintf("item-%02d", i), kept[i].Title, "top 30 in arrival order")
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, fmt.Sprintf("item-%02d", 30+i), overflow[i].Title)
	}
}

func TestPrioritize_LimitAboveSize(t *testing.T) {
	kept, overflow := Prioritize([]domain.Change{changeWithScore("a", 1)}, 25)
	assert.Len(t, kept, 1)
	assert.Nil(t, overflow)

	kept, overflow = Prioritize(nil, 25)
	assert.Empty(t, kept)
	assert.Nil(t, overflow)
}
