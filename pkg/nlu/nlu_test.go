package nlu_test

import (
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/nlu"
)

func TestParseTags(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  []string
		malformed bool
	}{
		{"plain", `{"tags":["shopping","reminder"]}`, []string{"shopping", "reminder"}, false},
		{"code fence", "```json\n{\"tags\": [\"a\"]}\n```", []string{"a"}, false},
		{"empty list", `{"tags": []}`, []string{}, false},
		{"not json", `shopping, reminder`, nil, true},
		{"missing field", `{"labels": ["x"]}`, nil, true},
		{"wrong type", `{"tags": "shopping"}`, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tags, err := nlu.ParseTags(tc.raw)
			if tc.malformed {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, nlu.ErrMalformedOutput))
				return
			}
			gt.NoError(t, err)
			gt.Equal(t, tags, tc.expected)
		})
	}
}

func TestParseKeywords(t *testing.T) {
	keywords, err := nlu.ParseKeywords(`{"keywords": ["buy", "milk"]}`)
	gt.NoError(t, err)
	gt.Equal(t, keywords, []string{"buy", "milk"})

	_, err = nlu.ParseKeywords(`{"tags": ["buy"]}`)
	gt.True(t, errors.Is(err, nlu.ErrMalformedOutput))
}

func TestParseIDs(t *testing.T) {
	ids, err := nlu.ParseIDs(`{"ids": [3, 7]}`)
	gt.NoError(t, err)
	gt.Equal(t, ids, []model.MemoryID{3, 7})

	ids, err = nlu.ParseIDs("```\n{\"ids\": []}\n```")
	gt.NoError(t, err)
	gt.A(t, ids).Length(0)

	_, err = nlu.ParseIDs(`{"ids": ["three"]}`)
	gt.True(t, errors.Is(err, nlu.ErrMalformedOutput))

	_, err = nlu.ParseIDs(``)
	gt.True(t, errors.Is(err, nlu.ErrMalformedOutput))
}

func TestAnswerPrompt(t *testing.T) {
	t.Run("with records", func(t *testing.T) {
		prompt, err := nlu.AnswerPrompt("what did I need to buy", []*model.Memory{
			{
				ID:        12,
				CreatedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
				Text:      "buy milk tomorrow",
				Tags:      []string{"shopping", "reminder"},
			},
		})
		gt.NoError(t, err)
		gt.S(t, prompt).Contains("#12")
		gt.S(t, prompt).Contains("2024-05-01 09:30")
		gt.S(t, prompt).Contains("tags: shopping, reminder")
		gt.S(t, prompt).Contains("buy milk tomorrow")
		gt.S(t, prompt).Contains("Question: what did I need to buy")
		gt.S(t, prompt).Contains("ONLY the memories")
	})

	t.Run("without records", func(t *testing.T) {
		prompt, err := nlu.AnswerPrompt("where are my keys", nil)
		gt.NoError(t, err)
		gt.S(t, prompt).Contains("There are no memories related to this question")
		gt.S(t, prompt).Contains("no relevant information was found")
	})
}

func TestForgetPrompt(t *testing.T) {
	prompt, err := nlu.ForgetPrompt("delete the milk reminder", []*model.Memory{
		{ID: 4, Text: "buy milk tomorrow", Tags: []string{"shopping"}},
		{ID: 9, Text: "milk the cows"},
	})
	gt.NoError(t, err)
	gt.S(t, prompt).Contains("id=4 tags=[shopping]: buy milk tomorrow")
	gt.S(t, prompt).Contains("id=9: milk the cows")
	gt.S(t, prompt).Contains("delete the milk reminder")
}

func TestTagsAndKeywordsPrompt(t *testing.T) {
	prompt, err := nlu.TagsPrompt("buy milk tomorrow")
	gt.NoError(t, err)
	gt.S(t, prompt).Contains("buy milk tomorrow")
	gt.S(t, prompt).Contains(`{"tags"`)

	prompt, err = nlu.KeywordsPrompt("what did I need to buy")
	gt.NoError(t, err)
	gt.S(t, prompt).Contains("what did I need to buy")
	gt.S(t, prompt).Contains(`{"keywords"`)
}
