package beam

import (
	"math"
	"testing"
)

func TestLogadd(t *testing.T) {
	tests := []struct {
		caption string
		args    []float64
		want    float64
	}{
		{
			caption: "two equal terms",
			args:    []float64{math.Log(0.5), math.Log(0.5)},
			want:    0,
		},
		{
			caption: "identity with negative infinity",
			args:    []float64{math.Log(0.25), negativeInfinity},
			want:    math.Log(0.25),
		},
		{
			caption: "all negative infinity",
			args:    []float64{negativeInfinity, negativeInfinity},
			want:    negativeInfinity,
		},
		{
			caption: "three terms",
			args:    []float64{math.Log(0.1), math.Log(0.2), math.Log(0.3)},
			want:    math.Log(0.6),
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			got := logadd(tt.args...)
			if math.IsInf(tt.want, -1) {
				if !math.IsInf(got, -1) {
					t.Fatalf("want -Inf, got %v", got)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTopNIndices(t *testing.T) {
	items := []float64{0.1, 0.9, 0.5, 0.7}
	top := topNIndices(items, 2)
	if len(top) != 2 {
		t.Fatalf("want 2 indices, got %v", len(top))
	}
	for _, i := range []int{1, 3} {
		if _, ok := top[i]; !ok {
			t.Fatalf("index %v should be in the top 2", i)
		}
	}

	if got := topNIndices(items, 10); len(got) != len(items) {
		t.Fatalf("n larger than the input should return everything, got %v", len(got))
	}
}

func TestHypothesisProbabilities(t *testing.T) {
	p := newProbabilities()
	if !math.IsInf(p.TotalProbability(), -1) {
		t.Fatal("fresh probabilities should carry no mass")
	}

	p.proposeBlank(initialProbabilities(), math.Log(0.5))
	if math.Abs(p.Blank-math.Log(0.5)) > 1e-12 {
		t.Fatalf("want log(0.5), got %v", p.Blank)
	}
	if math.Abs(p.TotalProbability()-math.Log(0.5)) > 1e-12 {
		t.Fatalf("total should equal the blank mass, got %v", p.TotalProbability())
	}
}

func TestHypothesisTransition(t *testing.T) {
	enc := DefaultTokenEncoding()
	h := EmptyHypothesis
	for _, c := range []byte("hi") {
		h = h.extendPrefix(enc.CharToToken[c])
	}
	h = h.transition()
	for _, c := range []byte("yo") {
		h = h.extendPrefix(enc.CharToToken[c])
	}
	h = h.transition()

	words := h.CompletedWords(enc)
	if len(words) != 2 || words[0] != "hi" || words[1] != "yo" {
		t.Fatalf("want [hi yo], got %v", words)
	}
	if len(h.prefix) != 0 {
		t.Fatal("transition should clear the prefix")
	}
}

func TestLastToken(t *testing.T) {
	enc := DefaultTokenEncoding()
	if got := lastToken(enc, EmptyHypothesis); got != enc.Space {
		t.Fatalf("empty prefix should report space, got %v", got)
	}
	h := EmptyHypothesis.extendPrefix(enc.CharToToken['a'])
	if got := lastToken(enc, h); got != enc.CharToToken['a'] {
		t.Fatalf("want token for 'a', got %v", got)
	}
}
