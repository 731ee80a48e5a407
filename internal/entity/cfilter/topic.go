package cfilter

import (
	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/internal/entity"
	"github.com/tdds/tdds-core/internal/pool"
)

// FieldExtractor decodes one sample's flattened CDR payload into the named
// numeric fields a filter Expression can reference. This is the boundary
// between the generic expression evaluator above and a topic's own decode
// routine (pkg/cdr): the application supplies an extractor per registered
// type rather than this package reflecting over a Type tree itself.
type FieldExtractor func(payload []byte) (map[string]float64, error)

// ContentFilteredTopic wraps a DataReader so Read/Take only return samples
// whose decoded fields satisfy expr (a reader
// filtering `x > 50 and x < 100 and y > 50 and y < 100` against a stream of
// published samples). Instance lifecycle changes (dispose/unregister) are
// never filtered out — content filtering applies to data content, not
// instance-state transitions.
type ContentFilteredTopic struct {
	reader    *entity.DataReader
	expr      Expression
	extractor FieldExtractor
}

// New wraps reader with a compiled expr, decoding each candidate sample's
// payload via extractor before evaluating it.
func New(reader *entity.DataReader, expr Expression, extractor FieldExtractor) *ContentFilteredTopic {
	return &ContentFilteredTopic{reader: reader, expr: expr, extractor: extractor}
}

func (c *ContentFilteredTopic) matches(ch *cache.Change) bool {
	if ch.Kind != cache.Alive {
		return true
	}
	if ch.Payload == nil {
		return false
	}
	buf := make([]byte, ch.Payload.Len())
	pool.GetData(ch.Payload, 0, buf)
	fields, err := c.extractor(buf)
	if err != nil {
		return false
	}
	return c.expr.Eval(fields)
}

// Read returns every change in the underlying cache passing filter that
// also satisfies the content-filter expression, without removing anything
// from the cache.
func (c *ContentFilteredTopic) Read(filter cache.ReadFilter, bySourceTime bool) []*cache.Change {
	return keepMatching(c.reader.Read(filter, bySourceTime), c.matches)
}

// Take behaves like Read but additionally removes every returned change
// from the cache; changes removed by the underlying Take but rejected by
// the content filter are passed straight to ReturnLoan, which releases
// their references without putting them back, so they leave the cache
// undelivered.
func (c *ContentFilteredTopic) Take(filter cache.ReadFilter, bySourceTime bool) []*cache.Change {
	taken := c.reader.Take(filter, bySourceTime)
	kept := keepMatching(taken, c.matches)
	if len(kept) == len(taken) {
		return kept
	}

	keptSet := make(map[*cache.Change]bool, len(kept))
	for _, ch := range kept {
		keptSet[ch] = true
	}
	dropped := make([]*cache.Change, 0, len(taken)-len(kept))
	for _, ch := range taken {
		if !keptSet[ch] {
			dropped = append(dropped, ch)
		}
	}
	c.reader.ReturnLoan(dropped)
	return kept
}

func keepMatching(in []*cache.Change, pred func(*cache.Change) bool) []*cache.Change {
	out := in[:0:0]
	for _, ch := range in {
		if pred(ch) {
			out = append(out, ch)
		}
	}
	return out
}
