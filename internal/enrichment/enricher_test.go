package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendingDigest/internal/domain"
)

type fakeGenerator struct {
	response string
	err      error
	block    bool
	prompts  []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

func TestEnrichParsesResponse(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: "\n```json\n{\"name_zh\":\"样例工具\",\"desc_zh\":\"一个示例工具\",\"comment\":\"可用于内部效率提升\"}\n```\n"}
	enricher := NewEnricher(gen, time.Second, nil)

	got, err := enricher.Enrich(context.Background(), sample)
	require.NoError(t, err)

	assert.Equal(t, "样例工具", got.NameZH)
	assert.Equal(t, "一个示例工具", got.DescZH)
	assert.Equal(t, "可用于内部效率提升", got.Comment)
	assert.False(t, got.Fallback)
	require.Len(t, gen.prompts, 1)
	assert.Equal(t, BuildPrompt(sample), gen.prompts[0])
}

func TestEnrichFallsBackOnMalformedText(t *testing.T) {
	t.Parallel()

	enricher := NewEnricher(&fakeGenerator{response: "I cannot comply."}, time.Second, nil)

	got, err := enricher.Enrich(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, Fallback(sample), got)
}

func TestEnrichPropagatesTransportError(t *testing.T) {
	t.Parallel()

	enricher := NewEnricher(&fakeGenerator{err: errors.New("quota exceeded")}, time.Second, nil)

	_, err := enricher.Enrich(context.Background(), sample)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEnrichment))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestEnrichTimeout(t *testing.T) {
	t.Parallel()

	enricher := NewEnricher(&fakeGenerator{block: true}, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := enricher.Enrich(context.Background(), sample)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEnrichment))
	assert.Contains(t, err.Error(), "no response within 20ms")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestEnrichWithoutGenerator(t *testing.T) {
	t.Parallel()

	_, err := NewEnricher(nil, 0, nil).Enrich(context.Background(), sample)
	assert.True(t, errors.Is(err, domain.ErrEnrichment))
}
