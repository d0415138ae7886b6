package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/enrichment"
	"TrendingDigest/internal/infrastructure/document"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const indexPage = `<!DOCTYPE html>
<html><head><title>t</title></head>
<body><div id="content-grid"><article class="card-item" data-repo="old/card"></article></div></body>
</html>`

type fakeSource struct {
	projects []domain.Project
	err      error
}

func (f *fakeSource) FetchTrending(context.Context) ([]domain.Project, error) {
	return f.projects, f.err
}

type scriptedGenerator struct {
	responses map[string]string
	failOn    string
	calls     []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	for name, response := range g.responses {
		if strings.Contains(prompt, "项目名称: "+name+"\n") {
			g.calls = append(g.calls, name)
			return response, nil
		}
	}
	if g.failOn != "" && strings.Contains(prompt, "项目名称: "+g.failOn+"\n") {
		g.calls = append(g.calls, g.failOn)
		return "", errors.New("transport closed")
	}
	g.calls = append(g.calls, "?")
	return "I cannot comply.", nil
}

type recordingPublisher struct {
	calls     []string
	commitErr error
	pushErr   error
}

func (p *recordingPublisher) StageAll(context.Context) error {
	p.calls = append(p.calls, "stage")
	return nil
}

func (p *recordingPublisher) Commit(_ context.Context, message string) error {
	p.calls = append(p.calls, "commit:"+message)
	return p.commitErr
}

func (p *recordingPublisher) Push(context.Context) error {
	p.calls = append(p.calls, "push")
	return p.pushErr
}

type recordingDocument struct {
	calls int
}

func (d *recordingDocument) Update(context.Context, []string) (domain.DocumentOutcome, error) {
	d.calls++
	return domain.DocumentWritten, nil
}

type recordingHistory struct {
	saved []domain.EnrichedProject
	err   error
}

func (h *recordingHistory) SaveRun(_ context.Context, _ time.Time, projects []domain.EnrichedProject) error {
	h.saved = projects
	return h.err
}

type recordingNotifier struct {
	digests [][]domain.EnrichedProject
}

func (n *recordingNotifier) PublishDigest(_ context.Context, projects []domain.EnrichedProject) error {
	n.digests = append(n.digests, projects)
	return nil
}

var trending = []domain.Project{
	{Name: "foo/bar", URL: "https://github.com/foo/bar", Description: "A sample tool"},
	{Name: "acme/widget", URL: "https://github.com/acme/widget"},
	{Name: "zeta/last", URL: "https://github.com/zeta/last", Description: "Last one"},
}

func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newGenerator() *scriptedGenerator {
	return &scriptedGenerator{responses: map[string]string{
		"foo/bar":   `Here is the result: {"name_zh":"样例工具","desc_zh":"一个示例工具","comment":"可用于内部效率提升"} done`,
		"zeta/last": `{"name_zh":"最后一个","desc_zh":"末位项目","comment":"适合政务办公"}`,
	}}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	path := writeIndex(t, indexPage)
	gen := newGenerator()
	pub := &recordingPublisher{}
	history := &recordingHistory{}
	notifier := &recordingNotifier{}

	pipeline := NewPipeline(PipelineDeps{
		Source:    &fakeSource{projects: trending},
		Enricher:  enrichment.NewEnricher(gen, time.Second, nil),
		Document:  document.NewFileUpdater(path, "content-grid", nil),
		Publisher: pub,
		History:   history,
		Notifier:  notifier,
	}, Options{})

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"foo/bar", "?", "zeta/last"}, gen.calls)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 1, report.Fallbacks)
	assert.Equal(t, domain.DocumentWritten, report.Document)
	assert.Equal(t, domain.PublishPushed, report.Publish)
	assert.Equal(t, []string{"stage", "commit:Auto Update", "push"}, pub.calls)
	assert.Len(t, history.saved, 3)
	require.Len(t, notifier.digests, 1)
	require.Len(t, notifier.digests[0], 3)
	assert.Equal(t, "样例工具", notifier.digests[0][0].NameZH)
	assert.Equal(t, "https://github.com/foo/bar", notifier.digests[0][0].URL)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	require.NoError(t, err)

	cards := doc.Find("#content-grid > article.card-item")
	require.Equal(t, len(trending), cards.Length())
	cards.Each(func(i int, s *goquery.Selection) {
		assert.Equal(t, trending[i].Name, s.AttrOr("data-repo", ""))
		assert.Equal(t, trending[i].URL, s.Find("a").AttrOr("href", ""))
	})
	assert.Contains(t, cards.Eq(1).Find("span").Text(), enrichment.FallbackComment)
	assert.Contains(t, cards.Eq(1).Find("p").Text(), enrichment.FallbackDescription)
}

func TestPipelineEmptyFetchShortCircuits(t *testing.T) {
	gen := newGenerator()
	doc := &recordingDocument{}
	pub := &recordingPublisher{}

	report, err := NewPipeline(PipelineDeps{
		Source:    &fakeSource{},
		Enricher:  enrichment.NewEnricher(gen, time.Second, nil),
		Document:  doc,
		Publisher: pub,
	}, Options{}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Fetched)
	assert.Empty(t, gen.calls)
	assert.Zero(t, doc.calls)
	assert.Empty(t, pub.calls)
}

func TestPipelineFetchErrorIsFatal(t *testing.T) {
	gen := newGenerator()
	doc := &recordingDocument{}

	_, err := NewPipeline(PipelineDeps{
		Source:   &fakeSource{err: domain.ErrFetch},
		Enricher: enrichment.NewEnricher(gen, time.Second, nil),
		Document: doc,
	}, Options{}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFetch))
	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, domain.StageFetch, stageErr.Stage)
	assert.Empty(t, gen.calls)
	assert.Zero(t, doc.calls)
}

func TestPipelineEnrichmentErrorAbortsRun(t *testing.T) {
	gen := newGenerator()
	gen.failOn = "acme/widget"
	doc := &recordingDocument{}
	pub := &recordingPublisher{}

	report, err := NewPipeline(PipelineDeps{
		Source:    &fakeSource{projects: trending},
		Enricher:  enrichment.NewEnricher(gen, time.Second, nil),
		Document:  doc,
		Publisher: pub,
	}, Options{}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEnrichment))
	var stageErr *domain.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "acme/widget", stageErr.Record)
	assert.Equal(t, []string{"foo/bar", "acme/widget"}, gen.calls)
	assert.Len(t, report.Projects, 1)
	assert.Zero(t, doc.calls)
	assert.Empty(t, pub.calls)
}

func TestPipelineAnchorMissingSkipsPublish(t *testing.T) {
	original := strings.ReplaceAll(indexPage, "content-grid", "elsewhere")
	path := writeIndex(t, original)
	pub := &recordingPublisher{}

	report, err := NewPipeline(PipelineDeps{
		Source:    &fakeSource{projects: trending[:1]},
		Enricher:  enrichment.NewEnricher(newGenerator(), time.Second, nil),
		Document:  document.NewFileUpdater(path, "content-grid", nil),
		Publisher: pub,
	}, Options{}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentAnchorMissing, report.Document)
	assert.Equal(t, domain.PublishSkipped, report.Publish)
	assert.Len(t, report.Projects, 1)
	assert.Empty(t, pub.calls)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(after))
}

func TestPipelineNothingToCommitIsSuccess(t *testing.T) {
	pub := &recordingPublisher{commitErr: domain.ErrNothingToCommit}
	notifier := &recordingNotifier{}

	report, err := NewPipeline(PipelineDeps{
		Source:    &fakeSource{projects: trending[:1]},
		Enricher:  enrichment.NewEnricher(newGenerator(), time.Second, nil),
		Document:  &recordingDocument{},
		Publisher: pub,
		Notifier:  notifier,
	}, Options{CommitMessage: "daily"}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.PublishNothingToCommit, report.Publish)
	assert.Equal(t, []string{"stage", "commit:daily"}, pub.calls)
	assert.Empty(t, notifier.digests)
}

func TestPipelinePushFailureIsSurfaced(t *testing.T) {
	pub := &recordingPublisher{pushErr: errors.Join(domain.ErrPublish, errors.New("rejected"))}

	_, err := NewPipeline(PipelineDeps{
		Source:    &fakeSource{projects: trending[:1]},
		Enricher:  enrichment.NewEnricher(newGenerator(), time.Second, nil),
		Document:  &recordingDocument{},
		Publisher: pub,
	}, Options{}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPublish))
	assert.Equal(t, []string{"stage", "commit:Auto Update", "push"}, pub.calls)
}

func TestPipelineDryRunTouchesNothing(t *testing.T) {
	doc := &recordingDocument{}
	pub := &recordingPublisher{}
	history := &recordingHistory{}

	report, err := NewPipeline(PipelineDeps{
		Source:    &fakeSource{projects: trending},
		Enricher:  enrichment.NewEnricher(newGenerator(), time.Second, nil),
		Document:  doc,
		Publisher: pub,
		History:   history,
	}, Options{DryRun: true}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentDryRun, report.Document)
	assert.Len(t, report.Fragments, 3)
	assert.Zero(t, doc.calls)
	assert.Empty(t, pub.calls)
	assert.Nil(t, history.saved)
}

func TestPipelineNoPublishAndHistoryFailure(t *testing.T) {
	pub := &recordingPublisher{}
	history := &recordingHistory{err: errors.New("connection refused")}

	report, err := NewPipeline(PipelineDeps{
		Source:    &fakeSource{projects: trending[:1]},
		Enricher:  enrichment.NewEnricher(newGenerator(), time.Second, nil),
		Document:  &recordingDocument{},
		Publisher: pub,
		History:   history,
	}, Options{NoPublish: true}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.PublishDisabled, report.Publish)
	assert.Empty(t, pub.calls)
	assert.Len(t, history.saved, 1)
}
