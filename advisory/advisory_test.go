package advisory

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrorain/types"
)

type fakeBackend struct {
	name      string
	available bool
	reply     string
	err       error

	calls   int
	prompts []string
}

func (f *fakeBackend) Name() string    { return f.name }
func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeRetriever struct {
	snips   []types.Snippet
	queries []string
}

func (f *fakeRetriever) Available() bool { return true }

func (f *fakeRetriever) GetContext(_ context.Context, query string, _ int) []types.Snippet {
	f.queries = append(f.queries, query)
	return f.snips
}

func sampleReport() *types.Report {
	return &types.Report{
		Region:      "Córdoba",
		PeriodStart: "1981-01",
		PeriodEnd:   "2023-12",
		Stats: types.SummaryStats{
			TrendDescription: "Alcista",
			MonthlyMean:      85.0,
			AnnualMean:       1020.0,
		},
		Alerts: []types.ClimateAlert{
			{Kind: types.DroughtRisk, Severity: types.High, Evidence: "Precipitación anual de 300.0 mm, por debajo del umbral de sequía de 500 mm."},
		},
		ForecastExcerpt: []types.ForecastPoint{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Estimate: 90, Lower: 70, Upper: 110},
			{Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Estimate: 70, Lower: 50, Upper: 90},
		},
		ForecastAnnual: 960.0,
		Text:           "REPORTE CLIMÁTICO DETALLADO - CÓRDOBA",
	}
}

func TestAdviseFallsBackToStatic(t *testing.T) {
	primary := &fakeBackend{name: "openai", available: false}
	secondary := &fakeBackend{name: "hosted-inference", available: false}
	orch := NewOrchestrator([]Backend{primary, secondary}, nil, 3, time.Second, nil)

	out := orch.Advise(context.Background(), sampleReport(), "")

	require.NotEmpty(t, out)
	assert.Equal(t, 0, primary.calls)
	assert.Equal(t, 0, secondary.calls)
	assert.GreaterOrEqual(t, strings.Count(out, "•"), 4)
	assert.Contains(t, out, "Tendencia prevista")
}

func TestAdviseUsesSecondaryWhenPrimaryUnavailable(t *testing.T) {
	primary := &fakeBackend{name: "openai", available: false}
	secondary := &fakeBackend{name: "hosted-inference", available: true, reply: "respuesta del secundario"}
	retriever := &fakeRetriever{snips: []types.Snippet{{Text: "regar temprano", Source: "Riego"}}}
	orch := NewOrchestrator([]Backend{primary, secondary}, retriever, 3, time.Second, nil)

	out := orch.Advise(context.Background(), sampleReport(), "¿Cuándo siembro?")

	assert.Equal(t, "respuesta del secundario", out)
	assert.Equal(t, 0, primary.calls)
	require.Equal(t, 1, secondary.calls)

	// Retrieved context rides only on the primary backend.
	assert.Empty(t, retriever.queries)
	assert.NotContains(t, secondary.prompts[0], "Contexto de referencia")
	assert.Contains(t, secondary.prompts[0], "¿Cuándo siembro?")
}

func TestAdvisePassesContextToPrimary(t *testing.T) {
	primary := &fakeBackend{name: "openai", available: true, reply: "respuesta del primario"}
	retriever := &fakeRetriever{snips: []types.Snippet{{Text: "regar temprano", Source: "Riego"}}}
	orch := NewOrchestrator([]Backend{primary}, retriever, 3, time.Second, nil)

	out := orch.Advise(context.Background(), sampleReport(), "")

	assert.Equal(t, "respuesta del primario", out)
	require.Equal(t, 1, primary.calls)
	assert.Contains(t, primary.prompts[0], "Contexto de referencia:")
	assert.Contains(t, primary.prompts[0], "regar temprano")
	assert.Contains(t, primary.prompts[0], "REPORTE CLIMÁTICO DETALLADO - CÓRDOBA")

	// Blank question falls back to the default one, which also drives retrieval.
	require.Len(t, retriever.queries, 1)
	assert.Equal(t, defaultQuestion, retriever.queries[0])
	assert.Contains(t, primary.prompts[0], defaultQuestion)
}

// stalledRetriever hangs until its context is cancelled, like an embeddings
// call on a dead connection.
type stalledRetriever struct{}

func (s *stalledRetriever) Available() bool { return true }

func (s *stalledRetriever) GetContext(ctx context.Context, _ string, _ int) []types.Snippet {
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(3 * time.Second):
		return nil
	}
}

func TestAdviseBoundsRetrievalByTimeout(t *testing.T) {
	primary := &fakeBackend{name: "openai", available: true, reply: "respuesta"}
	orch := NewOrchestrator([]Backend{primary}, &stalledRetriever{}, 3, 100*time.Millisecond, nil)

	began := time.Now()
	out := orch.Advise(context.Background(), sampleReport(), "")
	elapsed := time.Since(began)

	assert.Equal(t, "respuesta", out)
	assert.Less(t, elapsed, time.Second, "stalled retrieval must be cut off by the per-call timeout")
	require.Equal(t, 1, primary.calls)
	assert.NotContains(t, primary.prompts[0], "Contexto de referencia")
}

func TestAdviseRetriesPrimaryOnce(t *testing.T) {
	primary := &fakeBackend{name: "openai", available: true, err: fmt.Errorf("rate limited")}
	secondary := &fakeBackend{name: "hosted-inference", available: true, reply: "respaldo"}
	orch := NewOrchestrator([]Backend{primary, secondary}, nil, 3, time.Second, nil)

	out := orch.Advise(context.Background(), sampleReport(), "")

	assert.Equal(t, "respaldo", out)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestAdviseEmptyReplyCountsAsFailure(t *testing.T) {
	primary := &fakeBackend{name: "hosted-inference", available: true, reply: "   "}
	orch := NewOrchestrator([]Backend{primary}, nil, 3, time.Second, nil)

	out := orch.Advise(context.Background(), sampleReport(), "")

	require.NotEmpty(t, out)
	assert.Contains(t, out, "•")
	assert.Equal(t, 1, primary.calls)
}

func TestAdviseCancelledContextSkipsNetworkChain(t *testing.T) {
	primary := &fakeBackend{name: "openai", available: true, reply: "nunca"}
	orch := NewOrchestrator([]Backend{primary}, nil, 3, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := orch.Advise(ctx, sampleReport(), "")

	require.NotEmpty(t, out)
	assert.Equal(t, 0, primary.calls)
	assert.Contains(t, out, "•")
}

func TestStaticBackendAlwaysAnswers(t *testing.T) {
	b := NewStaticBackend(sampleReport())

	assert.True(t, b.Available())
	out, err := b.Generate(context.Background(), "cualquier pregunta")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 4)
	assert.LessOrEqual(t, len(lines), 7)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "•"), "line %q", l)
	}
	assert.Contains(t, out, "Recomendación clave")
}

func TestStaticBackendDegradedNote(t *testing.T) {
	rep := sampleReport()
	rep.ForecastDegraded = true
	rep.Alerts = nil

	out, err := NewStaticBackend(rep).Generate(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "Limitación")
	assert.Contains(t, out, "Sin alertas activas")
}

func TestBuildPromptWithoutSnippets(t *testing.T) {
	p := buildPrompt(sampleReport(), nil, "¿Conviene regar?")
	assert.Contains(t, p, "Reporte:")
	assert.NotContains(t, p, "Contexto de referencia")
	assert.Contains(t, p, "Pregunta del usuario: ¿Conviene regar?")
}
