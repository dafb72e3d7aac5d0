package advisory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"agrorain/metrics"
	"agrorain/types"
)

const defaultQuestion = "Dame recomendaciones generales de riego y manejo para la próxima campaña."

// One bounded retry on the primary backend before advancing the chain.
const primaryRetryBackoff = 2 * time.Second

// ContextRetriever is the retrieval capability the orchestrator consults when
// the primary backend is attempted. Satisfied by retrieval.Retriever.
type ContextRetriever interface {
	Available() bool
	GetContext(ctx context.Context, query string, limit int) []types.Snippet
}

// Orchestrator walks the ordered backend chain at call time and guarantees a
// non-empty advisory: when every network backend falls through, the static
// template over the report answers.
type Orchestrator struct {
	backends  []Backend
	retriever ContextRetriever
	limit     int
	timeout   time.Duration
	breakers  map[string]*gobreaker.CircuitBreaker
	collector *metrics.Collector
}

// NewOrchestrator wires the chain in priority order. Each network backend gets
// its own circuit breaker so a flapping provider is skipped quickly instead of
// burning the per-call timeout on every request.
func NewOrchestrator(backends []Backend, retriever ContextRetriever, limit int, timeout time.Duration, collector *metrics.Collector) *Orchestrator {
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(backends))
	for _, b := range backends {
		breakers[b.Name()] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        b.Name(),
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
	}

	return &Orchestrator{
		backends:  backends,
		retriever: retriever,
		limit:     limit,
		timeout:   timeout,
		breakers:  breakers,
		collector: collector,
	}
}

// Advise resolves the report and optional question into advisory text. The
// chain is re-evaluated on every call; the terminal state is always a success.
func (o *Orchestrator) Advise(ctx context.Context, report *types.Report, question string) string {
	q := strings.TrimSpace(question)
	if q == "" {
		q = defaultQuestion
	}

	for i, b := range o.backends {
		if ctx.Err() != nil {
			// Request cancelled: abandon the network chain, the static
			// answer below still resolves from the immutable report.
			break
		}
		if !b.Available() {
			log.Printf("Advisory backend %s not available, skipping", b.Name())
			continue
		}

		// Retrieved context rides only on the primary backend; the rest of
		// the chain receives the report alone. Retrieval gets the same
		// per-call timeout as a backend attempt so a stalled embeddings call
		// degrades to empty context instead of blocking the advisory.
		var snippets []types.Snippet
		if i == 0 && o.retriever != nil && o.retriever.Available() {
			retrievalCtx, cancel := context.WithTimeout(ctx, o.timeout)
			snippets = o.retriever.GetContext(retrievalCtx, q, o.limit)
			cancel()
			if len(snippets) == 0 && o.collector != nil {
				o.collector.RetrievalFailures.Inc()
			}
		}
		prompt := buildPrompt(report, snippets, q)

		attempts := 1
		if i == 0 {
			attempts = 2
		}
		for attempt := 0; attempt < attempts; attempt++ {
			if attempt > 0 && !sleepWithContext(ctx, primaryRetryBackoff) {
				break
			}

			text, err := o.attempt(ctx, b, prompt)
			if err == nil && strings.TrimSpace(text) != "" {
				o.count(b.Name(), "success")
				return text
			}
			o.count(b.Name(), "failure")
			log.Printf("Advisory backend %s failed (attempt %d/%d): %v", b.Name(), attempt+1, attempts, err)
		}
	}

	o.count("static", "success")
	text, _ := NewStaticBackend(report).Generate(ctx, q)
	return text
}

func (o *Orchestrator) attempt(ctx context.Context, b Backend, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	cb, ok := o.breakers[b.Name()]
	if !ok {
		return b.Generate(callCtx, prompt)
	}

	result, err := cb.Execute(func() (interface{}, error) {
		return b.Generate(callCtx, prompt)
	})
	if err != nil {
		return "", err
	}
	text, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected result type from circuit breaker")
	}
	return text, nil
}

func (o *Orchestrator) count(backend, outcome string) {
	if o.collector != nil {
		o.collector.BackendAttempts.WithLabelValues(backend, outcome).Inc()
	}
}

// buildPrompt embeds the persona framing, the report, the optional retrieved
// context and the question into a single prompt.
func buildPrompt(report *types.Report, snippets []types.Snippet, question string) string {
	var sb strings.Builder

	sb.WriteString("Responde en español, orientado al agro. Usa EXCLUSIVAMENTE la información del siguiente ")
	sb.WriteString("reporte climático y del contexto de referencia si está presente. Entrega una respuesta en ")
	sb.WriteString("4-7 puntos breves con recomendaciones prácticas de riego y manejo; cada punto debe nombrar ")
	sb.WriteString("una acción y el riesgo asociado. Incluye cifras clave (promedios y rangos). ")
	sb.WriteString("Si falta información, menciona la limitación. No repitas texto literal.\n\n")

	fmt.Fprintf(&sb, "Reporte:\n%s\n", report.Text)

	if len(snippets) > 0 {
		sb.WriteString("\nContexto de referencia:\n")
		for _, s := range snippets {
			fmt.Fprintf(&sb, "- %s\n", s.Text)
		}
	}

	fmt.Fprintf(&sb, "\nPregunta del usuario: %s", question)

	return sb.String()
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
