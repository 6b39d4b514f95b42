// Package observability provides the agent loop's monitoring and debugging
// surface: metrics, structured logging, and distributed tracing.
//
// # Overview
//
// The observability package implements three pillars:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed request tracing with OpenTelemetry
//
// # Architecture
//
// The package is designed to be:
//   - Low-overhead: minimal performance impact on production systems
//   - Type-safe: strongly-typed APIs reduce configuration errors
//   - Standards-based: uses Prometheus, OpenTelemetry, and slog
//
// # Metrics
//
// Metrics are implemented using Prometheus client libraries and track:
//   - LLM API request latency, counts, and token usage
//   - Tool execution counts and latency
//   - Error rates by component and error kind
//   - input() outcomes (success, max-iterations, error) and iteration counts
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	start := time.Now()
//	// ... call provider.Complete ...
//	metrics.RecordLLMRequest("anthropic", "claude-3-opus", "success",
//	    time.Since(start).Seconds(), promptTokens, completionTokens)
//
//	start = time.Now()
//	// ... execute tool ...
//	metrics.RecordToolExecution("web_search", "success", time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic request ID correlation from context
//   - Sensitive data redaction (API keys, passwords, tokens)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	ctx := observability.AddRequestID(ctx, requestID)
//	ctx = observability.AddSessionID(ctx, session.ID)
//
//	logger.Info(ctx, "running agent",
//	    "agent", agentName,
//	    "model", model,
//	)
//
//	logger.Error(ctx, "LLM request failed",
//	    "error", err,
//	    "provider", "anthropic",
//	    "api_key", apiKey, // automatically redacted
//	)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track a single input() call
// across its LLM round trips and tool executions:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:    "connectonion",
//	    ServiceVersion: "0.1.0",
//	    Environment:    "production",
//	    Endpoint:       "localhost:4317", // OTLP collector
//	    SamplingRate:   0.1,              // sample 10% of traces
//	})
//	defer shutdown(context.Background())
//
//	ctx, llmSpan := tracer.TraceLLMRequest(ctx, "anthropic", "claude-3-opus")
//	defer llmSpan.End()
//	tracer.SetAttributes(llmSpan, "prompt_tokens", 100, "completion_tokens", 500)
//
//	ctx, toolSpan := tracer.TraceToolExecution(ctx, "web_search")
//	defer toolSpan.End()
//	if err != nil {
//	    tracer.RecordError(toolSpan, err)
//	}
//
// # Context Propagation
//
//	ctx = observability.AddRequestID(ctx, "req-123")
//	ctx = observability.AddSessionID(ctx, "sess-456")
//	logger.Info(ctx, "running") // includes request_id, session_id
//
//	ctx, span := tracer.Start(ctx, "operation")
//	// trace context propagates to child spans
//
// # Integration Example
//
//	func (a *Agent) runLoop(ctx context.Context, session *models.Session) (string, error) {
//	    start := time.Now()
//	    ctx, span := tracer.TraceLLMRequest(ctx, a.provider.Name(), a.model)
//	    resp, err := a.provider.Complete(ctx, req)
//	    span.End()
//
//	    status := "success"
//	    if err != nil {
//	        status = "error"
//	        tracer.RecordError(span, err)
//	        metrics.RecordError("dispatcher", observability.ErrorKind(err))
//	    }
//	    metrics.RecordLLMRequest(a.provider.Name(), a.model, status,
//	        time.Since(start).Seconds(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
//	    return resp.Content, err
//	}
//
// # Security Considerations
//
// The logging component automatically redacts:
//   - API keys (Anthropic, OpenAI, Gemini, generic)
//   - Passwords and secrets
//   - JWT and bearer tokens
//   - Custom patterns via configuration
//
// Sensitive fields in maps are also redacted: password, secret, api_key,
// token, auth, authorization, private_key.
//
// # Performance
//
//   - Metrics: <1% CPU overhead, lock-free counters where possible
//   - Logging: ~1-5μs per log call with slog
//   - Tracing: ~2-10μs per span when sampled; zero-alloc no-op when not configured
//
// # Testing
//
//   - Metrics can be verified using prometheus/testutil
//   - Logging can write to bytes.Buffer for assertions
//   - Tracing works with a no-op tracer (no Endpoint configured) in tests
//
// # Best Practices
//
//  1. Always propagate context to enable correlation
//  2. Use defer for span.End() to ensure spans are closed
//  3. Record errors on both metrics and traces
//  4. Use structured logging with key-value pairs
//  5. Set appropriate sampling rates for high-traffic deployments
//  6. Use typed metric labels (avoid high-cardinality values)
//
// # Monitoring Dashboard
//
//	# LLM request latency (95th percentile)
//	histogram_quantile(0.95, rate(connectonion_llm_request_duration_seconds_bucket[5m]))
//
//	# Error rate
//	rate(connectonion_errors_total[5m])
//
//	# Tool execution time
//	rate(connectonion_tool_execution_duration_seconds_sum[5m]) /
//	rate(connectonion_tool_execution_duration_seconds_count[5m])
//
// # Further Reading
//
//   - Prometheus best practices: https://prometheus.io/docs/practices/naming/
//   - OpenTelemetry specification: https://opentelemetry.io/docs/specs/otel/
//   - slog documentation: https://pkg.go.dev/log/slog
package observability
