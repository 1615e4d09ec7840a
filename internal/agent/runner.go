package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/acadly/feedbackd/internal/llm"
	"github.com/acadly/feedbackd/internal/log"
	"github.com/acadly/feedbackd/internal/metrics"
	"github.com/acadly/feedbackd/internal/prompts"
)

// Tool results above this size get truncated before they re-enter the
// conversation, otherwise a broad query blows the context window.
const maxToolResultChars = 5000

// Progress receives human-readable status lines while the agent works.
// It is how streaming chat endpoints forward intermediate state to the
// gateway. A nil Progress is allowed.
type Progress func(message string)

// Runner drives the autonomous tool loop.
type Runner struct {
	llm      llm.Completer
	tools    *Registry
	maxSteps int
}

// NewRunner builds a runner. maxSteps bounds the tool iterations.
func NewRunner(c llm.Completer, tools *Registry, maxSteps int) *Runner {
	if maxSteps <= 0 {
		maxSteps = 10
	}
	return &Runner{llm: c, tools: tools, maxSteps: maxSteps}
}

type toolResult struct {
	tool     string
	args     map[string]any
	rendered string
	hasError bool
}

// Run answers userMessage, letting the model call tools as it sees
// fit. history carries prior conversation turns.
func (r *Runner) Run(ctx context.Context, userMessage string, history []llm.Message, progress Progress) (string, error) {
	logger := log.WithComponentFromContext(ctx, "agent")
	notify := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, history...)
	if r.tools.Len() > 0 {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: prompts.AgentSystem(r.tools.Context()),
		})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	response, err := r.llm.Complete(ctx, messages)
	if err != nil {
		return "", err
	}

	if r.tools.Len() == 0 || !isToolRequest(response) {
		return response, nil
	}

	notify("Model requested database tools, starting analysis...")

	var allResults []toolResult
	current := response

	for step := 1; step <= r.maxSteps && isToolRequest(current); step++ {
		requests := parseToolRequests(current)
		if len(requests) == 0 {
			break
		}
		metrics.IncAgentStep()
		logger.Info().Int("step", step).Int("tools", len(requests)).Msg("executing tool iteration")
		notify(fmt.Sprintf("Iteration %d/%d: running %d tool(s)", step, r.maxSteps, len(requests)))

		stepResults := make([]toolResult, 0, len(requests))
		for i, req := range requests {
			notify(fmt.Sprintf("Running tool %d/%d: %s", i+1, len(requests), req.ToolName))
			stepResults = append(stepResults, r.executeOne(ctx, req))
		}
		allResults = append(allResults, stepResults...)

		var failed, succeeded []toolResult
		for _, res := range stepResults {
			if res.hasError {
				failed = append(failed, res)
			} else {
				succeeded = append(succeeded, res)
			}
		}

		followUp, budget := r.buildFollowUp(userMessage, step, failed, succeeded)
		next, err := r.llm.Complete(ctx, append(cloneMessages(messages), followUp...), llm.WithMaxTokens(budget))
		if err != nil {
			logger.Warn().Err(err).Int("step", step).Msg("follow-up completion failed")
			break
		}
		current = next

		if strings.Contains(strings.ToUpper(current), prompts.StopWord) {
			break
		}
	}

	if len(allResults) == 0 {
		return current, nil
	}

	notify("Synthesizing final answer...")
	return r.synthesize(ctx, messages, userMessage, allResults, current)
}

// executeOne runs a single tool request and classifies the outcome.
func (r *Runner) executeOne(ctx context.Context, req toolRequest) toolResult {
	logger := log.WithComponentFromContext(ctx, "agent")

	res := toolResult{tool: req.ToolName, args: req.Arguments}

	out, err := r.tools.Execute(ctx, req.ToolName, req.Arguments)
	if err != nil {
		res.rendered = err.Error()
		res.hasError = true
		metrics.IncToolCall(req.ToolName, "error")
		logger.Warn().Err(err).Str(log.FieldTool, req.ToolName).Msg("tool call failed")
		return res
	}

	res.rendered = renderResult(out)
	res.hasError = r.evaluateResult(ctx, req, res.rendered)
	outcome := "success"
	if res.hasError {
		outcome = "error"
	}
	metrics.IncToolCall(req.ToolName, outcome)
	logger.Debug().Str(log.FieldTool, req.ToolName).Bool("has_error", res.hasError).Msg("tool call finished")
	return res
}

// evaluateResult asks the model to classify ambiguous tool output.
// When that secondary call fails it falls back to substring matching.
func (r *Runner) evaluateResult(ctx context.Context, req toolRequest, rendered string) bool {
	args, _ := json.Marshal(req.Arguments)
	preview := rendered
	if len(preview) > 1000 {
		preview = preview[:1000]
	}

	verdict, err := r.llm.Complete(ctx,
		[]llm.Message{{Role: llm.RoleUser, Content: prompts.ResultEvaluation(req.ToolName, string(args), preview)}},
		llm.WithTemperature(0.1), llm.WithMaxTokens(10))
	if err == nil {
		return strings.Contains(strings.ToUpper(verdict), "ERROR")
	}

	lower := strings.ToLower(rendered)
	for _, indicator := range []string{"error", "missing", "not found", "denied", "forbidden", "invalid", "failed", "unable"} {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// buildFollowUp constructs the next user turn after a tool iteration,
// mirroring the three cases: some failures, all successes, all failures.
func (r *Runner) buildFollowUp(originalQuestion string, step int, failed, succeeded []toolResult) ([]llm.Message, int) {
	toolNames := func(results []toolResult) string {
		names := make([]string, 0, len(results))
		for _, res := range results {
			names = append(names, res.tool)
		}
		return strings.Join(names, ", ")
	}

	switch {
	case len(failed) > 0 && len(succeeded) > 0:
		var errCtx strings.Builder
		for _, f := range failed {
			args, _ := json.Marshal(f.args)
			fmt.Fprintf(&errCtx, "- Error in %q with arguments %s: %s\n", f.tool, args, f.rendered)
		}
		successCtx := ""
		if len(succeeded) > 0 {
			successCtx = "Successful tools: " + toolNames(succeeded) + "\n"
		}
		return []llm.Message{
			{Role: llm.RoleAssistant, Content: fmt.Sprintf("I executed tools in iteration %d but hit some errors.", step)},
			{Role: llm.RoleUser, Content: prompts.ToolErrorRecovery(errCtx.String(), successCtx, originalQuestion)},
		}, 700

	case len(succeeded) > 0:
		iterationCtx := fmt.Sprintf("executed %d tool(s): %s", len(succeeded), toolNames(succeeded))
		return []llm.Message{
			{Role: llm.RoleAssistant, Content: fmt.Sprintf("I executed the tools of iteration %d.", step)},
			{Role: llm.RoleUser, Content: prompts.ToolContinue(iterationCtx, originalQuestion)},
		}, 500

	default:
		var errCtx strings.Builder
		errCtx.WriteString("All tools failed:\n")
		for _, f := range failed {
			fmt.Fprintf(&errCtx, "- %s: %s\n", f.tool, f.rendered)
		}
		return []llm.Message{
			{Role: llm.RoleUser, Content: prompts.AllToolsFailed(errCtx.String(), originalQuestion)},
		}, 600
	}
}

// synthesize produces the tool-free final answer from the accumulated
// results.
func (r *Runner) synthesize(ctx context.Context, messages []llm.Message, originalQuestion string, results []toolResult, lastResponse string) (string, error) {
	var succeeded, failed []toolResult
	for _, res := range results {
		if res.hasError {
			failed = append(failed, res)
		} else {
			succeeded = append(succeeded, res)
		}
	}

	var summary strings.Builder
	fmt.Fprintf(&summary, "Tools executed: %d (%d succeeded, %d failed)\n", len(results), len(succeeded), len(failed))
	if len(succeeded) > 0 {
		summary.WriteString("\nSUCCESSFUL RESULTS:\n")
		for i, res := range succeeded {
			if i == 3 {
				break
			}
			fmt.Fprintf(&summary, "%d. %s: %s\n", i+1, res.tool, clip(res.rendered, 1000))
		}
	}
	if len(failed) > 0 {
		summary.WriteString("\nERRORS:\n")
		for i, res := range failed {
			if i == 2 {
				break
			}
			fmt.Fprintf(&summary, "%d. %s: %s\n", i+1, res.tool, clip(res.rendered, 500))
		}
	}

	final := append(cloneMessages(messages), llm.Message{
		Role:    llm.RoleUser,
		Content: prompts.FinalSynthesis(summary.String(), originalQuestion),
	})

	answer, err := r.llm.Complete(ctx, final, llm.WithMaxTokens(1500))
	if err != nil {
		if len(succeeded) > 0 {
			return fmt.Sprintf("I executed %d database tools successfully (%d failed) but could not synthesize a final answer. The successful results are available.", len(succeeded), len(failed)), nil
		}
		return "", err
	}

	// The synthesis turn must not start another tool round.
	if isToolRequest(answer) {
		if len(succeeded) > 0 {
			return fmt.Sprintf("Based on the %d successful database queries, the necessary data was gathered to answer the request. %d tool calls failed but the remaining results were sufficient.", len(succeeded), len(failed)), nil
		}
		return fmt.Sprintf("Attempted %d database tool calls but all of them failed. The most common causes are unknown tables or malformed queries. %s", len(results), lastResponse), nil
	}

	return answer, nil
}

func renderResult(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := string(data)
	if len(s) > maxToolResultChars {
		s = s[:maxToolResultChars] + "\n... (result truncated)"
	}
	return s
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func cloneMessages(msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out
}
