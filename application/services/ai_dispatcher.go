package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"noteflow-backend/application/ports"
	pkgerrors "noteflow-backend/pkg/errors"
)

// TaskKind is the enumerated category of text transformation requested
// from the generative-text capability.
type TaskKind string

const (
	TaskCorrectSentence TaskKind = "correct_sentence"
	TaskWordSuggestions TaskKind = "word_suggestions"
	TaskSummarize       TaskKind = "summarize"
	TaskGenerate        TaskKind = "generate"
	TaskExpand          TaskKind = "expand"
)

// TaskResult is the normalized output of a dispatched task. Response is
// set for every kind except word_suggestions, which fills Suggestions
// instead. Fallback marks a suggestion list recovered by line/comma
// splitting after the model's output failed to parse as structured text.
type TaskResult struct {
	Response    string   `json:"response,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Fallback    bool     `json:"-"`
}

// AIDispatcher maps task kinds to prompts, invokes the external completion
// capability and normalizes its free-form response. It is stateless.
type AIDispatcher struct {
	completer ports.Completer
	logger    *zap.Logger
}

// NewAIDispatcher creates a new dispatcher over the given completer
func NewAIDispatcher(completer ports.Completer, logger *zap.Logger) *AIDispatcher {
	return &AIDispatcher{
		completer: completer,
		logger:    logger,
	}
}

// Dispatch resolves the prompt for the task kind, runs the completion and
// normalizes the result. The only error it returns is an AIProcessing
// error wrapping a failed completion; malformed model output never
// surfaces as an error.
func (d *AIDispatcher) Dispatch(ctx context.Context, kind TaskKind, text string) (*TaskResult, error) {
	prompt := promptFor(kind, text)

	raw, err := d.completer.Complete(ctx, prompt)
	if err != nil {
		d.logger.Warn("Completion failed",
			zap.String("task", string(kind)),
			zap.Error(err),
		)
		return nil, pkgerrors.NewAIProcessingError(err)
	}

	cleaned := cleanMarkdown(raw)

	if kind == TaskWordSuggestions {
		return parseSuggestions(cleaned), nil
	}

	return &TaskResult{Response: cleaned}, nil
}

// promptFor substitutes the text into the fixed template for the task
// kind. Unrecognized kinds deliberately share the generate template
// rather than failing; the default arm makes that fallback explicit.
func promptFor(kind TaskKind, text string) string {
	switch kind {
	case TaskCorrectSentence:
		return fmt.Sprintf("Correct the grammar and structure of this sentence without explanation:\n\"%s\"", text)
	case TaskWordSuggestions:
		return fmt.Sprintf("Suggest 3-5 alternative words for each significant word in this text (exclude articles and prepositions). Return the suggestions as a JSON array where each item is a string in the format \"word: suggestion1, suggestion2, suggestion3, suggestion4, suggestion5\":\n\"%s\"", text)
	case TaskSummarize:
		return fmt.Sprintf("Summarize this text in 1-2 sentences:\n\"%s\"", text)
	case TaskExpand:
		return fmt.Sprintf("Expand this text into a detailed paragraph:\n\"%s\"", text)
	case TaskGenerate:
		return fmt.Sprintf("Generate a response based on this prompt:\n\"%s\"", text)
	default:
		return promptFor(TaskGenerate, text)
	}
}

// cleanMarkdown strips code-fence markers and surrounding whitespace from
// a raw model response. Applied unconditionally to every task kind.
func cleanMarkdown(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// parseSuggestions tries the cleaned text as a JSON string array, then
// falls back to non-empty lines, then to comma-separated tokens when only
// a single line remains. Parse failures are absorbed, never propagated.
func parseSuggestions(cleaned string) *TaskResult {
	var suggestions []string
	if err := json.Unmarshal([]byte(cleaned), &suggestions); err == nil {
		return &TaskResult{Suggestions: suggestions}
	}

	var lines []string
	for _, line := range strings.Split(cleaned, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) == 1 {
		var tokens []string
		for _, token := range strings.Split(cleaned, ",") {
			tokens = append(tokens, strings.TrimSpace(token))
		}
		return &TaskResult{Suggestions: tokens, Fallback: true}
	}

	return &TaskResult{Suggestions: lines, Fallback: true}
}
