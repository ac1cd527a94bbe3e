package generator

import (
	"fmt"
	"strings"

	"grant_assistant/document"
)

// Prompt is the instruction pair sent to a backend.
type Prompt struct {
	System string
	User   string
}

// ElementKind names a logframe element that can be generated.
type ElementKind string

const (
	ElementOutcome  ElementKind = "outcome"
	ElementOutput   ElementKind = "output"
	ElementActivity ElementKind = "activity"
)

// MaxPromptCriteria bounds how many criteria descriptions go into a content prompt.
const MaxPromptCriteria = 3

const (
	SystemGrantWriter    = "You are a professional grant writer with expertise in creating compelling, well-structured grant applications."
	SystemLogframeWriter = "You are an expert grant writer specializing in logical frameworks."
	SystemLogframeJSON   = "You are an expert grant writer specializing in logical frameworks. Always respond with valid JSON."
	SystemEvaluator      = "You are an expert grant evaluator. Always respond with valid JSON."
)

// Describe explains what the element kind means in a logframe.
func (k ElementKind) Describe() string {
	switch k {
	case ElementOutcome:
		return "high-level changes or benefits resulting from the project (what will be different)"
	case ElementOutput:
		return "direct deliverables or products of project activities (what will be produced)"
	case ElementActivity:
		return "specific actions or tasks to be carried out (what will be done)"
	default:
		return string(k)
	}
}

// Valid reports whether k is a known element kind.
func (k ElementKind) Valid() bool {
	return k == ElementOutcome || k == ElementOutput || k == ElementActivity
}

// BuildQuestionContext summarises the question being answered.
func BuildQuestionContext(appTitle string, q document.Question) string {
	limit := "No limit"
	if q.MaxWords != nil && *q.MaxWords > 0 {
		limit = fmt.Sprintf("%d", *q.MaxWords)
	}
	return fmt.Sprintf("Application Title: %s\nQuestion: %s\nWord Limit: %s", appTitle, q.Title, limit)
}

// BuildLogframeContext lists every question of the application.
func BuildLogframeContext(app *document.Application) string {
	var sb strings.Builder
	sb.WriteString("Application Title: ")
	if app != nil {
		sb.WriteString(app.Title)
	}
	sb.WriteString("\n\nGrant Questions:")
	if app != nil {
		for _, q := range app.Questions {
			fmt.Fprintf(&sb, "\n- %s: %s", q.Title, q.PromptText)
		}
	}
	return sb.String()
}

// BuildQuestionGenerationPrompt asks for an answer to one question. Only the
// first MaxPromptCriteria criteria are included.
func BuildQuestionGenerationPrompt(questionPrompt string, criteria []string, maxWords *int, context string) string {
	if len(criteria) > MaxPromptCriteria {
		criteria = criteria[:MaxPromptCriteria]
	}

	var sb strings.Builder
	sb.WriteString("You are a professional grant writer helping to create compelling grant applications.\n\n")
	sb.WriteString(context)
	sb.WriteString("\n\nQuestion to answer:\n")
	sb.WriteString(questionPrompt)
	if len(criteria) > 0 {
		sb.WriteString("\n\nEvaluation Criteria to address:")
		for i, c := range criteria {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, c)
		}
	}
	if maxWords != nil && *maxWords > 0 {
		fmt.Fprintf(&sb, "\n\nThe response must be no more than %d words.", *maxWords)
	}
	sb.WriteString("\n\nPlease provide a well-structured, persuasive response that directly addresses the question and meets all evaluation criteria. ")
	sb.WriteString("Use clear, professional language and provide specific examples where appropriate.")
	return sb.String()
}

// BuildLogframeElementPrompt asks for one new outcome, output or activity as
// a JSON object with a description and indicators.
func BuildLogframeElementPrompt(kind ElementKind, context string, existing []string) string {
	var sb strings.Builder
	sb.WriteString("You are helping to develop a logical framework (logframe) for a grant application.\n\n")
	sb.WriteString("Project Context:\n")
	sb.WriteString(context)
	if len(existing) > 0 {
		fmt.Fprintf(&sb, "\n\nExisting %ss to build upon:", kind)
		for _, e := range existing {
			sb.WriteString("\n- ")
			sb.WriteString(e)
		}
	}
	fmt.Fprintf(&sb, "\n\nGenerate a %s - %s.\n\n", kind, kind.Describe())
	fmt.Fprintf(&sb, "Provide a clear, specific, and measurable %s that:\n", kind)
	sb.WriteString("1. Aligns with the project context\n")
	sb.WriteString("2. Is realistic and achievable\n")
	sb.WriteString("3. Includes specific indicators where appropriate\n")
	sb.WriteString("4. Uses SMART criteria (Specific, Measurable, Achievable, Relevant, Time-bound)\n")
	sb.WriteString("5. Does not repeat an existing element\n\n")
	sb.WriteString("Response format:\n")
	fmt.Fprintf(&sb, "{\n  \"description\": \"<%s description>\",\n  \"indicators\": [\"<indicator 1>\", \"<indicator 2>\"]\n}", kind)
	return sb.String()
}

// BuildGoalPrompt asks for a free-text project goal statement.
func BuildGoalPrompt(context string) string {
	var sb strings.Builder
	sb.WriteString("You are helping to develop a logical framework (logframe) for a grant application.\n\n")
	sb.WriteString("Project Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nGenerate a clear, high-level project goal statement that:\n")
	sb.WriteString("1. Captures the ultimate impact or change the project aims to achieve\n")
	sb.WriteString("2. Is inspirational yet achievable\n")
	sb.WriteString("3. Aligns with the project context and questions\n\n")
	sb.WriteString("Respond with ONLY the goal statement, no additional text or formatting.")
	return sb.String()
}

// BuildEvaluationPrompt asks for a scored review of an answer against one
// criterion.
func BuildEvaluationPrompt(questionContent, criteriaDescription string, items []string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert grant evaluator. Evaluate the following grant application response against the specified criteria.\n\n")
	fmt.Fprintf(&sb, "Evaluation Criteria: %s\n\n", criteriaDescription)
	sb.WriteString("Specific items to assess:")
	for i, item := range items {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, item)
	}
	sb.WriteString("\n\nResponse to evaluate:\n")
	sb.WriteString(questionContent)
	sb.WriteString("\n\nProvide:\n")
	sb.WriteString("1. A numerical score (0-10) for each criteria item\n")
	sb.WriteString("2. Detailed feedback explaining the score\n")
	sb.WriteString("3. Specific suggestions for improvement\n")
	sb.WriteString("4. An overall assessment\n\n")
	sb.WriteString("Format your response as JSON with this structure:\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"overallScore\": <number>,\n")
	sb.WriteString("  \"itemScores\": [\n")
	sb.WriteString("    { \"item\": \"<criteria item>\", \"score\": <number>, \"feedback\": \"<string>\" }\n")
	sb.WriteString("  ],\n")
	sb.WriteString("  \"overallFeedback\": \"<string>\",\n")
	sb.WriteString("  \"suggestions\": [\"<suggestion 1>\", \"<suggestion 2>\"]\n")
	sb.WriteString("}")
	return sb.String()
}
