// Package prompts holds the prompt templates used for feedback
// generation and the autonomous analysis agent.
package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// StopWord is the token the agent emits when it has gathered enough
// data and wants the final answer synthesized.
const StopWord = "DONE"

// DatabaseContext describes the academic schema the agent can query.
// It is prepended to the coordinator and professor prompts so the
// model knows which tables exist and how they relate.
const DatabaseContext = `Logical structure overview

1. People and roles
- user: any person interacting with the system (professor, student, evaluator).
- role: profile catalog; a user optionally points to one role (1 -> N).

2. Work teams
- team: a group of students.
- team_user: bridge table linking users and teams (N <-> N).

3. Course management
- class: a course; stores name, semester and the responsible professor (professor_id -> user).
- class_team: class-team join indicating which teams take each class (N <-> N).

4. Academic activities
- assignment: a task belonging to a class (class_id -> class) with start and due dates.

5. Submission and evaluation flow
- submission: a team's delivery of an assignment (assignment_id -> assignment, team_id -> team).
- feedback: the global comment on a submission; 1-to-1 (unique submission_id).
- evaluation: an individual rubric or grade for a submission by an evaluator (submission_id -> submission, evaluator_id -> user). Multiple evaluations per submission are allowed.

Identified patterns
- Many-to-many join tables: team_user, class_team.
- Strong reference hierarchy: class -> assignment -> submission -> {feedback, evaluation}.
- Timestamp columns (created_at, submitted_at, feedback_date) provide a basic audit trail; there are no versioning tables.

Overall the database models a collaborative learning environment: users group into teams, teams take classes, classes define assignments, teams submit work and submissions receive feedback and evaluations.`

var teamStrengths = template.Must(template.New("team_strengths").Parse(`You are an academic evaluator. Analyze the following evaluations and identify the specific STRENGTHS of team "{{.TeamName}}" in the assignment "{{.AssignmentTitle}}".

EVALUATION DATA:
- Number of evaluations: {{.Count}}

EVALUATED CRITERIA:
{{.CriteriaJSON}}

EVALUATION TYPES:
{{.EvaluationTypes}}

INSTRUCTIONS:
1. Identify 3-5 specific team strengths based on the data
2. For each strength, name the criterion or score that supports it
3. Be specific and constructive
4. Use a professional but encouraging tone

RESPONSE FORMAT:
- [Strength 1]: [Specific explanation with evidence from the data]
- [Strength 2]: [Specific explanation with evidence from the data]
- [etc...]

Respond only with the list of strengths, without any extra introduction or conclusion.`))

var teamImprovements = template.Must(template.New("team_improvements").Parse(`You are an academic evaluator. Analyze the following evaluations and identify the specific AREAS FOR IMPROVEMENT for team "{{.TeamName}}" in the assignment "{{.AssignmentTitle}}".

EVALUATION DATA:
- Number of evaluations: {{.Count}}

EVALUATED CRITERIA:
{{.CriteriaJSON}}

EVALUATION TYPES:
{{.EvaluationTypes}}

INSTRUCTIONS:
1. Identify 3-4 specific improvement areas based on the lowest scored criteria
2. For each area, give concrete and actionable suggestions
3. Focus on collaboration, communication, process and technical quality
4. Be constructive and specific, avoid generic criticism
5. Include practical recommendations

RESPONSE FORMAT:
- [Improvement area 1]: [Specific, actionable suggestion]
- [Improvement area 2]: [Specific, actionable suggestion]
- [etc...]

Respond only with the list of improvements, without any extra introduction or conclusion.`))

var teamCombined = template.Must(template.New("team_combined").Parse(`You are an academic evaluator. Produce constructive, professional feedback for team "{{.TeamName}}" in the assignment "{{.AssignmentTitle}}".

EVALUATION DATA:
- Number of evaluations: {{.Count}}

EVALUATED CRITERIA:
{{.CriteriaJSON}}

EVALUATION TYPES:
{{.EvaluationTypes}}

TEAM STRENGTHS:
{{.Strengths}}

TEAM IMPROVEMENT AREAS:
{{.Improvements}}

INSTRUCTIONS:
1. Combine the strengths and improvement areas into cohesive feedback
2. Use a professional, constructive and encouraging tone
3. Be specific and avoid generalizations
4. Include practical recommendations for the identified areas

RESPONSE FORMAT:
- [Strengths]: [Specific description of the strengths]
- [Improvement areas]: [Specific description of the improvement areas]
- [Recommendations]: [Practical suggestions to improve]

Respond only with the structured feedback, without any extra introduction or conclusion.`))

var coordinator = template.Must(template.New("coordinator").Parse(`{{.DatabaseContext}}

You are an academic analysis assistant specialized in reports for academic coordinators.
Prepare a strategic analysis and management report addressed to an ACADEMIC COORDINATOR.

CONVERSATION HISTORY:
{{.ConversationHistory}}

CURRENT USER QUERY: {{.UserQuery}}

ANALYSIS INSTRUCTIONS:
1. Take the previous conversation into account when relevant
2. Produce overall team metrics and trends for the coordinator
3. Provide comparative analysis across teams when relevant
4. Identify performance patterns and areas needing institutional attention
5. Suggest improvement strategies at the program or coordination level
6. Back the analysis with concrete data from the database
7. Present information that lets the coordinator make strategic decisions

RESPONSE FORMAT FOR THE COORDINATOR:
- Analysis grounded in database data
- Metrics relevant to academic coordination
- Well-founded strategic recommendations

Use the available database tools to gather the necessary information and answer with a professional analysis that will be sent to the academic coordinator.`))

var professor = template.Must(template.New("professor").Parse(`{{.DatabaseContext}}

You are an academic analysis assistant specialized in pedagogical reports for professors.
Prepare an educational analysis and pedagogical feedback addressed to a PROFESSOR.

CONVERSATION HISTORY:
{{.ConversationHistory}}

CURRENT USER QUERY: {{.UserQuery}}

ANALYSIS INSTRUCTIONS:
1. Take the previous conversation into account when relevant
2. Focus the analysis on student learning and competence development
3. Provide constructive, specific feedback on team performance
4. Identify opportunities for pedagogical improvement and learning
5. Suggest teaching strategies and complementary activities
6. Use specific evaluation data to personalize the feedback
7. Present information that helps the professor plan classes and activities

RESPONSE FORMAT FOR THE PROFESSOR:
- Pedagogical analysis based on evaluations
- Specific feedback on competences and skills
- Didactic recommendations to improve learning

Use the available database tools to gather the necessary information and answer with an educational analysis that will be sent to the professor.`))

var agentSystem = template.Must(template.New("agent_system").Parse(`You are an intelligent analysis assistant with access to database tools.

{{.ToolsContext}}

IMPORTANT:
- If you need specific information from the database to answer, use these tools
- To invoke a tool, respond with this JSON format:

{
    "tool_request": {
        "tool_name": "name_of_the_tool",
        "arguments": {
            "param1": "value1",
            "param2": "value2"
        }
    },
    "reason": "Why you need this tool"
}

- If you already have enough information or are told NOT to use more tools, answer directly
- If you do not need tools, just answer normally`))

var toolErrorRecovery = template.Must(template.New("tool_error_recovery").Parse(`ERRORS DETECTED:
{{.ErrorContext}}
{{.SuccessContext}}
Original question: {{.OriginalQuestion}}

The errors above were identified automatically. Analyze each one and:

1. If required parameters are missing, add the missing parameters
2. If the call has format or syntax problems, fix its structure
3. If a table or column name is wrong, use list_tables or describe_table to find the correct name
4. If the query failed, retry with a more specific query

IMPORTANT:
- Learn from each specific error and correct it
- Use the JSON format for new tool requests
- If you already have enough successful information, respond "` + StopWord + `"
- Do not repeat exactly the same errors

Which tool will you use to fix these specific errors, or can you already answer?`))

var toolContinue = template.Must(template.New("tool_continue").Parse(`Results: {{.IterationContext}}

Original question: {{.OriginalQuestion}}

Do you need to run more specific tools, or can you already answer?
If you need another tool, request it in JSON format.
If you have enough, respond "` + StopWord + `".`))

var allToolsFailed = template.Must(template.New("all_tools_failed").Parse(`{{.ErrorContext}}

Original question: {{.OriginalQuestion}}

All previous tools failed. Please:
1. Analyze the errors and find a different strategy
2. Try alternative tools or different parameters
3. If you can partially answer with general information, respond "` + StopWord + `"

Which alternative tool will you try?`))

var finalSynthesis = template.Must(template.New("final_synthesis").Parse(`Based on these database results:

{{.ResultsSummary}}

Answer the original question: {{.OriginalQuestion}}

INSTRUCTIONS:
- If you have successful results, use them to answer completely
- If you only have errors, explain what was attempted and why it failed
- If you have a mix, answer with the available information and note the limitations
- Be concise but complete
- Provide relevant information based on the obtained results

IMPORTANT: do NOT use more tools. Answer directly with the available information.`))

var resultEvaluation = template.Must(template.New("result_evaluation").Parse(`Analyze this database tool result and decide whether it is an ERROR or a SUCCESS:

TOOL USED: {{.ToolName}}
ARGUMENTS: {{.Arguments}}
RESULT: {{.Result}}

CRITERIA:
- ERROR if: it contains error messages, missing parameters, unknown tables or columns, denied access, malformed queries
- SUCCESS if: it returns valid data, row lists, or objects with useful information

Respond with exactly one word: "ERROR" or "SUCCESS"`))

// TeamData carries the fields shared by the team feedback prompts.
type TeamData struct {
	TeamName        string
	AssignmentTitle string
	Count           int
	CriteriaJSON    string
	EvaluationTypes string
	Strengths       string
	Improvements    string
}

func render(t *template.Template, data any) string {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		// Templates are compile-time constants; execution only fails
		// on a field mismatch, which is a programming error.
		panic(fmt.Sprintf("prompts: render %s: %v", t.Name(), err))
	}
	return sb.String()
}

// TeamStrengths builds the strengths extraction prompt.
func TeamStrengths(d TeamData) string { return render(teamStrengths, d) }

// TeamImprovements builds the improvement-areas extraction prompt.
func TeamImprovements(d TeamData) string { return render(teamImprovements, d) }

// TeamCombined builds the consolidated team feedback prompt.
func TeamCombined(d TeamData) string { return render(teamCombined, d) }

// Coordinator builds the analysis prompt addressed to an academic
// coordinator, embedding the schema context and prior conversation.
func Coordinator(userQuery string, history []string) string {
	return render(coordinator, roleData(userQuery, history))
}

// Professor builds the pedagogical analysis prompt addressed to a professor.
func Professor(userQuery string, history []string) string {
	return render(professor, roleData(userQuery, history))
}

func roleData(userQuery string, history []string) map[string]string {
	h := "There are no previous messages in this conversation."
	if len(history) > 0 {
		h = strings.Join(history, "\n")
	}
	return map[string]string{
		"DatabaseContext":     DatabaseContext,
		"ConversationHistory": h,
		"UserQuery":           userQuery,
	}
}

// AgentSystem builds the system prompt that teaches the model the
// tool_request envelope, given a description of the available tools.
func AgentSystem(toolsContext string) string {
	return render(agentSystem, map[string]string{"ToolsContext": toolsContext})
}

// ToolErrorRecovery asks the model to correct failed tool calls.
func ToolErrorRecovery(errorContext, successContext, originalQuestion string) string {
	return render(toolErrorRecovery, map[string]string{
		"ErrorContext":     errorContext,
		"SuccessContext":   successContext,
		"OriginalQuestion": originalQuestion,
	})
}

// ToolContinue asks the model whether it needs more tools after a
// successful iteration.
func ToolContinue(iterationContext, originalQuestion string) string {
	return render(toolContinue, map[string]string{
		"IterationContext": iterationContext,
		"OriginalQuestion": originalQuestion,
	})
}

// AllToolsFailed asks the model for an alternative strategy after every
// tool in an iteration failed.
func AllToolsFailed(errorContext, originalQuestion string) string {
	return render(allToolsFailed, map[string]string{
		"ErrorContext":     errorContext,
		"OriginalQuestion": originalQuestion,
	})
}

// FinalSynthesis asks the model for the final tool-free answer based on
// the accumulated results.
func FinalSynthesis(resultsSummary, originalQuestion string) string {
	return render(finalSynthesis, map[string]string{
		"ResultsSummary":   resultsSummary,
		"OriginalQuestion": originalQuestion,
	})
}

// ResultEvaluation asks the model to classify a tool result.
func ResultEvaluation(toolName, arguments, result string) string {
	return render(resultEvaluation, map[string]string{
		"ToolName":  toolName,
		"Arguments": arguments,
		"Result":    result,
	})
}
