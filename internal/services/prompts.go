package services

// LLM Prompt Constants for consistent and optimized AI interactions

// Content caps keep prompts inside the model's context window. Log content
// is truncated before interpolation, never after.
const (
	SUMMARY_PROMPT_CONTENT_CAP     = 8000
	REMEDIATION_PROMPT_CONTENT_CAP = 6000
)

const (
	// SYSTEM_PROMPT frames every chat completion request
	SYSTEM_PROMPT = `You are an expert error-log analyst for an engineering organization. You examine raw error logs and produce precise, actionable technical analyses. You always answer with a single valid JSON object and nothing else.`

	// ERROR_ANALYSIS_PROMPT is used for full analysis of an uploaded error log
	ERROR_ANALYSIS_PROMPT = `You are analyzing an error log uploaded by an engineering team.

CRITICAL INSTRUCTIONS:
- Return ONLY valid JSON in the exact format specified below
- Do not include any explanatory text, introductions, or markdown formatting
- Focus on actionable insights and specific technical details
- Line numbers refer to the log content as given, starting at 1

ANALYSIS CONTEXT:
Team: %s
Module: %s

LOG CONTENT TO ANALYZE:
%s

ANALYSIS REQUIREMENTS:
1. Identify the distinct error signatures present and where they occur
2. Determine the primary root cause that explains most of the log
3. Classify overall severity based on impact and stability
4. Provide specific, actionable remediation steps
5. Extract the most salient technical keywords

REQUIRED JSON FORMAT:
{
  "summary": "Concise technical summary of the dominant failure (2-3 sentences)",
  "severity": "low|medium|high|critical",
  "root_cause": "Detailed technical root cause with evidence from the log",
  "confidence": 0.85,
  "keywords": ["keyword1", "keyword2"],
  "remediations": [
    "Specific technical action with clear steps",
    "Configuration or infrastructure change"
  ],
  "issues": [
    {
      "line_number": 12,
      "snippet": "the offending log line",
      "category": "memory|network|security|filesystem|hardware|kernel|concurrency|application",
      "severity": "low|medium|high|critical",
      "confidence": 0.9
    }
  ]
}

SEVERITY GUIDELINES:
- CRITICAL: Crashes, data loss, security compromise, kernel panics
- HIGH: Service outages, memory exhaustion, cascading failures
- MEDIUM: Degradation, intermittent failures, permission problems
- LOW: Minor issues, transient warnings, cosmetic errors

Return ONLY the JSON object, nothing else.`

	// REMEDIATION_PROMPT is used to ask for additional fix suggestions for a
	// log whose analysis produced none
	REMEDIATION_PROMPT = `You are suggesting fixes for an error log that has already been summarized.

CRITICAL INSTRUCTIONS:
- Return ONLY valid JSON in the exact format specified below
- Do not include any explanatory text or markdown formatting
- Each remediation must be concrete enough to act on

CONTEXT:
Summary: %s
Severity: %s

LOG CONTENT:
%s

REQUIRED JSON FORMAT:
{
  "summary": "One sentence restating the failure",
  "severity": "low|medium|high|critical",
  "remediations": [
    "First concrete fix",
    "Second concrete fix"
  ]
}

Return ONLY the JSON object, nothing else.`
)
