package factcheck

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

const systemPrompt = "You are a careful fact-checking assistant helping a salesperson prepare for a client presentation. " +
	"You only trust what the tools return."

func decomposePrompt(claim model.Claim, maxSubClaims int) string {
	return fmt.Sprintf(`You are a fact-checking assistant helping a salesperson prepare for a client presentation.

Split the claim below into at most %d independently verifiable sub-claims. Make each sub-claim specific and unambiguous.
For each sub-claim determine:
1. Preferred source types (e.g. news, industry reports, government, academic)
2. What information is most relevant (e.g. statistics, expert opinions, case studies)
3. Approximate number of sources needed to reach a verdict

Output ONLY a valid JSON array, for example:
[
  {
    "claim": "<string>",
    "analysis": {
      "num_sources_needed": 3,
      "source_types": ["news", "academic", "government"],
      "focus_areas": ["statistics", "expert opinions"]
    }
  }
]

Rules:
- Do NOT include code or any text outside the JSON.
- Do NOT treat the client context as a claim. Use it only to make the analysis more relevant.

Claim: %q
Client context (background only): %q
`, maxSubClaims, claim.Text, claim.ClientContext)
}

func searchPrompt(sc model.SubClaim, maxToolCalls int) string {
	s := sc.Strategy
	return fmt.Sprintf(`You are fact-checking this claim: %s

REQUIREMENTS:
- Find at least %d credible sources
- Prioritize these source types: %s
- Focus on: %s

TOOLS:
- Start with simple, broad queries, then refine if needed
- Do NOT repeat identical queries for the same tool
- You may make at most %d tool calls

EVALUATION:
- Prefer authoritative, recent and primary sources
- Look for corroboration across independent sources
- If sources conflict, say so and weigh them by credibility
- Absence of evidence is not evidence of falseness

VERDICT RULES:
- TRUE: multiple credible sources confirm the claim
- FALSE: credible sources clearly contradict the claim
- CANNOT BE DETERMINED: insufficient evidence, conflicting reliable sources, or no information

OUTPUT FORMAT:
1. Overall Verdict: TRUE, FALSE, or CANNOT BE DETERMINED
2. Explanation: how you arrived at the verdict, naming the sources
`, sc.Text, s.MinSources, strings.Join(s.SourceTypes, ", "), strings.Join(s.FocusAreas, ", "), maxToolCalls)
}

const finalAnswerPrompt = "You have used your tool budget. Do not call any more tools. " +
	"Give your final answer now in the required format (Overall Verdict and Explanation)."

func synthesizePrompt(rawVerdict string, log model.EvidenceLog, coverage SourceCoverage) string {
	evidence, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		evidence = []byte("[]")
	}
	return fmt.Sprintf(`Verdict: %s
Evidence Log: %s
Source Coverage: %s

Given this verdict from the research agent, decide whether the claim should be passed to the materials agent that creates sales presentation materials.
False claims should normally not be passed on. True claims can be. If caveats allow the claim to be presented accurately, you may pass it on and say so in the explanation.
Extract the result as JSON:
{
  "overall_verdict": "<TRUE|FALSE|CANNOT BE DETERMINED>",
  "explanation": "<concise explanation>",
  "main_evidence": [
    {"source": "<source name or URL>", "summary": "<one line summary>"}
  ],
  "pass_to_materials_agent": <true|false>
}

Do not write any text outside the JSON. Do not write code.
`, rawVerdict, evidence, coverage)
}
