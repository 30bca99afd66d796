package analysis

import "fmt"

const systemPrompt = `You are an expert technical support specialist with deep knowledge of web development, databases, APIs, and troubleshooting.

Your job is to:
1. Summarize the issue clearly and concisely.
2. Estimate its priority based on impact and urgency.
3. Provide detailed helpful notes with troubleshooting steps, common causes, and workarounds.
4. List all relevant technical skills required to solve the issue.

IMPORTANT:
- Respond with *only* valid raw JSON.
- Do NOT include markdown, code fences, comments, or any extra formatting.`

const promptTemplate = `Analyze the following support ticket and provide a JSON object with:

- summary: A short 1-2 sentence summary of the issue.
- priority: One of "low", "medium", or "high".
- level: One of "L1", "L2", or "L3" indicating the expertise depth required.
- helpfulNotes: A detailed technical explanation with step-by-step troubleshooting procedures, common causes and solutions, and alternative approaches or workarounds.
- relatedSkills: An array of relevant skills required to solve the issue (e.g., ["React", "MongoDB", "Node.js"]).

Respond ONLY in this JSON format and do not include any other text or markdown in the answer:

{
"summary": "Short summary of the ticket",
"priority": "high",
"level": "L2",
"helpfulNotes": "Step-by-step troubleshooting guide...",
"relatedSkills": ["React", "Node.js"]
}

---

Ticket information:

- Title: %s
- Description: %s`

func triagePrompt(title, description string) string {
	return fmt.Sprintf(promptTemplate, title, description)
}
