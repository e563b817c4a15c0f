// ABOUTME: Prompt construction for every classification decision
// ABOUTME: Few-shot routing examples steer greetings and off-topic questions away from retrieval
package classifier

import (
	"fmt"
	"strings"

	"github.com/harper/electionrag/internal/llm"
	"github.com/harper/electionrag/internal/models"
)

type shot struct {
	question string
	decision models.RouteDecision
}

var routeShots = []shot{
	{"What are the main policies of the SPD?", models.RouteNeedsContext},
	{"Tell me about the weather in Argentina.", models.RouteIrrelevant},
	{"Hey, how are you?", models.RouteGeneric},
	{"Who are you?", models.RouteGeneric},
	{"When is the next election date?", models.RouteNeedsContext},
	{"Hello!", models.RouteGeneric},
}

func routeMessages(domain, question string) []llm.Message {
	msgs := []llm.Message{llm.System(fmt.Sprintf(`You are an expert at determining how to handle user questions about %s.

Instructions:
- If the question requires specific information about %s, its parties, candidates or rules, choose 'needs_context'
- If the question is a simple greeting, or a question about you or your capabilities, choose 'generic_response'
- If the question is completely unrelated to %s or politics, choose 'irrelevant'`, domain, domain, domain))}

	for _, s := range routeShots {
		msgs = append(msgs,
			llm.User("Question: "+s.question+"\nDecision:"),
			llm.Assistant(string(s.decision)),
		)
	}
	return append(msgs, llm.User("Question: "+question+"\nDecision:"))
}

func scopeMessages(domain string, scopes []models.ScopePartition, question string) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert at deciding which documents about %s can answer a question.\n", domain)
	b.WriteString("Available collections:\n")
	for _, s := range scopes {
		fmt.Fprintf(&b, "- %s: only the document %s\n", s.Label, s.Title)
	}
	fmt.Fprintf(&b, "- %s: every indexed document\n", models.ScopeAll)
	fmt.Fprintf(&b, "If the question refers to several topics, none of the collections specifically, or you cannot decide, use %q.", models.ScopeAll)

	return []llm.Message{
		llm.System(b.String()),
		llm.User("Question: " + question),
	}
}

func relevanceMessages(question string, passage models.Passage) []llm.Message {
	return []llm.Message{
		llm.System(`You are a grader assessing relevance of a retrieved document to a user question.
If the document contains keyword(s) or semantic meaning related to the user question, grade it as 'yes'. Otherwise 'no'.`),
		llm.User(fmt.Sprintf("Retrieved document: \n\n %s \n\nUser Question: %s", passage.Text, question)),
	}
}

func answerMessages(domain, question, answer string) []llm.Message {
	return []llm.Message{
		llm.System(fmt.Sprintf(`You are a grader assessing whether an answer addresses the user's question about %s.
Give a binary score 'yes' or 'no'. 'yes' means the answer addresses or resolves the question sufficiently.`, domain)),
		llm.User(`User question: "Who was the Chancellor in 2021?"
LLM generation: "Angela Merkel was the Chancellor until December 2021, then Olaf Scholz took over."
Answer Relevance:`),
		llm.Assistant(models.LabelYes),
		llm.User(fmt.Sprintf("User question: %s\nLLM generation: %s\nAnswer Relevance:", question, answer)),
	}
}

func groundingMessages(passages []models.Passage, answer string) []llm.Message {
	var facts strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&facts, "%d. %s\n\n", i+1, p.Text)
	}

	return []llm.Message{
		llm.System(`You are a grader assessing whether an LLM generation is grounded in / supported by a set of retrieved facts.
Give a binary score 'yes' or 'no'. 'yes' means that the answer is grounded in / supported by the set of facts.`),
		llm.User(fmt.Sprintf("Set of facts: \n\n %s \n\nLLM generation: %s", facts.String(), answer)),
	}
}
