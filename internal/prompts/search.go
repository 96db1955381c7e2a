package prompts

import (
	"fmt"
	"strings"
)

// SearchPromptName is the name the analysis prompt is registered under.
const SearchPromptName = "search_prompt"

// searchAnalysisTemplate asks the assistant to research a topic with the
// web_search tool. The single format verb is the quoted topic.
const searchAnalysisTemplate = `Please search for information about %q and provide a comprehensive analysis.

Use the web_search tool to gather current information, then:
1. Summarize the key findings
2. Identify important trends or developments
3. Provide relevant context and implications
4. Suggest additional areas for investigation

Focus on recent and authoritative sources to ensure accuracy.`

// SearchPrompt returns the research prompt for topic. Surrounding
// whitespace in topic is dropped.
func SearchPrompt(topic string) string {
	return fmt.Sprintf(searchAnalysisTemplate, strings.TrimSpace(topic))
}
