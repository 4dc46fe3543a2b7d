package provider

import (
	"fmt"
	"strings"

	"github.com/trueinf/geosight-new-sub000/internal/categorize"
	"github.com/trueinf/geosight-new-sub000/internal/model"
)

const systemPrompt = "You are a market research assistant. Answer with a ranked list in exactly the requested format."

// BuildPrompt renders the question sent to every provider. The outline it
// asks for (numbered items with Title/Description/Rating/Price/Website lines
// and a trailing ranking_analysis JSON block) is what the parser expects back.
// location only matters for select_location and defaults to the one named in
// the query.
func BuildPrompt(query, target string, mode model.Mode, location string) string {
	var b strings.Builder
	n := mode.MaxItems()

	fmt.Fprintf(&b, "Question: %s\n\n", strings.TrimSpace(query))
	if mode.Categorized() {
		if location == "" {
			location = categorize.LocationFromQuery(query)
		}
		fmt.Fprintf(&b, "List %d options as one numbered list from 1 to %d, in %d groups of %d, in this order:\n",
			n, n, n/categorize.BucketSize, categorize.BucketSize)
		for i, name := range categorize.BucketOrder(location) {
			fmt.Fprintf(&b, "- items %d-%d: %s\n", i*categorize.BucketSize+1, (i+1)*categorize.BucketSize, name)
		}
		b.WriteString("Do not print group headings.\n\n")
	} else {
		fmt.Fprintf(&b, "List the top %d options as a numbered list.\n\n", n)
	}

	b.WriteString("Format every item exactly like this:\n")
	b.WriteString("1. **Name**\n")
	b.WriteString("Title: Name\n")
	b.WriteString("Description: one or two sentences\n")
	b.WriteString("Rating: x.y/5\n")
	b.WriteString("Price: price range if applicable\n")
	b.WriteString("Website: domain.com\n")
	b.WriteString("Why: why it earns this rank\n\n")

	b.WriteString("After the list, output one JSON object in a ```json fence with these keys:\n")
	b.WriteString(`- "ranking_analysis": one entry per item with "rank", "target", "matched_keywords", ` +
		`"citation_domains", "sentiment" (positive|neutral|negative) and "llm_reasoning"` + "\n")
	if t := strings.TrimSpace(target); t != "" {
		fmt.Fprintf(&b, `- "keyword_position": the rank of %q in your list, or null if absent`+"\n", t)
		fmt.Fprintf(&b, `- "improvement_recommendations": up to 3 entries with "title", "description", `+
			`"priority", "impact" and "effort" describing how %s could rank higher`+"\n", t)
	}
	return b.String()
}
