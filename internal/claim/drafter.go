// Package claim drafts copyright-claim emails from a completed attribution
// result. Drafting is best-effort: any inference failure yields a fixed
// template with a note describing why, never an error.
package claim

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/memetrace/attribution/internal/config"
	"github.com/memetrace/attribution/internal/model"
	"github.com/memetrace/attribution/pkg/anthropic"
)

const fallbackSubject = "Copyright Claim for Instagram Content"

const fallbackBody = `Dear Instagram Support Team,

I am writing to file a copyright claim regarding content that has been posted on your platform without my authorization.

The post in question appears to have been copied from my original content that was first published on [Original Upload Date] at [Original Post URL].

This unauthorized use violates my exclusive rights as the copyright owner. I request that you take immediate action to remove this infringing content.

Thank you for your prompt attention to this matter.

Sincerely,
[Your Name]`

const draftPromptTemplate = `You are drafting a formal copyright claim email on behalf of a content creator whose work appears to have been reposted without permission.

Description of the reposted content:
"%s"

Original creator and post:
- Creator: %s
- Original Upload Date: %s
- Original Post URL: %s
- Match confidence explanation: %s

Write a professional, firm but courteous email to the platform's support team requesting removal of the infringing content. Reference the original upload date and post URL.

Format your response as structured JSON with the following fields:
- subject: The email subject line
- body: The full email body text`

// Drafter produces claim email drafts.
type Drafter struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
}

// NewDrafter creates a Drafter.
func NewDrafter(client anthropic.Client, cfg config.AnthropicConfig) *Drafter {
	return &Drafter{client: client, cfg: cfg}
}

// Draft produces a claim email for an attribution result. A sentinel or
// incomplete match cannot support a claim, so the fixed template comes back
// with a note explaining the substitution.
func (d *Drafter) Draft(ctx context.Context, analysis model.ContentDescription, match model.FinalMatch) model.ClaimDraft {
	if analysis.Description == "" || match.Creator == "" || match.ID < 0 {
		return fallbackDraft("Missing required analysis data")
	}

	prompt := fmt.Sprintf(draftPromptTemplate,
		analysis.Description, match.Creator, match.UploadDate, match.PostLink, match.Explanation)

	resp, err := d.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     d.cfg.TextModel,
		MaxTokens: d.cfg.MaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Text: prompt}},
	})
	if err != nil {
		zap.L().Warn("claim: draft inference failed", zap.Error(err))
		return fallbackDraft("API error: " + err.Error())
	}
	resp.Usage.LogCost(d.cfg.TextModel, "claim")

	draft, ok := parseDraft(responseText(resp))
	if !ok {
		return fallbackDraft("Model did not return a proper email format")
	}
	return draft
}

func responseText(resp *anthropic.MessageResponse) string {
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func parseDraft(text string) (model.ClaimDraft, bool) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			text = rest[:j]
		}
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var draft model.ClaimDraft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(text)
		if rerr != nil || json.Unmarshal([]byte(repaired), &draft) != nil {
			zap.L().Warn("claim: failed to parse draft JSON", zap.Error(err))
			return model.ClaimDraft{}, false
		}
	}
	if draft.Subject == "" || draft.Body == "" {
		return model.ClaimDraft{}, false
	}
	return draft, true
}

func fallbackDraft(note string) model.ClaimDraft {
	return model.ClaimDraft{
		Subject: fallbackSubject,
		Body:    fallbackBody,
		Note:    note,
	}
}
