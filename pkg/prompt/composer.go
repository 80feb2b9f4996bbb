package prompt

import (
	"context"
	"fmt"
	"strings"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/pkg/logger"
)

var timelineLabels = map[string]string{
	constant.TimelineUrgent:    constant.TimelineLabelUrgent,
	constant.TimelineTwoToFour: constant.TimelineLabelTwoToFour,
	constant.TimelineOneToTwo:  constant.TimelineLabelOneToTwo,
	constant.TimelineFlexible:  constant.TimelineLabelFlexible,
}

// Composer builds the system instruction for a model request.
type Composer struct {
	source TemplateSource
	logger logger.ILogger
}

func NewComposer(source TemplateSource, log logger.ILogger) *Composer {
	return &Composer{source: source, logger: log}
}

// Compose never fails. A form renders the persona prompt; otherwise the active stored
// template is used, then the persona fallback, then a generic assistant prompt.
func (c *Composer) Compose(ctx context.Context, agentType string, form *entity.DecisionFormData) string {
	if form != nil && agentType == constant.AgentTypeDecisionArchitect {
		return RenderDecisionPrompt(form)
	}

	if c.source != nil {
		template, err := c.source.ActiveTemplate(ctx, agentType)
		if err != nil {
			c.logger.Warn("PROMPT", "Active template lookup failed, using fallback", map[string]interface{}{
				"agent_type": agentType,
				"error":      err.Error(),
			})
		} else if template != nil && strings.TrimSpace(template.TemplateContent) != "" {
			return template.TemplateContent
		}
	}

	if agentType == constant.AgentTypeDecisionArchitect {
		return constant.FallbackPromptDecisionArchitect
	}
	return constant.FallbackPromptGeneric
}

// RenderDecisionPrompt is deterministic in form. The personal context section is
// omitted entirely when empty.
func RenderDecisionPrompt(form *entity.DecisionFormData) string {
	var b strings.Builder

	b.WriteString(constant.DecisionArchitectIntro)
	b.WriteString("\n\n")

	b.WriteString(constant.SectionDecisionContext)
	b.WriteString("\n")
	b.WriteString(form.DecisionContext)
	b.WriteString("\n\n")

	b.WriteString(constant.SectionTimeline)
	b.WriteString(" ")
	b.WriteString(TimelineLabel(form.Timeline))
	b.WriteString("\n\n")

	b.WriteString(constant.SectionAlternatives)
	b.WriteString("\n")
	writeNumbered(&b, form.Alternatives)
	b.WriteString("\n\n")

	b.WriteString(constant.SectionCriteria)
	b.WriteString("\n")
	writeNumbered(&b, form.Criteria)
	b.WriteString("\n\n")

	b.WriteString(constant.SectionMissingInfo)
	b.WriteString("\n")
	b.WriteString(form.MissingInfo)

	if personal := strings.TrimSpace(form.PersonalContext); personal != "" {
		b.WriteString("\n\n")
		b.WriteString(constant.SectionPersonalContext)
		b.WriteString("\n")
		b.WriteString(personal)
	}

	b.WriteString("\n\n")
	b.WriteString(constant.DecisionArchitectMission)
	return b.String()
}

// TimelineLabel maps a timeline bucket to its human-readable label.
func TimelineLabel(bucket string) string {
	if label, ok := timelineLabels[bucket]; ok {
		return label
	}
	return constant.TimelineLabelUnspecified
}

func writeNumbered(b *strings.Builder, items []string) {
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "%d. %s", i+1, item)
	}
}
