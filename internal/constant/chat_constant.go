package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
)

// Agent personas exposed by the catalog.
const (
	AgentTypeDecisionArchitect = "arquitecto-decisiones"
)

const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusAbandoned = "abandoned"
	SessionStatusError     = "error"
)

// Decision timeline buckets as submitted by the intake form.
const (
	TimelineUrgent    = "urgente"
	TimelineTwoToFour = "2-4-semanas"
	TimelineOneToTwo  = "1-2-meses"
	TimelineFlexible  = "flexible"
)

// Usage log event types.
const (
	UsageEventChatTurn = "chat_message"
)

const (
	SubscriptionPlanFree  = "free"
	SubscriptionPlanPro   = "pro"
	SubscriptionPlanElite = "elite"
)

// Monthly message ceilings per plan.
const (
	MonthlyLimitFree  = 100
	MonthlyLimitPro   = 1000
	MonthlyLimitElite = 2000
)

// Domain event types published on the bus.
const (
	EventChatTurnCompleted = "CHAT_TURN_COMPLETED"
	EventUsageLimitReached = "USAGE_LIMIT_REACHED"
)

// Prompt template lifecycle events.
const (
	EventPromptTemplateActivated = "PROMPT_TEMPLATE_ACTIVATED"
)
