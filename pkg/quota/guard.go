package quota

import (
	"fmt"

	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/dto"
)

// Decision is the admission verdict for one chat turn.
type Decision struct {
	Allowed bool
	Ceiling int
	Used    int
}

// Guard admits chat turns against monthly plan ceilings. It holds no state; the
// counter it reads is a single snapshot taken by the caller.
type Guard struct {
	ceilings map[string]int
}

func NewGuard() *Guard {
	return &Guard{
		ceilings: map[string]int{
			constant.SubscriptionPlanFree:  constant.MonthlyLimitFree,
			constant.SubscriptionPlanPro:   constant.MonthlyLimitPro,
			constant.SubscriptionPlanElite: constant.MonthlyLimitElite,
		},
	}
}

// Ceiling returns the monthly message limit of a plan.
func (g *Guard) Ceiling(plan string) (int, error) {
	ceiling, ok := g.ceilings[plan]
	if !ok {
		return 0, fmt.Errorf("%w: unknown subscription plan %q", dto.ErrPlanMisconfigured, plan)
	}
	return ceiling, nil
}

// Admit denies once usage reaches the ceiling. An unknown plan is a configuration
// error, never a silent default.
func (g *Guard) Admit(plan string, usage int) (Decision, error) {
	ceiling, err := g.Ceiling(plan)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed: usage < ceiling,
		Ceiling: ceiling,
		Used:    usage,
	}, nil
}
