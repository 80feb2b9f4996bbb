package main

import (
	"context"
	"flag"
	"os"
	"time"

	"agent-catalog-be/internal/bootstrap"
	"agent-catalog-be/internal/config"
	"agent-catalog-be/internal/constant"
	"agent-catalog-be/internal/entity"
	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/internal/pkg/serverutils"
	"agent-catalog-be/internal/service"
	pktNats "agent-catalog-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	email := flag.String("email", "demo@example.com", "profile email")
	plan := flag.String("plan", constant.SubscriptionPlanFree, "subscription plan (free, pro, elite)")
	version := flag.String("template-version", "v1", "version label of the seeded prompt template")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	uowFactory, err := bootstrap.NewRepositoryFactory(cfg)
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
	uow := uowFactory.NewUnitOfWork(ctx)

	color.Cyan("Seeding user profile...")
	profile, err := uow.UserProfileRepository().FindByEmail(ctx, *email)
	if err != nil {
		color.Red("Error: lookup profile: %v", err)
		os.Exit(1)
	}
	if profile != nil {
		color.Yellow("Profile '%s' already exists, skipping...", *email)
	} else {
		now := time.Now()
		profile = &entity.UserProfile{
			Id:                uuid.New(),
			Email:             *email,
			SubscriptionPlan:  *plan,
			MonthlyUsageReset: now,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := uow.UserProfileRepository().Create(ctx, profile); err != nil {
			color.Red("Error: create profile: %v", err)
			os.Exit(1)
		}
		color.Green("Created profile %s (%s)", profile.Id, *plan)
	}

	color.Cyan("Seeding prompt template...")
	template := &entity.PromptTemplate{
		Id:              uuid.New(),
		AgentType:       constant.AgentTypeDecisionArchitect,
		Version:         *version,
		TemplateContent: constant.FallbackPromptDecisionArchitect,
		IsActive:        true,
		CreatedAt:       time.Now(),
	}
	if err := uow.PromptTemplateRepository().Create(ctx, template); err != nil {
		color.Red("Error: create template: %v", err)
		os.Exit(1)
	}
	color.Green("Activated template %s (%s)", template.Version, template.Id)

	// Running instances cache the previous template until they hear about this one.
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL, logger.NewNopLogger())
		if err != nil {
			color.Yellow("Warn: NATS unavailable, caches expire on their own: %v", err)
		} else {
			service.NewChatEventPublisher(pub, logger.NewNopLogger()).PublishTemplateActivated(ctx, template.AgentType, template.Id)
			pub.Close()
		}
	}

	if cfg.App.JWTSecret != "" {
		token, err := serverutils.IssueUserToken(profile.Id.String(), cfg.App.JWTSecret, nil)
		if err != nil {
			color.Red("Error: sign token: %v", err)
			os.Exit(1)
		}
		color.Cyan("Bearer token for %s:", *email)
		color.White(token)
	}

	color.Green("✅ Seeding completed!")
}
