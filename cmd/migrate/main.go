package main

import (
	"os"

	"agent-catalog-be/internal/config"
	"agent-catalog-be/internal/model"
	"agent-catalog-be/pkg/database"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		color.Red("Error: Failed to connect to database: %v", err)
		os.Exit(1)
	}

	color.Cyan("Starting GORM migration...")

	// gen_random_uuid() is built in from postgres 13; older servers need pgcrypto.
	color.Yellow("Step 1: Extensions")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		color.Yellow("Warn: pgcrypto unavailable: %v. Continuing...", err)
	}

	color.Yellow("Step 2: AutoMigrate for 5 tables")
	models := []interface{}{
		&model.UserProfile{},
		&model.PromptTemplate{},
		&model.AgentSession{},
		&model.ChatMessage{},
		&model.UsageLog{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		color.Red("Error: AutoMigrate failed: %v", err)
		os.Exit(1)
	}

	color.Yellow("Step 3: Constraints")
	constraints := []string{
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_agent_sessions_status') THEN
		   ALTER TABLE agent_sessions ADD CONSTRAINT chk_agent_sessions_status CHECK (status IN ('active', 'completed', 'abandoned', 'error'));
		 END IF; END $$;`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_chat_messages_role') THEN
		   ALTER TABLE chat_messages ADD CONSTRAINT chk_chat_messages_role CHECK (role IN ('user', 'assistant', 'system'));
		 END IF; END $$;`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_chat_messages_session') THEN
		   ALTER TABLE chat_messages ADD CONSTRAINT fk_chat_messages_session FOREIGN KEY (session_id) REFERENCES agent_sessions(id) ON DELETE CASCADE;
		 END IF; END $$;`,
	}
	for _, sql := range constraints {
		if err := db.Exec(sql).Error; err != nil {
			color.Yellow("Warn: Failed to add constraint: %v", err)
		}
	}

	color.Green("✅ Success: Database migration completed.")
}
