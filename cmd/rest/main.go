package main

import (
	"context"
	"log"

	"finscope-be/internal/bootstrap"
	"finscope-be/internal/config"
	"finscope-be/internal/server"
	"finscope-be/internal/tracer"
	"finscope-be/pkg/database"

	"github.com/fatih/color"
	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (optional; the workflow runs without the archive)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	color.Cyan("FinScope Session Orchestrator")
	color.Green("Environment: %s | Analysis backend: %s", cfg.App.Environment, cfg.Analysis.BaseURL)

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
