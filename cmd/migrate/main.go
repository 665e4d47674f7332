package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/damoang/image-organizer/internal/config"
	"github.com/damoang/image-organizer/internal/database"
	"github.com/damoang/image-organizer/internal/domain"
	"github.com/damoang/image-organizer/internal/migration"
	"github.com/damoang/image-organizer/internal/repository"
	"github.com/damoang/image-organizer/internal/service"
	pkges "github.com/damoang/image-organizer/pkg/elasticsearch"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "config file path (default: CONFIG_PATH or configs/config.<APP_ENV>.yaml)")
	seed := flag.Bool("seed", false, "insert demo terms and media when the media table is empty")
	reindex := flag.Bool("reindex", false, "rebuild the Elasticsearch media index from the database")
	dryRun := flag.Bool("dry-run", false, "show table counts without migrating")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	files := config.LoadDotEnv()
	if len(files) == 0 {
		log.Println("No .env file found, using environment variables")
	}

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	db, err := database.Open(cfg.Database, logLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	if *dryRun {
		runDryRun(db)
		return
	}

	start := time.Now()
	if err := migration.Run(db); err != nil {
		log.Fatalf("[migrate] schema FAILED: %v", err)
	}
	log.Printf("[migrate] Schema up to date (%s)", cfg.Database.Driver)

	if *seed {
		if err := migration.SeedDemo(db); err != nil {
			log.Fatalf("[migrate] seed FAILED: %v", err)
		}
		log.Println("[migrate] Demo data ready")
	}

	if *reindex {
		runReindex(db, cfg)
	}

	log.Printf("[migrate] Completed in %v", time.Since(start))
}

func runDryRun(db *gorm.DB) {
	for _, model := range []interface{}{&domain.Term{}, &domain.Media{}} {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			log.Fatalf("[dry-run] parse model: %v", err)
		}
		table := stmt.Schema.Table
		if !db.Migrator().HasTable(model) {
			log.Printf("[dry-run] %s: would be created", table)
			continue
		}
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			log.Printf("[dry-run] %s: count failed: %v", table, err)
			continue
		}
		log.Printf("[dry-run] %s: %d rows, columns/indexes would be reconciled", table, count)
	}
}

func runReindex(db *gorm.DB, cfg *config.Config) {
	if !cfg.Elasticsearch.Enabled || len(cfg.Elasticsearch.Addresses) == 0 {
		log.Fatal("[reindex] elasticsearch is not enabled in config")
	}
	es, err := pkges.NewClient(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Username, cfg.Elasticsearch.Password, cfg.Elasticsearch.Index)
	if err != nil {
		log.Fatalf("[reindex] connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := es.EnsureMediaIndex(ctx); err != nil {
		log.Fatalf("[reindex] ensure index: %v", err)
	}
	n, err := service.Reindex(ctx, repository.NewMediaRepository(db), es)
	if err != nil {
		log.Fatalf("[reindex] FAILED: %v", err)
	}
	log.Printf("[reindex] Indexed %d documents into %s", n, cfg.Elasticsearch.Index)
}
