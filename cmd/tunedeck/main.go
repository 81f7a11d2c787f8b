package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/tunedeck/tunedeck/internal/clock"
	"github.com/tunedeck/tunedeck/internal/config"
	"github.com/tunedeck/tunedeck/internal/migration"
	"github.com/tunedeck/tunedeck/internal/observability"
	"github.com/tunedeck/tunedeck/internal/plan"
	"github.com/tunedeck/tunedeck/internal/queue"
	"github.com/tunedeck/tunedeck/internal/seed"
	"github.com/tunedeck/tunedeck/internal/server"
	"github.com/tunedeck/tunedeck/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(func(conn *gorm.DB, node *snowflake.Node, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.IsProduction() {
				return nil
			}
			return seed.EnsureDevFixtures(conn, node)
		}),

		plan.Module,
		queue.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
