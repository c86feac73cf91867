// Command seed loads accounts from a YAML fixture into the configured database.
package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hongminglow/cashjet-be/internal/auth"
	"github.com/hongminglow/cashjet-be/internal/config"
	"github.com/hongminglow/cashjet-be/internal/ledger"
	"github.com/hongminglow/cashjet-be/internal/storage/backend"
)

func main() {
	fixturePath := flag.String("fixture", "seed.yaml", "Path to the YAML account fixture")
	printTokens := flag.Bool("tokens", false, "Print a bearer token for every seeded account")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	if err := godotenv.Load(); err != nil {
		zap.L().Info("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load(".")
	if err != nil {
		zap.L().Fatal("load config", zap.Error(err))
	}

	fixture, err := LoadFixture(*fixturePath)
	if err != nil {
		zap.L().Fatal("load fixture", zap.Error(err))
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		zap.L().Fatal("init database", zap.Error(err))
	}
	defer store.Close()

	seeded, err := Apply(ctx, ledger.NewAccountStore(store, cfg.StorageTimeout), fixture)
	if err != nil {
		zap.L().Error("seeding failed", zap.Error(err))
		return
	}

	if *printTokens {
		tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
		for _, account := range seeded {
			token, err := tokens.Generate(account)
			if err != nil {
				zap.L().Error("generate token", zap.String("email", account.Email), zap.Error(err))
				continue
			}
			fmt.Printf("%s\t%s\n", account.Email, token)
		}
	}
}
