package main

import (
	"context"
	"errors"
	"flag"

	"tictactoe/internal/config"
	"tictactoe/internal/db"
	"tictactoe/internal/domain"
	"tictactoe/internal/logger"
	"tictactoe/internal/repository"
	"tictactoe/internal/service"
)

// Seeds a user into Postgres and prints a token for it.
func main() {
	username := flag.String("username", "testuser", "username")
	password := flag.String("password", "testpass", "password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", "error", err)
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect", "error", err)
	}
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	auth := service.NewAuthService(repo)

	u, err := auth.Register(ctx, *username, *password)
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		logger.Info("user already exists", "username", *username)
	case err != nil:
		logger.Fatal("create user failed", "error", err)
	default:
		logger.Info("user created", "id", u.ID, "username", u.Username)
	}

	token, u, err := auth.Login(ctx, *username, *password)
	if err != nil {
		logger.Fatal("login failed", "error", err)
	}
	logger.Info("token issued", "id", u.ID, "points", u.Points, "token", token)
}
