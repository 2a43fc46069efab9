//go:build mage
// +build mage

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/praxis/server/internal/module/auth"
	"github.com/praxis/server/internal/shared/config"
	"github.com/praxis/server/internal/shared/database"
)

// Default target when running mage without arguments.
var Default = Build

// Build builds the server and subscribe binaries.
func Build() error {
	fmt.Println("Building server...")
	if err := sh.Run("go", "build", "-o", "bin/server", "./cmd/server"); err != nil {
		return err
	}
	fmt.Println("Building subscribe...")
	return sh.Run("go", "build", "-o", "bin/subscribe", "./cmd/subscribe")
}

// Test runs all unit tests.
func Test() error {
	fmt.Println("Running tests...")
	return sh.Run("go", "test", "-v", "./...")
}

// TestIntegration runs tests that need Docker (testcontainers).
func TestIntegration() error {
	fmt.Println("Running integration tests...")
	return sh.Run("go", "test", "-v", "-tags", "integration", "./...")
}

// TestCover runs tests with coverage.
func TestCover() error {
	fmt.Println("Running tests with coverage...")
	return sh.Run("go", "test", "-cover", "-coverprofile=coverage.out", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	fmt.Println("Running linter...")
	return sh.Run("golangci-lint", "run", "./...")
}

// Vet runs go vet.
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	fmt.Println("Cleaning...")
	if err := os.RemoveAll("bin"); err != nil {
		return err
	}
	if err := os.Remove("coverage.out"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println("Running go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// All runs tidy, vet, lint, test, and build.
func All() error {
	mg.SerialDeps(Tidy, Vet, Lint, Test, Build)
	return nil
}

// Dev builds and runs the server for development.
func Dev() error {
	mg.Deps(Build)
	fmt.Println("Starting server...")
	cmd := exec.Command("./bin/server")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// CI runs the CI pipeline (tidy, vet, test with coverage).
func CI() error {
	mg.SerialDeps(Tidy, Vet, TestCover)
	return nil
}

// Install installs development tools.
func Install() error {
	fmt.Println("Installing development tools...")
	if err := sh.Run("go", "install", "github.com/golangci/golangci-lint/cmd/golangci-lint@latest"); err != nil {
		return err
	}
	return sh.Run("go", "install", "github.com/swaggo/swag/cmd/swag@v1.16.6")
}

// Swagger regenerates the OpenAPI docs served at /swagger.
func Swagger() error {
	fmt.Println("Generating swagger docs...")
	return sh.Run("swag", "init", "-g", "main.go", "-d", "cmd/server,internal/module/checkout", "-o", "cmd/server/docs", "--outputTypes", "go")
}

// Token prints a one-hour session token for userID, signed with the
// configured JWT secret. Use it as PRAXIS_SESSION_TOKEN for bin/subscribe.
func Token(userID, email, fullName string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	signer := auth.NewSigner(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	}, time.Hour)
	token, err := signer.Sign(userID, email, auth.UserMetadata{FullName: fullName})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

type Migrate mg.Namespace

// Up applies all pending migrations to the configured database.
func (Migrate) Up() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fmt.Println("Applying migrations...")
	return database.Migrate(cfg.Database.URL())
}

// Down rolls back the most recent migration.
func (Migrate) Down() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	m, err := database.NewMigrator(cfg.Database.URL())
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Println("Rolling back one migration...")
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}
