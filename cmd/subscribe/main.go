// Command subscribe starts a monthly subscription checkout for a signed-in user
// and prints the provider checkout URL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/praxis/server/internal/module/checkout/initiator"
	"github.com/praxis/server/internal/shared/logger"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

type stdoutNavigator struct{}

func (stdoutNavigator) Redirect(_ context.Context, url string) error {
	_, err := fmt.Println(url)
	return err
}

type stderrNotifier struct{}

func (stderrNotifier) Notify(_ context.Context, n initiator.Notification) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", n.Title, n.Message)
}

func main() {
	endpoint := flag.String("endpoint", "http://localhost:8080/api/billing", "billing endpoint URL")
	token := flag.String("token", os.Getenv("PRAXIS_SESSION_TOKEN"), "session access token")
	lang := flag.String("lang", "pt-BR", "notification language")
	amount := flag.Float64("amount", initiator.DefaultAmount, "plan amount")
	description := flag.String("description", initiator.DefaultDescription, "plan description")
	requireTaxID := flag.Bool("require-cpf", false, "fail when the profile has no cpf")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	verbose := flag.Bool("v", false, "log diagnostics to stderr")
	flag.Parse()

	level := "error"
	if *verbose {
		level = "debug"
	}
	zl, err := logger.NewZapLogger(&logger.Config{Level: level, Format: "text"})
	if err != nil {
		zl = zap.NewNop()
	}
	defer func() { _ = zl.Sync() }()

	tag, err := language.Parse(*lang)
	if err != nil {
		tag = language.BrazilianPortuguese
	}

	in := initiator.New(*endpoint,
		initiator.NewTokenSession(*token),
		stdoutNavigator{},
		stderrNotifier{},
		initiator.WithLogger(zl),
		initiator.WithLanguage(tag),
		initiator.WithPlan(*amount, *description),
		initiator.WithRequireTaxID(*requireTaxID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if _, err := in.Subscribe(ctx); err != nil {
		zl.Debug("subscribe failed", zap.Error(err))
		switch {
		case errors.Is(err, initiator.ErrUnauthenticated):
			os.Exit(2)
		case initiator.IsInitiationFailure(err):
			os.Exit(3)
		default:
			os.Exit(1)
		}
	}
}
