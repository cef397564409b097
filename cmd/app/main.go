package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/secondbrainhq/brain-back/internal/config"
	"github.com/secondbrainhq/brain-back/internal/db"
	"github.com/secondbrainhq/brain-back/internal/service"
	"github.com/secondbrainhq/brain-back/internal/transport"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			db.NewGormClient,
			service.NewGeneral,
			transport.NewHTTPServer,
			newLogger,
		),
		fx.Invoke(func(server *transport.HTTPServer) {}),
	)

	app.Run()
}

func newLogger() (*zap.SugaredLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
