// Command merchpilotd serves the merchant platform orchestration API.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/nishq/merchpilot"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("merchpilot")
	v.AutomaticEnv()

	v.SetDefault("addr", ":5000")
	v.SetDefault("db.name", "merchpilot")
	v.SetDefault("merchant_id", 1)
	v.SetDefault("worker.command", []string{"python3", "scripts/browser_agent.py"})
	v.SetDefault("worker.timeout", "5m")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.WithError(err).Fatal("failed to read config")
		}
	}

	level, err := logrus.ParseLevel(v.GetString("log.level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := sql.Open("mysql", v.GetString("db.dsn"))
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	svc := merchpilot.New(merchpilot.Config{
		DB:            db,
		DbName:        v.GetString("db.name"),
		MerchantID:    v.GetInt64("merchant_id"),
		WorkerCommand: v.GetStringSlice("worker.command"),
		TaskTimeout:   v.GetDuration("worker.timeout"),
	}, nil, nil)

	server := &http.Server{
		Addr:         v.GetString("addr"),
		Handler:      merchpilot.NewRouter(svc, nil),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logrus.WithField("addr", server.Addr).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("server shutdown failed")
	}
	svc.Shutdown(10 * time.Second)
	logrus.Info("server exited")
}
