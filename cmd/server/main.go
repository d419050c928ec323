package main

import (
	"flag"
	"log"
	"log/slog"
	"path/filepath"

	"aidmap/bot"
	"aidmap/impl/auth"
	"aidmap/impl/core"
	"aidmap/impl/invite"
	"aidmap/impl/lifecycle"
	"aidmap/impl/quota"
	"aidmap/internal/config"
	"aidmap/internal/database"
	"aidmap/internal/http-server/api"
	"aidmap/lib/logger"
	"aidmap/lib/sl"
)

const logFileName = "aidmap.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	lg.Info("starting aidmap", slog.String("config", *configPath), slog.String("env", conf.Env))

	db := database.NewMongoClient(conf)
	if db == nil {
		log.Fatal("mongo is disabled in config; aidmap cannot run without its store")
	}
	if err := db.EnsureIndexes(); err != nil {
		log.Fatal("ensure indexes: ", err)
	}
	if err := db.EnsureReferenceData(); err != nil {
		log.Fatal("ensure reference data: ", err)
	}

	var notifier *bot.TgBot
	if conf.Telegram.Enabled {
		tgBot, err := bot.NewTgBot(conf.Telegram.ApiKey, conf.Telegram.ChatId, lg)
		if err != nil {
			lg.Error("telegram bot init", sl.Err(err))
		} else {
			notifier = tgBot
			lg = slog.New(logger.NewTelegramHandler(lg.Handler(), tgBot, slog.LevelError))
		}
	}

	ledger := invite.New(db, conf.Invite.DefaultLimit, lg)
	tracker := quota.New(db)
	manager := lifecycle.New(db, tracker, lg)
	authService := auth.New(db, ledger,
		conf.Invite.AdminEmail,
		conf.Invite.AdminLimit,
		conf.Invite.DefaultLimit,
		conf.Posts.DailyLimit,
		lg,
	)

	var handlerNotifier core.Notifier
	if notifier != nil {
		handlerNotifier = notifier
	}
	handler := core.New(db, authService, manager, ledger, handlerNotifier, lg)

	if err := api.New(conf, lg, handler); err != nil {
		lg.Error("api server stopped", sl.Err(err))
	}
}
