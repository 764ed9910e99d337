package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/progress"
	logsvc "github.com/trezcool/pathways/services/logger"
	"github.com/trezcool/pathways/storage"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	// set up storage
	backend, err := storage.Open(context.Background(), conf, false)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s storage: %v", conf.Storage.Driver, err), err)
	}

	translator := core.NewTranslator()
	cli := commandLine{
		db: backend.DB,
		svc: progress.NewService(progress.ServiceDeps{
			Repo:           backend.Repo,
			Logger:         logger,
			ModuleHours:    conf.Progress.ModuleHours,
			MaxActivity:    conf.Progress.MaxActivity,
			RecentActivity: conf.Progress.RecentActivity,
		}),
		validate:   core.NewValidate(translator),
		translator: translator,
		out:        os.Stdout,
	}

	// start CLI
	err = cli.run(os.Args)
	_ = backend.Close()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
