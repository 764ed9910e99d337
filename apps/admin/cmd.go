package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/pathways/core/progress"
)

var (
	// mockable
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	readFileFunc   = os.ReadFile

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB // nil unless the storage driver is postgres
	svc        *progress.Service
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  assign -learner ID -file FILE.yaml - assign mandatory courses & tasks to a learner")
	fmt.Println("  readiness -learner ID - print a learner's readiness")
	fmt.Println("  reset -learner ID - erase a learner's progress")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	assignCmd := flag.NewFlagSet("assign", flag.ExitOnError)
	assignLearner := assignCmd.String("learner", "", "The learner's id.")
	assignFile := assignCmd.String("file", "", "YAML file listing the mandatoryCourses & tasks to assign.")

	readinessCmd := flag.NewFlagSet("readiness", flag.ExitOnError)
	readinessLearner := readinessCmd.String("learner", "", "The learner's id.")

	resetCmd := flag.NewFlagSet("reset", flag.ExitOnError)
	resetLearner := resetCmd.String("learner", "", "The learner's id. Their whole progress is erased.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "assign":
		if err := assignCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assignLearner == "" || *assignFile == "" {
			assignCmd.Usage()
			return errHelp
		}
		return cli.assign(ctx, *assignLearner, *assignFile)
	case "readiness":
		if err := readinessCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *readinessLearner == "" {
			readinessCmd.Usage()
			return errHelp
		}
		return cli.readiness(ctx, *readinessLearner)
	case "reset":
		if err := resetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetLearner == "" {
			resetCmd.Usage()
			return errHelp
		}
		return cli.reset(ctx, *resetLearner)
	default:
		cli.printUsage()
		return errHelp
	}
}
