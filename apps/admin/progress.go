package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/pathways/core/progress"
)

// assign reads an assignment like:
//
//	mandatoryCourses:
//	  - pathSlug: go-basics
//	    courseId: c1
//	    dueDate: 2024-03-31
//	tasks:
//	  - id: t1
//	    title: Essay
//	    kind: assignment
//	    dueDate: 2024-03-20
func (cli *commandLine) assign(ctx context.Context, learnerID, file string) error {
	data, err := readFileFunc(file)
	if err != nil {
		return errors.Wrap(err, "reading assignment")
	}

	var a progress.Assignment
	if err = yaml.Unmarshal(data, &a); err != nil {
		return errors.Wrap(err, "decoding assignment")
	}
	if err = a.Validate(cli.validate); err != nil {
		return cli.explain(err)
	}

	if err = cli.svc.Assign(ctx, learnerID, a); err != nil {
		return errors.Wrap(err, "assigning")
	}
	_, _ = fmt.Fprintf(cli.out, "assigned %d mandatory course(s) and %d task(s) to %s\n", len(a.MandatoryCourses), len(a.Tasks), learnerID)
	return nil
}

// explain turns validation errors into one readable error.
func (cli *commandLine) explain(err error) error {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		ns := vErr.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		msgs = append(msgs, ns+": "+vErr.Translate(cli.translator))
	}
	return errors.New("invalid assignment: " + strings.Join(msgs, "; "))
}

// readiness prints a table on a terminal, JSON otherwise.
func (cli *commandLine) readiness(ctx context.Context, learnerID string) error {
	r, err := cli.svc.Readiness(ctx, learnerID)
	if err != nil {
		return errors.Wrap(err, "computing readiness")
	}

	if !isTerminalFunc() {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Learner\t%s\n", learnerID)
	_, _ = fmt.Fprintf(w, "Score\t%d (%s)\n", r.Score, r.Status)
	_, _ = fmt.Fprintf(w, "Course completion\t%d%%\n", r.CourseCompletion)
	_, _ = fmt.Fprintf(w, "Mandatory courses\t%d/%d (%d%%)\n", r.MandatoryComplete, r.MandatoryTotal, r.MandatoryPct)
	_, _ = fmt.Fprintf(w, "Pending tasks\t%d (-%d)\n", r.PendingTasks, r.PendingPenalty)
	_, _ = fmt.Fprintf(w, "Overdue mandatory\t%d (-%d)\n", r.OverdueMandatory, r.OverduePenalty)
	return w.Flush()
}

func (cli *commandLine) reset(ctx context.Context, learnerID string) error {
	if err := cli.svc.Reset(ctx, learnerID); err != nil {
		return errors.Wrap(err, "resetting progress")
	}
	_, _ = fmt.Fprintf(cli.out, "progress of %s erased\n", learnerID)
	return nil
}
