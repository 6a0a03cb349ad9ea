package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"text/tabwriter"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db   *sql.DB
	svc  *attendance.Service
	conf *core.Config
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix")
	_, _ = fmt.Fprintln(cli.out, "  summaries [FILTERS] - print the students' attendance summaries")
	_, _ = fmt.Fprintln(cli.out, "  leaderboard [FILTERS] [-n N] - print the top N students")
	_, _ = fmt.Fprintln(cli.out, "  defaulters [FILTERS] [-threshold PERCENT] - print the students below the threshold")
	_, _ = fmt.Fprintln(cli.out, "  notify-defaulters -recipients EMAILS [FILTERS] [-threshold PERCENT] - email the defaulters")
	_, _ = fmt.Fprintln(cli.out, "FILTERS: -classroom ID -student ID -subject NAME -from YYYY-MM-DD -to YYYY-MM-DD -month YYYY-MM")
}

// reportFlags are the flags shared by the report commands.
type reportFlags struct {
	set        *flag.FlagSet
	filter     attendance.QueryFilter
	n          int
	threshold  float64
	recipients string
}

func newReportFlags(name string, conf *core.Config, out io.Writer) *reportFlags {
	rf := &reportFlags{set: flag.NewFlagSet(name, flag.ContinueOnError)}
	rf.set.SetOutput(out)
	rf.set.StringVar(&rf.filter.ClassroomID, "classroom", "", "Only this classroom.")
	rf.set.StringVar(&rf.filter.StudentID, "student", "", "Only this student.")
	rf.set.StringVar(&rf.filter.Subject, "subject", "", "Only this subject.")
	rf.set.StringVar(&rf.filter.From, "from", "", "First day, YYYY-MM-DD.")
	rf.set.StringVar(&rf.filter.To, "to", "", "Last day, YYYY-MM-DD.")
	rf.set.StringVar(&rf.filter.Month, "month", "", "Whole month, YYYY-MM. Cannot be combined with -from/-to.")
	switch name {
	case "leaderboard":
		rf.set.IntVar(&rf.n, "n", 10, "Leaderboard size.")
	case "defaulters", "notify-defaulters":
		rf.set.Float64Var(&rf.threshold, "threshold", conf.Attendance.DefaulterThreshold, "Attendance percentage below which a student is a defaulter.")
	}
	if name == "notify-defaulters" {
		rf.set.StringVar(&rf.recipients, "recipients", "", "Comma separated recipients.")
	}
	return rf
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "summaries", "leaderboard", "defaulters", "notify-defaulters":
		rf := newReportFlags(args[1], cli.conf, cli.out)
		if err := rf.set.Parse(args[2:]); err != nil {
			return errHelp
		}
		filter, err := rf.filter.Normalize()
		if err != nil {
			return err
		}
		return cli.report(context.Background(), args[1], filter, rf)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) report(ctx context.Context, cmd string, filter attendance.Filter, rf *reportFlags) error {
	var sums []attendance.Summary
	var err error

	switch cmd {
	case "summaries":
		sums, err = cli.svc.ComputeStudentSummaries(ctx, filter)
	case "leaderboard":
		sums, err = cli.svc.ComputeLeaderboard(ctx, filter, rf.n)
	case "defaulters":
		sums, err = cli.svc.ComputeDefaulters(ctx, filter, rf.threshold)
	case "notify-defaulters":
		var recipients []mail.Address
		if recipients, err = parseRecipients(rf.recipients); err != nil {
			rf.set.Usage()
			return errHelp
		}
		if sums, err = cli.svc.NotifyDefaulters(ctx, filter, rf.threshold, recipients); err == nil {
			_, _ = fmt.Fprintf(cli.out, "%d defaulter(s) %s notified to %d recipient(s)\n", len(sums), attendance.Period(filter), len(recipients))
		}
	}
	if err != nil {
		return err
	}
	return cli.printSummaries(sums)
}

func parseRecipients(to string) ([]mail.Address, error) {
	if core.CleanString(to) == "" {
		return nil, errors.New("no recipients")
	}
	return core.AttendanceConfig{NotifyRecipients: to}.Recipients()
}

func (cli *commandLine) printSummaries(sums []attendance.Summary) error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join([]string{"RANK", "STUDENT", "SUBJECT", "PRESENT", "LATE", "ABSENT", "TOTAL", "PERCENT"}, "\t"))
	for i, s := range sums {
		subject := s.Subject
		if subject == "" {
			subject = "-"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%.2f\n",
			i+1, s.StudentID, subject, s.PresentDays, s.LateDays, s.AbsentDays, s.TotalDays, s.AttendancePercent)
	}
	return w.Flush()
}
