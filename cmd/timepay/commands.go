package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"timepay.uz/crm/internal/app"
	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/mailer"
	"timepay.uz/crm/internal/report"
	"timepay.uz/crm/internal/resource"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageErr("%s: %v", fs.Name(), err)
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdLogin(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("login")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", os.Getenv("TIMEPAY_PASSWORD"), "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *phone == "" || *password == "" {
		return usageErr("login needs -phone and -password")
	}
	u, err := a.Session.Login(ctx, crm.Credentials{PhoneNumber: *phone, Password: *password})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Xush kelibsiz, %s (%s)\n", u.FullName, u.Role)
	return err
}

func cmdWhoami(ctx context.Context, a *app.App, out io.Writer) error {
	u, _ := a.Session.User()
	branch, ok, err := a.Session.SelectedBranch(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", u.ID)
	fmt.Fprintf(tw, "Ism\t%s\n", u.FullName)
	fmt.Fprintf(tw, "Telefon\t%s\n", u.PhoneNumber)
	fmt.Fprintf(tw, "Rol\t%s\n", u.Role)
	if ok {
		fmt.Fprintf(tw, "Filial\t%s (#%d)\n", branch.Name, branch.ID)
	} else {
		fmt.Fprintf(tw, "Filial\tbarchasi\n")
	}
	return tw.Flush()
}

func cmdList(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageErr("list needs a page name")
	}
	name := args[0]
	fs := newFlags("list")
	as := fs.Int("as", 0, "act on behalf of user id (superadmin)")
	query := fs.String("q", "", "local search")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}

	svc, err := a.Session.For(*as)
	if err != nil {
		return err
	}
	switch name {
	case "plans":
		plans, err := svc.Plans(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, plans)
	case "notifications":
		ns, err := svc.Notifications(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]any{"items": ns, "unread": crm.UnreadCount(ns)})
	}

	page, ok := resource.Pages(a.Session.Service)[name]
	if !ok {
		return usageErr("unknown page %q", name)
	}
	if *as > 0 {
		err = page.SetTarget(ctx, *as)
	} else {
		err = page.Load(ctx)
	}
	if err != nil {
		return err
	}
	page.Search(*query)
	return printJSON(out, page.Snapshot())
}

func cmdRead(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usageErr("read needs a notification id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return usageErr("bad notification id %q", args[0])
	}
	if err := a.Session.Service().MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, "O'qildi")
	return err
}

func cmdSync(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usageErr("sync needs events or employees")
	}
	svc := a.Session.Service()
	var (
		res crm.SyncResult
		err error
	)
	switch args[0] {
	case "events":
		res, err = svc.SyncEvents(ctx)
	case "employees":
		res, err = svc.SyncEmployees(ctx)
	default:
		return usageErr("unknown sync target %q", args[0])
	}
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Natija\t%s\n", res.Message)
	fmt.Fprintf(tw, "Qo'shildi\t%d\n", res.Added)
	fmt.Fprintf(tw, "O'tkazib yuborildi\t%d\n", res.Skipped)
	fmt.Fprintf(tw, "Jami\t%d\n", res.Total)
	return tw.Flush()
}

func cmdReport(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageErr("report needs daily, absent, monthly, export or show")
	}
	kind, rest := args[0], args[1:]
	fs := newFlags("report " + kind)
	date := fs.String("date", "", "YYYY-MM-DD, today when empty")
	now := time.Now()
	year := fs.Int("year", now.Year(), "report year")
	month := fs.Int("month", int(now.Month()), "report month")
	dir := fs.String("out", a.Config.ExportDir, "output directory")
	archive := fs.Bool("archive", false, "bundle the export into a .tar.xz")
	mailTo := fs.String("mail-to", "", "comma separated recipients")
	if err := parse(fs, rest); err != nil {
		return err
	}
	svc := a.Session.Service()

	switch kind {
	case "daily":
		d, err := svc.DailyAttendance(ctx, *date)
		if err != nil {
			return err
		}
		return printTable(out, report.DailyRows(d), fmt.Sprintf("Sana: %s  Jami: %d  Keldi: %d  Kechikdi: %d  Kelmadi: %d",
			d.Date, d.Stats.Total, d.Stats.Came, d.Stats.Late, d.Stats.Absent))
	case "absent":
		items, err := svc.AbsentEmployees(ctx, *date)
		if err != nil {
			return err
		}
		rows := [][]string{{"№", "Xodim", "Lavozim", "Telefon"}}
		for i, e := range items {
			rows = append(rows, []string{strconv.Itoa(i + 1), e.Name, e.Position, e.Phone})
		}
		return printTable(out, rows, fmt.Sprintf("Kelmaganlar: %d", len(items)))
	case "monthly":
		r, err := svc.MonthlyReport(ctx, *year, *month)
		if err != nil {
			return err
		}
		path, err := report.SaveMonthly(*dir, r)
		if err != nil {
			return err
		}
		return deliver(a, out, []string{path}, *archive, *mailTo, "Oylik hisobot "+filepath.Base(path))
	case "export":
		res, err := report.ExportDaily(ctx, svc, *date, *dir)
		if err != nil {
			return err
		}
		if res.Fallback() {
			fmt.Fprintf(out, "Excel yuklab bo'lmadi (%s), CSV yozildi\n", crm.UserMessage(res.Cause))
		}
		fmt.Fprintf(out, "%d qator\n", res.Rows)
		return deliver(a, out, []string{res.Path}, *archive, *mailTo, "Kunlik davomat "+crm.ReportDate(*date))
	case "show":
		if fs.NArg() != 1 {
			return usageErr("report show needs a file")
		}
		name := fs.Arg(0)
		data, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		rows, err := report.ReadRows(data, name)
		if err != nil {
			return err
		}
		return printTable(out, rows, "")
	}
	return usageErr("unknown report %q", kind)
}

// deliver optionally archives the files and mails the result.
func deliver(a *app.App, out io.Writer, files []string, archive bool, mailTo, subject string) error {
	if archive {
		var buf bytes.Buffer
		if err := report.Archive(&buf, files...); err != nil {
			return err
		}
		base := strings.TrimSuffix(files[0], filepath.Ext(files[0]))
		path := base + ".tar.xz"
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return err
		}
		files = []string{path}
	}
	for _, f := range files {
		fmt.Fprintln(out, f)
	}
	if mailTo == "" {
		return nil
	}
	if a.Mailer == nil {
		return usageErr("-mail-to needs SMTP_HOST")
	}
	err := a.Mailer.Send(mailer.Report{
		To:      strings.Split(mailTo, ","),
		Subject: subject,
		Body:    "Hisobot ilova qilindi.",
		Files:   files,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Yuborildi: %s\n", mailTo)
	return err
}

func printTable(out io.Writer, rows [][]string, footer string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if footer != "" {
		_, err := fmt.Fprintln(out, footer)
		return err
	}
	return nil
}

func cmdBranch(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageErr("branch needs select, clear or list")
	}
	switch args[0] {
	case "select":
		if len(args) < 2 {
			return usageErr("branch select <id> [name]")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil || id <= 0 {
			return usageErr("bad branch id %q", args[1])
		}
		name := strings.Join(args[2:], " ")
		if name == "" {
			name = lookupBranchName(ctx, a, id)
		}
		if err := a.Session.SelectBranch(ctx, id, name); err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Filial tanlandi: %s (#%d)\n", name, id)
		return err
	case "clear":
		if err := a.Session.SelectBranch(ctx, 0, ""); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "Barcha filiallar")
		return err
	case "list":
		branches, err := a.Session.Service().Branches(ctx)
		if err != nil {
			return err
		}
		rows := [][]string{{"ID", "Nomi"}}
		for _, b := range branches {
			rows = append(rows, []string{strconv.Itoa(b.ID), b.Name})
		}
		return printTable(out, rows, "")
	}
	return usageErr("unknown branch action %q", args[0])
}

func lookupBranchName(ctx context.Context, a *app.App, id int) string {
	branches, err := a.Session.Service().Branches(ctx)
	if err != nil {
		return ""
	}
	for _, b := range branches {
		if b.ID == id {
			return b.Name
		}
	}
	return ""
}

func cmdShiftDuration(args []string, out io.Writer) error {
	if len(args) != 2 {
		return usageErr("shift-duration <start> <end>")
	}
	d, err := crm.ShiftDuration(args[0], args[1])
	if err != nil {
		return err
	}
	h, m := crm.HoursMinutes(d)
	_, err = fmt.Fprintf(out, "%d soat %d daqiqa\n", h, m)
	return err
}
