package main

import (
	"fmt"
	"time"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/elector/core"
	"github.com/axiomesh/elector/repo"
	"github.com/urfave/cli/v2"
)

var journalCMD = &cli.Command{
	Name:  "journal",
	Usage: "Inspect the event journal",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "Print journaled events",
			Flags: []cli.Flag{
				&cli.Uint64Flag{
					Name:  "from",
					Usage: "first sequence number to print",
					Value: 1,
				},
			},
			Action: listJournal,
		},
		{
			Name:   "tally",
			Usage:  "Recount every election from the journal and compare with the recorded winner",
			Action: tallyJournal,
		},
	},
}

func openJournal(ctx *cli.Context) (*core.Journal, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	r, err := repo.Load(p)
	if err != nil {
		return nil, err
	}

	err = log.Initialize(
		log.WithReportCaller(r.Config.Log.ReportCaller),
		log.WithPersist(true),
		log.WithFilePath(r.LogsPath()),
		log.WithFileName(r.Config.Log.Filename),
		log.WithMaxAge(r.Config.Log.MaxAge),
		log.WithRotationTime(r.Config.Log.RotationTime),
	)
	if err != nil {
		return nil, fmt.Errorf("log initialize: %w", err)
	}

	if !r.Config.Journal.Enabled {
		return nil, fmt.Errorf("journal is disabled in %s", p)
	}
	j, err := core.OpenJournal(r.JournalPath(), r.Config.Journal.OpenRetries, r.Config.Journal.OpenBackoff)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

func listJournal(ctx *cli.Context) error {
	j, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer j.Close()

	records, err := j.Records(ctx.Uint64("from"))
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("%6d  %s  %-21s %s  %s\n",
			rec.Sequence, rec.Time.Format(time.RFC3339), rec.Kind, rec.Caller.Hex(), string(rec.Data))
	}
	fmt.Printf("%d events, last sequence %d\n", len(records), j.Sequence())
	return nil
}

func tallyJournal(ctx *cli.Context) error {
	j, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer j.Close()

	records, err := j.Records(1)
	if err != nil {
		return err
	}
	tallies, err := core.TallyJournal(records)
	if err != nil {
		return err
	}

	inconsistent := 0
	for _, t := range tallies {
		state := "open"
		switch {
		case t.Finalized:
			state = "finalized"
		case t.Reset:
			state = "reset"
		}
		fmt.Printf("election %d %q (%s): %d votes\n", t.ElectionID, t.Title, state, t.TotalVotes)
		for _, c := range t.Candidates {
			mark := ""
			if !c.IsActive {
				mark = " (inactive)"
			}
			fmt.Printf("  #%d %s [%s]: %d%s\n", c.ID, c.Name, c.Party, c.VoteCount, mark)
		}
		fmt.Printf("  leader: #%d with %d votes, tie: %t\n", t.Winner.WinnerID, t.Winner.MaxVotes, t.Winner.IsTie)
		if !t.Consistent() {
			inconsistent++
			fmt.Printf("  MISMATCH: recorded winner #%d\n", t.Recorded)
		}
	}

	if inconsistent > 0 {
		return cli.Exit(fmt.Sprintf("%d elections disagree with the journal", inconsistent), 1)
	}
	return nil
}
