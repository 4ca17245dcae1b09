// Probe program to inspect one bill's upstream history
// Prints the normalized events and the chamber each one is attributed to
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/billtrack/internal/history"
	"github.com/ppiankov/billtrack/internal/lis"
	"github.com/ppiankov/billtrack/internal/model"
	"github.com/ppiankov/billtrack/internal/worker"
)

func main() {
	baseURL := flag.String("base-url", model.DefaultConfig().LIS.BaseURL, "LIS API base URL")
	legislationID := flag.String("id", "", "upstream legislation id")
	number := flag.String("bill", "", "bill number used for the originating chamber, e.g. hb1")
	flag.Parse()

	if *legislationID == "" || *number == "" {
		fmt.Fprintln(os.Stderr, "usage: lis-probe -id <legislation id> -bill <number>")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := lis.NewClient(lis.Options{
		BaseURL:   *baseURL,
		Timeout:   20 * time.Second,
		UserAgent: "billtrack-probe/0.1",
		Limiter:   worker.NewLimiter(1, 1, 0),
	})

	raw, err := client.GetEventHistory(ctx, *legislationID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch history: %v\n", err)
		os.Exit(1)
	}

	bill := model.Bill{Number: strings.ToLower(*number)}
	events := history.Normalize(raw)

	fmt.Printf("=== %s (legislation %s) ===\n", strings.ToUpper(bill.Number), *legislationID)
	fmt.Printf("Originating chamber: %s\n", bill.OriginatingChamber())
	fmt.Println(strings.Repeat("-", 60))

	// Attribution works on stored rows; build them from the parsed events
	rows := make([]model.BillStatusEvent, 0, len(events))
	for i, e := range events {
		at, err := history.ParseEventDate(e.Date)
		if err != nil || e.Status == "" {
			fmt.Printf("  skip  %-19s %s\n", e.Date, e.Status)
			continue
		}
		rows = append(rows, model.BillStatusEvent{ID: int64(i + 1), Chamber: e.Chamber, Status: e.Status, Date: at, LISVoteID: e.LISVoteID})
	}
	history.SortEvents(rows)

	chambers := make([]model.Chamber, len(rows))
	if bill.CrossesChambers() {
		chambers = history.Attribute(bill.OriginatingChamber(), rows)
	} else {
		for i := range rows {
			chambers[i] = rows[i].Chamber
		}
		fmt.Println("  (single-chamber measure, upstream chambers shown)")
	}

	for i, row := range rows {
		marker := " "
		if chambers[i] != row.Chamber {
			marker = "*"
		}
		vote := ""
		if row.LISVoteID != "" {
			vote = " [vote " + row.LISVoteID + "]"
		}
		fmt.Printf("%s %s<-%s %s  %s%s\n", marker, chambers[i].Code(), row.Chamber.Code(), row.Date.Format(model.DateLayout), row.Status, vote)
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("columns: attributed<-upstream chamber; * marks a correction")
}
