// bankimport converts a spreadsheet of questions into a subject bank:
//
//	bankimport -subject physics -in physics.xlsx -out .
//
// writes ./data/physics.json.
package main

import (
	"bytes"
	"flag"
	"log"
	"os"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/catalog"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

func main() {
	subject := flag.String("subject", "", "subject id, e.g. physics")
	in := flag.String("in", "", "input .xlsx file")
	out := flag.String("out", ".", "bank directory (data/<subject>.json is written below it)")
	sheet := flag.String("sheet", "", "sheet name (default: first sheet)")
	catPath := flag.String("catalog", "", "catalog YAML (default: built-in)")
	flag.Parse()

	if *subject == "" || *in == "" {
		flag.Usage()
		os.Exit(2)
	}
	cat, err := catalog.Load(*catPath)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	if _, ok := cat.Lookup(*subject); !ok {
		log.Fatalf("unknown subject %q (known: %v)", *subject, cat.IDs())
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	b, res, err := bank.ImportXLSX(*subject, f, *sheet)
	for _, msg := range res.Errors {
		log.Printf("skip: %s", msg)
	}
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	data, err := bank.Marshal(b)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	bs, err := storage.NewFSStore(*out)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}
	key, err := bs.Put(bank.Key(*subject), bytes.NewReader(data))
	if err != nil {
		log.Fatalf("write: %v", err)
	}
	log.Printf("%s: %d rows, %d skipped, %d questions -> %s", *subject, res.Rows, res.Skipped, b.Len(), key)
}
