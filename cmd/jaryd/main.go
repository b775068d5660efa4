// Command jaryd compiles and executes a Jary rule file, per §6's
// "file-reading CLI" host: exit code 0 on success, 74 on file I/O
// failure (matching sysexits.h's EX_IOERR, as the distilled spec
// names it).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/CTRLRLTY/JARY-sub000/internal/value"
	"github.com/CTRLRLTY/JARY-sub000/jary"
)

const (
	exitOK     = 0
	exitIOErr  = 74
	exitCompile = 1
)

func main() {
	dbPath := flag.String("db", "jary.db", "path to the SQLite event store")
	moduleDir := flag.String("modules", "", "directory containing compiled module plugins")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: jaryd [-db path] [-modules dir] <rule-file.jary>")
		os.Exit(exitIOErr)
	}

	h, err := jary.Open(*dbPath, *moduleDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jaryd: %v\n", err)
		os.Exit(exitIOErr)
	}
	defer h.Close()

	result := h.CompileFile(flag.Arg(0))
	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}
	if !result.Ok {
		os.Exit(exitCompile)
	}

	h.OnOutput(func(rule, invocationID string, row jary.OutputView) {
		fmt.Printf("%s[%s]:", rule, invocationID)
		for i := 0; i < row.Len(); i++ {
			switch row.KindAt(i) {
			case value.Long, value.ULong, value.Ofs:
				fmt.Printf(" %d", row.LongAt(i))
			case value.Bool:
				fmt.Printf(" %t", row.BoolAt(i))
			default:
				fmt.Printf(" %s", row.StrAt(i))
			}
		}
		fmt.Println()
	})

	if err := h.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jaryd: %v\n", err)
		os.Exit(exitCompile)
	}

	os.Exit(exitOK)
}
