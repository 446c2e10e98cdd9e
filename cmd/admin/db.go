package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd reads scene metadata straight from the sqlite store without
// decoding scene bodies.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "scenes"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "scenes.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fatal("open:", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fatal("open:", err)
	}
	defer db.Close()

	switch q {
	case "scenes":
		if *limit <= 0 {
			*limit = 20
		}
		rows, err := db.Query(`SELECT name,levels,nodes,length(data),updated_at FROM scenes ORDER BY updated_at DESC LIMIT ?`, *limit)
		if err != nil {
			fatal("query:", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Levels    int    `json:"levels"`
				Nodes     int    `json:"nodes"`
				Bytes     int64  `json:"bytes"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Levels, &r.Nodes, &r.Bytes, &r.UpdatedAt); err != nil {
				fatal("scan:", err)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fatal("rows:", err)
		}

	case "meta":
		rows, err := db.Query(`SELECT key,value FROM meta ORDER BY key`)
		if err != nil {
			fatal("query:", err)
		}
		defer rows.Close()
		for rows.Next() {
			var k, v string
			if err := rows.Scan(&k, &v); err != nil {
				fatal("scan:", err)
			}
			printJSON(map[string]string{"key": k, "value": v})
		}
		if err := rows.Err(); err != nil {
			fatal("rows:", err)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want scenes|meta)")
		os.Exit(2)
	}
}
