package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/zhaox1n/datafuse/codec"
	"github.com/zhaox1n/datafuse/config"
	"github.com/zhaox1n/datafuse/engine"
	"github.com/zhaox1n/datafuse/errorcode"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: datafuse <data_directory> [tables.json]")
		fmt.Println("Example: datafuse ./data")
		os.Exit(1)
	}

	settings := config.Global()
	e, err := engine.NewQueryEngine(os.Args[1], settings)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) > 2 {
		if err := e.Registry().LoadFromFile(os.Args[2]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("datafuse - vectorized SQL over parquet files")
	fmt.Println("Type 'help' for available commands, 'exit' to quit")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("datafuse> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			break
		}
		if err := run(ctx, e, input); err != nil {
			fmt.Printf("Error [%s]: %v\n", errorcode.Code(err), err)
		}
	}
}

func run(ctx context.Context, e *engine.QueryEngine, input string) error {
	switch {
	case input == "help":
		printHelp()
		return nil
	case input == "\\l":
		fmt.Println("Tables:")
		for _, table := range e.ListTables() {
			fmt.Printf("  - %s\n", table)
		}
		return nil
	case strings.HasPrefix(input, "\\d "):
		info, err := e.GetTableInfo(strings.TrimSpace(input[3:]))
		if err != nil {
			return err
		}
		fmt.Print(info)
		return nil
	case strings.HasPrefix(input, "\\json "):
		out, err := e.ExecuteToJSON(ctx, strings.TrimSpace(input[6:]))
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	case strings.HasPrefix(input, "\\export "):
		return export(ctx, e, strings.TrimSpace(input[8:]))
	case strings.HasPrefix(input, "\\load "):
		result, err := e.ReadExport(ctx, strings.TrimSpace(input[6:]))
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	}

	result, err := e.Execute(ctx, input)
	if err != nil {
		return err
	}
	fmt.Println(result)
	fmt.Printf("(%d rows in %s)\n", result.NumRows(), result.Duration)
	return nil
}

// export handles "\export <file> <compression> <sql>".
func export(ctx context.Context, e *engine.QueryEngine, args string) error {
	parts := strings.SplitN(args, " ", 3)
	if len(parts) < 3 {
		return errorcode.BadArguments("usage: \\export <file> <none|gzip|snappy|zstd> <sql>")
	}
	compression, err := codec.ParseCompression(parts[1])
	if err != nil {
		return err
	}
	n, err := e.Export(ctx, parts[2], parts[0], compression)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d blocks to %s (%s)\n", n, parts[0], compression)
	return nil
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  SELECT k, count(*) FROM t GROUP BY k      - Aggregate a table")
	fmt.Println("  SELECT a + 1 AS b FROM t WHERE a > 2       - Project and filter")
	fmt.Println("  SELECT * FROM t ORDER BY a DESC LIMIT 10   - Sort and limit")
	fmt.Println()
	fmt.Println("Meta commands:")
	fmt.Println("  \\d table_name                         - Describe table schema")
	fmt.Println("  \\l                                    - List all tables")
	fmt.Println("  \\json <sql>                           - Return results as JSON")
	fmt.Println("  \\export <file> <compression> <sql>    - Write results as a block stream")
	fmt.Println("  \\load <file>                          - Print a block stream")
	fmt.Println("  help                                  - Show this help")
	fmt.Println("  exit, quit                            - Exit the program")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Table names correspond to .parquet files in the data directory")
	fmt.Println("  - DATAFUSE_* environment variables tune batch size, parallelism and sleep ceiling")
}
